package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cwbudde/benchfn/internal/objective"
	"github.com/cwbudde/benchfn/internal/registry"
	"github.com/cwbudde/benchfn/internal/runner"
	"github.com/cwbudde/benchfn/internal/store"
)

// Limits bounds what a single request may ask for. A zero field is unlimited.
type Limits struct {
	// MaxDims applies to value, gradient and starting-point requests
	MaxDims int
	// MaxMatrixDims applies where n×n matrices are allocated: Hessian
	// evaluations and optimization runs
	MaxMatrixDims int
	MaxIters      int
	MaxPopSize    int
	MaxBodyBytes  int64
}

// DefaultLimits matches the config defaults.
func DefaultLimits() Limits {
	return Limits{
		MaxDims:       100000,
		MaxMatrixDims: 1000,
		MaxIters:      100000,
		MaxPopSize:    1000,
		MaxBodyBytes:  1 << 20,
	}
}

// Server represents the HTTP server
type Server struct {
	runner   *runner.Runner
	gatherer prometheus.Gatherer
	limits   Limits
	addr     string
	server   *http.Server
}

// NewServer creates a new HTTP server. gatherer may be nil to disable /metrics.
func NewServer(addr string, r *runner.Runner, gatherer prometheus.Gatherer) *Server {
	return &Server{
		runner:   r,
		gatherer: gatherer,
		limits:   DefaultLimits(),
		addr:     addr,
		server: &http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// SetLimits replaces the request limits.
func (s *Server) SetLimits(l Limits) {
	s.limits = l
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/functions", s.handleListFunctions)
	mux.HandleFunc("POST /api/v1/functions/{name}/eval", s.handleEval)
	mux.HandleFunc("POST /api/v1/functions/{name}/start", s.handleStart)

	mux.HandleFunc("POST /api/v1/runs", s.handleCreateRun)
	mux.HandleFunc("GET /api/v1/runs", s.handleListRuns)
	mux.HandleFunc("GET /api/v1/runs/{id}", s.handleGetRun)
	mux.HandleFunc("GET /api/v1/runs/{id}/trace", s.handleGetTrace)
	mux.HandleFunc("DELETE /api/v1/runs/{id}", s.handleDeleteRun)

	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	return s.loggingMiddleware(s.corsMiddleware(mux))
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.server.Handler = s.Handler()

	slog.Info("Starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// FunctionInfo describes a registered function.
type FunctionInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	DefaultDims int    `json:"defaultDims"`
	Features    string `json:"features"`
}

// handleListFunctions handles GET /api/v1/functions
func (s *Server) handleListFunctions(w http.ResponseWriter, r *http.Request) {
	names := s.runner.Registry.Names()
	infos := make([]FunctionInfo, 0, len(names))
	for _, name := range names {
		fn, err := s.runner.Registry.New(name, 0)
		if err != nil {
			slog.Warn("Cannot instantiate function", "name", name, "error", err)
			continue
		}
		infos = append(infos, FunctionInfo{
			Name:        name,
			DisplayName: fn.Name(),
			DefaultDims: fn.NumberOfVariables(),
			Features:    fn.Features().String(),
		})
	}
	writeJSON(w, http.StatusOK, infos)
}

// EvalRequest is the body of POST /api/v1/functions/{name}/eval.
// Dims defaults to len(X).
type EvalRequest struct {
	Dims  int       `json:"dims,omitempty"`
	X     []float64 `json:"x"`
	Order int       `json:"order"`
}

// EvalResponse carries the value and, depending on the order, derivatives.
type EvalResponse struct {
	Value    float64     `json:"value"`
	Gradient []float64   `json:"gradient,omitempty"`
	Hessian  [][]float64 `json:"hessian,omitempty"`
}

// handleEval handles POST /api/v1/functions/{name}/eval
func (s *Server) handleEval(w http.ResponseWriter, r *http.Request) {
	var req EvalRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Dims == 0 {
		req.Dims = len(req.X)
	}
	maxDims := s.limits.MaxDims
	if objective.Order(req.Order) == objective.OrderSecond {
		maxDims = s.limits.MaxMatrixDims
	}
	if err := checkLimit("dims", req.Dims, maxDims); err != nil {
		writeError(w, err)
		return
	}

	fn, err := s.runner.Function(r.PathValue("name"), req.Dims)
	if err != nil {
		writeError(w, err)
		return
	}

	resp, err := evaluate(fn, req.X, objective.Order(req.Order))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func evaluate(fn objective.Function, x []float64, order objective.Order) (*EvalResponse, error) {
	switch order {
	case objective.OrderValue:
		v, err := fn.Eval(x)
		if err != nil {
			return nil, err
		}
		return &EvalResponse{Value: v}, nil

	case objective.OrderFirst:
		fo, ok := fn.(objective.FirstOrder)
		if !ok || !fn.Features().Has(objective.HasFirstDerivative) {
			return nil, errUnsupported(fn, order)
		}
		var d objective.FirstOrderDerivative
		v, err := fo.EvalDerivative(x, &d)
		if err != nil {
			return nil, err
		}
		return &EvalResponse{Value: v, Gradient: d.Gradient}, nil

	case objective.OrderSecond:
		so, ok := fn.(objective.SecondOrder)
		if !ok || !fn.Features().Has(objective.HasSecondDerivative) {
			return nil, errUnsupported(fn, order)
		}
		var d objective.SecondOrderDerivative
		v, err := so.EvalSecondDerivative(x, &d)
		if err != nil {
			return nil, err
		}
		n, _ := d.Hessian.Dims()
		rows := make([][]float64, n)
		for i := range rows {
			rows[i] = d.Hessian.RawRowView(i)
		}
		return &EvalResponse{Value: v, Gradient: d.Gradient, Hessian: rows}, nil

	default:
		return nil, errUnsupported(fn, order)
	}
}

// StartRequest is the body of POST /api/v1/functions/{name}/start.
type StartRequest struct {
	Dims int   `json:"dims,omitempty"`
	Seed int64 `json:"seed"`
}

// handleStart handles POST /api/v1/functions/{name}/start
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := checkLimit("dims", req.Dims, s.limits.MaxDims); err != nil {
		writeError(w, err)
		return
	}

	fn, err := s.runner.Function(r.PathValue("name"), req.Dims)
	if err != nil {
		writeError(w, err)
		return
	}
	x, err := runner.StartingPoint(fn, req.Seed)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]float64{"x": x})
}

// handleCreateRun handles POST /api/v1/runs
func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var config store.RunConfig
	if !s.decode(w, r, &config) {
		return
	}
	if config.Function == "" {
		http.Error(w, "function is required", http.StatusBadRequest)
		return
	}
	for _, err := range []error{
		checkLimit("dims", max(config.Dims, len(config.Start)), s.limits.MaxMatrixDims),
		checkLimit("iters", config.Iters, s.limits.MaxIters),
		checkLimit("popSize", config.PopSize, s.limits.MaxPopSize),
	} {
		if err != nil {
			writeError(w, err)
			return
		}
	}

	run, err := s.runner.Run(r.Context(), config)
	if run == nil {
		writeError(w, err)
		return
	}
	if err != nil {
		slog.Warn("Run finished with error", "id", run.ID, "error", err)
	}
	writeJSON(w, http.StatusCreated, run)
}

// handleListRuns handles GET /api/v1/runs
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	infos, err := s.runner.Store.ListRuns()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

// handleGetRun handles GET /api/v1/runs/{id}
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	run, err := s.runner.Store.LoadRun(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleGetTrace handles GET /api/v1/runs/{id}/trace
func (s *Server) handleGetTrace(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	entries, err := store.ReadTrace(s.runner.Store.BaseDir(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleDeleteRun handles DELETE /api/v1/runs/{id}
func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	if err := s.runner.Store.DeleteRun(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.runner.Store == nil {
		http.Error(w, "Run storage is disabled", http.StatusServiceUnavailable)
		return false
	}
	return true
}

// decode reads a JSON body of at most MaxBodyBytes into v. On failure it
// writes the response and returns false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body := r.Body
	if s.limits.MaxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.limits.MaxBodyBytes)
	}
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return false
		}
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return false
	}
	return true
}

type limitError struct {
	field    string
	got, max int
}

func (e *limitError) Error() string {
	return fmt.Sprintf("%s %d exceeds the server limit of %d", e.field, e.got, e.max)
}

func checkLimit(field string, got, limit int) error {
	if limit > 0 && got > limit {
		return &limitError{field: field, got: got, max: limit}
	}
	return nil
}

type unsupportedError struct {
	function string
	order    objective.Order
}

func (e *unsupportedError) Error() string {
	return fmt.Sprintf("%s does not support order %d (%s)", e.function, int(e.order), e.order)
}

func errUnsupported(fn objective.Function, order objective.Order) error {
	return &unsupportedError{function: fn.Name(), order: order}
}

// writeError maps domain errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var unsupported *unsupportedError
	var invalid *store.ValidationError
	var limit *limitError
	switch {
	case errors.Is(err, registry.ErrNotFound), errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, objective.ErrDimension), errors.As(err, &unsupported), errors.As(err, &invalid),
		errors.As(err, &limit):
		status = http.StatusBadRequest
	case errors.Is(err, context.Canceled):
		status = http.StatusRequestTimeout
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
