package store

import (
	"time"

	"github.com/google/uuid"
)

// RunConfig holds the settings a run was started with.
type RunConfig struct {
	Function string    `json:"function"`
	Dims     int       `json:"dims"`
	Method   string    `json:"method"`
	Iters    int       `json:"iters"`
	PopSize  int       `json:"popSize,omitempty"` // mayfly only
	Seed     int64     `json:"seed"`
	Start    []float64 `json:"start,omitempty"`
}

// Run is a finished optimization run.
type Run struct {
	ID     string    `json:"id"`
	Config RunConfig `json:"config"`

	// InitialF is the value at the starting point, when one was used
	InitialF float64 `json:"initialF"`

	BestX       []float64     `json:"bestX"`
	BestF       float64       `json:"bestF"`
	Evaluations int64         `json:"evaluations"`
	Iterations  int           `json:"iterations"`
	Status      string        `json:"status"`
	Runtime     time.Duration `json:"runtime"`
	Error       string        `json:"error,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// RunInfo contains metadata about a run without the point data.
type RunInfo struct {
	ID        string    `json:"id"`
	Function  string    `json:"function"`
	Dims      int       `json:"dims"`
	Method    string    `json:"method"`
	BestF     float64   `json:"bestF"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRun creates a run record with a fresh ID.
func NewRun(config RunConfig) *Run {
	return &Run{
		ID:        uuid.New().String(),
		Config:    config,
		Timestamp: time.Now(),
	}
}

// ToInfo converts a full Run to RunInfo (metadata only).
func (r *Run) ToInfo() RunInfo {
	return RunInfo{
		ID:        r.ID,
		Function:  r.Config.Function,
		Dims:      r.Config.Dims,
		Method:    r.Config.Method,
		BestF:     r.BestF,
		Status:    r.Status,
		Timestamp: r.Timestamp,
	}
}

// Validate checks if the run has valid data.
func (r *Run) Validate() error {
	if err := ValidateID(r.ID); err != nil {
		return err
	}
	if r.Config.Function == "" {
		return &ValidationError{Field: "Config.Function", Reason: "cannot be empty"}
	}
	if r.Config.Dims < 2 {
		return &ValidationError{Field: "Config.Dims", Reason: "must be at least 2"}
	}
	if r.Config.Method == "" {
		return &ValidationError{Field: "Config.Method", Reason: "cannot be empty"}
	}
	if r.Config.Start != nil && len(r.Config.Start) != r.Config.Dims {
		return &ValidationError{Field: "Config.Start", Reason: "length must match Config.Dims"}
	}
	if r.BestX != nil && len(r.BestX) != r.Config.Dims {
		return &ValidationError{Field: "BestX", Reason: "length must match Config.Dims"}
	}
	if r.Evaluations < 0 {
		return &ValidationError{Field: "Evaluations", Reason: "cannot be negative"}
	}
	if r.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	return nil
}

// ValidateID checks that id is a run ID. IDs become path components, so
// anything that is not a UUID is rejected.
func ValidateID(id string) error {
	if id == "" {
		return &ValidationError{Field: "ID", Reason: "cannot be empty"}
	}
	if _, err := uuid.Parse(id); err != nil {
		return &ValidationError{Field: "ID", Reason: "must be a UUID"}
	}
	return nil
}

// ValidationError represents a run validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
