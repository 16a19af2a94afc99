package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cwbudde/benchfn/internal/objective"
)

// Factory constructs a function over dims variables. A dims of zero asks for
// the function's default dimensionality.
type Factory func(dims int) (objective.Function, error)

// Registry maps function names to factories. Names are case-insensitive.
// It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Builtin returns a registry holding every function shipped with benchfn.
func Builtin() *Registry {
	r := New()
	r.MustRegister("rosenbrock", func(dims int) (objective.Function, error) {
		if dims == 0 {
			dims = objective.DefaultRosenbrockDimensions
		}
		return objective.NewRosenbrock(dims)
	})
	return r
}

// Register adds a named factory. Registering an existing name is an error.
func (r *Registry) Register(name string, f Factory) error {
	key := normalize(name)
	if key == "" {
		return fmt.Errorf("function name cannot be empty")
	}
	if f == nil {
		return fmt.Errorf("factory for %q cannot be nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[key]; exists {
		return fmt.Errorf("function %q already registered", name)
	}
	r.factories[key] = f
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(name string, f Factory) {
	if err := r.Register(name, f); err != nil {
		panic(err)
	}
}

// New constructs the named function.
func (r *Registry) New(name string, dims int) (objective.Function, error) {
	r.mu.RLock()
	f, ok := r.factories[normalize(name)]
	r.mu.RUnlock()

	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	fn, err := f(dims)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", name, err)
	}
	return fn, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// ErrNotFound is returned when a requested function is not registered.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents an unknown function name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	if e.Name != "" {
		return "function not registered: " + e.Name
	}
	return "function not registered"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
