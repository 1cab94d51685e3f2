package core

import (
	"context"
	"fmt"
	"sort"
	"sync"

	apperrors "github.com/dkovalov/filter-graph/errors"
)

// ── Registry ──────────────────────────────────────────────────────────────────

type registration struct {
	spec FilterSpec
	impl FilterImpl
}

// Registry maps filter names to their spec and implementation.  Registration
// is expected to finish before the first render; concurrent reads afterwards
// need no external synchronisation.
type Registry struct {
	mu      sync.RWMutex
	filters map[string]registration
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{filters: make(map[string]registration)}
}

// Register adds a filter kind.  It fails when the name is already taken.
func (r *Registry) Register(spec FilterSpec, impl FilterImpl) error {
	if spec.Name == "" {
		return apperrors.New(apperrors.CategoryRegistry, "register",
			fmt.Errorf("empty filter name"))
	}
	if impl == nil {
		return apperrors.New(apperrors.CategoryRegistry, spec.Name,
			fmt.Errorf("nil implementation"))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.filters[spec.Name]; exists {
		return apperrors.New(apperrors.CategoryRegistry, spec.Name, apperrors.ErrDuplicateFilter)
	}
	r.filters[spec.Name] = registration{spec: spec, impl: impl}
	return nil
}

// MustRegister is Register that panics on failure; for startup wiring only.
func (r *Registry) MustRegister(spec FilterSpec, impl FilterImpl) {
	if err := r.Register(spec, impl); err != nil {
		panic(err)
	}
}

// Spec returns the descriptor for a registered filter.
func (r *Registry) Spec(name string) (FilterSpec, error) {
	r.mu.RLock()
	reg, ok := r.filters[name]
	r.mu.RUnlock()
	if !ok {
		return FilterSpec{}, apperrors.New(apperrors.CategoryRegistry, name, apperrors.ErrUnknownFilter)
	}
	return reg.spec, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	_, ok := r.filters[name]
	r.mu.RUnlock()
	return ok
}

// Names returns all registered filter names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.filters))
	for n := range r.filters {
		names = append(names, n)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Execute runs the named filter's implementation.  Implementation failures
// are wrapped in the execute category so the renderer can annotate them.
func (r *Registry) Execute(ctx context.Context, name string, inputs []*Image, params *ParameterSet) (*Image, error) {
	r.mu.RLock()
	reg, ok := r.filters[name]
	r.mu.RUnlock()
	if !ok {
		return nil, apperrors.New(apperrors.CategoryRegistry, name, apperrors.ErrUnknownFilter)
	}

	out, err := reg.impl.Apply(ctx, inputs, params)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryExecute, name, err)
	}
	if out == nil {
		return nil, apperrors.New(apperrors.CategoryExecute, name,
			fmt.Errorf("implementation returned nil image"))
	}
	return out, nil
}
