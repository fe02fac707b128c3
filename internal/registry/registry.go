// Package registry holds the named bindings a test module declares:
// controller constructors and plain values standing in for services. It is
// the explicit replacement for a framework's ambient injector; every harness
// receives its registry as a parameter.
package registry

import (
	"errors"
	"fmt"

	"github.com/mledford/viewharness/internal/scope"
	"github.com/mledford/viewharness/internal/validation"
)

// ErrResolution is the match target for ResolutionError values.
var ErrResolution = errors.New("binding not found")

// ResolutionError reports a controller or value name with no binding in the
// registry.
type ResolutionError struct {
	Kind string // "controller" or "value"
	Name string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Kind, e.Name, ErrResolution)
}

// Is makes errors.Is(err, ErrResolution) hold for wrapped ResolutionErrors.
func (e *ResolutionError) Is(target error) bool {
	return target == ErrResolution
}

// Controller initializes a fresh scope. deps resolves named values: extra
// bindings supplied at instantiation shadow registry values.
type Controller func(s *scope.Scope, deps Injector) error

// Injector resolves named values for a controller under construction.
type Injector interface {
	// Value returns the binding for name, or a ResolutionError.
	Value(name string) (any, error)
}

var _ Injector = (*Registry)(nil)

// Registry is a plain, passed-in set of named bindings.
type Registry struct {
	controllers map[string]Controller
	values      map[string]any
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		controllers: make(map[string]Controller),
		values:      make(map[string]any),
	}
}

// RegisterController binds a controller constructor under name. Re-registering
// a name replaces the previous binding, matching last-wins module semantics.
func (r *Registry) RegisterController(name string, c Controller) error {
	name, err := validation.ValidateName(name)
	if err != nil {
		return fmt.Errorf("register controller: %w", err)
	}
	if c == nil {
		return fmt.Errorf("register controller %q: nil constructor", name)
	}
	r.controllers[name] = c
	return nil
}

// RegisterValue binds a plain value (service, stand-in) under name.
func (r *Registry) RegisterValue(name string, v any) error {
	name, err := validation.ValidateName(name)
	if err != nil {
		return fmt.Errorf("register value: %w", err)
	}
	r.values[name] = v
	return nil
}

// Controller returns the constructor bound under name.
func (r *Registry) Controller(name string) (Controller, error) {
	c, ok := r.controllers[name]
	if !ok {
		return nil, &ResolutionError{Kind: "controller", Name: name}
	}
	return c, nil
}

// Value implements Injector against the registry's value bindings.
func (r *Registry) Value(name string) (any, error) {
	v, ok := r.values[name]
	if !ok {
		return nil, &ResolutionError{Kind: "value", Name: name}
	}
	return v, nil
}

// With returns an Injector that resolves from extra first, then falls back to
// the registry. Used to layer per-instantiation bindings over module ones.
func (r *Registry) With(extra map[string]any) Injector {
	if len(extra) == 0 {
		return r
	}
	return &layered{extra: extra, base: r}
}

type layered struct {
	extra map[string]any
	base  Injector
}

func (l *layered) Value(name string) (any, error) {
	if v, ok := l.extra[name]; ok {
		return v, nil
	}
	return l.base.Value(name)
}
