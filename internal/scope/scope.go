package scope

import "errors"

// ErrDestroyed is returned when writing to a scope after Destroy.
var ErrDestroyed = errors.New("scope destroyed")

// Scope is the mutable data context a controller populates for its view.
// A fresh scope is created per controller instantiation and discarded when
// the test case tears down. Not thread-safe; the harness execution model is
// single-threaded by convention.
type Scope struct {
	fields    map[string]any
	destroyed bool
	onDestroy []func()
}

// New returns a fresh, empty scope.
func New() *Scope {
	return &Scope{fields: make(map[string]any)}
}

// Set assigns a field on the scope. Values may be anything a controller
// assigns, including func values acting as scope methods. Returns
// ErrDestroyed after Destroy.
func (s *Scope) Set(name string, value any) error {
	if s.destroyed {
		return ErrDestroyed
	}
	s.fields[name] = value
	return nil
}

// Get returns the field value and whether it is present.
func (s *Scope) Get(name string) (any, bool) {
	v, ok := s.fields[name]
	return v, ok
}

// Has reports whether the field is present.
func (s *Scope) Has(name string) bool {
	_, ok := s.fields[name]
	return ok
}

// Len returns the number of assigned fields.
func (s *Scope) Len() int {
	return len(s.fields)
}

// Call invokes a scope method set via Set as a func() any and returns its
// result. Returns false if the field is absent or not callable with that
// shape.
func (s *Scope) Call(name string) (any, bool) {
	v, ok := s.fields[name]
	if !ok {
		return nil, false
	}
	fn, ok := v.(func() any)
	if !ok {
		return nil, false
	}
	return fn(), true
}

// OnDestroy registers fn to run when the scope is destroyed. Controllers use
// this to release what they set up during initialization.
func (s *Scope) OnDestroy(fn func()) {
	if fn == nil {
		return
	}
	s.onDestroy = append(s.onDestroy, fn)
}

// Destroy marks the scope destroyed and runs OnDestroy listeners in
// registration order. Fields stay readable so assertions can still inspect
// them; writes fail. Destroying twice is a no-op.
func (s *Scope) Destroy() {
	if s.destroyed {
		return
	}
	s.destroyed = true
	for _, fn := range s.onDestroy {
		fn()
	}
	s.onDestroy = nil
}

// Destroyed reports whether Destroy has run.
func (s *Scope) Destroyed() bool {
	return s.destroyed
}
