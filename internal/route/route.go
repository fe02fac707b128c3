// Package route holds the declarative route table under test: path pattern
// to template reference, controller name, and optional named resolves.
package route

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mledford/viewharness/internal/registry"
	"github.com/mledford/viewharness/internal/validation"
)

// ErrDuplicatePattern is returned when a pattern is added twice; each pattern
// maps to at most one entry.
var ErrDuplicatePattern = errors.New("duplicate route pattern")

// Resolve is a named asynchronous pre-condition a route declares. During a
// test it runs synchronously against stand-in dependencies resolved through
// the injector.
type Resolve func(ctx context.Context, deps registry.Injector) (any, error)

// Route is one entry in the table.
type Route struct {
	// Pattern is the path pattern, gorilla/mux syntax ("/users/{id}").
	Pattern string
	// Template is the template reference fetched when the route activates.
	Template string
	// Controller names the controller instantiated when the route activates.
	Controller string
	// Resolves are the route's named pre-conditions, if any.
	Resolves map[string]Resolve
}

// Table is a route table with a designated fallback path for unmatched
// navigation. Patterns are compiled through gorilla/mux, so matching and
// variable extraction behave like the router the application ships with.
type Table struct {
	router   *mux.Router
	entries  map[string]*Route
	fallback string
}

// NewTable returns an empty table with fallback path "/".
func NewTable() *Table {
	return &Table{
		router:   mux.NewRouter(),
		entries:  make(map[string]*Route),
		fallback: "/",
	}
}

// Add registers a route. The pattern and controller name are validated; a
// pattern already present fails with ErrDuplicatePattern.
func (t *Table) Add(r Route) error {
	pattern, err := validation.ValidatePattern(r.Pattern)
	if err != nil {
		return fmt.Errorf("route %q: %w", r.Pattern, err)
	}
	ctrl, err := validation.ValidateName(r.Controller)
	if err != nil {
		return fmt.Errorf("route %q controller: %w", pattern, err)
	}
	if _, ok := t.entries[pattern]; ok {
		return fmt.Errorf("route %q: %w", pattern, ErrDuplicatePattern)
	}
	for name := range r.Resolves {
		if _, err := validation.ValidateName(name); err != nil {
			return fmt.Errorf("route %q resolve: %w", pattern, err)
		}
	}

	muxRoute := t.router.Path(pattern).Name(pattern)
	if err := muxRoute.GetError(); err != nil {
		return fmt.Errorf("route %q: %w", pattern, err)
	}

	entry := r
	entry.Pattern = pattern
	entry.Controller = ctrl
	t.entries[pattern] = &entry
	return nil
}

// SetFallback designates the path unmatched navigation falls back to. The
// path itself is resolved through Match at settle time, so the fallback
// entry's template and controller apply unchanged.
func (t *Table) SetFallback(path string) error {
	p, err := validation.ValidatePattern(path)
	if err != nil {
		return fmt.Errorf("fallback: %w", err)
	}
	t.fallback = p
	return nil
}

// Fallback returns the designated fallback path.
func (t *Table) Fallback() string {
	return t.fallback
}

// Len returns the number of registered routes.
func (t *Table) Len() int {
	return len(t.entries)
}

// Match returns the route matching path plus extracted path variables, or
// ok=false when no pattern matches.
func (t *Table) Match(path string) (*Route, map[string]string, bool) {
	req, err := http.NewRequest(http.MethodGet, path, nil)
	if err != nil {
		return nil, nil, false
	}
	var m mux.RouteMatch
	if !t.router.Match(req, &m) || m.Route == nil {
		return nil, nil, false
	}
	entry, ok := t.entries[m.Route.GetName()]
	if !ok {
		return nil, nil, false
	}
	return entry, m.Vars, true
}
