// Package runtime is the minimal framework runtime the harnesses drive: a
// location accessor, a pending-navigation flag, and the settle cycle that
// flushes a navigation into an active route with an instantiated controller.
package runtime

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mledford/viewharness/internal/observability"
	"github.com/mledford/viewharness/internal/registry"
	"github.com/mledford/viewharness/internal/route"
	"github.com/mledford/viewharness/internal/scope"
)

// RouteParamsBinding is the injector name under which extracted path
// variables are offered to controllers and resolves.
const RouteParamsBinding = "routeParams"

// TemplateLoader resolves a template reference to markup.
type TemplateLoader interface {
	Load(ctx context.Context, ref string) (string, error)
}

// Active is the state published by a successful settle cycle.
type Active struct {
	Route    *route.Route
	Params   map[string]string
	Template string // fetched markup
	Scope    *scope.Scope
}

// Runtime owns one test case's location and route state. Not thread-safe;
// each test case gets its own instance.
type Runtime struct {
	log     *zap.Logger
	runID   string
	table   *route.Table
	reg     *registry.Registry
	loader  TemplateLoader
	path    string
	pending bool
	active  *Active
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger attaches a logger; it is annotated with the run ID.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runtime) { r.log = logger }
}

// New creates a runtime over the given route table, registry, and template
// loader. The location starts at "/" with no pending navigation and no
// active route.
func New(table *route.Table, reg *registry.Registry, loader TemplateLoader, opts ...Option) *Runtime {
	r := &Runtime{
		runID:  uuid.New().String(),
		table:  table,
		reg:    reg,
		loader: loader,
		path:   "/",
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = observability.RunLogger(r.log, r.runID)
	return r
}

// RunID returns this runtime's correlation ID.
func (r *Runtime) RunID() string {
	return r.runID
}

// Path returns the current location path.
func (r *Runtime) Path() string {
	return r.path
}

// SetPath records a navigation. Nothing activates until Settle runs.
func (r *Runtime) SetPath(path string) {
	r.path = path
	r.pending = true
	r.log.Debug("navigation recorded", zap.String("path", path))
}

// Active returns the currently active route state, or nil before the first
// successful settle.
func (r *Runtime) Active() *Active {
	return r.active
}

// Settle performs one synchronous flush. With no pending navigation it is a
// no-op, so settling twice never changes the active route. A pending
// navigation is matched against the table (falling back to the designated
// fallback path when unmatched), its template is loaded, and its controller
// is instantiated against a fresh scope. On failure the navigation stays
// pending so a test can repair its declarations and settle again.
func (r *Runtime) Settle(ctx context.Context) error {
	if !r.pending {
		observability.SettleCyclesTotal.WithLabelValues("noop").Inc()
		r.log.Debug("settle with nothing pending")
		return nil
	}

	matched, params, ok := r.table.Match(r.path)
	outcome := "matched"
	if !ok {
		outcome = "fallback"
		fallback := r.table.Fallback()
		matched, params, ok = r.table.Match(fallback)
		if !ok {
			observability.SettleCyclesTotal.WithLabelValues("error").Inc()
			return fmt.Errorf("fallback path %q matches no route", fallback)
		}
		r.log.Debug("unmatched path, using fallback",
			zap.String("path", r.path), zap.String("fallback", fallback))
	}

	markup, err := r.loader.Load(ctx, matched.Template)
	if err != nil {
		observability.SettleCyclesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("activate %q: %w", matched.Pattern, err)
	}

	ctrl, err := r.reg.Controller(matched.Controller)
	if err != nil {
		observability.SettleCyclesTotal.WithLabelValues("error").Inc()
		observability.ControllerInstantiationsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("activate %q: %w", matched.Pattern, err)
	}

	sc := scope.New()
	inj := r.reg.With(map[string]any{RouteParamsBinding: params})
	if err := ctrl(sc, inj); err != nil {
		observability.ControllerInstantiationsTotal.WithLabelValues("error").Inc()
		observability.SettleCyclesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("controller %q: %w", matched.Controller, err)
	}
	observability.ControllerInstantiationsTotal.WithLabelValues("ok").Inc()

	if r.active != nil {
		r.active.Scope.Destroy()
	}
	r.active = &Active{
		Route:    matched,
		Params:   params,
		Template: markup,
		Scope:    sc,
	}
	r.pending = false

	observability.NavigationsTotal.WithLabelValues(outcome).Inc()
	observability.SettleCyclesTotal.WithLabelValues("applied").Inc()
	r.log.Info("route activated",
		zap.String("path", r.path),
		zap.String("pattern", matched.Pattern),
		zap.String("controller", matched.Controller),
		zap.String("outcome", outcome))
	return nil
}

// InvokeResolve runs the named resolve of the active route synchronously,
// with the route params layered into the injector. The route must have been
// activated by a settle first.
func (r *Runtime) InvokeResolve(ctx context.Context, name string) (any, error) {
	if r.active == nil {
		observability.ResolveInvocationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("no active route; settle first")
	}
	res, ok := r.active.Route.Resolves[name]
	if !ok {
		observability.ResolveInvocationsTotal.WithLabelValues("error").Inc()
		return nil, &registry.ResolutionError{Kind: "resolve", Name: name}
	}

	inj := r.reg.With(map[string]any{RouteParamsBinding: r.active.Params})
	v, err := res(ctx, inj)
	if err != nil {
		observability.ResolveInvocationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("resolve %q: %w", name, err)
	}
	observability.ResolveInvocationsTotal.WithLabelValues("ok").Inc()
	return v, nil
}
