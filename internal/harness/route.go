// Package harness exposes the two test scaffolds: RouteHarness drives
// navigation and settle cycles over a route table, ControllerHarness
// instantiates controllers against fresh scopes. The two are independent;
// a test uses whichever fits.
package harness

import (
	"context"

	"go.uber.org/zap"

	"github.com/mledford/viewharness/internal/httpstub"
	"github.com/mledford/viewharness/internal/registry"
	"github.com/mledford/viewharness/internal/route"
	"github.com/mledford/viewharness/internal/runtime"
	"github.com/mledford/viewharness/internal/scope"
	"github.com/mledford/viewharness/internal/templatecache"
	"github.com/mledford/viewharness/internal/templates"
)

// RouteHarness verifies route resolution: navigate, settle once, assert on
// the resulting active controller and template.
type RouteHarness struct {
	rt   *runtime.Runtime
	stub *httpstub.Server
}

// RouteOption configures a RouteHarness.
type RouteOption func(*routeConfig)

type routeConfig struct {
	logger *zap.Logger
	stub   *httpstub.Server
	cache  templatecache.Cache
}

// WithLogger attaches a logger to the harness and its stub.
func WithLogger(logger *zap.Logger) RouteOption {
	return func(c *routeConfig) { c.logger = logger }
}

// WithStub supplies a pre-configured network stand-in instead of a fresh one.
func WithStub(s *httpstub.Server) RouteOption {
	return func(c *routeConfig) { c.stub = s }
}

// WithTemplateCache supplies the template cache backend; defaults to an
// in-memory cache private to this harness.
func WithTemplateCache(cache templatecache.Cache) RouteOption {
	return func(c *routeConfig) { c.cache = cache }
}

// NewRouteHarness builds a harness over the given route table and registry.
// Each harness owns an isolated runtime; nothing is shared between harnesses.
func NewRouteHarness(table *route.Table, reg *registry.Registry, opts ...RouteOption) *RouteHarness {
	cfg := &routeConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.stub == nil {
		var stubOpts []httpstub.Option
		if cfg.logger != nil {
			stubOpts = append(stubOpts, httpstub.WithLogger(cfg.logger))
		}
		cfg.stub = httpstub.NewServer(stubOpts...)
	}
	if cfg.cache == nil {
		cfg.cache = templatecache.NewInMemoryCache()
	}

	var loaderOpts []templates.Option
	if cfg.logger != nil {
		loaderOpts = append(loaderOpts, templates.WithLogger(cfg.logger))
	}
	loader := templates.NewLoader(cfg.stub, cfg.cache, loaderOpts...)

	var rtOpts []runtime.Option
	if cfg.logger != nil {
		rtOpts = append(rtOpts, runtime.WithLogger(cfg.logger))
	}
	return &RouteHarness{
		rt:   runtime.New(table, reg, loader, rtOpts...),
		stub: cfg.stub,
	}
}

// Stub returns the harness's network stand-in for declaring expectations.
func (h *RouteHarness) Stub() *httpstub.Server {
	return h.stub
}

// RunID returns the harness run correlation ID.
func (h *RouteHarness) RunID() string {
	return h.rt.RunID()
}

// Navigate records a navigation to path. The route does not activate until
// Settle runs once.
func (h *RouteHarness) Navigate(path string) {
	h.rt.SetPath(path)
}

// Path returns the current location path.
func (h *RouteHarness) Path() string {
	return h.rt.Path()
}

// Settle flushes the pending navigation, if any. Settling again without a
// new navigation changes nothing.
func (h *RouteHarness) Settle(ctx context.Context) error {
	return h.rt.Settle(ctx)
}

// ActiveController returns the active route's controller name, or "" when no
// route has activated yet.
func (h *RouteHarness) ActiveController() string {
	if a := h.rt.Active(); a != nil {
		return a.Route.Controller
	}
	return ""
}

// ActiveTemplate returns the active route's fetched template markup, or "".
func (h *RouteHarness) ActiveTemplate() string {
	if a := h.rt.Active(); a != nil {
		return a.Template
	}
	return ""
}

// ActiveParams returns the path variables extracted for the active route.
func (h *RouteHarness) ActiveParams() map[string]string {
	if a := h.rt.Active(); a != nil {
		return a.Params
	}
	return nil
}

// Scope returns the active route's controller scope, or nil.
func (h *RouteHarness) Scope() *scope.Scope {
	if a := h.rt.Active(); a != nil {
		return a.Scope
	}
	return nil
}

// InvokeResolve runs the named resolve of the active route and returns its
// value, exactly as the framework would before activating the route.
func (h *RouteHarness) InvokeResolve(ctx context.Context, name string) (any, error) {
	return h.rt.InvokeResolve(ctx, name)
}

// Verify checks the stand-in's declarations: every expected request made,
// no unexpected ones. Call at the end of a test case.
func (h *RouteHarness) Verify() error {
	return h.stub.Verify()
}
