// Package scenario runs data-driven navigation checks loaded from a scenario
// file: build the declared route table, navigate each check's path, settle
// once, and compare the active controller against the expectation.
package scenario

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mledford/viewharness/internal/config"
	"github.com/mledford/viewharness/internal/harness"
	"github.com/mledford/viewharness/internal/httpstub"
	"github.com/mledford/viewharness/internal/observability"
	"github.com/mledford/viewharness/internal/registry"
	"github.com/mledford/viewharness/internal/route"
	"github.com/mledford/viewharness/internal/scope"
	"github.com/mledford/viewharness/internal/templatecache"
)

// Result is the outcome of one navigation check.
type Result struct {
	Check            config.CheckConfig
	ActiveController string
	Err              error
}

// Passed reports whether the check succeeded.
func (r Result) Passed() bool {
	return r.Err == nil && r.ActiveController == r.Check.Controller
}

// String renders the result for the runner's summary output.
func (r Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("FAIL %s: %v", r.Check.Navigate, r.Err)
	}
	if !r.Passed() {
		return fmt.Sprintf("FAIL %s: active controller %q, want %q",
			r.Check.Navigate, r.ActiveController, r.Check.Controller)
	}
	return fmt.Sprintf("ok   %s -> %s", r.Check.Navigate, r.ActiveController)
}

// Runner executes a scenario.
type Runner struct {
	cfg   *config.Config
	log   *zap.Logger
	cache templatecache.Cache
}

// Option configures a Runner.
type Option func(*Runner)

// WithCache supplies the template cache backend shared by all checks.
func WithCache(cache templatecache.Cache) Option {
	return func(r *Runner) { r.cache = cache }
}

// NewRunner builds a runner for the scenario.
func NewRunner(cfg *config.Config, logger *zap.Logger, opts ...Option) *Runner {
	r := &Runner{cfg: cfg, log: logger}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	if r.cache == nil {
		r.cache = templatecache.NewInMemoryCache()
	}
	return r
}

// Run executes every check. Each check owns an isolated harness and stub so
// one check's traffic cannot satisfy another's declarations; only the
// template cache is shared. The error return covers scenario-level failures
// (a broken route table), not check failures, which land in the results.
func (r *Runner) Run(ctx context.Context) ([]Result, error) {
	table, reg, err := r.build()
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(r.cfg.Checks))
	for _, check := range r.cfg.Checks {
		res := r.runCheck(ctx, table, reg, check)
		if res.Passed() {
			observability.ScenarioChecksTotal.WithLabelValues("pass").Inc()
		} else {
			observability.ScenarioChecksTotal.WithLabelValues("fail").Inc()
		}
		r.log.Info("check finished",
			zap.String("navigate", check.Navigate),
			zap.String("want", check.Controller),
			zap.String("got", res.ActiveController),
			zap.Bool("passed", res.Passed()),
			zap.Error(res.Err))
		results = append(results, res)
	}
	return results, nil
}

// build assembles the route table and registry from the scenario. Scenario
// checks assert on route resolution only, so every declared controller is
// registered as a no-op; controller behavior belongs in Go tests against
// ControllerHarness.
func (r *Runner) build() (*route.Table, *registry.Registry, error) {
	table := route.NewTable()
	reg := registry.New()

	for _, rc := range r.cfg.Routes {
		if err := table.Add(route.Route{
			Pattern:    rc.Pattern,
			Template:   rc.Template,
			Controller: rc.Controller,
		}); err != nil {
			return nil, nil, fmt.Errorf("scenario %q: %w", r.cfg.Name, err)
		}
		if err := reg.RegisterController(rc.Controller, noopController); err != nil {
			return nil, nil, fmt.Errorf("scenario %q: %w", r.cfg.Name, err)
		}
	}
	if err := table.SetFallback(r.cfg.Fallback); err != nil {
		return nil, nil, fmt.Errorf("scenario %q: %w", r.cfg.Name, err)
	}
	return table, reg, nil
}

func (r *Runner) runCheck(ctx context.Context, table *route.Table, reg *registry.Registry, check config.CheckConfig) Result {
	stub := httpstub.NewServer(httpstub.WithLogger(r.log))
	for _, sc := range r.cfg.Stubs {
		stub.When(sc.Method, sc.URL, httpstub.Response{Status: sc.Status, Body: sc.Body})
	}

	h := harness.NewRouteHarness(table, reg,
		harness.WithLogger(r.log),
		harness.WithStub(stub),
		harness.WithTemplateCache(r.cache),
	)

	h.Navigate(check.Navigate)
	if err := h.Settle(ctx); err != nil {
		return Result{Check: check, Err: err}
	}
	if err := h.Verify(); err != nil {
		return Result{Check: check, ActiveController: h.ActiveController(), Err: err}
	}
	return Result{Check: check, ActiveController: h.ActiveController()}
}

func noopController(s *scope.Scope, deps registry.Injector) error {
	return nil
}
