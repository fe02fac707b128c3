package harness

import (
	"context"
	"errors"
	"testing"

	"github.com/mledford/viewharness/internal/httpstub"
	"github.com/mledford/viewharness/internal/registry"
	"github.com/mledford/viewharness/internal/route"
	"github.com/mledford/viewharness/internal/scope"
)

// appModule mirrors the shape of a small application under test: two routes,
// fallback to "/", and a resolve that fetches the current user through the
// network stand-in bound under "httpClient".
func appModule(t *testing.T) (*route.Table, *registry.Registry) {
	t.Helper()

	reg := registry.New()
	if err := reg.RegisterController("HomeController", func(s *scope.Scope, deps registry.Injector) error {
		return s.Set("title", "Home")
	}); err != nil {
		t.Fatal(err)
	}
	if err := reg.RegisterController("LoginController", func(s *scope.Scope, deps registry.Injector) error {
		return s.Set("title", "Login")
	}); err != nil {
		t.Fatal(err)
	}

	table := route.NewTable()
	if err := table.Add(route.Route{
		Pattern:    "/",
		Template:   "views/home.html",
		Controller: "HomeController",
		Resolves: map[string]route.Resolve{
			"message": func(ctx context.Context, deps registry.Injector) (any, error) {
				v, err := deps.Value("httpClient")
				if err != nil {
					return nil, err
				}
				resp, err := v.(*httpstub.Server).Do(ctx, "GET", "/api/message")
				if err != nil {
					return nil, err
				}
				return resp.Body, nil
			},
		},
	}); err != nil {
		t.Fatal(err)
	}
	if err := table.Add(route.Route{
		Pattern:    "/login",
		Template:   "views/login.html",
		Controller: "LoginController",
	}); err != nil {
		t.Fatal(err)
	}
	if err := table.SetFallback("/"); err != nil {
		t.Fatal(err)
	}
	return table, reg
}

func TestRouteHarness_RegisteredPaths(t *testing.T) {
	table, reg := appModule(t)

	tests := []struct {
		path       string
		controller string
	}{
		{"/", "HomeController"},
		{"/login", "LoginController"},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			h := NewRouteHarness(table, reg)
			h.Stub().ExpectGET("views/home.html", "<h1>Home</h1>")
			h.Stub().When("GET", "views/login.html", httpstub.Response{Body: "<form></form>"})
			if tc.path != "/" {
				// Only the template of the navigated route should be fetched.
				h.Stub().Reset()
				h.Stub().ExpectGET("views/login.html", "<form></form>")
			}

			h.Navigate(tc.path)
			if err := h.Settle(context.Background()); err != nil {
				t.Fatalf("Settle() error = %v", err)
			}
			if got := h.ActiveController(); got != tc.controller {
				t.Errorf("ActiveController() = %q, want %q", got, tc.controller)
			}
			if err := h.Verify(); err != nil {
				t.Errorf("Verify() error = %v", err)
			}
		})
	}
}

func TestRouteHarness_UnregisteredPathFallsBackToHome(t *testing.T) {
	table, reg := appModule(t)
	h := NewRouteHarness(table, reg)
	h.Stub().ExpectGET("views/home.html", "<h1>Home</h1>")

	h.Navigate("/a/non-existent/route")
	if err := h.Settle(context.Background()); err != nil {
		t.Fatalf("Settle() error = %v", err)
	}

	if got := h.ActiveController(); got != "HomeController" {
		t.Errorf("ActiveController() = %q, want HomeController", got)
	}
	if got := h.ActiveTemplate(); got != "<h1>Home</h1>" {
		t.Errorf("ActiveTemplate() = %q, want home markup", got)
	}
}

func TestRouteHarness_SettleTwiceUnchanged(t *testing.T) {
	table, reg := appModule(t)
	h := NewRouteHarness(table, reg)
	h.Stub().ExpectGET("views/home.html", "<h1>Home</h1>")

	h.Navigate("/")
	if err := h.Settle(context.Background()); err != nil {
		t.Fatalf("Settle() error = %v", err)
	}
	if err := h.Settle(context.Background()); err != nil {
		t.Fatalf("second Settle() error = %v", err)
	}

	if got := h.ActiveController(); got != "HomeController" {
		t.Errorf("ActiveController() = %q, want HomeController after double settle", got)
	}
}

func TestRouteHarness_NoSettleNoActivation(t *testing.T) {
	table, reg := appModule(t)
	h := NewRouteHarness(table, reg)

	h.Navigate("/login")

	if got := h.ActiveController(); got != "" {
		t.Errorf("ActiveController() = %q before settle, want empty", got)
	}
	if h.Scope() != nil {
		t.Error("Scope() != nil before settle")
	}
}

func TestRouteHarness_ResolveReturnsStubValue(t *testing.T) {
	table, reg := appModule(t)
	h := NewRouteHarness(table, reg)
	if err := reg.RegisterValue("httpClient", h.Stub()); err != nil {
		t.Fatal(err)
	}
	h.Stub().ExpectGET("views/home.html", "<h1>Home</h1>")
	h.Stub().ExpectGET("/api/message", "test")

	h.Navigate("/")
	if err := h.Settle(context.Background()); err != nil {
		t.Fatalf("Settle() error = %v", err)
	}

	v, err := h.InvokeResolve(context.Background(), "message")
	if err != nil {
		t.Fatalf("InvokeResolve() error = %v", err)
	}
	if v != "test" {
		t.Errorf("InvokeResolve() = %v, want %q", v, "test")
	}
	if err := h.Verify(); err != nil {
		t.Errorf("Verify() error = %v", err)
	}
}

func TestRouteHarness_MissingTemplateIsUnsatisfiedDependency(t *testing.T) {
	table, reg := appModule(t)
	h := NewRouteHarness(table, reg)

	h.Navigate("/login")
	err := h.Settle(context.Background())
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, httpstub.ErrUnsatisfiedDependency) {
		t.Errorf("error = %v, want ErrUnsatisfiedDependency", err)
	}
}

func TestRouteHarness_IsolatedRuns(t *testing.T) {
	table, reg := appModule(t)

	a := NewRouteHarness(table, reg)
	b := NewRouteHarness(table, reg)

	a.Stub().ExpectGET("views/home.html", "<h1>Home</h1>")
	b.Stub().ExpectGET("views/login.html", "<form></form>")

	a.Navigate("/")
	b.Navigate("/login")
	if err := a.Settle(context.Background()); err != nil {
		t.Fatalf("a.Settle() error = %v", err)
	}
	if err := b.Settle(context.Background()); err != nil {
		t.Fatalf("b.Settle() error = %v", err)
	}

	if a.ActiveController() == b.ActiveController() {
		t.Error("harnesses share active state, want isolation")
	}
	if a.RunID() == b.RunID() {
		t.Error("harnesses share run IDs, want distinct")
	}
}
