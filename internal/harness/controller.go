package harness

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mledford/viewharness/internal/observability"
	"github.com/mledford/viewharness/internal/registry"
	"github.com/mledford/viewharness/internal/scope"
)

// ControllerHarness instantiates named controllers against fresh scopes for
// inspection. No routing or template machinery is involved.
type ControllerHarness struct {
	reg *registry.Registry
	log *zap.Logger
}

// NewControllerHarness builds a harness over the given registry.
func NewControllerHarness(reg *registry.Registry, opts ...RouteOption) *ControllerHarness {
	cfg := &routeConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	return &ControllerHarness{
		reg: reg,
		log: observability.RunLogger(cfg.logger, uuid.New().String()),
	}
}

// Instantiate creates a fresh scope and runs the named controller against it.
// bindings shadow registry values for this instantiation only. An unknown
// controller name fails with ResolutionError.
func (h *ControllerHarness) Instantiate(ctx context.Context, name string, bindings map[string]any) (*scope.Scope, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ctrl, err := h.reg.Controller(name)
	if err != nil {
		observability.ControllerInstantiationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	s := scope.New()
	if err := ctrl(s, h.reg.With(bindings)); err != nil {
		observability.ControllerInstantiationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("controller %q: %w", name, err)
	}
	observability.ControllerInstantiationsTotal.WithLabelValues("ok").Inc()
	h.log.Debug("controller instantiated", zap.String("controller", name), zap.Int("fields", s.Len()))
	return s, nil
}
