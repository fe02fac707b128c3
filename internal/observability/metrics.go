package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// Navigations processed by settle cycles. Watch for: fallback ratio
	// (route table drift between app and tests).
	NavigationsTotal *prometheus.CounterVec

	// Settle cycle outcomes. "noop" counts idempotent settles with nothing pending.
	SettleCyclesTotal *prometheus.CounterVec

	// Controller instantiations by status.
	ControllerInstantiationsTotal *prometheus.CounterVec

	// Explicit resolve invocations by status.
	ResolveInvocationsTotal *prometheus.CounterVec

	// Template loads by outcome: cache hit, fetched through the stub, or error.
	TemplateLoadsTotal *prometheus.CounterVec

	// Template fetch latency through the stub, per outcome.
	TemplateFetchDuration *prometheus.HistogramVec

	// Retries while fetching templates. High values = throttled stub exercising retry paths.
	TemplateFetchRetriesTotal prometheus.Counter

	// Template cache backend errors by operation (get/set).
	TemplateCacheErrorsTotal *prometheus.CounterVec

	// Stub traffic: expected, unexpected, throttled.
	StubRequestsTotal *prometheus.CounterVec

	// Scenario check results.
	ScenarioChecksTotal *prometheus.CounterVec
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	NavigationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "navigationsTotal",
			Help: "Navigations applied by settle cycles",
		},
		[]string{"outcome"},
	)
	SettleCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settleCyclesTotal",
			Help: "Settle cycle invocations by result",
		},
		[]string{"result"},
	)
	ControllerInstantiationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "controllerInstantiationsTotal",
			Help: "Controller instantiations by status",
		},
		[]string{"status"},
	)
	ResolveInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolveInvocationsTotal",
			Help: "Explicit resolve invocations by status",
		},
		[]string{"status"},
	)
	TemplateLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "templateLoadsTotal",
			Help: "Template loads by outcome",
		},
		[]string{"outcome"},
	)
	TemplateFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "templateFetchDurationSeconds",
			Help:    "Template fetch latency through the network stand-in",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)
	TemplateFetchRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "templateFetchRetriesTotal",
			Help: "Retry attempts while fetching templates",
		},
	)
	TemplateCacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "templateCacheErrorsTotal",
			Help: "Template cache backend errors by operation",
		},
		[]string{"operation"},
	)
	StubRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stubRequestsTotal",
			Help: "Requests served by the network stand-in",
		},
		[]string{"matched"},
	)
	ScenarioChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scenarioChecksTotal",
			Help: "Scenario check results",
		},
		[]string{"result"},
	)

	registry.MustRegister(
		NavigationsTotal,
		SettleCyclesTotal,
		ControllerInstantiationsTotal,
		ResolveInvocationsTotal,
		TemplateLoadsTotal,
		TemplateFetchDuration,
		TemplateFetchRetriesTotal,
		TemplateCacheErrorsTotal,
		StubRequestsTotal,
		ScenarioChecksTotal,
	)
}

// MetricsHandler exposes the harness metrics registry over HTTP.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
