package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	topictree "github.com/MegaGrindStone/go-topic-tree"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	outcomeOK          = "ok"
	outcomeInvalid     = "invalid"
	outcomeConfigError = "config_error"
	outcomeFailed      = "failed"
	outcomeError       = "error"
)

// Metrics holds the Prometheus collectors of the service.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	generations        *prometheus.CounterVec
	generationDuration prometheus.Histogram
	failedBranches     prometheus.Counter

	llmCalls    *prometheus.CounterVec
	llmDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors on a fresh registry with the given namespace.
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		generations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "generations_total",
				Help:      "Total number of topic tree generations by outcome",
			},
			[]string{"outcome"},
		),
		generationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generation_duration_seconds",
				Help:      "Topic tree generation duration in seconds",
				Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
		),
		failedBranches: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "failed_branches_total",
				Help:      "Total number of tree branches left without children after a failed LLM call",
			},
		),
		llmCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_calls_total",
				Help:      "Total number of LLM calls by model and outcome",
			},
			[]string{"model", "outcome"},
		),
		llmDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "llm_call_duration_seconds",
				Help:      "LLM call duration in seconds",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
			},
			[]string{"model"},
		),
	}

	m.registry.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.generations,
		m.generationDuration,
		m.failedBranches,
		m.llmCalls,
		m.llmDuration,
	)

	return m
}

// Handler serves the collected metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records the count and duration of every request by route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) observeGeneration(outcome string, start time.Time) {
	m.generations.WithLabelValues(outcome).Inc()
	m.generationDuration.Observe(time.Since(start).Seconds())
}

// instrument wraps llm so every call is counted under model.
func (m *Metrics) instrument(llm topictree.LLM, model string) topictree.LLM {
	return instrumentedLLM{llm: llm, model: model, metrics: m}
}

type instrumentedLLM struct {
	llm     topictree.LLM
	model   string
	metrics *Metrics
}

func (i instrumentedLLM) Chat(ctx context.Context, system string, messages []string) (string, error) {
	start := time.Now()
	reply, err := i.llm.Chat(ctx, system, messages)

	outcome := outcomeOK
	if err != nil {
		outcome = outcomeError
	}
	i.metrics.llmCalls.WithLabelValues(i.model, outcome).Inc()
	i.metrics.llmDuration.WithLabelValues(i.model).Observe(time.Since(start).Seconds())

	return reply, err
}
