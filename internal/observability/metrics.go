package observability

import (
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yungbote/lessonforge-backend/internal/platform/logger"
)

// Metrics is the process-wide set of pipeline collectors. A nil *Metrics is a valid no-op.
type Metrics struct {
	registry *prometheus.Registry

	llmRequests   *prometheus.CounterVec
	llmLatency    *prometheus.HistogramVec
	llmTokens     *prometheus.CounterVec
	llmCost       *prometheus.CounterVec
	routing       *prometheus.CounterVec
	visualCost    prometheus.Counter
	renders       *prometheus.CounterVec
	fallbacks     *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	stageTotal    *prometheus.CounterVec
	costTotal     *prometheus.CounterVec
}

var (
	initOnce sync.Once
	instance *Metrics
)

// Enabled reports METRICS_ENABLED; metrics default to on.
func Enabled() bool {
	v := strings.TrimSpace(os.Getenv("METRICS_ENABLED"))
	if v == "" {
		return true
	}
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

func Current() *Metrics {
	return instance
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics(prometheus.NewRegistry())
		if log != nil {
			log.Info("metrics initialized")
		}
	})
	return instance
}

// NewMetrics registers the pipeline collectors on reg. Runtime and HTTP collectors
// live on the default registry; Handler serves both.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		llmRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lf_llm_requests_total",
			Help: "LLM calls by provider, purpose and status.",
		}, []string{"provider", "purpose", "status"}),
		llmLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lf_llm_request_duration_seconds",
			Help:    "LLM call latency in seconds.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 45, 90},
		}, []string{"provider", "purpose"}),
		llmTokens: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lf_llm_tokens_total",
			Help: "LLM tokens by provider and direction.",
		}, []string{"provider", "direction"}),
		llmCost: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lf_llm_cost_usd_total",
			Help: "Estimated LLM spend in USD.",
		}, []string{"provider"}),
		routing: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lf_visual_routing_decisions_total",
			Help: "Visual routing decisions by type and renderer.",
		}, []string{"visual_type", "renderer"}),
		visualCost: f.NewCounter(prometheus.CounterOpts{
			Name: "lf_visual_estimated_cost_usd_total",
			Help: "Estimated cost of routed visuals in USD.",
		}),
		renders: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lf_visual_renders_total",
			Help: "Visual renders by renderer and outcome.",
		}, []string{"renderer", "status"}),
		fallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lf_fallbacks_total",
			Help: "Typed fallbacks substituted for failed generation steps.",
		}, []string{"stage"}),
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lf_pipeline_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds.",
			Buckets: []float64{0.05, 0.25, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"pipeline", "stage"}),
		stageTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lf_pipeline_stage_total",
			Help: "Pipeline stage completions by status.",
		}, []string{"pipeline", "stage", "status"}),
		costTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lf_cost_usd_total",
			Help: "Estimated spend by category and source.",
		}, []string{"category", "source"}),
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	g := prometheus.Gatherers{m.registry, prometheus.DefaultGatherer}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveLLMCall(provider, purpose, status string, latency time.Duration, inputTokens, outputTokens int, costUSD float64) {
	if m == nil {
		return
	}
	provider = orUnknown(provider)
	purpose = orUnknown(purpose)
	status = orUnknown(status)
	m.llmRequests.WithLabelValues(provider, purpose, status).Inc()
	if latency > 0 {
		m.llmLatency.WithLabelValues(provider, purpose).Observe(latency.Seconds())
	}
	if inputTokens > 0 {
		m.llmTokens.WithLabelValues(provider, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		m.llmTokens.WithLabelValues(provider, "output").Add(float64(outputTokens))
	}
	if costUSD > 0 {
		m.llmCost.WithLabelValues(provider).Add(costUSD)
		m.AddCost("llm", provider, costUSD)
	}
}

func (m *Metrics) ObserveRouting(visualType, renderer string, estimatedCost float64) {
	if m == nil {
		return
	}
	m.routing.WithLabelValues(orNone(visualType), orNone(renderer)).Inc()
	if estimatedCost > 0 {
		m.visualCost.Add(estimatedCost)
		m.AddCost("visual", orNone(renderer), estimatedCost)
	}
}

func (m *Metrics) ObserveRender(renderer, status string) {
	if m == nil {
		return
	}
	m.renders.WithLabelValues(orUnknown(renderer), orUnknown(status)).Inc()
}

func (m *Metrics) IncFallback(stage string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(orUnknown(stage)).Inc()
}

func (m *Metrics) ObserveStage(pipeline, stage, status string, dur time.Duration) {
	if m == nil {
		return
	}
	pipeline, stage = orUnknown(pipeline), orUnknown(stage)
	m.stageTotal.WithLabelValues(pipeline, stage, orUnknown(status)).Inc()
	if dur > 0 {
		m.stageDuration.WithLabelValues(pipeline, stage).Observe(dur.Seconds())
	}
}

func (m *Metrics) AddCost(category, source string, amount float64) {
	if m == nil || amount <= 0 {
		return
	}
	m.costTotal.WithLabelValues(orUnknown(category), orUnknown(source)).Add(amount)
}

func orUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return s
}

func orNone(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "none"
	}
	return s
}
