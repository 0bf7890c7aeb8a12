package telemetry

import (
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Safwan2003/ai-proposalgenerator-backend/config"
)

// Telemetry tracks pipeline runs, model usage and cost. Prometheus
// collectors back the /metrics endpoint; the cost tracker keeps running
// totals for the admin API.
type Telemetry struct {
	config config.TelemetryConfig
	logger *log.Logger

	mu          sync.RWMutex
	totalCost   float64
	totalTokens int64
	modelCosts  map[string]float64

	runsTotal          *prometheus.CounterVec
	runDuration        prometheus.Histogram
	sectionsGenerated  prometheus.Counter
	llmTokens          *prometheus.CounterVec
	llmRequests        *prometheus.CounterVec
	enrichmentFailures *prometheus.CounterVec
	diagramAttempts    prometheus.Histogram
}

// RunEvent records one completed pipeline run.
type RunEvent struct {
	RunID      string
	ProposalID string
	Duration   time.Duration
	Sections   int
	Success    bool
	Cost       float64
	Tokens     int64
}

// NewTelemetry creates a telemetry instance and registers its collectors
// with the default prometheus registry.
func NewTelemetry(cfg config.TelemetryConfig) *Telemetry {
	return NewTelemetryWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewTelemetryWithRegistry registers collectors on an explicit registry.
func NewTelemetryWithRegistry(cfg config.TelemetryConfig, reg prometheus.Registerer) *Telemetry {
	factory := promauto.With(reg)
	return &Telemetry{
		config:     cfg,
		logger:     log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags),
		modelCosts: make(map[string]float64),
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "proposalgen_runs_total",
			Help: "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "proposalgen_run_duration_seconds",
			Help:    "End to end pipeline run duration.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		sectionsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Name: "proposalgen_sections_generated_total",
			Help: "Sections produced across all runs.",
		}),
		llmTokens: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "proposalgen_llm_tokens_total",
			Help: "LLM tokens by model and direction.",
		}, []string{"model", "direction"}),
		llmRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "proposalgen_llm_requests_total",
			Help: "LLM requests by model and outcome.",
		}, []string{"model", "outcome"}),
		enrichmentFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "proposalgen_enrichment_failures_total",
			Help: "Soft per-section enrichment failures by stage.",
		}, []string{"stage"}),
		diagramAttempts: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "proposalgen_diagram_attempts",
			Help:    "Attempts consumed per diagram generation.",
			Buckets: []float64{1, 2, 3, 4},
		}),
	}
}

// RecordRun records a completed pipeline run.
func (t *Telemetry) RecordRun(event RunEvent) {
	if !t.config.Enabled {
		return
	}
	outcome := "success"
	if !event.Success {
		outcome = "failure"
	}
	t.runsTotal.WithLabelValues(outcome).Inc()
	t.runDuration.Observe(event.Duration.Seconds())
	t.sectionsGenerated.Add(float64(event.Sections))

	t.mu.Lock()
	t.totalCost += event.Cost
	t.totalTokens += event.Tokens
	t.mu.Unlock()

	t.logger.Printf("Run %s: proposal=%s success=%t duration=%v sections=%d cost=$%.4f tokens=%d",
		event.RunID, event.ProposalID, event.Success, event.Duration, event.Sections, event.Cost, event.Tokens)
}

// RecordLLMCall records one model call with its token usage.
func (t *Telemetry) RecordLLMCall(model string, inTokens, outTokens int64, cost float64, err error) {
	if !t.config.Enabled {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	t.llmRequests.WithLabelValues(model, outcome).Inc()
	t.llmTokens.WithLabelValues(model, "input").Add(float64(inTokens))
	t.llmTokens.WithLabelValues(model, "output").Add(float64(outTokens))

	if t.config.CostTracking {
		t.mu.Lock()
		t.modelCosts[model] += cost
		t.mu.Unlock()
	}
}

// RecordEnrichmentFailure records a soft enrichment failure for a stage
// (image, logos, diagram).
func (t *Telemetry) RecordEnrichmentFailure(stage string) {
	if !t.config.Enabled {
		return
	}
	t.enrichmentFailures.WithLabelValues(stage).Inc()
}

// RecordDiagramAttempts records how many attempts a diagram generation used.
func (t *Telemetry) RecordDiagramAttempts(attempts int) {
	if !t.config.Enabled {
		return
	}
	t.diagramAttempts.Observe(float64(attempts))
}

// CostSummary reports accumulated cost and token totals.
type CostSummary struct {
	TotalCost   float64            `json:"total_cost"`
	TotalTokens int64              `json:"total_tokens"`
	ModelCosts  map[string]float64 `json:"model_costs"`
}

// Costs returns a snapshot of accumulated costs.
func (t *Telemetry) Costs() CostSummary {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := CostSummary{
		TotalCost:   t.totalCost,
		TotalTokens: t.totalTokens,
		ModelCosts:  make(map[string]float64, len(t.modelCosts)),
	}
	for k, v := range t.modelCosts {
		out.ModelCosts[k] = v
	}
	return out
}
