package common

import (
	"context"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ---------------------------------------------------------------------------
// Interfaces
// ---------------------------------------------------------------------------

// IntelligenceMetrics is the telemetry API of the model layer.  Labelers,
// classifiers and lexicons report through it so the backend (Prometheus,
// in-memory, noop) can be swapped without touching model code.
type IntelligenceMetrics interface {
	// RecordInference records one labeler or classifier invocation.
	RecordInference(ctx context.Context, params *InferenceMetricParams)

	// RecordLexiconLookup records a dictionary hit or miss.
	RecordLexiconLookup(ctx context.Context, lexicon string, hit bool)

	// RecordStateReset records an adaptive-state reset; reason is
	// "before", "after" or "final".
	RecordStateReset(ctx context.Context, modelName, reason string)

	// RecordModelLoad records a model or dictionary load.
	RecordModelLoad(ctx context.Context, modelName, source string, durationMs float64, success bool)

	// GetInferenceLatencyHistogram returns the latency histogram for SLO monitoring.
	GetInferenceLatencyHistogram() LatencyHistogram

	// GetCurrentStats returns a point-in-time statistics snapshot.
	GetCurrentStats() *IntelligenceStats
}

// LatencyHistogram provides percentile-based latency observation.
type LatencyHistogram interface {
	// Observe records a latency sample in milliseconds.
	Observe(durationMs float64)

	// Percentile returns the value at the given percentile (0–100).
	Percentile(p float64) float64

	// Count returns the total number of observed samples.
	Count() int64

	// Sum returns the sum of all observed values.
	Sum() float64
}

// ---------------------------------------------------------------------------
// Parameter structs
// ---------------------------------------------------------------------------

// Task types reported in InferenceMetricParams.
const (
	TaskLabelSequence = "label_sequence"
	TaskClassify      = "classify"
	TaskClassifyProb  = "classify_prob"
)

// InferenceMetricParams carries the data for a single inference event.
type InferenceMetricParams struct {
	ModelName   string  `json:"model_name"`
	TaskType    string  `json:"task_type"`
	DurationMs  float64 `json:"duration_ms"`
	Success     bool    `json:"success"`
	InputTokens int     `json:"input_tokens,omitempty"`
	Outputs     int     `json:"outputs,omitempty"`
}

// IntelligenceStats is a point-in-time snapshot of model-layer metrics.
type IntelligenceStats struct {
	TotalInferences       int64            `json:"total_inferences"`
	SuccessfulInferences  int64            `json:"successful_inferences"`
	FailedInferences      int64            `json:"failed_inferences"`
	AvgInferenceLatencyMs float64          `json:"avg_inference_latency_ms"`
	P50LatencyMs          float64          `json:"p50_latency_ms"`
	P95LatencyMs          float64          `json:"p95_latency_ms"`
	P99LatencyMs          float64          `json:"p99_latency_ms"`
	LexiconHitRate        float64          `json:"lexicon_hit_rate"`
	StateResets           map[string]int64 `json:"state_resets"`
}

// ---------------------------------------------------------------------------
// Prometheus implementation
// ---------------------------------------------------------------------------

const metricsPrefix = "opinion_intelligence_"

var defaultLatencyBuckets = []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 1000}

type prometheusIntelligenceMetrics struct {
	inferenceLatency  *prometheus.HistogramVec
	inferenceTotal    *prometheus.CounterVec
	lexiconLookups    *prometheus.CounterVec
	stateResets       *prometheus.CounterVec
	modelLoadDuration *prometheus.HistogramVec

	// in-memory tracking for GetCurrentStats / GetInferenceLatencyHistogram
	latencyHist *latencyHistogram
	totalInf    atomic.Int64
	successInf  atomic.Int64
	failedInf   atomic.Int64
	lexHits     atomic.Int64
	lexMisses   atomic.Int64
	resets      sync.Map // reason -> *atomic.Int64
}

// NewPrometheusIntelligenceMetrics creates a Prometheus-backed collector and
// registers every metric with registerer (the default registerer when nil).
func NewPrometheusIntelligenceMetrics(registerer prometheus.Registerer) (IntelligenceMetrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &prometheusIntelligenceMetrics{
		latencyHist: newLatencyHistogram(),
	}

	m.inferenceLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    metricsPrefix + "inference_duration_milliseconds",
		Help:    "Histogram of labeler and classifier latency in milliseconds.",
		Buckets: defaultLatencyBuckets,
	}, []string{"model_name", "task_type"})

	m.inferenceTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: metricsPrefix + "inference_total",
		Help: "Total number of labeler and classifier invocations.",
	}, []string{"model_name", "task_type", "status"})

	m.lexiconLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: metricsPrefix + "lexicon_lookups_total",
		Help: "Total number of polarity dictionary lookups.",
	}, []string{"lexicon", "result"})

	m.stateResets = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: metricsPrefix + "adaptive_state_resets_total",
		Help: "Total number of adaptive-state resets by reason.",
	}, []string{"model_name", "reason"})

	m.modelLoadDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    metricsPrefix + "model_load_duration_milliseconds",
		Help:    "Histogram of model load duration in milliseconds.",
		Buckets: []float64{1, 10, 50, 100, 500, 1000, 5000, 30000},
	}, []string{"model_name", "source", "status"})

	collectors := []prometheus.Collector{
		m.inferenceLatency,
		m.inferenceTotal,
		m.lexiconLookups,
		m.stateResets,
		m.modelLoadDuration,
	}
	for _, c := range collectors {
		if err := registerer.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *prometheusIntelligenceMetrics) RecordInference(_ context.Context, p *InferenceMetricParams) {
	if p == nil {
		return
	}
	m.inferenceLatency.WithLabelValues(p.ModelName, p.TaskType).Observe(p.DurationMs)
	m.inferenceTotal.WithLabelValues(p.ModelName, p.TaskType, statusLabel(p.Success)).Inc()

	m.latencyHist.Observe(p.DurationMs)
	m.totalInf.Add(1)
	if p.Success {
		m.successInf.Add(1)
	} else {
		m.failedInf.Add(1)
	}
}

func (m *prometheusIntelligenceMetrics) RecordLexiconLookup(_ context.Context, lexicon string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
		m.lexHits.Add(1)
	} else {
		m.lexMisses.Add(1)
	}
	m.lexiconLookups.WithLabelValues(lexicon, result).Inc()
}

func (m *prometheusIntelligenceMetrics) RecordStateReset(_ context.Context, modelName, reason string) {
	m.stateResets.WithLabelValues(modelName, reason).Inc()
	v, _ := m.resets.LoadOrStore(reason, new(atomic.Int64))
	v.(*atomic.Int64).Add(1)
}

func (m *prometheusIntelligenceMetrics) RecordModelLoad(_ context.Context, modelName, source string, durationMs float64, success bool) {
	m.modelLoadDuration.WithLabelValues(modelName, source, statusLabel(success)).Observe(durationMs)
}

func (m *prometheusIntelligenceMetrics) GetInferenceLatencyHistogram() LatencyHistogram {
	return m.latencyHist
}

func (m *prometheusIntelligenceMetrics) GetCurrentStats() *IntelligenceStats {
	total := m.totalInf.Load()

	var avgLatency float64
	if total > 0 {
		avgLatency = m.latencyHist.Sum() / float64(total)
	}

	resets := make(map[string]int64)
	m.resets.Range(func(key, value any) bool {
		resets[key.(string)] = value.(*atomic.Int64).Load()
		return true
	})

	return &IntelligenceStats{
		TotalInferences:       total,
		SuccessfulInferences:  m.successInf.Load(),
		FailedInferences:      m.failedInf.Load(),
		AvgInferenceLatencyMs: avgLatency,
		P50LatencyMs:          m.latencyHist.Percentile(50),
		P95LatencyMs:          m.latencyHist.Percentile(95),
		P99LatencyMs:          m.latencyHist.Percentile(99),
		LexiconHitRate:        hitRate(m.lexHits.Load(), m.lexMisses.Load()),
		StateResets:           resets,
	}
}

// ---------------------------------------------------------------------------
// Noop implementation
// ---------------------------------------------------------------------------

type noopIntelligenceMetrics struct{}

// NewNoopIntelligenceMetrics returns a no-op metrics implementation.
func NewNoopIntelligenceMetrics() IntelligenceMetrics {
	return &noopIntelligenceMetrics{}
}

func (n *noopIntelligenceMetrics) RecordInference(context.Context, *InferenceMetricParams) {}
func (n *noopIntelligenceMetrics) RecordLexiconLookup(context.Context, string, bool) {}
func (n *noopIntelligenceMetrics) RecordStateReset(context.Context, string, string) {}
func (n *noopIntelligenceMetrics) RecordModelLoad(context.Context, string, string, float64, bool) {}

func (n *noopIntelligenceMetrics) GetInferenceLatencyHistogram() LatencyHistogram {
	return newLatencyHistogram()
}

func (n *noopIntelligenceMetrics) GetCurrentStats() *IntelligenceStats {
	return &IntelligenceStats{StateResets: map[string]int64{}}
}

// ---------------------------------------------------------------------------
// In-memory implementation (for testing)
// ---------------------------------------------------------------------------

// InMemoryIntelligenceMetrics keeps every event for later inspection.
type InMemoryIntelligenceMetrics struct {
	mu sync.Mutex

	inferences  []*InferenceMetricParams
	lexHits     int64
	lexMisses   int64
	resets      map[string]int64
	modelLoads  []ModelLoadRecord
	latencyHist *latencyHistogram
}

// ModelLoadRecord is one RecordModelLoad call.
type ModelLoadRecord struct {
	ModelName  string
	Source     string
	DurationMs float64
	Success    bool
	Timestamp  time.Time
}

// NewInMemoryIntelligenceMetrics returns an in-memory metrics implementation
// suitable for unit tests.
func NewInMemoryIntelligenceMetrics() *InMemoryIntelligenceMetrics {
	return &InMemoryIntelligenceMetrics{
		resets:      make(map[string]int64),
		latencyHist: newLatencyHistogram(),
	}
}

func (m *InMemoryIntelligenceMetrics) RecordInference(_ context.Context, p *InferenceMetricParams) {
	if p == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.inferences = append(m.inferences, &cp)
	m.latencyHist.Observe(p.DurationMs)
}

func (m *InMemoryIntelligenceMetrics) RecordLexiconLookup(_ context.Context, _ string, hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.lexHits++
	} else {
		m.lexMisses++
	}
}

func (m *InMemoryIntelligenceMetrics) RecordStateReset(_ context.Context, _ string, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets[reason]++
}

func (m *InMemoryIntelligenceMetrics) RecordModelLoad(_ context.Context, modelName, source string, durationMs float64, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modelLoads = append(m.modelLoads, ModelLoadRecord{
		ModelName:  modelName,
		Source:     source,
		DurationMs: durationMs,
		Success:    success,
		Timestamp:  time.Now(),
	})
}

func (m *InMemoryIntelligenceMetrics) GetInferenceLatencyHistogram() LatencyHistogram {
	return m.latencyHist
}

func (m *InMemoryIntelligenceMetrics) GetCurrentStats() *IntelligenceStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := int64(len(m.inferences))
	var success, failed int64
	var sumLatency float64
	for _, inf := range m.inferences {
		if inf.Success {
			success++
		} else {
			failed++
		}
		sumLatency += inf.DurationMs
	}

	var avgLatency float64
	if total > 0 {
		avgLatency = sumLatency / float64(total)
	}

	resets := make(map[string]int64, len(m.resets))
	for k, v := range m.resets {
		resets[k] = v
	}

	return &IntelligenceStats{
		TotalInferences:       total,
		SuccessfulInferences:  success,
		FailedInferences:      failed,
		AvgInferenceLatencyMs: avgLatency,
		P50LatencyMs:          m.latencyHist.Percentile(50),
		P95LatencyMs:          m.latencyHist.Percentile(95),
		P99LatencyMs:          m.latencyHist.Percentile(99),
		LexiconHitRate:        hitRate(m.lexHits, m.lexMisses),
		StateResets:           resets,
	}
}

// GetRecordedInferences returns a copy of all recorded inference params.
func (m *InMemoryIntelligenceMetrics) GetRecordedInferences() []*InferenceMetricParams {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*InferenceMetricParams, len(m.inferences))
	for i, p := range m.inferences {
		cp := *p
		out[i] = &cp
	}
	return out
}

// GetModelLoads returns a copy of all model load records.
func (m *InMemoryIntelligenceMetrics) GetModelLoads() []ModelLoadRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ModelLoadRecord, len(m.modelLoads))
	copy(out, m.modelLoads)
	return out
}

// ---------------------------------------------------------------------------
// latencyHistogram is an in-memory histogram that reports percentiles.
// ---------------------------------------------------------------------------

type latencyHistogram struct {
	mu      sync.Mutex
	samples []float64
	sum     float64
	sorted  bool
}

func newLatencyHistogram() *latencyHistogram {
	return &latencyHistogram{samples: make([]float64, 0, 256)}
}

func (h *latencyHistogram) Observe(durationMs float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.samples = append(h.samples, durationMs)
	h.sum += durationMs
	h.sorted = false
}

// Percentile returns the value at percentile p (0–100), interpolating
// linearly between the two nearest ranks.
func (h *latencyHistogram) Percentile(p float64) float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := len(h.samples)
	if n == 0 {
		return 0
	}
	if !h.sorted {
		sort.Float64s(h.samples)
		h.sorted = true
	}
	if p <= 0 {
		return h.samples[0]
	}
	if p >= 100 {
		return h.samples[n-1]
	}

	rank := (p / 100) * float64(n-1)
	lower := int(math.Floor(rank))
	upper := lower + 1
	if upper >= n {
		return h.samples[n-1]
	}
	frac := rank - float64(lower)
	return h.samples[lower] + frac*(h.samples[upper]-h.samples[lower])
}

func (h *latencyHistogram) Count() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return int64(len(h.samples))
}

func (h *latencyHistogram) Sum() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sum
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func statusLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

func hitRate(hits, misses int64) float64 {
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}

// msSince returns the elapsed milliseconds since t.
func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}

// compile-time interface checks
var (
	_ IntelligenceMetrics = (*prometheusIntelligenceMetrics)(nil)
	_ IntelligenceMetrics = (*noopIntelligenceMetrics)(nil)
	_ IntelligenceMetrics = (*InMemoryIntelligenceMetrics)(nil)
	_ LatencyHistogram    = (*latencyHistogram)(nil)
)
