package observability

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

type metricKind string

const (
	kindCounter   metricKind = "counter"
	kindGauge     metricKind = "gauge"
	kindHistogram metricKind = "histogram"
)

// DurationBuckets are the default histogram bounds, in seconds.
var DurationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// MetricsRegistry renders registered families in the Prometheus text format.
type MetricsRegistry struct {
	mu       sync.RWMutex
	families map[string]*family
}

// NewMetricsRegistry returns an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{families: make(map[string]*family)}
}

// family is one metric name with its label names and series.
type family struct {
	name    string
	help    string
	kind    metricKind
	labels  []string
	buckets []float64
	read    func() float64 // gauge funcs only

	mu     sync.Mutex
	series map[string]*series
}

type series struct {
	values []string
	value  float64
	counts []uint64
	count  uint64
}

func (r *MetricsRegistry) register(f *family) *family {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.families[f.name]; ok {
		return existing
	}
	f.series = make(map[string]*series)
	r.families[f.name] = f
	return f
}

func (f *family) with(values []string) *series {
	if len(values) != len(f.labels) {
		panic(fmt.Sprintf("metric %s: got %d label values, want %d", f.name, len(values), len(f.labels)))
	}
	key := strings.Join(values, "\xff")
	s, ok := f.series[key]
	if !ok {
		s = &series{values: append([]string(nil), values...)}
		if f.kind == kindHistogram {
			s.counts = make([]uint64, len(f.buckets))
		}
		f.series[key] = s
	}
	return s
}

func (f *family) lookup(values []string) *series {
	return f.series[strings.Join(values, "\xff")]
}

// CounterVec is a monotonically increasing metric partitioned by labels.
type CounterVec struct{ f *family }

// NewCounter registers a counter family. Re-registering a name returns the
// existing family.
func (r *MetricsRegistry) NewCounter(name, help string, labels ...string) *CounterVec {
	return &CounterVec{r.register(&family{name: name, help: help, kind: kindCounter, labels: labels})}
}

// Add increments the series for values by v. Negative v is ignored.
func (c *CounterVec) Add(v float64, values ...string) {
	if v < 0 {
		return
	}
	c.f.mu.Lock()
	c.f.with(values).value += v
	c.f.mu.Unlock()
}

func (c *CounterVec) Inc(values ...string) { c.Add(1, values...) }

// Value returns the current value of one series, zero if never written.
func (c *CounterVec) Value(values ...string) float64 {
	c.f.mu.Lock()
	defer c.f.mu.Unlock()
	if s := c.f.lookup(values); s != nil {
		return s.value
	}
	return 0
}

// GaugeVec is a metric that can go up and down.
type GaugeVec struct{ f *family }

func (r *MetricsRegistry) NewGauge(name, help string, labels ...string) *GaugeVec {
	return &GaugeVec{r.register(&family{name: name, help: help, kind: kindGauge, labels: labels})}
}

func (g *GaugeVec) Set(v float64, values ...string) {
	g.f.mu.Lock()
	g.f.with(values).value = v
	g.f.mu.Unlock()
}

func (g *GaugeVec) Add(v float64, values ...string) {
	g.f.mu.Lock()
	g.f.with(values).value += v
	g.f.mu.Unlock()
}

func (g *GaugeVec) Value(values ...string) float64 {
	g.f.mu.Lock()
	defer g.f.mu.Unlock()
	if s := g.f.lookup(values); s != nil {
		return s.value
	}
	return 0
}

// NewGaugeFunc registers an unlabelled gauge read at scrape time. A later
// call for the same name replaces the function.
func (r *MetricsRegistry) NewGaugeFunc(name, help string, read func() float64) {
	f := r.register(&family{name: name, help: help, kind: kindGauge})
	f.mu.Lock()
	f.read = read
	f.mu.Unlock()
}

// HistogramVec tracks value distributions.
type HistogramVec struct{ f *family }

// NewHistogram registers a histogram family. Nil buckets use DurationBuckets.
func (r *MetricsRegistry) NewHistogram(name, help string, buckets []float64, labels ...string) *HistogramVec {
	if buckets == nil {
		buckets = DurationBuckets
	}
	return &HistogramVec{r.register(&family{name: name, help: help, kind: kindHistogram, labels: labels, buckets: buckets})}
}

func (h *HistogramVec) Observe(v float64, values ...string) {
	h.f.mu.Lock()
	defer h.f.mu.Unlock()
	s := h.f.with(values)
	s.value += v
	s.count++
	for i, bound := range h.f.buckets {
		if v <= bound {
			s.counts[i]++
		}
	}
}

func (h *HistogramVec) ObserveDuration(d time.Duration, values ...string) {
	h.Observe(d.Seconds(), values...)
}

// Count returns the number of observations in one series.
func (h *HistogramVec) Count(values ...string) uint64 {
	h.f.mu.Lock()
	defer h.f.mu.Unlock()
	if s := h.f.lookup(values); s != nil {
		return s.count
	}
	return 0
}

// Handler serves the registry in the Prometheus text format.
func (r *MetricsRegistry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		r.WritePrometheus(w)
	})
}

// WritePrometheus writes every family sorted by name, series sorted by labels.
func (r *MetricsRegistry) WritePrometheus(w io.Writer) {
	r.mu.RLock()
	names := make([]string, 0, len(r.families))
	for name := range r.families {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)

	for _, name := range names {
		r.mu.RLock()
		f := r.families[name]
		r.mu.RUnlock()
		f.write(w)
	}
}

func (f *family) write(w io.Writer) {
	f.mu.Lock()
	defer f.mu.Unlock()

	fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", f.name, f.help, f.name, f.kind)
	if f.read != nil {
		fmt.Fprintf(w, "%s %s\n", f.name, formatFloat(f.read()))
		return
	}
	keys := make([]string, 0, len(f.series))
	for k := range f.series {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		s := f.series[k]
		labels := formatLabels(f.labels, s.values)
		if f.kind != kindHistogram {
			fmt.Fprintf(w, "%s%s %s\n", f.name, labels, formatFloat(s.value))
			continue
		}
		names := append(append([]string(nil), f.labels...), "le")
		for i, bound := range f.buckets {
			le := formatLabels(names, append(append([]string(nil), s.values...), formatFloat(bound)))
			fmt.Fprintf(w, "%s_bucket%s %d\n", f.name, le, s.counts[i])
		}
		inf := formatLabels(names, append(append([]string(nil), s.values...), "+Inf"))
		fmt.Fprintf(w, "%s_bucket%s %d\n", f.name, inf, s.count)
		fmt.Fprintf(w, "%s_sum%s %s\n", f.name, labels, formatFloat(s.value))
		fmt.Fprintf(w, "%s_count%s %d\n", f.name, labels, s.count)
	}
}

func formatLabels(names, values []string) string {
	if len(names) == 0 {
		return ""
	}
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = n + "=" + strconv.Quote(values[i])
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func formatFloat(v float64) string {
	if math.IsInf(v, 1) {
		return "+Inf"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// PhoenixMetrics are the service metrics.
type PhoenixMetrics struct {
	Registry *MetricsRegistry

	Uploads     *CounterVec
	UploadBytes *CounterVec

	Transforms        *CounterVec // strategy
	FixtureFallbacks  *CounterVec
	TransformDuration *HistogramVec

	Analyses        *CounterVec // mode
	AIFallbacks     *CounterVec
	AnalyzeDuration *HistogramVec

	LLMRequests *CounterVec // outcome
	LLMTokens   *CounterVec
	LLMDuration *HistogramVec

	Batches *CounterVec // target
}

// NewPhoenixMetrics registers the service metrics on a fresh registry.
func NewPhoenixMetrics() *PhoenixMetrics {
	r := NewMetricsRegistry()
	return &PhoenixMetrics{
		Registry: r,

		Uploads:     r.NewCounter("phoenix_uploads_total", "Uploads stored"),
		UploadBytes: r.NewCounter("phoenix_upload_bytes_total", "Bytes uploaded"),

		Transforms:        r.NewCounter("phoenix_transforms_total", "Transformations by dispatch strategy", "strategy"),
		FixtureFallbacks:  r.NewCounter("phoenix_fixture_fallbacks_total", "Transformations served from the fallback family"),
		TransformDuration: r.NewHistogram("phoenix_transform_duration_seconds", "Transformation duration", nil),

		Analyses:        r.NewCounter("phoenix_analyses_total", "File analyses by mode", "mode"),
		AIFallbacks:     r.NewCounter("phoenix_ai_fallbacks_total", "Model analyses that fell back to fixtures"),
		AnalyzeDuration: r.NewHistogram("phoenix_analyze_duration_seconds", "Per-file analysis duration", nil),

		LLMRequests: r.NewCounter("phoenix_llm_requests_total", "LLM requests by outcome", "outcome"),
		LLMTokens:   r.NewCounter("phoenix_llm_tokens_total", "Tokens consumed"),
		LLMDuration: r.NewHistogram("phoenix_llm_request_duration_seconds", "LLM request duration", nil),

		Batches: r.NewCounter("phoenix_batches_total", "Batch transformations submitted", "target"),
	}
}

func (m *PhoenixMetrics) Handler() http.Handler { return m.Registry.Handler() }

// ObserveSessions exposes the live session count.
func (m *PhoenixMetrics) ObserveSessions(count func() int) {
	m.Registry.NewGaugeFunc("phoenix_active_sessions", "Sessions currently held", func() float64 {
		return float64(count())
	})
}

func (m *PhoenixMetrics) RecordUpload(bytes int64) {
	m.Uploads.Inc()
	m.UploadBytes.Add(float64(bytes))
}

func (m *PhoenixMetrics) RecordTransform(strategy string, fallbackFixture bool, d time.Duration) {
	m.Transforms.Inc(strategy)
	if fallbackFixture {
		m.FixtureFallbacks.Inc()
	}
	m.TransformDuration.ObserveDuration(d)
}

func (m *PhoenixMetrics) RecordAnalysis(mode string, aiFailed bool, d time.Duration) {
	m.Analyses.Inc(mode)
	if aiFailed {
		m.AIFallbacks.Inc()
	}
	m.AnalyzeDuration.ObserveDuration(d)
}

func (m *PhoenixMetrics) RecordLLMRequest(d time.Duration, tokens int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.LLMRequests.Inc(outcome)
	m.LLMTokens.Add(float64(tokens))
	m.LLMDuration.ObserveDuration(d)
}

func (m *PhoenixMetrics) RecordBatch(target string) { m.Batches.Inc(target) }

var (
	globalMetrics *PhoenixMetrics
	metricsOnce   sync.Once
)

// Metrics returns the process-wide metrics.
func Metrics() *PhoenixMetrics {
	metricsOnce.Do(func() { globalMetrics = NewPhoenixMetrics() })
	return globalMetrics
}
