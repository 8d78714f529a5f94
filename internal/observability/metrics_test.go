package observability

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, r *MetricsRegistry) string {
	t.Helper()
	var b strings.Builder
	r.WritePrometheus(&b)
	return b.String()
}

func wantLines(t *testing.T, body string, lines ...string) {
	t.Helper()
	for _, want := range lines {
		if !strings.Contains(body, want+"\n") {
			t.Errorf("missing %q in:\n%s", want, body)
		}
	}
}

func TestCounterVec(t *testing.T) {
	r := NewMetricsRegistry()
	c := r.NewCounter("phoenix_test_total", "Test", "strategy")

	c.Inc("default")
	c.Add(2.5, "renderer")
	c.Add(-10, "renderer")

	if c.Value("default") != 1 || c.Value("renderer") != 2.5 || c.Value("fallback") != 0 {
		t.Errorf("values = %v %v %v", c.Value("default"), c.Value("renderer"), c.Value("fallback"))
	}
	body := scrape(t, r)
	wantLines(t, body,
		"# TYPE phoenix_test_total counter",
		`phoenix_test_total{strategy="default"} 1`,
		`phoenix_test_total{strategy="renderer"} 2.5`,
	)
	if strings.Contains(body, "fallback") {
		t.Error("reading a series must not create it")
	}
}

func TestCounterVec_LabelArityPanics(t *testing.T) {
	c := NewMetricsRegistry().NewCounter("x_total", "x", "a", "b")
	defer func() {
		if recover() == nil {
			t.Error("expected panic for wrong label count")
		}
	}()
	c.Inc("only-one")
}

func TestRegister_SameNameSharesFamily(t *testing.T) {
	r := NewMetricsRegistry()
	r.NewCounter("shared_total", "Shared", "k").Inc("a")
	r.NewCounter("shared_total", "Shared", "k").Inc("a")

	body := scrape(t, r)
	if strings.Count(body, "# HELP shared_total") != 1 {
		t.Errorf("HELP written more than once:\n%s", body)
	}
	wantLines(t, body, `shared_total{k="a"} 2`)
}

func TestGaugeVecAndFunc(t *testing.T) {
	r := NewMetricsRegistry()
	g := r.NewGauge("queue_depth", "Depth")
	g.Set(10)
	g.Add(-3)
	if g.Value() != 7 {
		t.Errorf("gauge = %v", g.Value())
	}

	n := 3
	r.NewGaugeFunc("live_sessions", "Sessions", func() float64 { return float64(n) })
	n = 5
	wantLines(t, scrape(t, r), "queue_depth 7", "live_sessions 5", "# TYPE live_sessions gauge")
}

func TestHistogramVec(t *testing.T) {
	r := NewMetricsRegistry()
	h := r.NewHistogram("request_duration", "Duration", []float64{0.1, 0.5, 1}, "route")
	for _, v := range []float64{0.0625, 0.25, 0.75, 4} {
		h.Observe(v, "/api/transform")
	}
	h.ObserveDuration(200*time.Millisecond, "/api/upload")

	if h.Count("/api/transform") != 4 || h.Count("/api/upload") != 1 || h.Count("/missing") != 0 {
		t.Error("unexpected counts")
	}
	wantLines(t, scrape(t, r),
		`request_duration_bucket{route="/api/transform",le="0.1"} 1`,
		`request_duration_bucket{route="/api/transform",le="0.5"} 2`,
		`request_duration_bucket{route="/api/transform",le="1"} 3`,
		`request_duration_bucket{route="/api/transform",le="+Inf"} 4`,
		`request_duration_sum{route="/api/transform"} 5.0625`,
		`request_duration_count{route="/api/upload"} 1`,
	)
}

func TestDurationBuckets_Ascending(t *testing.T) {
	for i := 1; i < len(DurationBuckets); i++ {
		if DurationBuckets[i] <= DurationBuckets[i-1] {
			t.Fatal("buckets must ascend")
		}
	}
}

func TestPhoenixMetrics_Recorders(t *testing.T) {
	m := NewPhoenixMetrics()
	m.RecordTransform("default", false, time.Millisecond)
	m.RecordTransform("renderer", false, time.Millisecond)
	m.RecordTransform("fallback", true, time.Millisecond)
	m.RecordTransform("fallback", false, time.Millisecond)
	m.RecordAnalysis("ai", false, time.Millisecond)
	m.RecordAnalysis("demo", true, time.Millisecond)
	m.RecordLLMRequest(100*time.Millisecond, 500, nil)
	m.RecordLLMRequest(100*time.Millisecond, 0, errors.New("timeout"))
	m.RecordBatch("Go")

	if m.Transforms.Value("fallback") != 2 || m.FixtureFallbacks.Value() != 1 || m.TransformDuration.Count() != 4 {
		t.Error("unexpected transform metrics")
	}
	if m.Analyses.Value("ai") != 1 || m.Analyses.Value("demo") != 1 || m.AIFallbacks.Value() != 1 {
		t.Error("unexpected analysis metrics")
	}
	if m.LLMRequests.Value("ok") != 1 || m.LLMRequests.Value("error") != 1 || m.LLMTokens.Value() != 500 {
		t.Error("unexpected LLM metrics")
	}
	if m.Batches.Value("Go") != 1 {
		t.Error("batch not counted")
	}
}

func TestPhoenixMetrics_Handler(t *testing.T) {
	m := NewPhoenixMetrics()
	m.RecordUpload(1024)
	m.ObserveSessions(func() int { return 2 })

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type = %q", ct)
	}
	wantLines(t, w.Body.String(), "phoenix_upload_bytes_total 1024", "phoenix_uploads_total 1", "phoenix_active_sessions 2")
}

func TestGlobalMetrics(t *testing.T) {
	if Metrics() != Metrics() {
		t.Fatal("expected one process-wide instance")
	}
}
