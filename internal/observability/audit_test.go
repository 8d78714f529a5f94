package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func auditLines(t *testing.T, data string) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(data), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid audit line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestNewAuditLogger_Disabled(t *testing.T) {
	for _, cfg := range []*AuditConfig{nil, {Enabled: false, OutputPath: "audit.log"}} {
		l, err := NewAuditLogger(cfg)
		if err != nil {
			t.Fatal(err)
		}
		if l.Enabled() {
			t.Error("expected disabled logger")
		}
		l.LogUpload("s", 1, 1)
		if err := l.Close(); err != nil {
			t.Fatal(err)
		}
	}
}

func TestNewAuditLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	l, err := NewAuditLogger(&AuditConfig{Enabled: true, OutputPath: path})
	if err != nil {
		t.Fatal(err)
	}
	l.LogUpload("sess-1", 2, 300)
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := auditLines(t, string(data))
	if len(lines) != 1 || lines[0]["event_type"] != "upload" || lines[0]["file_count"] != float64(2) {
		t.Errorf("audit file = %s", data)
	}
}

func TestNewAuditLogger_BadPath(t *testing.T) {
	_, err := NewAuditLogger(&AuditConfig{Enabled: true, OutputPath: filepath.Join(t.TempDir(), "missing", "audit.log")})
	if err == nil {
		t.Fatal("expected error for unwritable path")
	}
}

func TestAuditLogger_Events(t *testing.T) {
	var buf bytes.Buffer
	l := NewAuditWriter(&buf)

	l.LogTransform("s", "legacy.cbl", "COBOL", "Go", "renderer", false, 5*time.Millisecond)
	l.LogAnalyze("s", "calc.vb", "Visual Basic 6", "demo", time.Millisecond)
	l.LogAIFallback("s", "calc.vb", errors.New("upstream timeout"))
	l.LogBatchSubmit("s", "wf-1", "React", 3)

	lines := auditLines(t, buf.String())
	if len(lines) != 4 {
		t.Fatalf("got %d events, want 4", len(lines))
	}
	want := []AuditEventType{AuditEventTransform, AuditEventAnalyze, AuditEventAIFallback, AuditEventBatchSubmit}
	for i, e := range lines {
		if e["event_type"] != string(want[i]) {
			t.Errorf("event %d type = %v, want %s", i, e["event_type"], want[i])
		}
		if e["session_id"] != "s" || e["timestamp"] == nil || e["message"] == nil {
			t.Errorf("event %d = %v", i, e)
		}
	}
	if lines[0]["strategy"] != "renderer" || lines[0]["duration_ms"] != float64(5) || lines[0]["success"] != true {
		t.Errorf("transform event = %v", lines[0])
	}
	if lines[2]["success"] != false || lines[2]["error_detail"] != "upstream timeout" {
		t.Errorf("fallback event = %v", lines[2])
	}
	if lines[3]["workflow_id"] != "wf-1" {
		t.Errorf("batch event = %v", lines[3])
	}
}

func TestGlobalAudit(t *testing.T) {
	if Audit().Enabled() {
		t.Fatal("global audit should start disabled")
	}
	path := filepath.Join(t.TempDir(), "audit.log")
	if err := InitGlobalAuditLogger(&AuditConfig{Enabled: true, OutputPath: path}); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = InitGlobalAuditLogger(nil) })

	Audit().LogBatchSubmit("s", "wf", "Go", 1)
	if err := InitGlobalAuditLogger(nil); err != nil {
		t.Fatal(err)
	}
	if Audit().Enabled() {
		t.Error("reset should disable the global logger")
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), `"batch.submit"`) {
		t.Errorf("audit file = %s", data)
	}
}
