package observability

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// AuditEventType categorizes audit events.
type AuditEventType string

const (
	AuditEventUpload      AuditEventType = "upload"
	AuditEventTransform   AuditEventType = "transform"
	AuditEventAnalyze     AuditEventType = "analyze"
	AuditEventAIFallback  AuditEventType = "analyze.fallback"
	AuditEventBatchSubmit AuditEventType = "batch.submit"
)

// AuditConfig selects the audit sink. OutputPath is a file path, "stdout"
// or "stderr".
type AuditConfig struct {
	Enabled    bool
	OutputPath string
}

// AuditLogger writes one JSON object per event through a dedicated logrus
// logger, separate from the application log.
type AuditLogger struct {
	log    *logrus.Logger
	closer io.Closer
}

var discardAudit = &AuditLogger{}

// NewAuditLogger opens the sink described by cfg. A nil or disabled config
// returns a logger that drops everything.
func NewAuditLogger(cfg *AuditConfig) (*AuditLogger, error) {
	if cfg == nil || !cfg.Enabled {
		return discardAudit, nil
	}
	switch cfg.OutputPath {
	case "", "stdout":
		return NewAuditWriter(os.Stdout), nil
	case "stderr":
		return NewAuditWriter(os.Stderr), nil
	}
	f, err := os.OpenFile(cfg.OutputPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	l := NewAuditWriter(f)
	l.closer = f
	return l, nil
}

// NewAuditWriter returns an enabled logger writing to w.
func NewAuditWriter(w io.Writer) *AuditLogger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(logrus.InfoLevel)
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "timestamp",
			logrus.FieldKeyMsg:  "message",
		},
	})
	return &AuditLogger{log: log}
}

// Enabled reports whether events are written.
func (l *AuditLogger) Enabled() bool { return l != nil && l.log != nil }

func (l *AuditLogger) write(kind AuditEventType, sessionID string, fields logrus.Fields, msg string) {
	if !l.Enabled() {
		return
	}
	fields["event_type"] = kind
	if sessionID != "" {
		fields["session_id"] = sessionID
	}
	if _, ok := fields["success"]; !ok {
		fields["success"] = true
	}
	l.log.WithFields(fields).Info(msg)
}

func (l *AuditLogger) LogUpload(sessionID string, fileCount int, bytes int64) {
	l.write(AuditEventUpload, sessionID, logrus.Fields{
		"file_count": fileCount,
		"bytes":      bytes,
	}, fmt.Sprintf("stored %d file(s)", fileCount))
}

func (l *AuditLogger) LogTransform(sessionID, filename, source, target, strategy string, fallbackFixture bool, d time.Duration) {
	l.write(AuditEventTransform, sessionID, logrus.Fields{
		"filename":         filename,
		"source":           source,
		"target":           target,
		"strategy":         strategy,
		"fallback_fixture": fallbackFixture,
		"duration_ms":      d.Milliseconds(),
	}, fmt.Sprintf("transformed %s: %s -> %s", filename, source, target))
}

func (l *AuditLogger) LogAnalyze(sessionID, filename, language, mode string, d time.Duration) {
	l.write(AuditEventAnalyze, sessionID, logrus.Fields{
		"filename":    filename,
		"language":    language,
		"mode":        mode,
		"duration_ms": d.Milliseconds(),
	}, fmt.Sprintf("analyzed %s (%s)", filename, mode))
}

// LogAIFallback records a model failure that was served from fixtures.
func (l *AuditLogger) LogAIFallback(sessionID, filename string, err error) {
	fields := logrus.Fields{"filename": filename, "success": false}
	if err != nil {
		fields["error_detail"] = err.Error()
	}
	l.write(AuditEventAIFallback, sessionID, fields, fmt.Sprintf("model analysis of %s fell back to fixture", filename))
}

func (l *AuditLogger) LogBatchSubmit(sessionID, workflowID, target string, fileCount int) {
	l.write(AuditEventBatchSubmit, sessionID, logrus.Fields{
		"workflow_id": workflowID,
		"target":      target,
		"file_count":  fileCount,
	}, fmt.Sprintf("batch submitted: %d file(s) -> %s", fileCount, target))
}

// Close closes a file sink.
func (l *AuditLogger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

var (
	auditMu     sync.RWMutex
	globalAudit = discardAudit
)

// InitGlobalAuditLogger replaces the process-wide audit logger, closing the
// previous file sink.
func InitGlobalAuditLogger(cfg *AuditConfig) error {
	l, err := NewAuditLogger(cfg)
	if err != nil {
		return err
	}
	auditMu.Lock()
	prev := globalAudit
	globalAudit = l
	auditMu.Unlock()
	return prev.Close()
}

// Audit returns the process-wide audit logger, discarding until initialised.
func Audit() *AuditLogger {
	auditMu.RLock()
	defer auditMu.RUnlock()
	return globalAudit
}
