package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/efebarandurmaz/phoenix/internal/config"
)

func TestConfigure_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "phoenix.log")
	l := logrus.New()
	c, err := Configure(l, config.LogConfig{Level: "debug", Format: "json", Output: path})
	if err != nil {
		t.Fatal(err)
	}
	l.WithField("component", "test").Debug("hello")
	c.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"component":"test"`) || !strings.Contains(string(data), `"msg":"hello"`) {
		t.Errorf("unexpected log line: %s", data)
	}
}

func TestConfigure_BadLevel(t *testing.T) {
	l := logrus.New()
	if _, err := Configure(l, config.LogConfig{Level: "loud", Output: "stdout"}); err != nil {
		t.Fatal(err)
	}
	if l.GetLevel() != logrus.InfoLevel {
		t.Errorf("level = %v, want info", l.GetLevel())
	}
	if _, ok := l.Formatter.(*logrus.TextFormatter); !ok {
		t.Errorf("default formatter should be text, got %T", l.Formatter)
	}
}

func TestConfigure_UnopenableFile(t *testing.T) {
	l := logrus.New()
	_, err := Configure(l, config.LogConfig{Level: "info", Output: filepath.Join(t.TempDir(), "missing", "x.log")})
	if err == nil {
		t.Error("expected error for unopenable file")
	}
	if l.Out != os.Stderr {
		t.Error("expected stderr fallback")
	}
}
