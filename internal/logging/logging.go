// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/efebarandurmaz/phoenix/internal/config"
)

// Init applies cfg to the standard logger. It returns a closer for the log
// file when output names one; the closer is a no-op otherwise.
func Init(cfg config.LogConfig) (io.Closer, error) {
	return Configure(logrus.StandardLogger(), cfg)
}

// Configure applies cfg to l. Invalid levels fall back to info and an
// unopenable file falls back to stderr, each with a warning.
func Configure(l *logrus.Logger, cfg config.LogConfig) (io.Closer, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		l.Warnf("invalid log level %q, using info", cfg.Level)
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	var closer io.Closer = nopCloser{}
	switch strings.ToLower(cfg.Output) {
	case "", "stderr":
		l.SetOutput(os.Stderr)
	case "stdout":
		l.SetOutput(os.Stdout)
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			l.SetOutput(os.Stderr)
			l.WithError(err).Warnf("cannot open log file %q, using stderr", cfg.Output)
			return closer, err
		}
		l.SetOutput(f)
		closer = f
	}
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
