// Package logging configures the process logger and adapts it to the
// coordinator's event stream.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/pobal-network/pobal/internal/domain"
)

// Config selects the level, format and destination of log output.
type Config struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // text or json
	File   string `toml:"file"`   // empty means stderr
}

// New builds a logger from cfg. The returned closer releases the log file,
// if one was opened.
func New(cfg Config) (*logrus.Logger, io.Closer, error) {
	l := logrus.New()

	lvl := logrus.InfoLevel
	if cfg.Level != "" {
		parsed, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("log level: %w", err)
		}
		lvl = parsed
	}
	l.SetLevel(lvl)

	switch strings.ToLower(cfg.Format) {
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000000Z07:00"})
	default:
		return nil, nil, fmt.Errorf("log format %q: want text or json", cfg.Format)
	}

	if cfg.File == "" {
		l.SetOutput(os.Stderr)
		return l, io.NopCloser(nil), nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0700); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	l.SetOutput(f)
	return l, f, nil
}

// Discard returns a logger that writes nothing.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// Component returns an entry tagged with the component name.
func Component(l *logrus.Logger, name string) *logrus.Entry {
	return l.WithField("component", name)
}

// EventSink writes every committed event as one structured line.
type EventSink struct {
	Log *logrus.Entry
}

// Publish implements domain.EventSink.
func (s EventSink) Publish(e domain.Event) {
	f := logrus.Fields{
		"event": e.Kind,
		"block": e.Block,
	}
	if e.Caller != "" {
		f["caller"] = e.Caller.Short()
	}
	if e.Member != "" {
		f["member"] = e.Member.Short()
	}
	if e.Task != "" {
		f["task"] = e.Task
	}
	if e.Amount != 0 {
		f["amount"] = e.Amount
	}
	switch e.Kind {
	case domain.EventSelectionIntervalChanged:
		f["interval"] = e.Interval
	case domain.EventNewEraStarted:
		f["era"] = e.Era
		f["participants"] = len(e.Participants)
	case domain.EventTaskCompleted:
		f["share"] = e.Share
		f["remainder"] = e.Remainder
		f["failed"] = len(e.Failed)
	}

	entry := s.Log.WithFields(f)
	if len(e.Failed) > 0 {
		entry.Warn("transfers parked as unclaimed")
		return
	}
	entry.Info("event committed")
}
