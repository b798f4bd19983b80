package logging

import (
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

var base = newBase()

func newBase() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.AddHook(sinks)
	return l
}

// Disable silences terminal output. Sinks keep receiving lines.
func Disable() {
	base.SetOutput(io.Discard)
}

// Enable turns terminal output back on
func Enable() {
	base.SetOutput(os.Stdout)
}

// SetLevel sets the minimum level ("debug", "info", "warn", "error").
func SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	base.SetLevel(lvl)
	return nil
}

// SetFormat switches between "text" (default) and "json" output.
func SetFormat(format string) {
	if format == "json" {
		base.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// Info logs an info message
func Info(v ...any) { base.Info(v...) }

// Infof logs a formatted info message
func Infof(format string, v ...any) { base.Infof(format, v...) }

// Warn logs a warning message
func Warn(v ...any) { base.Warn(v...) }

// Warnf logs a formatted warning message
func Warnf(format string, v ...any) { base.Warnf(format, v...) }

// Error logs an error message
func Error(v ...any) { base.Error(v...) }

// Errorf logs a formatted error message
func Errorf(format string, v ...any) { base.Errorf(format, v...) }

// Debug logs a debug message
func Debug(v ...any) { base.Debug(v...) }

// Debugf logs a formatted debug message
func Debugf(format string, v ...any) { base.Debugf(format, v...) }

// Logger is a source-tagged logger handed to components that report progress.
type Logger struct {
	entry *logrus.Entry
}

// WithSource returns a Logger whose lines carry source (e.g. "menus").
func WithSource(source string) Logger {
	return Logger{entry: base.WithField("source", source)}
}

// Discard returns a Logger that writes nowhere and reaches no sink.
func Discard() Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return Logger{entry: logrus.NewEntry(l)}
}

func (l Logger) Info(v ...any)                  { l.entry.Info(v...) }
func (l Logger) Infof(format string, v ...any)  { l.entry.Infof(format, v...) }
func (l Logger) Warnf(format string, v ...any)  { l.entry.Warnf(format, v...) }
func (l Logger) Errorf(format string, v ...any) { l.entry.Errorf(format, v...) }
func (l Logger) Debugf(format string, v ...any) { l.entry.Debugf(format, v...) }

// Line is one log record as delivered to sinks. Seq is unique per process
// and increases with each line.
type Line struct {
	Seq     uint64    `json:"seq"`
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Source  string    `json:"source,omitempty"`
	Message string    `json:"message"`
}

// Sink receives every log line emitted through this package.
type Sink interface {
	Write(Line)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Line)

func (f SinkFunc) Write(l Line) { f(l) }

// AddSink registers s and returns a function that removes it.
func AddSink(s Sink) (remove func()) {
	return sinks.add(s)
}

// sinkHook fans logrus entries out to the registered sinks.
type sinkHook struct {
	seq    atomic.Uint64
	mu     sync.RWMutex
	nextID int
	sinks  map[int]Sink
}

var sinks = &sinkHook{sinks: make(map[int]Sink)}

func (h *sinkHook) add(s Sink) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.sinks[id] = s
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		delete(h.sinks, id)
		h.mu.Unlock()
	}
}

func (h *sinkHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *sinkHook) Fire(entry *logrus.Entry) error {
	line := Line{
		Seq:     h.seq.Add(1),
		Time:    entry.Time,
		Level:   entry.Level.String(),
		Message: entry.Message,
	}
	if src, ok := entry.Data["source"].(string); ok {
		line.Source = src
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.sinks {
		s.Write(line)
	}
	return nil
}
