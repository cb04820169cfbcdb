package logging

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// DefaultLogger is the logrus-backed implementation used unless the host
// application installs its own Logger.
// Debug/Info/Warn/Error all go to the same writer (stderr by default); colours
// are handled by logrus when the writer is a terminal.
type DefaultLogger struct {
	base  *logrus.Logger
	entry *logrus.Entry
}

// NewDefaultLogger creates a logger writing text records to stderr at info level
func NewDefaultLogger() *DefaultLogger {
	return NewLogger(os.Stderr)
}

// NewLogger creates a logger writing text records to out
func NewLogger(out io.Writer) *DefaultLogger {
	base := logrus.New()
	base.SetOutput(out)
	base.SetLevel(logrus.InfoLevel)
	base.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	return &DefaultLogger{
		base:  base,
		entry: logrus.NewEntry(base),
	}
}

// NewJSONLogger creates a logger emitting one JSON object per record
func NewJSONLogger(out io.Writer) *DefaultLogger {
	l := NewLogger(out)
	l.base.SetFormatter(&logrus.JSONFormatter{})
	return l
}

func (d *DefaultLogger) with(fields []Fields) *logrus.Entry {
	if len(fields) == 0 {
		return d.entry
	}

	merged := make(logrus.Fields)
	for _, f := range fields {
		for k, v := range f {
			merged[k] = v
		}
	}
	return d.entry.WithFields(merged)
}

func (d *DefaultLogger) Debug(msg string, fields ...Fields) {
	d.with(fields).Debug(msg)
}

func (d *DefaultLogger) Info(msg string, fields ...Fields) {
	d.with(fields).Info(msg)
}

func (d *DefaultLogger) Warn(msg string, fields ...Fields) {
	d.with(fields).Warn(msg)
}

func (d *DefaultLogger) Error(err error, msg string, fields ...Fields) {
	d.with(fields).WithError(err).Error(msg)
}

// Fatal logs and exits the process, like logrus.Fatal
func (d *DefaultLogger) Fatal(err error, msg string, fields ...Fields) {
	d.with(fields).WithError(err).Fatal(msg)
}

func (d *DefaultLogger) WithFields(fields Fields) Logger {
	return &DefaultLogger{
		base:  d.base,
		entry: d.entry.WithFields(logrus.Fields(fields)),
	}
}

func (d *DefaultLogger) WithContext(ctx context.Context) Logger {
	if fields, ok := FieldsFromContext(ctx); ok {
		return d.WithFields(fields)
	}
	return d
}

// SetLevel changes the level of the underlying logrus logger, so it also
// applies to every logger derived from it with WithFields.
func (d *DefaultLogger) SetLevel(level Level) {
	d.base.SetLevel(toLogrusLevel(level))
}

func toLogrusLevel(level Level) logrus.Level {
	switch level {
	case DebugLevel:
		return logrus.DebugLevel
	case WarnLevel:
		return logrus.WarnLevel
	case ErrorLevel:
		return logrus.ErrorLevel
	case FatalLevel:
		return logrus.FatalLevel
	default:
		return logrus.InfoLevel
	}
}
