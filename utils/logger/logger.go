package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// ServiceName is attached to every entry as the "service" field
const ServiceName = "dispatch-backend"

const timestampFormat = "2006-01-02 15:04:05"

// Logger is the logging contract shared by every layer
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})
	WithFields(fields map[string]interface{}) Logger
}

// LogrusLogger adapts a logrus entry to Logger
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogger writes to stdout. Unknown levels fall back to info; any format other than "json" is text.
func NewLogger(level, format string) Logger {
	return New(os.Stdout, level, format)
}

// New builds a logger writing to out
func New(out io.Writer, level, format string) Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(parseLevel(level))

	if strings.EqualFold(format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: timestampFormat})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:    true,
			TimestampFormat:  timestampFormat,
			DisableColors:    true,
			QuoteEmptyFields: true,
		})
	}

	return &LogrusLogger{entry: l.WithField("service", ServiceName)}
}

func parseLevel(level string) logrus.Level {
	parsed, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil || parsed > logrus.DebugLevel {
		return logrus.InfoLevel
	}
	return parsed
}

// WithFields returns a child logger; the receiver is left unchanged
func (l *LogrusLogger) WithFields(fields map[string]interface{}) Logger {
	return &LogrusLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

func (l *LogrusLogger) Debug(args ...interface{})                 { l.entry.Debug(args...) }
func (l *LogrusLogger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *LogrusLogger) Info(args ...interface{})                  { l.entry.Info(args...) }
func (l *LogrusLogger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *LogrusLogger) Warn(args ...interface{})                  { l.entry.Warn(args...) }
func (l *LogrusLogger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *LogrusLogger) Error(args ...interface{})                 { l.entry.Error(args...) }
func (l *LogrusLogger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }
func (l *LogrusLogger) Fatal(args ...interface{})                 { l.entry.Fatal(args...) }
func (l *LogrusLogger) Fatalf(format string, args ...interface{}) { l.entry.Fatalf(format, args...) }
