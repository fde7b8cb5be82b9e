// Package logger provides leveled logging with support for debug, info, warn, and error levels.
// It wraps logrus behind package-level printf-style helpers so call sites stay terse.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Global logger instance. Until Init is called, only warnings and errors are printed.
var defaultLogger = newLogger(os.Stderr, logrus.WarnLevel, "text")

func newLogger(out io.Writer, level logrus.Level, format string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(level)
	if strings.ToLower(format) == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l
}

// Init initializes the default logger with the specified level and format ("json" or "text").
// Unknown levels fall back to info.
func Init(level string, format string) {
	SetOutput(os.Stderr, level, format)
}

// SetOutput is Init with an explicit writer.
func SetOutput(out io.Writer, level string, format string) {
	l, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		l = logrus.InfoLevel
	}
	defaultLogger = newLogger(out, l, format)
}

// Fields attaches structured context to a single log line.
type Fields = logrus.Fields

// With returns an entry carrying fields.
func With(fields Fields) *logrus.Entry {
	return defaultLogger.WithFields(fields)
}

// Debug logs a message at DebugLevel
func Debug(format string, args ...interface{}) {
	defaultLogger.Debugf(format, args...)
}

// Info logs a message at InfoLevel
func Info(format string, args ...interface{}) {
	defaultLogger.Infof(format, args...)
}

// Warn logs a message at WarnLevel
func Warn(format string, args ...interface{}) {
	defaultLogger.Warnf(format, args...)
}

// Error logs a message at ErrorLevel
func Error(format string, args ...interface{}) {
	defaultLogger.Errorf(format, args...)
}

// Fatal logs a message at FatalLevel and exits
func Fatal(format string, args ...interface{}) {
	defaultLogger.Fatalf(format, args...)
}
