// Package logging provides structured JSON logging for the FarmTrack backend.
// It wraps logrus behind a small message-plus-context API so call sites stay
// uniform across packages.
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	global *logrus.Logger
	once   sync.Once
)

// Init initializes the global logger. Safe to call more than once; only the
// first call takes effect.
func Init(out io.Writer, level logrus.Level) {
	once.Do(func() {
		l := logrus.New()
		l.SetFormatter(&logrus.JSONFormatter{})
		l.SetOutput(out)
		l.SetLevel(level)
		global = l
	})
}

// Get returns the global logger, initializing it with defaults if needed.
func Get() *logrus.Logger {
	if global == nil {
		Init(os.Stdout, logrus.InfoLevel)
	}
	return global
}

// ParseLevel maps a configuration string to a logrus level, defaulting to info.
func ParseLevel(s string) logrus.Level {
	level, err := logrus.ParseLevel(s)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

// Debug logs a debug message with optional structured context.
func Debug(message string, context map[string]interface{}) {
	Get().WithFields(logrus.Fields(context)).Debug(message)
}

// Info logs an info message with optional structured context.
func Info(message string, context map[string]interface{}) {
	Get().WithFields(logrus.Fields(context)).Info(message)
}

// Warn logs a warning message with optional structured context.
func Warn(message string, context map[string]interface{}) {
	Get().WithFields(logrus.Fields(context)).Warn(message)
}

// Error logs an error message with optional structured context.
func Error(message string, err error, context map[string]interface{}) {
	entry := Get().WithFields(logrus.Fields(context))
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Error(message)
}
