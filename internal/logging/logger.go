// Package logging provides structured logging for LinkVault.
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the global logger.
type Options struct {
	// Level is the minimum level to emit: debug, info, warn or error.
	Level string

	// File, when set, routes output to a size-rotated log file instead
	// of the writer given to Init.
	File string

	// MaxSizeMB caps each rotated file. Zero means 10 MB.
	MaxSizeMB int
}

// Logger wraps the structured logging backend.
type Logger struct {
	l *logrus.Logger
}

var (
	// global logger instance
	global *Logger
	once   sync.Once
)

// Init initializes the global logger. Repeated calls are no-ops.
func Init(out io.Writer, opts Options) {
	once.Do(func() {
		global = newLogger(out, opts)
	})
}

// Get returns the global logger instance.
func Get() *Logger {
	if global == nil {
		Init(os.Stdout, Options{Level: "info"})
	}
	return global
}

func newLogger(out io.Writer, opts Options) *Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{})

	if opts.File != "" {
		maxSize := opts.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 10
		}
		out = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxSize,
			MaxBackups: 3,
		}
	}
	if out != nil {
		l.SetOutput(out)
	}

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	return &Logger{l: l}
}

// entry merges the optional context maps into a single fielded entry.
func (l *Logger) entry(context ...map[string]interface{}) *logrus.Entry {
	if len(context) == 0 {
		return logrus.NewEntry(l.l)
	}
	fields := logrus.Fields{}
	for _, c := range context {
		for k, v := range c {
			fields[k] = v
		}
	}
	return l.l.WithFields(fields)
}

// Debug logs a debug message.
func (l *Logger) Debug(message string, context ...map[string]interface{}) {
	l.entry(context...).Debug(message)
}

// Info logs an info message.
func (l *Logger) Info(message string, context ...map[string]interface{}) {
	l.entry(context...).Info(message)
}

// Warn logs a warning message.
func (l *Logger) Warn(message string, context ...map[string]interface{}) {
	l.entry(context...).Warn(message)
}

// Error logs an error message.
func (l *Logger) Error(message string, err error, context ...map[string]interface{}) {
	entry := l.entry(context...)
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Error(message)
}

// Convenience functions using global logger

func Debug(message string, context ...map[string]interface{}) {
	Get().Debug(message, context...)
}

func Info(message string, context ...map[string]interface{}) {
	Get().Info(message, context...)
}

func Warn(message string, context ...map[string]interface{}) {
	Get().Warn(message, context...)
}

func Error(message string, err error, context ...map[string]interface{}) {
	Get().Error(message, err, context...)
}
