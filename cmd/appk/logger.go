package cmd

import (
	"io"

	"github.com/charmbracelet/log"
)

// logAdapter exposes a charmbracelet logger through the Logger interface
// shared by the library packages.
type logAdapter struct {
	l *log.Logger
}

func newLogger(w io.Writer, verbose bool) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		Prefix: "appk",
	})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

func (a logAdapter) Debug(msg string, keysAndValues ...interface{}) {
	a.l.Debug(msg, keysAndValues...)
}

func (a logAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.l.Info(msg, keysAndValues...)
}

func (a logAdapter) Warn(msg string, keysAndValues ...interface{}) {
	a.l.Warn(msg, keysAndValues...)
}

func (a logAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.l.Error(msg, keysAndValues...)
}
