// Package log provides named, leveled loggers shared by every package in the
// module. All loggers write to a single sink at a single level.
package log

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Level is a logger verbosity level.
type Level int

// The levels that can be passed to the SetLevel function.
const (
	Debug Level = iota
	Info
	Warning
	Error
)

// Logger is the logging interface used across the module.
type Logger interface {
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})

	Info(v ...interface{})
	Infof(format string, v ...interface{})

	Warning(v ...interface{})
	Warningf(format string, v ...interface{})

	Error(v ...interface{})
	Errorf(format string, v ...interface{})
}

var base = newBase()

func newBase() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.WarnLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})
	return l
}

// New creates a new named logger.
func New(name string) Logger {
	return base.WithField("module", name)
}

// SetSink overrides the output sink of all loggers.
func SetSink(sink io.Writer) {
	base.SetOutput(sink)
}

// SetLevel sets the verbosity of all loggers.
func SetLevel(level Level) {
	var lvl logrus.Level
	switch level {
	case Debug:
		lvl = logrus.DebugLevel
	case Info:
		lvl = logrus.InfoLevel
	case Warning:
		lvl = logrus.WarnLevel
	case Error:
		lvl = logrus.ErrorLevel
	default:
		lvl = logrus.WarnLevel
	}
	base.SetLevel(lvl)
}
