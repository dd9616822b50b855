// Package logging builds the logrus logger shared by the CLI and the
// migration phases.
package logging

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// New returns a logger writing to out. format is "text" or "json"; the
// level string is parsed with ParseLevel.
func New(level, format string, out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(ParseLevel(level))
	if strings.EqualFold(format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l
}

// ParseLevel converts a string ("debug", "info", "warn", "error") to a logrus.Level.
// Unknown strings default to InfoLevel.
func ParseLevel(s string) logrus.Level {
	switch strings.ToLower(s) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Nop returns a logger that discards everything.
func Nop() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return l
}
