// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New returns a logger writing to out.  Production uses JSON lines;
// anything else gets the human readable text format.  An unknown level
// falls back to info and is reported once.
func New(env, level string, out io.Writer) *logrus.Logger {
	if out == nil {
		out = os.Stdout
	}
	l := logrus.New()
	l.SetOutput(out)
	if strings.EqualFold(env, "production") || strings.EqualFold(env, "prod") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if level == "" {
		lvl, err = logrus.InfoLevel, nil
	}
	if err != nil {
		l.SetLevel(logrus.InfoLevel)
		l.WithField("level", level).Warn("unknown log level, using info")
		return l
	}
	l.SetLevel(lvl)
	return l
}

// Setup builds a logger like New and also installs its settings on the
// logrus standard logger, which the HTTP layer uses.
func Setup(env, level string) *logrus.Logger {
	l := New(env, level, os.Stdout)
	logrus.SetFormatter(l.Formatter)
	logrus.SetLevel(l.GetLevel())
	logrus.SetOutput(l.Out)
	return l
}
