// Package logging builds the logrus logger shared by the server, CLI and MCP server.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Options configures New.
type Options struct {
	Level  string // logrus level name; empty means info
	Format string // "json" (default) or "text"
	Output io.Writer
}

// New creates a logger. An unknown level falls back to info.
func New(opts Options) *logrus.Logger {
	log := logrus.New()

	if opts.Format == "text" {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	log.SetOutput(out)

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	return log
}

// Discard returns a logger that drops everything. Used by tests and quiet CLI commands.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
