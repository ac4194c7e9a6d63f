// Package logging builds the process-wide logr.Logger on top of zap.
package logging

import (
	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	uberzap "go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Verbosity levels passed to logr's V().
const (
	DEFAULT = 2
	VERBOSE = 3
	DEBUG   = 4
	TRACE   = 5
)

// Options controls how NewLogger builds the zap core.
type Options struct {
	// Verbosity is the highest logr V-level that is emitted.
	Verbosity int
	// Development switches to the human-readable console encoder.
	Development bool
}

// NewLogger creates a logr.Logger backed by zap. V(n) maps to zap level -n, so
// Verbosity n enables every V-level up to and including n.
func NewLogger(opts Options) (logr.Logger, error) {
	var cfg uberzap.Config
	if opts.Development {
		cfg = uberzap.NewDevelopmentConfig()
	} else {
		cfg = uberzap.NewProductionConfig()
		cfg.Sampling = nil
	}
	cfg.Level = uberzap.NewAtomicLevelAt(zapcore.Level(int8(-1 * opts.Verbosity)))

	zl, err := cfg.Build(uberzap.AddCaller())
	if err != nil {
		return logr.Discard(), err
	}
	return zapr.NewLogger(zl), nil
}

// NewTestLogger creates a development logger that emits every level up to TRACE.
func NewTestLogger() logr.Logger {
	logger, err := NewLogger(Options{Verbosity: TRACE, Development: true})
	if err != nil {
		return logr.Discard()
	}
	return logger
}
