// Package logging provides the shared logger construction and the verbosity
// levels used across the profiler. Levels follow the logr convention: higher
// V() means chattier output.
package logging

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Verbosity levels for logger.V(...) calls.
const (
	INFO    = 0
	DEBUG   = 1
	VERBOSE = 2
	TRACE   = 3
)

// NewLogger builds a logr.Logger backed by zap. Verbosity selects the highest
// V() level that will be emitted; development switches to the human-readable
// console encoder.
func NewLogger(verbosity int, development bool) (logr.Logger, error) {
	var cfg zap.Config
	if development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	// logr V-levels map onto negative zap levels.
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-verbosity))

	zl, err := cfg.Build()
	if err != nil {
		return logr.Logger{}, fmt.Errorf("failed to build zap logger: %w", err)
	}
	return zapr.NewLogger(zl), nil
}
