package log

import (
	"fmt"
	"sync/atomic"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// debugLevel is the logr verbosity that zapr maps to zap's debug level.
const debugLevel = 1

// current is swapped by Setup and SetLogger while request goroutines log.
var current atomic.Pointer[logr.Logger]

func init() {
	if err := Setup("info", true); err != nil {
		panic(err)
	}
}

// Setup builds a zap-backed logger for level ("debug", "info", "warn",
// "error") and installs it. development selects the console encoder.
func Setup(level string, development bool) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	zl, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	SetLogger(zapr.NewLogger(zl))
	return nil
}

func Logger() logr.Logger {
	return *current.Load()
}

// SetLogger installs l; tests use it with logr.Discard().
func SetLogger(l logr.Logger) {
	current.Store(&l)
}

func Info(msg string, keysAndValues ...interface{}) {
	Logger().Info(msg, keysAndValues...)
}

// Debug is only emitted when Setup was called with "debug".
func Debug(msg string, keysAndValues ...interface{}) {
	Logger().V(debugLevel).Info(msg, keysAndValues...)
}

func Error(err error, msg string, keysAndValues ...interface{}) {
	Logger().Error(err, msg, keysAndValues...)
}

// WithName returns a component logger, e.g. "indexer" or "http".
func WithName(name string) logr.Logger {
	return Logger().WithName(name)
}
