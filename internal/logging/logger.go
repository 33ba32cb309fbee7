// Package logging provides config-driven categorized logging for quantum-breach.
// Every category writes to a shared zap core tagged with a "cat" field.
// Logging is controlled by debug_mode in the config file - when false, every logger is a no-op.
package logging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot      Category = "boot"      // Boot/initialization
	CategorySession   Category = "session"   // Session controller transitions
	CategoryDetection Category = "detection" // Detection meter ticks and penalties
	CategoryChallenge Category = "challenge" // Breach attempts
	CategoryPayload   Category = "payload"   // Challenge text generation
	CategoryConsole   Category = "console"   // Interactive console
	CategoryTelemetry Category = "telemetry" // Metrics listener
)

// Options configures Initialize.
type Options struct {
	DebugMode  bool
	Level      string          // debug, info, warn, error
	Format     string          // json, text
	File       string          // log file path; empty means stderr
	Categories map[string]bool // per-category toggles, missing = enabled
}

// Logger is a category-scoped printf-style logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu       sync.RWMutex
	base     = zap.NewNop()
	opts     Options
	loggers  = make(map[Category]*Logger)
	closeLog func() error
)

// Initialize builds the shared logger. It may be called again to reconfigure;
// loggers obtained earlier keep their previous core.
func Initialize(o Options) error {
	mu.Lock()
	defer mu.Unlock()

	if closeLog != nil {
		_ = closeLog()
		closeLog = nil
	}
	opts = o
	loggers = make(map[Category]*Logger)

	if !o.DebugMode {
		base = zap.NewNop()
		return nil
	}

	level, err := zapcore.ParseLevel(o.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if o.Format == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	var sink zapcore.WriteSyncer
	if o.File == "" {
		sink = zapcore.Lock(os.Stderr)
	} else {
		if err := os.MkdirAll(filepath.Dir(o.File), 0755); err != nil {
			return fmt.Errorf("failed to create logs directory: %w", err)
		}
		f, err := os.OpenFile(o.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		sink = zapcore.AddSync(f)
		closeLog = f.Close
	}

	base = zap.New(zapcore.NewCore(enc, sink, level))
	base.Info("logging initialized", zap.String("level", level.String()), zap.String("file", o.File))
	return nil
}

// Sync flushes and releases the current sink. Flush errors are only reported
// for file sinks; stderr often refuses fsync.
func Sync() error {
	mu.Lock()
	defer mu.Unlock()
	var err error
	if closeLog != nil {
		err = errors.Join(base.Sync(), closeLog())
		closeLog = nil
	} else {
		_ = base.Sync()
	}
	base = zap.NewNop()
	loggers = make(map[Category]*Logger)
	if err != nil {
		return fmt.Errorf("failed to flush log file: %w", err)
	}
	return nil
}

// IsCategoryEnabled returns whether a specific category is enabled.
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	return categoryEnabled(category)
}

func categoryEnabled(category Category) bool {
	if !opts.DebugMode {
		return false
	}
	enabled, exists := opts.Categories[string(category)]
	return !exists || enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if debug mode is disabled or category is disabled.
func Get(category Category) *Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	core := zap.NewNop()
	if categoryEnabled(category) {
		core = base.With(zap.String("cat", string(category)))
	}
	l := &Logger{category: category, sugar: core.Sugar()}
	loggers[category] = l
	return l
}

// With returns a child logger carrying structured key/value pairs.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// Zap exposes the underlying structured logger.
func (l *Logger) Zap() *zap.Logger {
	return l.sugar.Desugar()
}

func (l *Logger) Debug(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.sugar.Infof(format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.sugar.Warnf(format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }
