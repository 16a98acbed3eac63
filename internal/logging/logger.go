// Package logging provides categorized logging for modelgen on top of zap.
// Every stage logs through Get(category); the CLI installs the zap logger
// once at startup and until then all loggers are no-ops.
package logging

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot     Category = "boot"     // CLI startup, config loading
	CategoryFrontend Category = "frontend" // template discovery and parsing
	CategoryValidate Category = "validate" // declaration validation
	CategoryAnalyze  Category = "analyze"  // field and import analysis
	CategoryEmit     Category = "emit"     // source rendering
	CategoryGenerate Category = "generate" // build pass orchestration
	CategoryWriter   Category = "writer"   // output files
	CategoryWatch    Category = "watch"    // file watching
)

// Config selects the zap encoder and level.
type Config struct {
	Level      string          // debug, info, warn, error
	Format     string          // console, json
	Categories map[string]bool // per-category toggles, missing means enabled
}

// Logger logs for one category.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu         sync.RWMutex
	base       = zap.NewNop()
	categories map[string]bool
	loggers    = make(map[Category]*Logger)
)

// Build constructs the zap logger described by cfg. Output goes to stderr
// so that generated text and reports on stdout stay clean.
func Build(cfg Config) (*zap.Logger, error) {
	var zc zap.Config
	switch cfg.Format {
	case "json":
		zc = zap.NewProductionConfig()
	case "", "console", "text":
		zc = zap.NewDevelopmentConfig()
		zc.Development = false
		zc.DisableStacktrace = true
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return l, nil
}

// ParseLevel maps a configured level name to zap's level.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
}

// Initialize installs l as the base logger. Loggers handed out earlier are
// rebuilt on their next Get.
func Initialize(l *zap.Logger, cats map[string]bool) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	defer mu.Unlock()
	base = l
	categories = cats
	loggers = make(map[Category]*Logger)
}

// Base returns the installed zap logger.
func Base() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Sync flushes the base logger.
func Sync() {
	_ = Base().Sync()
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	if categories == nil {
		return true
	}
	enabled, exists := categories[string(category)]
	return !exists || enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if the category is disabled.
func Get(category Category) *Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	enabled := IsCategoryEnabled(category)

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	z := zap.NewNop()
	if enabled {
		z = base.Named(string(category))
	}
	l := &Logger{category: category, sugar: z.Sugar()}
	loggers[category] = l
	return l
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...any) {
	l.sugar.Debugf(format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...any) {
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...any) {
	l.sugar.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...any) {
	l.sugar.Errorf(format, args...)
}

// With returns a logger carrying key-value context on every entry.
func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// Category returns the logger's category.
func (l *Logger) Category() Category {
	return l.category
}

// Convenience helpers

func Boot(format string, args ...any)          { Get(CategoryBoot).Info(format, args...) }
func BootDebug(format string, args ...any)     { Get(CategoryBoot).Debug(format, args...) }
func FrontendDebug(format string, args ...any) { Get(CategoryFrontend).Debug(format, args...) }
func ValidateDebug(format string, args ...any) { Get(CategoryValidate).Debug(format, args...) }
func AnalyzeDebug(format string, args ...any)  { Get(CategoryAnalyze).Debug(format, args...) }
func EmitDebug(format string, args ...any)     { Get(CategoryEmit).Debug(format, args...) }
func Generate(format string, args ...any)      { Get(CategoryGenerate).Info(format, args...) }
func GenerateDebug(format string, args ...any) { Get(CategoryGenerate).Debug(format, args...) }
func WriterDebug(format string, args ...any)   { Get(CategoryWriter).Debug(format, args...) }
func Watch(format string, args ...any)         { Get(CategoryWatch).Info(format, args...) }
func WatchDebug(format string, args ...any)    { Get(CategoryWatch).Debug(format, args...) }
