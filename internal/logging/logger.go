// Package logging provides categorized logging for the decision core.
// Each subsystem logs through a named category so rule evaluation, cache
// activity, and planning can be filtered independently.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/subsystem.
type Category string

const (
	CategoryRules    Category = "rules"    // Rule table parsing and validation
	CategoryCache    Category = "cache"    // Config cache hits, misses, reloads
	CategorySelector Category = "selector" // Server scoring and selection
	CategoryPlanner  Category = "planner"  // Activation plan construction
	CategoryWatcher  Category = "watcher"  // Rule source change detection
)

// Logger is a thin printf-style facade over a named zap logger.
type Logger struct {
	sugar *zap.SugaredLogger
}

func (l *Logger) Debug(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.sugar.Infof(format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.sugar.Warnf(format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

var (
	mu      sync.RWMutex
	root    = zap.NewNop()
	loggers = make(map[Category]*Logger)
)

// Initialize builds and installs the process-wide root logger.
// Until it is called, all categories log to a no-op logger.
func Initialize(debug bool) error {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return err
	}
	SetLogger(logger)
	return nil
}

// SetLogger replaces the root logger. Intended for tests and for callers
// that manage their own zap configuration.
func SetLogger(logger *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	root = logger
	loggers = make(map[Category]*Logger)
}

// Get returns the logger for a category, creating it on first use.
func Get(cat Category) *Logger {
	mu.RLock()
	if l, ok := loggers[cat]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[cat]; ok {
		return l
	}
	l := &Logger{sugar: root.Named(string(cat)).Sugar()}
	loggers[cat] = l
	return l
}
