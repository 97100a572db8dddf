package logger

import (
	"os"
	"sort"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Package logger provides the process-wide structured logger. Log lines are
// JSON objects with a stable "name" field plus caller-supplied key/values,
// so they can be shipped and indexed without per-package configuration.

var (
	mu  sync.RWMutex
	log = newDefault()
)

func newDefault() *zap.Logger {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(cfg),
		zapcore.Lock(os.Stderr),
		zap.NewAtomicLevelAt(zapcore.InfoLevel),
	)
	return zap.New(core)
}

// SetLogger replaces the process logger; intended for tests and cmd wiring.
func SetLogger(l *zap.Logger) {
	if l == nil {
		return
	}
	mu.Lock()
	log = l
	mu.Unlock()
}

func get() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return log
}

func fieldsOf(kv map[string]any) []zap.Field {
	if len(kv) == 0 {
		return nil
	}
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fs := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		fs = append(fs, zap.Any(k, kv[k]))
	}
	return fs
}

// InfoJ logs an info line under name with structured key/values.
func InfoJ(name string, kv map[string]any) { get().Info(name, fieldsOf(kv)...) }

// ErrorJ logs an error line under name with structured key/values.
func ErrorJ(name string, kv map[string]any) { get().Error(name, fieldsOf(kv)...) }

func Info(msg string)  { get().Info(msg) }
func Warn(msg string)  { get().Warn(msg) }
func Error(msg string) { get().Error(msg) }
