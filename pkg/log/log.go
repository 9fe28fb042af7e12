// Package log provides the process-wide structured logger used by talkd.
//
// It wraps a zap SugaredLogger so that packages can log with key/value pairs
// without passing a logger around. Agents and the question chain log their
// decisions here; the CLI initializes it from configuration. Logs go to
// stderr unless told otherwise, since stdout carries command output.
package log

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel is a verbosity name as written in the config file.
type LogLevel string

// Supported levels. Progress is talkd's default and logs like info;
// minimal is an alias of warn.
const (
	LevelDebug    LogLevel = "debug"
	LevelInfo     LogLevel = "info"
	LevelProgress LogLevel = "progress"
	LevelMinimal  LogLevel = "minimal"
	LevelWarn     LogLevel = "warn"
	LevelError    LogLevel = "error"
)

var levels = map[LogLevel]zapcore.Level{
	"":            zapcore.InfoLevel,
	LevelDebug:    zapcore.DebugLevel,
	LevelInfo:     zapcore.InfoLevel,
	LevelProgress: zapcore.InfoLevel,
	LevelMinimal:  zapcore.WarnLevel,
	LevelWarn:     zapcore.WarnLevel,
	LevelError:    zapcore.ErrorLevel,
}

// Config holds logger configuration.
type Config struct {
	Level LogLevel
	// Format is "console" (default) or "json".
	Format string
	// Output defaults to os.Stderr.
	Output io.Writer
}

var (
	mu     sync.RWMutex
	global *zap.SugaredLogger
)

// Init replaces the global logger. On error the previous logger stays.
func Init(cfg Config) error {
	logger, err := build(cfg)
	if err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	if global != nil {
		_ = global.Sync()
	}
	global = logger
	return nil
}

// ValidLevel reports whether level is a supported level name.
func ValidLevel(level string) bool {
	_, ok := levels[LogLevel(level)]
	return ok
}

// Levels lists the supported level names.
func Levels() []string {
	var names []string
	for l := range levels {
		if l != "" {
			names = append(names, string(l))
		}
	}
	sort.Strings(names)
	return names
}

func build(cfg Config) (*zap.SugaredLogger, error) {
	level, ok := levels[cfg.Level]
	if !ok {
		return nil, fmt.Errorf("unknown log level %q", cfg.Level)
	}

	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "ts"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeDuration = zapcore.StringDurationEncoder

	var encoder zapcore.Encoder
	switch cfg.Format {
	case "", "console":
		enc.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(enc)
	case "json":
		encoder = zapcore.NewJSONEncoder(enc)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(out)), level)
	return zap.New(core,
		zap.AddCaller(),
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.ErrorLevel),
	).Sugar(), nil
}

// Get returns the global logger, building a default one on first use.
func Get() *zap.SugaredLogger {
	mu.RLock()
	logger := global
	mu.RUnlock()
	if logger != nil {
		return logger
	}

	mu.Lock()
	defer mu.Unlock()
	if global == nil {
		global, _ = build(Config{Level: LevelProgress})
	}
	return global
}

// Debug logs msg with key/value pairs.
func Debug(msg string, kv ...interface{}) { Get().Debugw(msg, kv...) }

// Info logs msg with key/value pairs.
func Info(msg string, kv ...interface{}) { Get().Infow(msg, kv...) }

// Warn logs msg with key/value pairs.
func Warn(msg string, kv ...interface{}) { Get().Warnw(msg, kv...) }

// Error logs msg with key/value pairs.
func Error(msg string, kv ...interface{}) { Get().Errorw(msg, kv...) }

// With returns a child of the global logger carrying kv.
func With(kv ...interface{}) *zap.SugaredLogger {
	// Skip the wrapper frame only for package-level helpers.
	return Get().Desugar().WithOptions(zap.AddCallerSkip(-1)).Sugar().With(kv...)
}

// ForTalk returns the logger an agent uses while working on one talk.
func ForTalk(talk, agent string) *zap.SugaredLogger {
	return With("talk", talk).Named(agent)
}

// Sync flushes buffered entries.
func Sync() error {
	mu.RLock()
	logger := global
	mu.RUnlock()
	if logger == nil {
		return nil
	}
	return logger.Sync()
}

// Reset drops the global logger; the next Get builds a default one.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	if global != nil {
		_ = global.Sync()
	}
	global = nil
}
