// Package logger provides the process-wide leveled logger.
//
// The printf-style API (Debug, Info, Warn, Error) is backed by a zap
// SugaredLogger. Until Init is called, messages go to stdout in console
// format at INFO level.
package logger

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls how the logger is built.
type Config struct {
	// Level is the minimum level: DEBUG, INFO, WARN or ERROR (case-insensitive).
	Level string

	// Format is "text" (console encoder) or "json".
	Format string

	// Output is "stdout", "stderr" or a file path.
	Output string
}

var (
	mu    sync.RWMutex
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	sugar = mustBuild(Config{Format: "text", Output: "stdout"}).Sugar()
)

// Init replaces the global logger according to cfg.
func Init(cfg Config) error {
	SetLevel(cfg.Level)

	l, err := build(cfg)
	if err != nil {
		return err
	}

	mu.Lock()
	old := sugar
	sugar = l.Sugar()
	mu.Unlock()

	_ = old.Sync()
	return nil
}

// SetLevel changes the minimum level. Unknown values are ignored.
func SetLevel(lvl string) {
	switch strings.ToUpper(lvl) {
	case "DEBUG":
		level.SetLevel(zapcore.DebugLevel)
	case "INFO":
		level.SetLevel(zapcore.InfoLevel)
	case "WARN":
		level.SetLevel(zapcore.WarnLevel)
	case "ERROR":
		level.SetLevel(zapcore.ErrorLevel)
	}
}

// Level returns the current minimum level as an upper-case string.
func Level() string {
	return strings.ToUpper(level.Level().String())
}

// Sync flushes buffered log entries.
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	return sugar.Sync()
}

func build(cfg Config) (*zap.Logger, error) {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")

	encoding := "console"
	switch cfg.Format {
	case "", "text":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	case "json":
		encoding = "json"
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	output := cfg.Output
	if output == "" {
		output = "stdout"
	}

	zcfg := zap.Config{
		Level:            level,
		Encoding:         encoding,
		EncoderConfig:    encCfg,
		OutputPaths:      []string{output},
		ErrorOutputPaths: []string{"stderr"},
	}

	l, err := zcfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return l, nil
}

func mustBuild(cfg Config) *zap.Logger {
	l, err := build(cfg)
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func current() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return sugar
}

func Debug(format string, v ...any) {
	current().Debugf(format, v...)
}

func Info(format string, v ...any) {
	current().Infof(format, v...)
}

func Warn(format string, v ...any) {
	current().Warnf(format, v...)
}

func Error(format string, v ...any) {
	current().Errorf(format, v...)
}
