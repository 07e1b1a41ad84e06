package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level = zapcore.Level

const (
	LevelError = zapcore.ErrorLevel
	LevelWarn  = zapcore.WarnLevel
	LevelInfo  = zapcore.InfoLevel
	LevelDebug = zapcore.DebugLevel
)

// Logger keeps printf-style call sites on top of a structured zap core.
type Logger struct {
	sugar *zap.SugaredLogger
}

func ParseLevel(level string) Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "ERROR":
		return LevelError
	case "WARN", "WARNING":
		return LevelWarn
	case "DEBUG":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// New builds a JSON logger writing to stdout and, when filePath is set, to that file too.
func New(level, filePath string) (*Logger, error) {
	outputs := []string{"stdout"}
	if filePath != "" {
		outputs = append(outputs, filePath)
	}

	cfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(ParseLevel(level)),
		Encoding:         "json",
		EncoderConfig:    encoderConfig(),
		OutputPaths:      outputs,
		ErrorOutputPaths: []string{"stderr"},
	}

	z, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return &Logger{sugar: z.Sugar()}, nil
}

// Open is New for process startup: a log file that cannot be opened falls back to stdout only.
func Open(level, filePath string) *Logger {
	l, err := New(level, filePath)
	if err != nil {
		l, _ = New(level, "")
		l.Warn("Failed to open log file, logging to stdout only: %v", err)
	}

	return l
}

// NewFromZap wraps an existing zap logger; used by tests with an observer core.
func NewFromZap(z *zap.Logger) *Logger {
	return &Logger{sugar: z.Sugar()}
}

func NewNop() *Logger {
	return NewFromZap(zap.NewNop())
}

func encoderConfig() zapcore.EncoderConfig {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "timestamp"
	enc.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	return enc
}

func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

func (l *Logger) WithFields(fields map[string]interface{}) *Entry {
	kv := make([]interface{}, 0, len(fields)*2)
	for key, value := range fields {
		kv = append(kv, key, value)
	}

	return &Entry{sugar: l.sugar.With(kv...)}
}

// Entry is a logger with fields attached to every line.
type Entry struct {
	sugar *zap.SugaredLogger
}

func (e *Entry) Error(format string, args ...interface{}) {
	e.sugar.Errorf(format, args...)
}

func (e *Entry) Warn(format string, args ...interface{}) {
	e.sugar.Warnf(format, args...)
}

func (e *Entry) Info(format string, args ...interface{}) {
	e.sugar.Infof(format, args...)
}

func (e *Entry) Debug(format string, args ...interface{}) {
	e.sugar.Debugf(format, args...)
}
