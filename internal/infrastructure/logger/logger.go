package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jrick/logrotate/rotator"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	rotateThresholdKB = 10 * 1024
	rotateMaxRolls    = 3
)

// Logger wraps zap logger with additional functionality
type Logger struct {
	*zap.Logger
	rotator *rotator.Rotator
}

// NewLogger creates a new logger instance. When logFile is set, output is
// also written to a size-rotated file next to it.
func NewLogger(level, logFile string) (*Logger, error) {
	// Parse log level
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.InfoLevel
	}

	// Configure encoder
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoder := zapcore.NewJSONEncoder(encoderConfig)

	atom := zap.NewAtomicLevelAt(zapLevel)
	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), atom)

	var r *rotator.Rotator
	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		var err error
		r, err = rotator.New(logFile, rotateThresholdKB, false, rotateMaxRolls)
		if err != nil {
			return nil, fmt.Errorf("failed to create log rotator: %w", err)
		}
		fileCore := zapcore.NewCore(encoder.Clone(), zapcore.Lock(zapcore.AddSync(r)), atom)
		core = zapcore.NewTee(core, fileCore)
	}

	return &Logger{
		Logger:  zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel)),
		rotator: r,
	}, nil
}

// NewNop returns a logger that discards everything
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// Wrap adapts an existing zap logger, e.g. zaptest loggers in tests
func Wrap(l *zap.Logger) *Logger {
	return &Logger{Logger: l}
}

// WithComponent adds a component field to the logger
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{Logger: l.Logger.With(zap.String("component", component)), rotator: l.rotator}
}

// WithFields adds multiple fields to the logger
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	zapFields := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zapFields = append(zapFields, zap.Any(k, v))
	}
	return &Logger{Logger: l.Logger.With(zapFields...), rotator: l.rotator}
}

// Close flushes buffered entries and releases the log file
func (l *Logger) Close() error {
	_ = l.Logger.Sync()
	if l.rotator != nil {
		return l.rotator.Close()
	}
	return nil
}
