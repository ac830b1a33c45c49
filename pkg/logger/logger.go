// pkg/logger/logger.go
package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	*zap.SugaredLogger
	level zap.AtomicLevel
}

// New builds a JSON production logger. An unparsable level falls back to info.
func New(level string) *Logger {
	atom := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if lvl, err := zapcore.ParseLevel(level); err == nil {
		atom.SetLevel(lvl)
	}

	config := zap.NewProductionConfig()
	config.Level = atom
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		logger = zap.NewExample()
	}
	return &Logger{SugaredLogger: logger.Sugar(), level: atom}
}

func NewDevelopment() *Logger {
	atom := zap.NewAtomicLevelAt(zapcore.DebugLevel)

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoder := zapcore.NewConsoleEncoder(encoderConfig)

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), atom)
	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	return &Logger{SugaredLogger: logger.Sugar(), level: atom}
}

// NewNop discards everything; used by tests and as a default for optional loggers.
func NewNop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar(), level: zap.NewAtomicLevel()}
}

// Wrap adapts an existing zap logger, e.g. one from zaptest.
func Wrap(l *zap.Logger) *Logger {
	return &Logger{SugaredLogger: l.Sugar(), level: zap.NewAtomicLevel()}
}

// SetLevel changes the minimum enabled level at runtime.
func (l *Logger) SetLevel(level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	l.level.SetLevel(lvl)
	return nil
}

func (l *Logger) Level() string {
	return l.level.Level().String()
}
