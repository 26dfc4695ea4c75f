// Package logging provides the process-wide zap logger.
//
// Logging is silent unless a level is passed to Initialize or set through
// SCREEN_PATROL_LOG_LEVEL. Output goes to stderr so that JSON written to
// stdout by the CLI stays machine-readable.
package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

// LogLevelEnvVar is the environment variable that controls logging verbosity.
// Valid values: "debug", "info", "warn", "error".
const LogLevelEnvVar = "SCREEN_PATROL_LOG_LEVEL"

// maxLoggedLine bounds the size of terminal lines copied into log entries.
const maxLoggedLine = 160

// Initialize creates the global logger with the specified level.
// If level is empty, SCREEN_PATROL_LOG_LEVEL is consulted. If neither is set,
// logging is disabled.
func Initialize(level string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}

	if level == "" {
		logger = zap.NewNop()
		return nil
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(ParseLevel(level)),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	var err error
	logger, err = config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// ParseLevel maps a level name to a zap level. Unknown names map to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// GetLogger returns the global logger instance, or a no-op logger when
// Initialize was never called.
func GetLogger() *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger
}

// Or returns l, or the global logger when l is nil.
func Or(l *zap.Logger) *zap.Logger {
	if l != nil {
		return l
	}
	return GetLogger()
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// LogCommand logs a command sent to the terminal emulator and its outcome.
func LogCommand(l *zap.Logger, session, command string, err error) {
	fields := []zap.Field{
		zap.String("session", session),
		zap.String("command", command),
	}
	if err != nil {
		Or(l).Warn("terminal command failed", append(fields, zap.Error(err))...)
		return
	}
	Or(l).Debug("terminal command", fields...)
}

// LogLines logs terminal output at debug level, one entry per line.
func LogLines(l *zap.Logger, label string, lines []string) {
	l = Or(l)
	if !l.Core().Enabled(zapcore.DebugLevel) {
		return
	}
	for i, line := range lines {
		l.Debug(label, zap.Int("line", i), zap.String("text", truncate(line)))
	}
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxLoggedLine {
		return s
	}
	return string(r[:maxLoggedLine]) + "..."
}

// Sync flushes any buffered log entries
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
