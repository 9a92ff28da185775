// Package logger provides leveled logging with support for debug, info, warn,
// and error levels. It wraps zap's sugared logger behind package-level
// functions so call sites stay terse and format-string based.
package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var defaultLogger *zap.SugaredLogger

// Init initializes the default logger with the specified level ("debug",
// "info", "warn", "error") and format ("json" or "text"). Unknown values
// fall back to info/json.
func Init(level string, format string) {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	var config zap.Config
	if strings.ToLower(format) == "text" {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	built, err := config.Build(zap.AddCallerSkip(1))
	if err != nil {
		// Config is static; a build failure means zap itself is broken.
		panic(err)
	}
	defaultLogger = built.Sugar()
}

func get() *zap.SugaredLogger {
	if defaultLogger == nil {
		built, _ := zap.NewProduction(zap.AddCallerSkip(1))
		defaultLogger = built.Sugar()
	}
	return defaultLogger
}

// Debug logs a message at DebugLevel.
func Debug(format string, args ...interface{}) {
	get().Debugf(format, args...)
}

// Info logs a message at InfoLevel.
func Info(format string, args ...interface{}) {
	get().Infof(format, args...)
}

// Warn logs a message at WarnLevel.
func Warn(format string, args ...interface{}) {
	get().Warnf(format, args...)
}

// Error logs a message at ErrorLevel.
func Error(format string, args ...interface{}) {
	get().Errorf(format, args...)
}

// Fatal logs a message at ErrorLevel and exits.
func Fatal(format string, args ...interface{}) {
	get().Errorf(format, args...)
	_ = get().Sync()
	os.Exit(1)
}

// Sync flushes any buffered log entries. Call before process exit.
func Sync() {
	if defaultLogger != nil {
		_ = defaultLogger.Sync()
	}
}
