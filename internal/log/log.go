// Package log provides the process-wide structured logger used by go-precis.
// It wraps a zap SugaredLogger behind a narrow interface so components and
// tests can substitute their own implementation.
package log

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log level names accepted by SetLevel and the log.level config field.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
	LevelFatal = "fatal"
)

var zapLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)

var encoderConfig = zapcore.EncoderConfig{
	TimeKey:        "ts",
	LevelKey:       "lvl",
	NameKey:        "name",
	CallerKey:      "caller",
	MessageKey:     "msg",
	StacktraceKey:  "stacktrace",
	LineEnding:     zapcore.DefaultLineEnding,
	EncodeLevel:    zapcore.CapitalColorLevelEncoder,
	EncodeTime:     zapcore.RFC3339TimeEncoder,
	EncodeDuration: zapcore.MillisDurationEncoder,
	EncodeCaller:   zapcore.ShortCallerEncoder,
}

// Logger is the logging surface used across go-precis.
// *zap.SugaredLogger satisfies it.
type Logger interface {
	Debug(args ...any)
	Debugf(format string, args ...any)
	Info(args ...any)
	Infof(format string, args ...any)
	Warn(args ...any)
	Warnf(format string, args ...any)
	Error(args ...any)
	Errorf(format string, args ...any)
	Fatal(args ...any)
	Fatalf(format string, args ...any)
}

// Default writes console-encoded records to stderr at the level set by SetLevel.
var Default Logger = New()

// New builds a console logger sharing the package-level atomic level.
func New() *zap.SugaredLogger {
	return zap.New(
		zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.AddSync(os.Stderr),
			zapLevel,
		),
		zap.AddCaller(),
	).Sugar()
}

// Nop returns a logger that discards everything.
func Nop() Logger { return zap.NewNop().Sugar() }

// SetLevel changes the level of every logger built by New.
// Unknown levels leave the current level untouched and return an error.
func SetLevel(level string) error {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case LevelDebug:
		zapLevel.SetLevel(zapcore.DebugLevel)
	case LevelInfo, "":
		zapLevel.SetLevel(zapcore.InfoLevel)
	case LevelWarn:
		zapLevel.SetLevel(zapcore.WarnLevel)
	case LevelError:
		zapLevel.SetLevel(zapcore.ErrorLevel)
	case LevelFatal:
		zapLevel.SetLevel(zapcore.FatalLevel)
	default:
		return fmt.Errorf("unknown log level %q", level)
	}
	return nil
}

// CurrentLevel reports the active level name.
func CurrentLevel() string { return zapLevel.Level().String() }

// caller returns Default adjusted so zap reports the caller of the package
// functions below rather than this file.
func caller() Logger {
	if z, ok := Default.(*zap.SugaredLogger); ok {
		return z.WithOptions(zap.AddCallerSkip(1))
	}
	return Default
}

// Debugf logs to the default logger at DEBUG.
func Debugf(format string, args ...any) { caller().Debugf(format, args...) }

// Infof logs to the default logger at INFO.
func Infof(format string, args ...any) { caller().Infof(format, args...) }

// Warnf logs to the default logger at WARN.
func Warnf(format string, args ...any) { caller().Warnf(format, args...) }

// Errorf logs to the default logger at ERROR.
func Errorf(format string, args ...any) { caller().Errorf(format, args...) }

// Fatalf logs to the default logger at FATAL and exits.
func Fatalf(format string, args ...any) { caller().Fatalf(format, args...) }
