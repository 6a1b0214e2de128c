package observability

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ismail-codar/IFC-GraphRAG-System/internal/config"
)

var (
	globalLogger atomic.Pointer[zap.Logger]
	once         sync.Once

	// preInit serves GetLogger before configuration is loaded.
	preInit = sync.OnceValue(func() *zap.Logger {
		cfg := config.LoggerConfig{Format: "console", Colors: config.ColorConfig{Warn: "yellow", Error: "red"}}
		core := zapcore.NewCore(getEncoder(cfg), zapcore.Lock(os.Stderr), zap.WarnLevel)
		return zap.New(core).Named("ifcgraph")
	})
)

const colorReset = "\x1b[0m"

var colorMap = map[string]string{
	"black":   "\x1b[30m",
	"red":     "\x1b[31m",
	"green":   "\x1b[32m",
	"yellow":  "\x1b[33m",
	"blue":    "\x1b[34m",
	"magenta": "\x1b[35m",
	"cyan":    "\x1b[36m",
	"white":   "\x1b[37m",
}

// Initialize installs the process logger. Entries go to console in the
// configured format and, with cfg.LogFile set, also to a size-rotated file
// that is always JSON so it can be shipped as is. Later calls are ignored
// until ResetForTest.
func Initialize(cfg config.LoggerConfig, console zapcore.WriteSyncer) {
	once.Do(func() {
		logger := build(cfg, console)
		globalLogger.Store(logger)
		zap.ReplaceGlobals(logger)
	})
}

func build(cfg config.LoggerConfig, console zapcore.WriteSyncer) *zap.Logger {
	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if cfg.Level != "" {
		_ = level.UnmarshalText([]byte(cfg.Level))
	}

	tee := []zapcore.Core{zapcore.NewCore(getEncoder(cfg), console, level)}
	if cfg.LogFile != "" {
		rotated := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		tee = append(tee, zapcore.NewCore(getEncoder(config.LoggerConfig{Format: "json"}), zapcore.AddSync(rotated), level))
	}

	opts := []zap.Option{zap.AddStacktrace(zap.ErrorLevel)}
	if cfg.AddSource {
		opts = append(opts, zap.AddCaller())
	}
	logger := zap.New(zapcore.NewTee(tee...), opts...)
	if cfg.ServiceName != "" {
		logger = logger.Named(cfg.ServiceName)
	}
	return logger
}

// InitializeLogger installs the process logger on stderr. Stdout carries
// the JSON results of every command and must stay clean.
func InitializeLogger(cfg config.LoggerConfig) {
	Initialize(cfg, zapcore.Lock(os.Stderr))
}

// ResetForTest forgets the installed logger so the next Initialize takes
// effect.
func ResetForTest() {
	globalLogger.Store(nil)
	once = sync.Once{}
}

// levelEncoder prints the upper-case level, wrapped in the ANSI color named
// for that level when one is configured.
func levelEncoder(colors config.ColorConfig) zapcore.LevelEncoder {
	names := map[zapcore.Level]string{
		zapcore.DebugLevel:  colors.Debug,
		zapcore.InfoLevel:   colors.Info,
		zapcore.WarnLevel:   colors.Warn,
		zapcore.ErrorLevel:  colors.Error,
		zapcore.DPanicLevel: colors.DPanic,
		zapcore.PanicLevel:  colors.Panic,
		zapcore.FatalLevel:  colors.Fatal,
	}
	return func(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
		text := l.CapitalString()
		if code, ok := colorMap[names[l]]; ok {
			text = code + text + colorReset
		}
		enc.AppendString(text)
	}
}

func getEncoder(cfg config.LoggerConfig) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z07:00")
	if cfg.Format != "console" {
		ec.EncodeLevel = zapcore.LowercaseLevelEncoder
		return zapcore.NewJSONEncoder(ec)
	}
	// [ifcgraph.ingest] style component names
	ec.EncodeLevel = levelEncoder(cfg.Colors)
	ec.EncodeName = func(name string, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString("[" + name + "]")
	}
	return zapcore.NewConsoleEncoder(ec)
}

// GetLogger returns the installed logger. Before Initialize it returns a
// shared stderr logger that only lets warnings and errors through, so a
// library call made ahead of config loading never writes debug output.
func GetLogger() *zap.Logger {
	if logger := globalLogger.Load(); logger != nil {
		return logger
	}
	return preInit()
}

// Sync flushes the installed logger on exit. Terminals and pipes reject
// fsync; those errors are dropped.
func Sync() {
	logger := globalLogger.Load()
	if logger == nil {
		return
	}
	if err := logger.Sync(); err != nil && !unsyncable(err) {
		fmt.Fprintln(os.Stderr, "Error: failed to sync logger:", err)
	}
}

func unsyncable(err error) bool {
	for _, errno := range []syscall.Errno{syscall.EINVAL, syscall.ENOTTY, syscall.ENOTSUP} {
		if errors.Is(err, errno) {
			return true
		}
	}
	return strings.Contains(err.Error(), "/dev/std")
}
