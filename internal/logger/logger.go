package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Default rotation settings, following lumberjack semantics.
const (
	defaultMaxSizeMB  = 10
	defaultMaxBackups = 3
	defaultMaxAgeDays = 7
)

// FileConfig describes an optional rotating log file sink.
type FileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max-size-mb"`
	MaxBackups int    `mapstructure:"max-backups"`
	MaxAgeDays int    `mapstructure:"max-age-days"`
	Compress   bool   `mapstructure:"compress"`
}

// New builds the application logger. Console encoding by default, json when
// requested; debug switches the level.
func New(json bool, debug bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	encoding := "console"

	if json {
		encoding = "json"
	}

	if debug {
		level = zapcore.DebugLevel
	}

	cfg := zap.Config{
		Encoding:         encoding,
		Level:            zap.NewAtomicLevelAt(level),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig:    encoderConfig(),
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	defer logger.Sync()

	return logger, nil
}

// NewWithFile builds a logger that also writes json entries to a rotating
// file. Used by serve mode so the API keeps a durable log.
func NewWithFile(json, debug bool, file FileConfig) (*zap.Logger, error) {
	base, err := New(json, debug)
	if err != nil {
		return nil, err
	}

	if file.Path == "" {
		return base, nil
	}

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	sink := zapcore.AddSync(&lj.Logger{
		Filename:   file.Path,
		MaxSize:    valOr(file.MaxSizeMB, defaultMaxSizeMB),
		MaxBackups: valOr(file.MaxBackups, defaultMaxBackups),
		MaxAge:     valOr(file.MaxAgeDays, defaultMaxAgeDays),
		Compress:   file.Compress,
	})

	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig()), sink, level)

	return base.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	})), nil
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey: "step",

		LevelKey:    "level",
		EncodeLevel: zapcore.LowercaseLevelEncoder,

		TimeKey:    "time",
		EncodeTime: zapcore.RFC3339TimeEncoder,

		CallerKey:    "caller",
		EncodeCaller: zapcore.ShortCallerEncoder,
	}
}

func valOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
