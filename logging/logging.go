// Package logging builds the process logger.
package logging

import (
	"github.com/questboard/questboard/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a development logger when cfg.Debug is set and a production
// logger otherwise. A configured LogFile gets a rotated JSON copy of every
// entry at the same level.
func New(cfg config.ServerConfig) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil || cfg.LogFile == "" {
		return logger, err
	}

	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if cfg.Debug {
		level.SetLevel(zapcore.DebugLevel)
	}
	file := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(Rotator(cfg)),
		level,
	)
	return logger.WithOptions(zap.WrapCore(func(c zapcore.Core) zapcore.Core {
		return zapcore.NewTee(c, file)
	})), nil
}

// Rotator returns the rotating writer behind cfg.LogFile.
func Rotator(cfg config.ServerConfig) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   cfg.LogFile,
		MaxSize:    cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		Compress:   true,
	}
}
