// Package logging builds the zap logger shared by every command: a console
// core on stderr and a rotating log file in the installation folder.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// DefaultFile is the log file name inside the installation folder
const DefaultFile = "APY launcher logs.log"

// Config controls where and how much is logged
type Config struct {
	// Level is the file level; unknown values mean info
	Level string
	// File is the log file path; empty disables file logging
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int

	Quiet   bool
	Verbose bool

	// Console defaults to stderr
	Console io.Writer
}

// consoleLevel is warn by default, debug with Verbose, and off with Quiet
func (c Config) consoleLevel() zapcore.LevelEnabler {
	switch {
	case c.Quiet:
		return zap.LevelEnablerFunc(func(zapcore.Level) bool { return false })
	case c.Verbose:
		return zapcore.DebugLevel
	}
	return zapcore.WarnLevel
}

// New builds the logger. The returned close function flushes and closes the file.
func New(cfg Config) (*zap.Logger, func() error, error) {
	console := cfg.Console
	if console == nil {
		console = os.Stderr
	}

	consoleEnc := zap.NewDevelopmentEncoderConfig()
	consoleEnc.TimeKey = ""
	consoleEnc.CallerKey = ""
	consoleEnc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if console != os.Stderr {
		consoleEnc.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEnc), zapcore.AddSync(console), cfg.consoleLevel()),
	}

	closer := func() error { return nil }
	if cfg.File != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			level = zapcore.InfoLevel
		}
		if cfg.Verbose && level > zapcore.DebugLevel {
			level = zapcore.DebugLevel
		}

		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefault(cfg.MaxSizeMB, 5),
			MaxBackups: orDefault(cfg.MaxBackups, 3),
			MaxAge:     orDefault(cfg.MaxAgeDays, 28),
		}

		fileEnc := zap.NewProductionEncoderConfig()
		fileEnc.TimeKey = "ts"
		fileEnc.EncodeTime = zapcore.ISO8601TimeEncoder
		fileEnc.EncodeLevel = zapcore.CapitalLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(fileEnc), zapcore.AddSync(rotator), level))
		closer = rotator.Close
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.AddStacktrace(zapcore.ErrorLevel))
	return logger, func() error {
		_ = logger.Sync()
		return closer()
	}, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
