package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a JSON logger at level ("debug", "info", "warn", "error"). When filePath is
// set, entries are appended to that file as well as stderr.
func NewLogger(level, filePath string) (*zap.Logger, error) {
	return buildLogger(level, filePath, true)
}

// NewFileLogger logs only to filePath, for programs that own the terminal. An empty path
// discards everything.
func NewFileLogger(level, filePath string) (*zap.Logger, error) {
	if filePath == "" {
		return zap.NewNop(), nil
	}
	return buildLogger(level, filePath, false)
}

func buildLogger(level, filePath string, stderr bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if !stderr {
		config.OutputPaths = nil
		config.ErrorOutputPaths = nil
	}
	if filePath != "" {
		if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log dir: %w", err)
		}
		config.OutputPaths = append(config.OutputPaths, filePath)
		config.ErrorOutputPaths = append(config.ErrorOutputPaths, filePath)
	}
	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
