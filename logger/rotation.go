package logger

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultMaxSizeMB = 10
	defaultMaxFiles  = 5
)

// RotationConfig describes a size-rotated log file.
type RotationConfig struct {
	File      string
	MaxSizeMB int
	MaxFiles  int
	Compress  bool
}

// NewRotatingWriter opens a lumberjack writer for cfg, creating the directory.
func NewRotatingWriter(cfg RotationConfig) (*lumberjack.Logger, error) {
	if cfg.File == "" {
		return nil, fmt.Errorf("rotation file path must not be empty")
	}
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = defaultMaxSizeMB
	}
	if cfg.MaxFiles <= 0 {
		cfg.MaxFiles = defaultMaxFiles
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxFiles,
		Compress:   cfg.Compress,
	}, nil
}

// NewFileLogger creates a standard logger writing to a rotated file.
// The returned close function releases the file.
func NewFileLogger(cfg RotationConfig) (Logger, func() error, error) {
	w, err := NewRotatingWriter(cfg)
	if err != nil {
		return nil, nil, err
	}
	l := NewStdLogger()
	l.SetOutput(w)
	return l, w.Close, nil
}
