package monitor

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/signalalpha/coinex-trading/internal/config"
)

// Logger wraps logrus logger
type Logger struct {
	*logrus.Logger
	closer io.Closer
}

// NewLogger creates a new logger instance
func NewLogger(cfg config.LogConfig) *Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	var (
		writers []io.Writer
		closer  io.Closer
	)
	switch cfg.Output {
	case "file", "both":
		file, err := newFileWriter(cfg)
		if err != nil {
			logger.Warnf("Failed to open log file: %v, falling back to console", err)
			writers = []io.Writer{os.Stdout}
			break
		}
		closer = file
		if cfg.Output == "both" {
			writers = []io.Writer{os.Stdout, file}
		} else {
			writers = []io.Writer{file}
		}
	default:
		writers = []io.Writer{os.Stdout}
	}

	logger.SetOutput(io.MultiWriter(writers...))
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	return &Logger{Logger: logger, closer: closer}
}

// Close flushes and closes the log file, if any
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func newFileWriter(cfg config.LogConfig) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return nil, err
	}
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}, nil
}
