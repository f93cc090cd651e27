package monitor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalalpha/coinex-trading/internal/config"
)

func TestNewLoggerLevel(t *testing.T) {
	tests := []struct {
		level string
		want  logrus.Level
	}{
		{level: "debug", want: logrus.DebugLevel},
		{level: "warn", want: logrus.WarnLevel},
		{level: "error", want: logrus.ErrorLevel},
		{level: "bogus", want: logrus.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l := NewLogger(config.LogConfig{Level: tt.level, Output: "console"})
			assert.Equal(t, tt.want, l.GetLevel())
			assert.NoError(t, l.Close())
		})
	}
}

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "coinex.log")
	l := NewLogger(config.LogConfig{Level: "info", Output: "file", File: path, MaxSizeMB: 1})

	l.WithField("market", "BTCUSDT").Info("order placed")
	require.NoError(t, l.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "order placed")
	assert.Contains(t, string(b), "market=BTCUSDT")
}
