package util

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{"WARN", zapcore.WarnLevel, false},
		{"loud", zapcore.InfoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewLoggerWithFile_WritesJSONLinesAtLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "venue.log")

	logger, err := NewLoggerWithFile(path, "warn")
	require.NoError(t, err)
	logger.Sugar().Infow("order_submitted", "order_id", 1)
	logger.Sugar().Warnw("tick_fault_skipped_cycle", "consecutive", 2)
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1, "info is below the configured level")

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "tick_fault_skipped_cycle", entry["msg"])
	assert.Equal(t, "WARN", entry["level"])
	assert.Contains(t, entry, "ts")
	assert.Equal(t, 2.0, entry["consecutive"])
}

func TestNewLogger_RejectsUnknownLevel(t *testing.T) {
	_, err := NewLogger("chatty")
	assert.Error(t, err)
}
