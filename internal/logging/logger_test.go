package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  logrus.Level
	}{
		{"debug level", "debug", logrus.DebugLevel},
		{"warn level", "WARN", logrus.WarnLevel},
		{"default info", "", logrus.InfoLevel},
		{"garbage falls back", "loud", logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, New(tt.level).GetLevel())
		})
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithOutput("info", &buf)

	logger.WithField("doctor", "Dr. Rao").Info("appointment booked")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "appointment booked", entry["msg"])
	assert.Equal(t, "Dr. Rao", entry["doctor"])
	assert.Equal(t, "info", entry["level"])
}

func TestDefaultIsNewInstance(t *testing.T) {
	a, b := Default(), Default()
	assert.NotSame(t, a, b)
	assert.False(t, Discard().IsLevelEnabled(logrus.ErrorLevel))
}
