package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJSON(level string) (*Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return New(&Config{Level: level, Format: "json", Output: buf}), buf
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
	}{
		{name: "default config", config: nil},
		{name: "json", config: &Config{Level: "debug", Format: "json", Output: io.Discard}},
		{name: "console", config: &Config{Level: "info", Format: "console", Output: io.Discard}},
		{name: "nil output", config: &Config{Level: "warn"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, New(tt.config))
		})
	}
}

func TestLogger_JSONOutput(t *testing.T) {
	log, buf := newJSON("info")

	log.Info("diagnosis finished")

	entry := decode(t, buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "diagnosis finished", entry["message"])
	assert.NotEmpty(t, entry["time"])
}

func TestLogger_WithFields(t *testing.T) {
	log, buf := newJSON("info")

	log.With().
		Str("table", "orders").
		Int("violations", 2).
		Bool("archived", true).
		Logger().
		Info("constraint failure diagnosed")

	entry := decode(t, buf)
	assert.Equal(t, "orders", entry["table"])
	assert.Equal(t, float64(2), entry["violations"])
	assert.Equal(t, true, entry["archived"])
}

func TestLogger_ErrorWithFields(t *testing.T) {
	log, buf := newJSON("error")

	log.ErrorWith("probe failed", errors.New("no such table: ghosts"), map[string]any{
		"table":  "ghosts",
		"column": "id",
	})

	entry := decode(t, buf)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "no such table: ghosts", entry["error"])
	assert.Equal(t, "ghosts", entry["table"])
	assert.Equal(t, "id", entry["column"])
}

func TestLogger_DebugWithNilError(t *testing.T) {
	log, buf := newJSON("debug")

	log.DebugWith("step skipped", nil, map[string]any{"step": "where"})

	entry := decode(t, buf)
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "where", entry["step"])
	assert.NotContains(t, entry, "error")
}

func TestLogger_Context(t *testing.T) {
	log, buf := newJSON("info")

	ctx := log.WithContext(context.Background())
	FromContext(ctx).Info("from context")

	assert.Equal(t, "from context", decode(t, buf)["message"])
}

func TestFromContext_FallsBackToGlobal(t *testing.T) {
	log, buf := newJSON("info")
	prev := L()
	SetGlobal(log)
	t.Cleanup(func() { SetGlobal(prev) })

	FromContext(context.Background()).Info("global")

	assert.Equal(t, "global", decode(t, buf)["message"])
}

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		logFunc  func(*Logger)
		expected bool
	}{
		{"debug level logs debug", "debug", func(l *Logger) { l.Debug("d") }, true},
		{"info level skips debug", "info", func(l *Logger) { l.Debug("d") }, false},
		{"error level logs error", "error", func(l *Logger) { l.Error("e") }, true},
		{"error level skips info", "error", func(l *Logger) { l.Info("i") }, false},
		{"disabled skips error", "disabled", func(l *Logger) { l.Error("e") }, false},
		{"unknown level means info", "loud", func(l *Logger) { l.Info("i") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, buf := newJSON(tt.level)

			tt.logFunc(log)

			if tt.expected {
				assert.NotEmpty(t, buf.String(), "expected log output")
			} else {
				assert.Empty(t, buf.String(), "expected no log output")
			}
		})
	}
}

func TestLogger_LevelIsPerInstance(t *testing.T) {
	quiet, quietBuf := newJSON("error")
	loud, loudBuf := newJSON("debug")

	quiet.Info("dropped")
	loud.Debug("kept")

	assert.Empty(t, quietBuf.String())
	assert.NotEmpty(t, loudBuf.String())
}

func TestValidLevel(t *testing.T) {
	assert.True(t, ValidLevel("DEBUG"))
	assert.True(t, ValidLevel("warn"))
	assert.False(t, ValidLevel("verbose"))
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().With().Str("k", "v").Logger().Error("ignored")
	})
}

func BenchmarkLogger_WithFields(b *testing.B) {
	log := New(&Config{Level: "info", Format: "json", Output: io.Discard})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		log.With().
			Str("table", "orders").
			Int("violations", i).
			Logger().
			Info("benchmark message")
	}
}
