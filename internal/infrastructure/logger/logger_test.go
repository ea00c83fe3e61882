package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopcore/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"INFO", zapcore.InfoLevel},
		{"warning", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{" warn ", zapcore.WarnLevel},
		{"fatal", zapcore.InfoLevel},
		{"bogus", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	l, err := New(&Config{Level: "debug", Format: "json", Output: path})
	require.NoError(t, err)

	l.Info("written to file")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"written to file"`)
	assert.Contains(t, string(data), `"level":"info"`)
}

func TestNew_UnwritableOutput(t *testing.T) {
	_, err := New(&Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "app.log")})
	assert.Error(t, err)
}

func TestNewFromAppConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shop.log")

	l, err := NewFromAppConfig(
		config.AppConfig{Name: "shopcore", Env: "production"},
		config.LogConfig{Level: "warn", Format: "console", Output: path},
	)
	require.NoError(t, err)

	l.Info("suppressed")
	l.Warn("kept")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.NotContains(t, out, "suppressed")
	assert.Contains(t, out, `"service":"shopcore"`)
	assert.True(t, strings.HasPrefix(out, "{"), "production output is JSON")
}

func TestNew_Sampling(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sampled.log")

	l, err := New(&Config{Format: "json", Output: path, Sample: true})
	require.NoError(t, err)
	for i := 0; i < 250; i++ {
		l.Info("stock reserved")
	}
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Count(string(data), "\n")
	assert.Less(t, lines, 250)
	assert.GreaterOrEqual(t, lines, 100)
}

func TestNewFromAppConfig_DevelopmentConsole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dev.log")

	l, err := NewFromAppConfig(config.AppConfig{Name: "shopcore", Env: "development"}, config.LogConfig{Output: path})
	require.NoError(t, err)
	l.Info("hello")
	_ = l.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(string(data), "{"), "development defaults to console output")
	assert.Contains(t, string(data), "hello")
}
