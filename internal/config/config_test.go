package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, float32(50), cfg.Canny.Low)
	assert.Equal(t, float32(150), cfg.Canny.High)
	assert.Equal(t, time.Second, cfg.FPSWindow())
	assert.Equal(t, UnknownModePassthrough, cfg.Render.UnknownMode)
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
canny:
  low: 30
  high: 90
render:
  unknown_mode: reject
  mode: 1
  clear_color: [0.1, 0.2, 0.3, 1]
viewer:
  listen: ":3000"
log:
  level: debug
  format: json
`))
	require.NoError(t, err)
	assert.Equal(t, float32(30), cfg.Canny.Low)
	assert.Equal(t, float32(90), cfg.Canny.High)
	assert.Equal(t, UnknownModeReject, cfg.Render.UnknownMode)
	assert.Equal(t, 1, cfg.Render.Mode)
	assert.Equal(t, [4]float32{0.1, 0.2, 0.3, 1}, cfg.Render.ClearColor)
	assert.Equal(t, ":3000", cfg.Viewer.Listen)
	assert.Equal(t, 1, cfg.Viewer.EveryN, "untouched fields keep defaults")
	assert.Equal(t, 1000, cfg.FPS.WindowMS)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"low_above_high", "canny: {low: 200, high: 100}", "canny thresholds"},
		{"high_over_255", "canny: {low: 10, high: 300}", "canny thresholds"},
		{"zero_low", "canny: {low: 0, high: 100}", "canny thresholds"},
		{"clear_color_range", "render: {clear_color: [0, 0, 2, 1]}", "clear_color[2]"},
		{"unknown_mode_policy", "render: {unknown_mode: crash}", "unknown_mode"},
		{"initial_mode", "render: {mode: 4}", "render.mode"},
		{"fps_window", "fps: {window_ms: 0}", "window_ms"},
		{"device", "source: {device: -1}", "source.device"},
		{"log_level", "log: {level: loud}", "log.level"},
		{"log_format", "log: {format: xml}", "log.format"},
		{"syntax", "canny: [", "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "edgecam.yaml")
	require.NoError(t, os.WriteFile(path, []byte("viewer: {every_n: 0}\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Viewer.EveryN)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config")
}

func TestConfigureLogger(t *testing.T) {
	cfg := Default()
	cfg.Log = LogConfig{Level: "warn", Format: "json"}
	l := logrus.New()

	require.NoError(t, cfg.ConfigureLogger(l))
	assert.Equal(t, logrus.WarnLevel, l.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, l.Formatter)
}
