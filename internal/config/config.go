// Package config loads the edgecam YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Unknown render mode policies.
const (
	UnknownModePassthrough = "passthrough"
	UnknownModeReject      = "reject"
)

// Config is the complete edgecam configuration.
type Config struct {
	Canny  CannyConfig  `yaml:"canny"`
	Render RenderConfig `yaml:"render"`
	FPS    FPSConfig    `yaml:"fps"`
	Source SourceConfig `yaml:"source"`
	Viewer ViewerConfig `yaml:"viewer"`
	Log    LogConfig    `yaml:"log"`
}

// CannyConfig holds the edge detector hysteresis thresholds (0-255).
type CannyConfig struct {
	Low  float32 `yaml:"low"`
	High float32 `yaml:"high"`
}

// RenderConfig contains GPU and mode settings
type RenderConfig struct {
	ClearColor  [4]float32 `yaml:"clear_color"`  // RGBA in [0,1]
	UnknownMode string     `yaml:"unknown_mode"` // passthrough, reject
	Mode        int        `yaml:"mode"`         // initial mode: 0 camera, 1 edges
}

// FPSConfig contains frame-rate window settings
type FPSConfig struct {
	WindowMS int `yaml:"window_ms"`
}

// SourceConfig selects where the CLI reads frames from
type SourceConfig struct {
	Device int    `yaml:"device"`
	File   string `yaml:"file"`   // video or image file; overrides device
	YUV    bool   `yaml:"yuv"`    // repack frames to NV21 before processing
	Width  int    `yaml:"width"`  // requested capture width, 0 = driver default
	Height int    `yaml:"height"` // requested capture height, 0 = driver default
}

// ViewerConfig contains WebSocket viewer settings
type ViewerConfig struct {
	Listen string `yaml:"listen"`  // empty disables the viewer
	EveryN int    `yaml:"every_n"` // publish every n-th frame
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text, json
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Canny: CannyConfig{Low: 50, High: 150},
		Render: RenderConfig{
			ClearColor:  [4]float32{0, 0, 0, 1},
			UnknownMode: UnknownModePassthrough,
		},
		FPS:    FPSConfig{WindowMS: 1000},
		Viewer: ViewerConfig{EveryN: 1},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// FPSWindow returns the FPS window as a duration.
func (c *Config) FPSWindow() time.Duration {
	return time.Duration(c.FPS.WindowMS) * time.Millisecond
}
