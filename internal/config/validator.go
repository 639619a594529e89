package config

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Validate checks the configuration and fills defaults for optional fields.
func (c *Config) Validate() error {
	if c.Canny.Low <= 0 || c.Canny.High > 255 || c.Canny.Low >= c.Canny.High {
		return fmt.Errorf("canny thresholds must satisfy 0 < low < high <= 255, got %v/%v", c.Canny.Low, c.Canny.High)
	}

	for i, v := range c.Render.ClearColor {
		if v < 0 || v > 1 {
			return fmt.Errorf("render.clear_color[%d] must be in [0,1], got %v", i, v)
		}
	}

	switch c.Render.UnknownMode {
	case "":
		c.Render.UnknownMode = UnknownModePassthrough
	case UnknownModePassthrough, UnknownModeReject:
	default:
		return fmt.Errorf("render.unknown_mode must be %q or %q, got %q",
			UnknownModePassthrough, UnknownModeReject, c.Render.UnknownMode)
	}

	if c.Render.Mode != 0 && c.Render.Mode != 1 {
		return fmt.Errorf("render.mode must be 0 or 1, got %d", c.Render.Mode)
	}

	if c.FPS.WindowMS <= 0 {
		return fmt.Errorf("fps.window_ms must be > 0")
	}

	if c.Source.Device < 0 {
		return fmt.Errorf("source.device must be >= 0")
	}
	if c.Source.Width < 0 || c.Source.Height < 0 {
		return fmt.Errorf("source.width and source.height must be >= 0")
	}

	if c.Viewer.EveryN <= 0 {
		c.Viewer.EveryN = 1
	}

	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

// ConfigureLogger applies the log settings to l.
func (c *Config) ConfigureLogger(l *logrus.Logger) error {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return err
	}
	l.SetLevel(level)
	if c.Log.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}
