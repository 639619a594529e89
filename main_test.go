package main

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/saurabh-git-dev/edgecam-go/internal/config"
	"github.com/saurabh-git-dev/edgecam-go/internal/convert"
)

func TestIsImageFile(t *testing.T) {
	for path, want := range map[string]bool{
		"frame.png":      true,
		"FRAME.JPG":      true,
		"a/b/shot.jpeg":  true,
		"scan.bmp":       true,
		"clip.mp4":       false,
		"/dev/video0":    false,
		"noext":          false,
		"archive.png.gz": false,
	} {
		assert.Equal(t, want, isImageFile(path), path)
	}
}

func TestProbeDevicesKeepsOpenedOnly(t *testing.T) {
	var probed []int
	got := probeDevices(4, func(id int) (string, bool) {
		probed = append(probed, id)
		if id%2 == 1 {
			return fmt.Sprintf("%d: 640x480", id), true
		}
		return "", false
	})

	assert.Equal(t, []int{0, 1, 2, 3}, probed)
	assert.Equal(t, []string{"1: 640x480", "3: 640x480"}, got)
	assert.Empty(t, probeDevices(3, func(int) (string, bool) { return "", false }))
}

func TestPipelineOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Canny.Low, cfg.Canny.High = 30, 90
	cfg.Render.Mode = 1
	cfg.Render.UnknownMode = config.UnknownModeReject
	cfg.Render.ClearColor = [4]float32{0.1, 0.2, 0.3, 1}
	cfg.FPS.WindowMS = 500

	opts := pipelineOptions(cfg)

	assert.Equal(t, convert.Thresholds{Low: 30, High: 90}, opts.Thresholds)
	assert.Equal(t, convert.ModeEdges, opts.Mode)
	assert.True(t, opts.RejectUnknownModes)
	assert.Equal(t, [4]float32{0.1, 0.2, 0.3, 1}, opts.Render.ClearColor)
	assert.NotEmpty(t, opts.Render.VertexSource)
	assert.NotEmpty(t, opts.Render.FragmentSource)
	assert.Equal(t, 500*time.Millisecond, opts.FPSWindow)
	assert.NotNil(t, opts.Logger)
}

func TestPipelineOptionsDefaultPassthrough(t *testing.T) {
	opts := pipelineOptions(config.Default())

	assert.Equal(t, convert.ModePassthrough, opts.Mode)
	assert.False(t, opts.RejectUnknownModes)
	assert.Equal(t, convert.DefaultThresholds(), opts.Thresholds)
}
