package main

import (
	"fmt"
	"image"
	"io"
	"path/filepath"
	"strings"

	"gocv.io/x/gocv"

	"github.com/saurabh-git-dev/edgecam-go/internal/config"
	"github.com/saurabh-git-dev/edgecam-go/internal/convert"
)

const maxProbeDevices = 10

// ListCameras probes the first capture devices and returns the ones that open.
func ListCameras() []string {
	return probeDevices(maxProbeDevices, probeDevice)
}

func probeDevices(n int, probe func(id int) (string, bool)) []string {
	result := make([]string, 0, n)
	for id := 0; id < n; id++ {
		if desc, ok := probe(id); ok {
			result = append(result, desc)
		}
	}
	return result
}

func probeDevice(id int) (string, bool) {
	vc, err := gocv.VideoCaptureDevice(id)
	if err != nil {
		return "", false
	}
	defer vc.Close()
	if !vc.IsOpened() {
		return "", false
	}
	w := int(vc.Get(gocv.VideoCaptureFrameWidth))
	h := int(vc.Get(gocv.VideoCaptureFrameHeight))
	return fmt.Sprintf("%d: %dx%d", id, w, h), true
}

// Source yields raw frames in the layout the pipeline expects, RGBA or NV21.
type Source struct {
	capture *gocv.VideoCapture
	still   gocv.Mat // valid when hasStill
	frame   gocv.Mat
	// A single image file is replayed as every frame.
	hasStill bool
	yuv      bool
}

// OpenSource opens the configured file or capture device.
func OpenSource(cfg config.SourceConfig) (*Source, error) {
	s := &Source{frame: gocv.NewMat(), yuv: cfg.YUV}

	if cfg.File != "" && isImageFile(cfg.File) {
		s.still = gocv.IMRead(cfg.File, gocv.IMReadColor)
		s.hasStill = true
		if s.still.Empty() {
			s.Close()
			return nil, fmt.Errorf("cannot read image %s", cfg.File)
		}
		return s, nil
	}

	var (
		vc  *gocv.VideoCapture
		err error
	)
	if cfg.File != "" {
		vc, err = gocv.VideoCaptureFile(cfg.File)
	} else {
		vc, err = gocv.VideoCaptureDevice(cfg.Device)
	}
	if err != nil {
		s.frame.Close()
		return nil, fmt.Errorf("camera open failed: %w", err)
	}
	if cfg.Width > 0 && cfg.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}
	s.capture = vc
	return s, nil
}

func isImageFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".bmp", ".ppm":
		return true
	}
	return false
}

// CaptureFrame reads the next frame. It returns io.EOF when a file source is
// exhausted. Dimensions are trimmed to even values in NV21 mode.
func (s *Source) CaptureFrame() (data []byte, width, height int, err error) {
	if s.capture != nil {
		if ok := s.capture.Read(&s.frame); !ok || s.frame.Empty() {
			return nil, 0, 0, io.EOF
		}
	} else {
		s.still.CopyTo(&s.frame)
	}

	width, height = s.frame.Cols(), s.frame.Rows()
	if width <= 0 || height <= 0 {
		return nil, 0, 0, fmt.Errorf("invalid frame size: %dx%d", width, height)
	}

	if !s.yuv {
		rgba := gocv.NewMat()
		defer rgba.Close()
		gocv.CvtColor(s.frame, &rgba, gocv.ColorBGRToRGBA)
		return rgba.ToBytes(), width, height, nil
	}

	width, height = width&^1, height&^1
	if width == 0 || height == 0 {
		return nil, 0, 0, fmt.Errorf("frame too small for nv21: %dx%d", s.frame.Cols(), s.frame.Rows())
	}
	roi := s.frame.Region(image.Rect(0, 0, width, height))
	defer roi.Close()
	i420 := gocv.NewMat()
	defer i420.Close()
	gocv.CvtColor(roi, &i420, gocv.ColorBGRToYUVI420)

	data, err = convert.PackNV21(i420.ToBytes(), width, height)
	if err != nil {
		return nil, 0, 0, err
	}
	return data, width, height, nil
}

// Close releases the capture device and buffers.
func (s *Source) Close() {
	if s.capture != nil {
		s.capture.Close()
	}
	if s.hasStill {
		s.still.Close()
	}
	s.frame.Close()
}
