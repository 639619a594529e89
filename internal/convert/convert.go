// Package convert turns raw camera buffers into display-ready RGBA8 images,
// optionally running a Canny edge detector on the way.
//
// Caller buffers are only ever wrapped in short-lived gocv Mats that alias the
// caller's memory; every such view is closed before the call returns and the
// returned Image owns its pixels.
package convert

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

var (
	ErrEmptyFrame  = errors.New("convert: empty frame buffer")
	ErrDimensions  = errors.New("convert: invalid frame dimensions")
	ErrBufferSize  = errors.New("convert: buffer size does not match format")
	ErrConversion  = errors.New("convert: conversion failed")
	ErrUnknownMode = errors.New("convert: unknown mode")
)

// Format is the pixel layout of a raw frame.
type Format int

const (
	// FormatRGBA is packed 8-bit RGBA, 4 bytes per pixel.
	FormatRGBA Format = iota
	// FormatNV21 is a full-resolution Y plane followed by interleaved V/U at
	// quarter resolution, 1.5 bytes per pixel.
	FormatNV21
)

func (f Format) String() string {
	switch f {
	case FormatRGBA:
		return "rgba"
	case FormatNV21:
		return "nv21"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// Mode selects the conversion path.
type Mode int

const (
	// ModePassthrough converts colour space only.
	ModePassthrough Mode = 0
	// ModeEdges renders a Canny edge map.
	ModeEdges Mode = 1
)

func (m Mode) String() string {
	switch m {
	case ModePassthrough:
		return "passthrough"
	case ModeEdges:
		return "edges"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Known reports whether m is one of the defined modes.
func (m Mode) Known() bool { return m == ModePassthrough || m == ModeEdges }

// Frame is a borrowed view of one camera frame. Data belongs to the caller
// and must not be retained after the call it was passed to.
type Frame struct {
	Data     []byte
	Width    int
	Height   int
	Rotation int // hint only; no transform is applied
	Format   Format
}

// ExpectedSize returns the byte length the frame's format requires.
func (f Frame) ExpectedSize() int {
	switch f.Format {
	case FormatNV21:
		return f.Width * f.Height * 3 / 2
	default:
		return f.Width * f.Height * 4
	}
}

// Validate checks the buffer against the declared dimensions and format.
func (f Frame) Validate() error {
	if len(f.Data) == 0 {
		return ErrEmptyFrame
	}
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrDimensions, f.Width, f.Height)
	}
	switch f.Format {
	case FormatRGBA:
	case FormatNV21:
		// Chroma is subsampled 2x2.
		if f.Width%2 != 0 || f.Height%2 != 0 {
			return fmt.Errorf("%w: nv21 needs even dimensions, got %dx%d", ErrDimensions, f.Width, f.Height)
		}
	default:
		return fmt.Errorf("%w: unknown format %v", ErrBufferSize, f.Format)
	}
	if want := f.ExpectedSize(); len(f.Data) != want {
		return fmt.Errorf("%w: %s %dx%d needs %d bytes, got %d",
			ErrBufferSize, f.Format, f.Width, f.Height, want, len(f.Data))
	}
	return nil
}

// Image is an owned RGBA8 pixel buffer.
type Image struct {
	Width  int
	Height int
	Pix    []byte
}

// Clone returns a deep copy.
func (img *Image) Clone() *Image {
	if img == nil {
		return nil
	}
	return &Image{Width: img.Width, Height: img.Height, Pix: append([]byte(nil), img.Pix...)}
}

// Thresholds are the Canny hysteresis thresholds on an 8-bit gradient scale.
type Thresholds struct {
	Low  float32
	High float32
}

// DefaultThresholds returns 50/150.
func DefaultThresholds() Thresholds { return Thresholds{Low: 50, High: 150} }

// Converter runs the colour conversion and edge detection.
type Converter struct {
	th  Thresholds
	log logrus.FieldLogger
}

// New returns a Converter. A nil logger selects the logrus standard logger.
func New(th Thresholds, log logrus.FieldLogger) *Converter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Converter{th: th, log: log}
}

// Thresholds returns the configured Canny thresholds.
func (c *Converter) Thresholds() Thresholds { return c.th }

// Convert produces an RGBA8 image of the frame's size. In ModePassthrough the
// frame is colour-converted (RGBA is copied unchanged); in ModeEdges it is
// reduced to luma, run through Canny and expanded so that edges are opaque
// white and everything else opaque black.
func (c *Converter) Convert(f Frame, mode Mode) (*Image, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	c.log.WithFields(logrus.Fields{
		"function": "Convert",
		"format":   f.Format.String(),
		"mode":     mode.String(),
		"width":    f.Width,
		"height":   f.Height,
		"rotation": f.Rotation,
	}).Debug("Converting frame")

	switch mode {
	case ModePassthrough:
		if f.Format == FormatRGBA {
			return &Image{Width: f.Width, Height: f.Height, Pix: append([]byte(nil), f.Data...)}, nil
		}
		return c.nv21ToRGBA(f)
	case ModeEdges:
		return c.edges(f)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownMode, mode)
	}
}

func (c *Converter) nv21ToRGBA(f Frame) (*Image, error) {
	var out *Image
	err := borrow(f.Height*3/2, f.Width, gocv.MatTypeCV8UC1, f.Data, func(src gocv.Mat) error {
		rgba := gocv.NewMat()
		defer rgba.Close()
		gocv.CvtColor(src, &rgba, gocv.ColorYUVToRGBANV21)

		var err error
		out, err = toImage(rgba, f.Width, f.Height)
		return err
	})
	return out, err
}

func (c *Converter) edges(f Frame) (*Image, error) {
	var out *Image
	switch f.Format {
	case FormatNV21:
		// The Y plane is already the grayscale image.
		luma := f.Data[:f.Width*f.Height]
		err := borrow(f.Height, f.Width, gocv.MatTypeCV8UC1, luma, func(gray gocv.Mat) error {
			var err error
			out, err = c.canny(gray, f.Width, f.Height)
			return err
		})
		return out, err
	default:
		err := borrow(f.Height, f.Width, gocv.MatTypeCV8UC4, f.Data, func(src gocv.Mat) error {
			gray := gocv.NewMat()
			defer gray.Close()
			gocv.CvtColor(src, &gray, gocv.ColorRGBAToGray)
			if gray.Empty() {
				return fmt.Errorf("%w: rgba to gray produced no output", ErrConversion)
			}
			var err error
			out, err = c.canny(gray, f.Width, f.Height)
			return err
		})
		return out, err
	}
}

func (c *Converter) canny(gray gocv.Mat, width, height int) (*Image, error) {
	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, c.th.Low, c.th.High)
	if edges.Empty() {
		return nil, fmt.Errorf("%w: canny produced no output", ErrConversion)
	}

	rgba := gocv.NewMat()
	defer rgba.Close()
	// Gray expands to equal B, G and R, so BGRA and RGBA are the same bytes.
	gocv.CvtColor(edges, &rgba, gocv.ColorGrayToBGRA)
	return toImage(rgba, width, height)
}

// borrow wraps buf in a Mat for the duration of fn.
func borrow(rows, cols int, mt gocv.MatType, buf []byte, fn func(gocv.Mat) error) error {
	m, err := gocv.NewMatFromBytes(rows, cols, mt, buf)
	if err != nil {
		return fmt.Errorf("%w: wrap buffer: %v", ErrConversion, err)
	}
	defer m.Close()
	return fn(m)
}

func toImage(m gocv.Mat, width, height int) (*Image, error) {
	if m.Empty() || m.Rows() != height || m.Cols() != width || m.Channels() != 4 {
		return nil, fmt.Errorf("%w: got %dx%dx%d, want %dx%dx4",
			ErrConversion, m.Cols(), m.Rows(), m.Channels(), width, height)
	}
	return &Image{Width: width, Height: height, Pix: m.ToBytes()}, nil
}
