// Package pipeline holds the per-instance state of the camera bridge and
// exposes its entry points: graphics initialisation, per-frame processing,
// drawing, render mode selection and the FPS readout.
//
// A Context is single-threaded. All calls must come from the goroutine that
// owns the GL context; use Runner to funnel calls from other goroutines.
package pipeline

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/saurabh-git-dev/edgecam-go/internal/convert"
	"github.com/saurabh-git-dev/edgecam-go/internal/fps"
	"github.com/saurabh-git-dev/edgecam-go/internal/gles"
	"github.com/saurabh-git-dev/edgecam-go/internal/render"
)

// Options configures a Context.
type Options struct {
	Thresholds convert.Thresholds
	Render     render.Options
	Mode       convert.Mode
	// RejectUnknownModes makes SetMode fail on undefined modes instead of
	// falling back to passthrough.
	RejectUnknownModes bool
	FPSWindow          time.Duration
	Clock              fps.Clock
	Logger             logrus.FieldLogger
}

// DefaultOptions returns the stock thresholds, shaders and a one second FPS window.
func DefaultOptions() Options {
	return Options{
		Thresholds: convert.DefaultThresholds(),
		Render:     render.DefaultOptions(),
		Mode:       convert.ModePassthrough,
		FPSWindow:  fps.DefaultWindow,
	}
}

// frameConverter is the conversion step behind Process.
type frameConverter interface {
	Convert(f convert.Frame, mode convert.Mode) (*convert.Image, error)
}

// Context is one bridge instance.
type Context struct {
	id   string
	log  logrus.FieldLogger
	opts Options

	renderer  *render.Renderer
	converter frameConverter
	tracker   *fps.Tracker

	mode convert.Mode
	last *convert.Image
}

// New creates a Context. gl may be nil for a headless pipeline that converts
// frames without uploading them.
func New(gl gles.GL, opts Options) *Context {
	id := uuid.NewString()
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("pipeline", id)

	c := &Context{
		id:        id,
		log:       log,
		opts:      opts,
		converter: convert.New(opts.Thresholds, log),
		tracker:   fps.New(opts.Clock, opts.FPSWindow),
		mode:      convert.ModePassthrough,
	}
	if gl != nil {
		c.renderer = render.New(gl, log)
	}
	if opts.Mode.Known() {
		c.mode = opts.Mode
	}

	log.WithFields(logrus.Fields{
		"function": "New",
		"headless": gl == nil,
		"mode":     c.mode.String(),
		"low":      opts.Thresholds.Low,
		"high":     opts.Thresholds.High,
	}).Info("Pipeline created")
	return c
}

// ID returns the instance id used in log fields.
func (c *Context) ID() string { return c.id }

// Init builds the shader program and GPU resources. On failure every draw
// stays a no-op until Init succeeds.
func (c *Context) Init() error {
	if c.renderer == nil {
		return fmt.Errorf("%w: %w: no GL binding", ErrGPU, ErrNotInitialized)
	}
	c.log.WithFields(logrus.Fields{
		"function": "Init",
	}).Info("Initializing OpenGL")
	if err := c.renderer.Init(c.opts.Render); err != nil {
		return fmt.Errorf("%w: %w", ErrGPU, err)
	}
	return nil
}

// GraphicsReady reports whether Init succeeded and Release was not called since.
func (c *Context) GraphicsReady() bool {
	return c.renderer != nil && c.renderer.Ready()
}

// Render draws the last uploaded frame. It does nothing before a successful Init.
func (c *Context) Render() {
	if c.renderer == nil {
		return
	}
	c.renderer.Draw()
}

// Release frees the GPU resources; Init may be called again afterwards.
func (c *Context) Release() {
	if c.renderer == nil {
		return
	}
	c.renderer.Release()
	c.log.WithFields(logrus.Fields{
		"function": "Release",
	}).Info("OpenGL resources released")
}

// Process converts one frame according to the current mode, keeps the result
// as the last image and uploads it when graphics are ready. f.Data is only
// read during the call.
//
// Invalid input returns ErrInvalidInput and leaves all state untouched.
// Conversion failures, including panics from the image library, return
// ErrFilter.
func (c *Context) Process(f convert.Frame) (err error) {
	if err := f.Validate(); err != nil {
		c.log.WithFields(logrus.Fields{
			"function": "Process",
			"width":    f.Width,
			"height":   f.Height,
			"bytes":    len(f.Data),
			"error":    err.Error(),
		}).Error("Rejected frame")
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	img, err := c.convert(f)
	if err != nil {
		c.log.WithFields(logrus.Fields{
			"function": "Process",
			"mode":     c.mode.String(),
			"error":    err.Error(),
		}).Error("Frame conversion failed")
		return err
	}

	if c.GraphicsReady() {
		if err := c.renderer.Upload(img.Width, img.Height, img.Pix); err != nil {
			c.log.WithFields(logrus.Fields{
				"function": "Process",
				"error":    err.Error(),
			}).Error("Texture upload failed")
			return fmt.Errorf("%w: %w", ErrGPU, err)
		}
	}
	c.last = img

	if c.tracker.Tick() {
		c.log.WithFields(logrus.Fields{
			"function": "Process",
			"fps":      c.tracker.Rate(),
		}).Info("FPS window closed")
	}
	return nil
}

func (c *Context) convert(f convert.Frame) (img *convert.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			img = nil
			err = fmt.Errorf("%w: recovered: %v", ErrFilter, r)
		}
	}()
	img, err = c.converter.Convert(f, c.mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFilter, err)
	}
	return img, nil
}

// SetMode selects the conversion path for subsequent frames. Undefined modes
// fall back to passthrough, or fail with ErrUnknownMode when the Context was
// created with RejectUnknownModes.
func (c *Context) SetMode(m convert.Mode) error {
	if !m.Known() {
		if c.opts.RejectUnknownModes {
			c.log.WithFields(logrus.Fields{
				"function": "SetMode",
				"mode":     int(m),
			}).Error("Rejected unknown render mode")
			return fmt.Errorf("%w: %d", ErrUnknownMode, int(m))
		}
		c.log.WithFields(logrus.Fields{
			"function": "SetMode",
			"mode":     int(m),
		}).Warn("Unknown render mode, using passthrough")
		m = convert.ModePassthrough
	}
	c.mode = m
	return nil
}

// Mode returns the current render mode.
func (c *Context) Mode() convert.Mode { return c.mode }

// FPS returns the rate of the last completed window.
func (c *Context) FPS() float32 { return c.tracker.Rate() }

// LastImage returns a copy of the last converted frame, or nil.
func (c *Context) LastImage() *convert.Image { return c.last.Clone() }
