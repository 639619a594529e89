package pipeline

import (
	"github.com/sirupsen/logrus"

	"github.com/saurabh-git-dev/edgecam-go/internal/convert"
)

// The methods below are the call surface a foreign-language host binds to.
// They never return Go errors: failures are logged and, where the call has a
// result, reported as a status code.

// InitGraphics performs one-time GPU setup. Failures are logged only.
func (c *Context) InitGraphics() {
	if err := c.Init(); err != nil {
		c.log.WithFields(logrus.Fields{
			"function": "InitGraphics",
			"error":    err.Error(),
		}).Error("Failed to initialize graphics")
	}
}

// RenderFrame draws the textured quad; a no-op before InitGraphics succeeds.
func (c *Context) RenderFrame() {
	c.Render()
}

// ProcessFrame converts buf and uploads the result. It returns StatusOK on
// success and StatusError on nil, empty or mis-sized input and on any
// conversion failure.
func (c *Context) ProcessFrame(buf []byte, width, height, rotation int, isYUV bool) int {
	format := convert.FormatRGBA
	if isYUV {
		format = convert.FormatNV21
	}
	return Status(c.Process(convert.Frame{
		Data:     buf,
		Width:    width,
		Height:   height,
		Rotation: rotation,
		Format:   format,
	}))
}

// SetRenderMode sets the mode flag: 0 camera, 1 edge detection.
func (c *Context) SetRenderMode(mode int) {
	_ = c.SetMode(convert.Mode(mode))
}

// GetFps returns the last computed frame rate.
func (c *Context) GetFps() float32 {
	return c.FPS()
}
