// Package render owns the GPU side of the bridge: one texture, one vertex
// buffer holding a static full-screen quad and the shader program that samples
// the texture onto it.
//
// A Renderer is bound to the thread that owns the GL context. It is either
// fully initialised (valid program and texture) or every draw is a no-op.
package render

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/saurabh-git-dev/edgecam-go/internal/gles"
	"github.com/saurabh-git-dev/edgecam-go/internal/shader"
)

var (
	ErrNotInitialized = errors.New("render: not initialized")
	ErrImageSize      = errors.New("render: pixel buffer does not match dimensions")
	ErrTexture        = errors.New("render: texture allocation failed")
)

// QuadVertices is the interleaved (x, y, u, v) triangle strip covering the
// viewport. V is flipped so that row 0 of the image lands at the top.
var QuadVertices = [...]float32{
	-1, -1, 0, 1, // bottom left
	1, -1, 1, 1, // bottom right
	-1, 1, 0, 0, // top left
	1, 1, 1, 0, // top right
}

const (
	vertexStride   = 4 * 4
	texCoordOffset = 2 * 4
	quadVertexCnt  = 4
)

// Options configures Init.
type Options struct {
	VertexSource   string
	FragmentSource string
	ClearColor     [4]float32
}

// DefaultOptions uses the built-in shaders and an opaque black clear colour.
func DefaultOptions() Options {
	return Options{
		VertexSource:   shader.VertexSource,
		FragmentSource: shader.FragmentSource,
		ClearColor:     [4]float32{0, 0, 0, 1},
	}
}

// Renderer uploads RGBA8 frames and draws them.
type Renderer struct {
	gl  gles.GL
	log logrus.FieldLogger

	program shader.Program
	texture uint32
	vbo     uint32
	width   int
	height  int
}

// New returns an uninitialised Renderer. A nil logger selects the logrus
// standard logger.
func New(gl gles.GL, log logrus.FieldLogger) *Renderer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Renderer{gl: gl, log: log}
}

// Init builds the program and, only if that succeeds, allocates the texture,
// uploads the quad, binds the two vertex attributes and sets the clear colour.
// Calling Init on an initialised Renderer releases the previous objects first.
func (r *Renderer) Init(opts Options) error {
	if r.Ready() || r.program.Valid() {
		r.Release()
	}

	p, err := shader.NewBuilder(r.gl, r.log).Build(opts.VertexSource, opts.FragmentSource)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"function": "Init",
			"error":    err.Error(),
		}).Error("Failed to create shader program")
		return err
	}
	r.program = p

	r.texture = r.gl.GenTexture()
	if r.texture == 0 {
		r.gl.DeleteProgram(p.ID)
		r.program = shader.Program{}
		r.log.WithFields(logrus.Fields{
			"function": "Init",
		}).Error("Failed to create texture")
		return ErrTexture
	}
	r.gl.BindTexture(gles.Texture2D, r.texture)
	r.gl.TexParameteri(gles.Texture2D, gles.TextureMinFilter, gles.Linear)
	r.gl.TexParameteri(gles.Texture2D, gles.TextureMagFilter, gles.Linear)
	r.gl.TexParameteri(gles.Texture2D, gles.TextureWrapS, gles.ClampToEdge)
	r.gl.TexParameteri(gles.Texture2D, gles.TextureWrapT, gles.ClampToEdge)

	r.vbo = r.gl.GenBuffer()
	r.gl.BindBuffer(gles.ArrayBuffer, r.vbo)
	r.gl.BufferData(gles.ArrayBuffer, QuadVertices[:], gles.StaticDraw)
	r.gl.VertexAttribPointer(uint32(p.Position), 2, gles.Float, false, vertexStride, 0)
	r.gl.EnableVertexAttribArray(uint32(p.Position))
	r.gl.VertexAttribPointer(uint32(p.TexCoord), 2, gles.Float, false, vertexStride, texCoordOffset)
	r.gl.EnableVertexAttribArray(uint32(p.TexCoord))

	c := opts.ClearColor
	r.gl.ClearColor(c[0], c[1], c[2], c[3])

	r.log.WithFields(logrus.Fields{
		"function": "Init",
		"program":  p.ID,
		"texture":  r.texture,
	}).Info("OpenGL initialized")
	return nil
}

// Ready reports whether both the program and the texture are valid.
func (r *Renderer) Ready() bool {
	return r.program.Valid() && r.texture != 0
}

// Program returns the linked program, or the zero Program.
func (r *Renderer) Program() shader.Program { return r.program }

// Texture returns the texture name, or 0.
func (r *Renderer) Texture() uint32 { return r.texture }

// TextureSize returns the dimensions of the last upload.
func (r *Renderer) TextureSize() (width, height int) { return r.width, r.height }

// Upload replaces the whole texture with an RGBA8 image, reallocating its
// storage to the image's size on every call.
func (r *Renderer) Upload(width, height int, pix []byte) error {
	if !r.Ready() {
		return ErrNotInitialized
	}
	if width <= 0 || height <= 0 || len(pix) != width*height*4 {
		return fmt.Errorf("%w: %dx%d with %d bytes", ErrImageSize, width, height, len(pix))
	}
	r.gl.BindTexture(gles.Texture2D, r.texture)
	r.gl.TexImage2D(gles.Texture2D, 0, gles.RGBA, int32(width), int32(height), gles.RGBA, gles.UnsignedByte, pix)
	r.width, r.height = width, height
	return nil
}

// Draw clears the colour buffer and draws the textured quad. It does nothing
// unless both the program and the texture are valid.
func (r *Renderer) Draw() {
	if !r.Ready() {
		return
	}
	r.gl.Clear(gles.ColorBufferBit)
	r.gl.UseProgram(r.program.ID)
	r.gl.ActiveTexture(gles.Texture0)
	r.gl.BindTexture(gles.Texture2D, r.texture)
	r.gl.Uniform1i(r.program.Sampler, 0)
	r.gl.DrawArrays(gles.TriangleStrip, 0, quadVertexCnt)
}

// Release deletes every GL object and returns the Renderer to the
// uninitialised state.
func (r *Renderer) Release() {
	if r.texture != 0 {
		r.gl.DeleteTexture(r.texture)
	}
	if r.vbo != 0 {
		r.gl.DeleteBuffer(r.vbo)
	}
	if r.program.Valid() {
		r.gl.DeleteProgram(r.program.ID)
	}
	r.program = shader.Program{}
	r.texture, r.vbo = 0, 0
	r.width, r.height = 0, 0
}
