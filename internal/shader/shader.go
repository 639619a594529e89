// Package shader compiles and links the GLSL ES program that draws camera
// frames onto a full-screen quad.
package shader

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/saurabh-git-dev/edgecam-go/internal/gles"
)

// Attribute and uniform names shared by the default sources and the renderer.
const (
	PositionAttrib = "aPosition"
	TexCoordAttrib = "aTexCoord"
	SamplerUniform = "uTexture"
)

// VertexSource passes position through and forwards texture coordinates.
const VertexSource = `
attribute vec4 aPosition;
attribute vec2 aTexCoord;
varying vec2 vTexCoord;
void main() {
    gl_Position = aPosition;
    vTexCoord = aTexCoord;
}
`

// FragmentSource samples the frame texture.
const FragmentSource = `
precision mediump float;
uniform sampler2D uTexture;
varying vec2 vTexCoord;
void main() {
    gl_FragColor = texture2D(uTexture, vTexCoord);
}
`

var (
	ErrCreate    = errors.New("shader: object creation failed")
	ErrCompile   = errors.New("shader: compilation failed")
	ErrLink      = errors.New("shader: link failed")
	ErrAttribute = errors.New("shader: attribute not found")
)

// Program is a linked program and the locations the renderer needs.
// The zero value is the invalid program.
type Program struct {
	ID       uint32
	Position int32
	TexCoord int32
	Sampler  int32
}

// Valid reports whether the program linked successfully.
func (p Program) Valid() bool { return p.ID != 0 }

// Builder compiles shader sources against a GL implementation.
type Builder struct {
	gl  gles.GL
	log logrus.FieldLogger
}

// NewBuilder returns a Builder. A nil logger selects the logrus standard logger.
func NewBuilder(gl gles.GL, log logrus.FieldLogger) *Builder {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Builder{gl: gl, log: log}
}

// Build compiles both sources, links them and resolves the attribute and
// uniform locations. On any failure every object created so far is deleted
// and the zero Program is returned with an error carrying the driver log.
func (b *Builder) Build(vertexSrc, fragmentSrc string) (Program, error) {
	vs, err := b.compile(gles.VertexShader, vertexSrc)
	if err != nil {
		return Program{}, err
	}
	fs, err := b.compile(gles.FragmentShader, fragmentSrc)
	if err != nil {
		b.gl.DeleteShader(vs)
		return Program{}, err
	}
	// Shaders are only flagged for deletion while attached to a live program.
	defer b.gl.DeleteShader(vs)
	defer b.gl.DeleteShader(fs)

	id := b.gl.CreateProgram()
	if id == 0 {
		b.log.WithFields(logrus.Fields{
			"function": "Build",
			"gl_error": b.gl.GetError(),
		}).Error("Could not create program object")
		return Program{}, fmt.Errorf("%w: program", ErrCreate)
	}

	b.gl.AttachShader(id, vs)
	b.gl.AttachShader(id, fs)
	b.gl.LinkProgram(id)

	if b.gl.GetProgramiv(id, gles.LinkStatus) != gles.True {
		infoLog := b.gl.GetProgramInfoLog(id)
		b.log.WithFields(logrus.Fields{
			"function": "Build",
			"program":  id,
			"info_log": infoLog,
		}).Error("Could not link program")
		b.gl.DeleteProgram(id)
		return Program{}, fmt.Errorf("%w: %s", ErrLink, infoLog)
	}

	p := Program{
		ID:       id,
		Position: b.gl.GetAttribLocation(id, PositionAttrib),
		TexCoord: b.gl.GetAttribLocation(id, TexCoordAttrib),
		Sampler:  b.gl.GetUniformLocation(id, SamplerUniform),
	}
	if p.Position < 0 || p.TexCoord < 0 {
		b.log.WithFields(logrus.Fields{
			"function": "Build",
			"program":  id,
			"position": p.Position,
			"texcoord": p.TexCoord,
		}).Error("Linked program is missing vertex attributes")
		b.gl.DeleteProgram(id)
		return Program{}, fmt.Errorf("%w: need %s and %s", ErrAttribute, PositionAttrib, TexCoordAttrib)
	}

	b.log.WithFields(logrus.Fields{
		"function": "Build",
		"program":  id,
		"sampler":  p.Sampler,
	}).Debug("Shader program linked")
	return p, nil
}

func (b *Builder) compile(kind uint32, src string) (uint32, error) {
	name := gles.ShaderKindName(kind)
	sh := b.gl.CreateShader(kind)
	if sh == 0 {
		b.log.WithFields(logrus.Fields{
			"function": "compile",
			"kind":     name,
			"gl_error": b.gl.GetError(),
		}).Error("Could not create shader object")
		return 0, fmt.Errorf("%w: %s shader", ErrCreate, name)
	}

	b.gl.ShaderSource(sh, src)
	b.gl.CompileShader(sh)
	if b.gl.GetShaderiv(sh, gles.CompileStatus) == gles.False {
		infoLog := b.gl.GetShaderInfoLog(sh)
		b.log.WithFields(logrus.Fields{
			"function": "compile",
			"kind":     name,
			"info_log": infoLog,
		}).Error("Could not compile shader")
		b.gl.DeleteShader(sh)
		return 0, fmt.Errorf("%w: %s shader: %s", ErrCompile, name, infoLog)
	}
	return sh, nil
}
