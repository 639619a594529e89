// Package gl2 implements gles.GL on top of the go-gl OpenGL ES 2 bindings.
package gl2

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/go-gl/gl/v3.1/gles2"
	"github.com/sirupsen/logrus"

	"github.com/saurabh-git-dev/edgecam-go/internal/gles"
)

// Binding forwards gles.GL calls to the driver. The zero value is not usable;
// call New once a GL context is current on the calling thread.
type Binding struct{}

var _ gles.GL = (*Binding)(nil)

// New loads the GLES2 entry points for the current context.
func New() (*Binding, error) {
	if err := gles2.Init(); err != nil {
		return nil, fmt.Errorf("gles2 init: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"function": "gl2.New",
	}).Info("GLES2 entry points loaded")
	return &Binding{}, nil
}

func (*Binding) CreateShader(kind uint32) uint32 { return gles2.CreateShader(kind) }

func (*Binding) ShaderSource(shader uint32, source string) {
	csource, free := gles2.Strs(source + "\x00")
	defer free()
	gles2.ShaderSource(shader, 1, csource, nil)
}

func (*Binding) CompileShader(shader uint32) { gles2.CompileShader(shader) }

func (*Binding) GetShaderiv(shader uint32, pname uint32) int32 {
	var v int32
	gles2.GetShaderiv(shader, pname, &v)
	return v
}

func (b *Binding) GetShaderInfoLog(shader uint32) string {
	n := b.GetShaderiv(shader, gles.InfoLogLength)
	if n <= 0 {
		return ""
	}
	buf := make([]byte, n+1)
	gles2.GetShaderInfoLog(shader, n, nil, &buf[0])
	return strings.TrimRight(string(buf), "\x00")
}

func (*Binding) DeleteShader(shader uint32) { gles2.DeleteShader(shader) }

func (*Binding) CreateProgram() uint32 { return gles2.CreateProgram() }

func (*Binding) AttachShader(program, shader uint32) { gles2.AttachShader(program, shader) }

func (*Binding) LinkProgram(program uint32) { gles2.LinkProgram(program) }

func (*Binding) GetProgramiv(program uint32, pname uint32) int32 {
	var v int32
	gles2.GetProgramiv(program, pname, &v)
	return v
}

func (b *Binding) GetProgramInfoLog(program uint32) string {
	n := b.GetProgramiv(program, gles.InfoLogLength)
	if n <= 0 {
		return ""
	}
	buf := make([]byte, n+1)
	gles2.GetProgramInfoLog(program, n, nil, &buf[0])
	return strings.TrimRight(string(buf), "\x00")
}

func (*Binding) DeleteProgram(program uint32) { gles2.DeleteProgram(program) }

func (*Binding) UseProgram(program uint32) { gles2.UseProgram(program) }

func (*Binding) GetAttribLocation(program uint32, name string) int32 {
	return gles2.GetAttribLocation(program, gles2.Str(name+"\x00"))
}

func (*Binding) GetUniformLocation(program uint32, name string) int32 {
	return gles2.GetUniformLocation(program, gles2.Str(name+"\x00"))
}

func (*Binding) Uniform1i(location int32, v int32) { gles2.Uniform1i(location, v) }

func (*Binding) GenTexture() uint32 {
	var tex uint32
	gles2.GenTextures(1, &tex)
	return tex
}

func (*Binding) DeleteTexture(texture uint32) { gles2.DeleteTextures(1, &texture) }

func (*Binding) BindTexture(target, texture uint32) { gles2.BindTexture(target, texture) }

func (*Binding) ActiveTexture(unit uint32) { gles2.ActiveTexture(unit) }

func (*Binding) TexParameteri(target, pname uint32, param int32) {
	gles2.TexParameteri(target, pname, param)
}

func (*Binding) TexImage2D(target uint32, level int32, internalFormat int32, width, height int32, format, xtype uint32, pixels []byte) {
	var ptr unsafe.Pointer
	if len(pixels) > 0 {
		ptr = gles2.Ptr(&pixels[0])
	}
	gles2.TexImage2D(target, level, internalFormat, width, height, 0, format, xtype, ptr)
}

func (*Binding) GenBuffer() uint32 {
	var buf uint32
	gles2.GenBuffers(1, &buf)
	return buf
}

func (*Binding) DeleteBuffer(buffer uint32) { gles2.DeleteBuffers(1, &buffer) }

func (*Binding) BindBuffer(target, buffer uint32) { gles2.BindBuffer(target, buffer) }

// BufferData copies data into the bound buffer; the driver keeps no reference
// to the Go slice after the call returns.
func (*Binding) BufferData(target uint32, data []float32, usage uint32) {
	if len(data) == 0 {
		gles2.BufferData(target, 0, nil, usage)
		return
	}
	gles2.BufferData(target, len(data)*4, gles2.Ptr(&data[0]), usage)
}

func (*Binding) VertexAttribPointer(index uint32, size int32, xtype uint32, normalized bool, stride int32, offset int) {
	gles2.VertexAttribPointer(index, size, xtype, normalized, stride, gles2.PtrOffset(offset))
}

func (*Binding) EnableVertexAttribArray(index uint32) { gles2.EnableVertexAttribArray(index) }

func (*Binding) ClearColor(r, g, b, a float32) { gles2.ClearColor(r, g, b, a) }

func (*Binding) Clear(mask uint32) { gles2.Clear(mask) }

func (*Binding) DrawArrays(mode uint32, first, count int32) { gles2.DrawArrays(mode, first, count) }

func (*Binding) GetError() uint32 { return gles2.GetError() }
