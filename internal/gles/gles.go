// Package gles describes the subset of OpenGL ES 2.0 the bridge talks to.
//
// The interface is deliberately narrow so that GPU-facing code can run against
// the cgo binding in gles/gl2 or a recording fake in tests. All methods must be
// called from the thread that owns the current GL context.
package gles

// GL is the OpenGL ES 2.0 call surface used by the shader builder and renderer.
// Object names follow GL conventions: 0 means "no object".
type GL interface {
	CreateShader(kind uint32) uint32
	ShaderSource(shader uint32, source string)
	CompileShader(shader uint32)
	GetShaderiv(shader uint32, pname uint32) int32
	GetShaderInfoLog(shader uint32) string
	DeleteShader(shader uint32)

	CreateProgram() uint32
	AttachShader(program, shader uint32)
	LinkProgram(program uint32)
	GetProgramiv(program uint32, pname uint32) int32
	GetProgramInfoLog(program uint32) string
	DeleteProgram(program uint32)
	UseProgram(program uint32)
	GetAttribLocation(program uint32, name string) int32
	GetUniformLocation(program uint32, name string) int32
	Uniform1i(location int32, v int32)

	GenTexture() uint32
	DeleteTexture(texture uint32)
	BindTexture(target, texture uint32)
	ActiveTexture(unit uint32)
	TexParameteri(target, pname uint32, param int32)
	TexImage2D(target uint32, level int32, internalFormat int32, width, height int32, format, xtype uint32, pixels []byte)

	GenBuffer() uint32
	DeleteBuffer(buffer uint32)
	BindBuffer(target, buffer uint32)
	BufferData(target uint32, data []float32, usage uint32)
	VertexAttribPointer(index uint32, size int32, xtype uint32, normalized bool, stride int32, offset int)
	EnableVertexAttribArray(index uint32)

	ClearColor(r, g, b, a float32)
	Clear(mask uint32)
	DrawArrays(mode uint32, first, count int32)
	GetError() uint32
}

// GL ES 2.0 enum values.
const (
	NoError = 0
	False   = 0
	True    = 1

	VertexShader   = 0x8B31
	FragmentShader = 0x8B30
	CompileStatus  = 0x8B81
	LinkStatus     = 0x8B82
	InfoLogLength  = 0x8B84

	Texture2D        = 0x0DE1
	Texture0         = 0x84C0
	TextureMinFilter = 0x2801
	TextureMagFilter = 0x2800
	TextureWrapS     = 0x2802
	TextureWrapT     = 0x2803
	Linear           = 0x2601
	ClampToEdge      = 0x812F

	RGBA         = 0x1908
	UnsignedByte = 0x1401
	Float        = 0x1406

	ArrayBuffer = 0x8892
	StaticDraw  = 0x88E4

	ColorBufferBit = 0x00004000
	TriangleStrip  = 0x0005
)

// ShaderKindName returns a readable name for a shader kind, for diagnostics.
func ShaderKindName(kind uint32) string {
	switch kind {
	case VertexShader:
		return "vertex"
	case FragmentShader:
		return "fragment"
	default:
		return "unknown"
	}
}
