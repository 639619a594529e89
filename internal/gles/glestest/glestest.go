// Package glestest provides a recording fake of gles.GL for tests.
package glestest

import (
	"fmt"
	"strings"
	"sync"

	"github.com/saurabh-git-dev/edgecam-go/internal/gles"
)

// Call is one recorded GL invocation.
type Call struct {
	Name string
	Args []any
}

func (c Call) String() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = fmt.Sprint(a)
	}
	return c.Name + "(" + strings.Join(parts, ", ") + ")"
}

// TexImage is the last image uploaded into a texture.
type TexImage struct {
	Width, Height int32
	Format        uint32
	Pixels        []byte
}

// GL is an in-memory gles.GL. Failures are injected through the exported
// fields before the code under test runs.
type GL struct {
	mu sync.Mutex

	// CompileErrors maps a shader kind to the info log it reports on compile.
	CompileErrors map[uint32]string
	// LinkError, when non-empty, makes every link fail with this log.
	LinkError string
	// NoShaders, NoPrograms and NoTextures make the create calls return 0.
	NoShaders  bool
	NoPrograms bool
	NoTextures bool
	// Attribs and Uniforms resolve location lookups; missing names give -1.
	Attribs  map[string]int32
	Uniforms map[string]int32

	calls    []Call
	next     uint32
	shaders  map[uint32]uint32 // name -> kind
	programs map[uint32]bool   // name -> linked
	textures map[uint32]*TexImage
	buffers  map[uint32][]float32
	bound    map[uint32]uint32 // target -> object
}

var _ gles.GL = (*GL)(nil)

// New returns a fake that knows the bridge's attribute and uniform names.
func New() *GL {
	return &GL{
		CompileErrors: map[uint32]string{},
		Attribs:       map[string]int32{"aPosition": 0, "aTexCoord": 1},
		Uniforms:      map[string]int32{"uTexture": 0},
		shaders:       map[uint32]uint32{},
		programs:      map[uint32]bool{},
		textures:      map[uint32]*TexImage{},
		buffers:       map[uint32][]float32{},
		bound:         map[uint32]uint32{},
	}
}

func (g *GL) record(name string, args ...any) {
	g.calls = append(g.calls, Call{Name: name, Args: args})
}

func (g *GL) alloc() uint32 {
	g.next++
	return g.next
}

// Calls returns a copy of the recorded calls.
func (g *GL) Calls() []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Call(nil), g.calls...)
}

// CallNames returns the names of the recorded calls, in order.
func (g *GL) CallNames() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	names := make([]string, len(g.calls))
	for i, c := range g.calls {
		names[i] = c.Name
	}
	return names
}

// Count returns how many times name was called.
func (g *GL) Count(name string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		if c.Name == name {
			n++
		}
	}
	return n
}

// Reset forgets recorded calls but keeps object state.
func (g *GL) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = nil
}

// LiveShaders, LivePrograms, LiveTextures and LiveBuffers report objects
// created and not yet deleted.
func (g *GL) LiveShaders() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.shaders)
}

func (g *GL) LivePrograms() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.programs)
}

func (g *GL) LiveTextures() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.textures)
}

func (g *GL) LiveBuffers() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.buffers)
}

// Texture returns the contents last uploaded to texture, or nil.
func (g *GL) Texture(texture uint32) *TexImage {
	g.mu.Lock()
	defer g.mu.Unlock()
	img, ok := g.textures[texture]
	if !ok || img == nil {
		return nil
	}
	cp := *img
	cp.Pixels = append([]byte(nil), img.Pixels...)
	return &cp
}

// Buffer returns the data last stored in buffer.
func (g *GL) Buffer(buffer uint32) []float32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]float32(nil), g.buffers[buffer]...)
}

func (g *GL) CreateShader(kind uint32) uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("CreateShader", kind)
	if g.NoShaders {
		return 0
	}
	name := g.alloc()
	g.shaders[name] = kind
	return name
}

func (g *GL) ShaderSource(shader uint32, source string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("ShaderSource", shader, len(source))
}

func (g *GL) CompileShader(shader uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("CompileShader", shader)
}

func (g *GL) compileLog(shader uint32) string {
	kind, ok := g.shaders[shader]
	if !ok {
		return "invalid shader"
	}
	return g.CompileErrors[kind]
}

func (g *GL) GetShaderiv(shader uint32, pname uint32) int32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("GetShaderiv", shader, pname)
	switch pname {
	case gles.CompileStatus:
		if g.compileLog(shader) != "" {
			return gles.False
		}
		return gles.True
	case gles.InfoLogLength:
		if l := g.compileLog(shader); l != "" {
			return int32(len(l) + 1)
		}
	}
	return 0
}

func (g *GL) GetShaderInfoLog(shader uint32) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("GetShaderInfoLog", shader)
	return g.compileLog(shader)
}

func (g *GL) DeleteShader(shader uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("DeleteShader", shader)
	delete(g.shaders, shader)
}

func (g *GL) CreateProgram() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("CreateProgram")
	if g.NoPrograms {
		return 0
	}
	name := g.alloc()
	g.programs[name] = false
	return name
}

func (g *GL) AttachShader(program, shader uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("AttachShader", program, shader)
}

func (g *GL) LinkProgram(program uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("LinkProgram", program)
	if _, ok := g.programs[program]; ok {
		g.programs[program] = g.LinkError == ""
	}
}

func (g *GL) GetProgramiv(program uint32, pname uint32) int32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("GetProgramiv", program, pname)
	switch pname {
	case gles.LinkStatus:
		if g.programs[program] {
			return gles.True
		}
		return gles.False
	case gles.InfoLogLength:
		if !g.programs[program] && g.LinkError != "" {
			return int32(len(g.LinkError) + 1)
		}
	}
	return 0
}

func (g *GL) GetProgramInfoLog(program uint32) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("GetProgramInfoLog", program)
	if g.programs[program] {
		return ""
	}
	return g.LinkError
}

func (g *GL) DeleteProgram(program uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("DeleteProgram", program)
	delete(g.programs, program)
}

func (g *GL) UseProgram(program uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("UseProgram", program)
}

func (g *GL) GetAttribLocation(program uint32, name string) int32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("GetAttribLocation", program, name)
	if loc, ok := g.Attribs[name]; ok {
		return loc
	}
	return -1
}

func (g *GL) GetUniformLocation(program uint32, name string) int32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("GetUniformLocation", program, name)
	if loc, ok := g.Uniforms[name]; ok {
		return loc
	}
	return -1
}

func (g *GL) Uniform1i(location int32, v int32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("Uniform1i", location, v)
}

func (g *GL) GenTexture() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("GenTexture")
	if g.NoTextures {
		return 0
	}
	name := g.alloc()
	g.textures[name] = nil
	return name
}

func (g *GL) DeleteTexture(texture uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("DeleteTexture", texture)
	delete(g.textures, texture)
}

func (g *GL) BindTexture(target, texture uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("BindTexture", target, texture)
	g.bound[target] = texture
}

func (g *GL) ActiveTexture(unit uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("ActiveTexture", unit)
}

func (g *GL) TexParameteri(target, pname uint32, param int32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("TexParameteri", target, pname, param)
}

func (g *GL) TexImage2D(target uint32, level int32, internalFormat int32, width, height int32, format, xtype uint32, pixels []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("TexImage2D", target, level, internalFormat, width, height, format, xtype)
	tex := g.bound[target]
	if _, ok := g.textures[tex]; !ok {
		return
	}
	g.textures[tex] = &TexImage{
		Width:  width,
		Height: height,
		Format: format,
		Pixels: append([]byte(nil), pixels...),
	}
}

func (g *GL) GenBuffer() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("GenBuffer")
	name := g.alloc()
	g.buffers[name] = nil
	return name
}

func (g *GL) DeleteBuffer(buffer uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("DeleteBuffer", buffer)
	delete(g.buffers, buffer)
}

func (g *GL) BindBuffer(target, buffer uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("BindBuffer", target, buffer)
	g.bound[target] = buffer
}

func (g *GL) BufferData(target uint32, data []float32, usage uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("BufferData", target, len(data), usage)
	buf := g.bound[target]
	if _, ok := g.buffers[buf]; ok {
		g.buffers[buf] = append([]float32(nil), data...)
	}
}

func (g *GL) VertexAttribPointer(index uint32, size int32, xtype uint32, normalized bool, stride int32, offset int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("VertexAttribPointer", index, size, xtype, normalized, stride, offset)
}

func (g *GL) EnableVertexAttribArray(index uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("EnableVertexAttribArray", index)
}

func (g *GL) ClearColor(r, gr, b, a float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("ClearColor", r, gr, b, a)
}

func (g *GL) Clear(mask uint32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("Clear", mask)
}

func (g *GL) DrawArrays(mode uint32, first, count int32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("DrawArrays", mode, first, count)
}

func (g *GL) GetError() uint32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record("GetError")
	return gles.NoError
}
