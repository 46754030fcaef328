package gfx

import (
	"fmt"
	"strings"
	"sync"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
)

// glEnums is the immediate backend's constant table. Adding a symbolic Enum
// means adding one row here; dispatch logic never switches on Enum values.
var glEnums = [enumCount]uint32{
	Float:         gl.FLOAT,
	Int:           gl.INT,
	UnsignedInt:   gl.UNSIGNED_INT,
	UnsignedShort: gl.UNSIGNED_SHORT,
	UnsignedByte:  gl.UNSIGNED_BYTE,

	StaticDraw:  gl.STATIC_DRAW,
	DynamicDraw: gl.DYNAMIC_DRAW,
	StreamDraw:  gl.STREAM_DRAW,

	ArrayBuffer:        gl.ARRAY_BUFFER,
	ElementArrayBuffer: gl.ELEMENT_ARRAY_BUFFER,

	VertexShaderStage:   gl.VERTEX_SHADER,
	FragmentShaderStage: gl.FRAGMENT_SHADER,

	CompileStatus: gl.COMPILE_STATUS,

	Texture2D:          gl.TEXTURE_2D,
	TextureWrapS:       gl.TEXTURE_WRAP_S,
	TextureWrapT:       gl.TEXTURE_WRAP_T,
	TextureMinFilter:   gl.TEXTURE_MIN_FILTER,
	TextureMagFilter:   gl.TEXTURE_MAG_FILTER,
	Linear:             gl.LINEAR,
	Nearest:            gl.NEAREST,
	LinearMipmapLinear: gl.LINEAR_MIPMAP_LINEAR,
	ClampToEdge:        gl.CLAMP_TO_EDGE,
	Repeat:             gl.REPEAT,
	MirroredRepeat:     gl.MIRRORED_REPEAT,

	RGB:            gl.RGB,
	RGBA:           gl.RGBA,
	Alpha:          gl.ALPHA,
	Red:            gl.RED,
	DepthComponent: gl.DEPTH_COMPONENT,

	ColorAttachment0:  gl.COLOR_ATTACHMENT0,
	DepthAttachment:   gl.DEPTH_ATTACHMENT,
	FramebufferTarget: gl.FRAMEBUFFER,

	Triangles:     gl.TRIANGLES,
	TriangleStrip: gl.TRIANGLE_STRIP,
	Lines:         gl.LINES,
	Points:        gl.POINTS,

	DepthTest:        gl.DEPTH_TEST,
	CullFace:         gl.CULL_FACE,
	Blend:            gl.BLEND,
	ScissorTest:      gl.SCISSOR_TEST,
	ProgramPointSize: gl.PROGRAM_POINT_SIZE,

	LEqual:       gl.LEQUAL,
	Less:         gl.LESS,
	Back:         gl.BACK,
	FrontAndBack: gl.FRONT_AND_BACK,
	CCW:          gl.CCW,

	Fill:  gl.FILL,
	Line:  gl.LINE,
	Point: gl.POINT,

	SrcAlpha:         gl.SRC_ALPHA,
	OneMinusSrcAlpha: gl.ONE_MINUS_SRC_ALPHA,
	One:              gl.ONE,

	PackAlignment:   gl.PACK_ALIGNMENT,
	UnpackAlignment: gl.UNPACK_ALIGNMENT,
}

// glContext is the immediate backend. Every call forwards straight to the
// native entry points; the only state kept on our side is the handle arena
// mapping opaque handles to GL object names, and the binding needed to
// resolve DownloadBuffer targets.
type glContext struct {
	mu sync.Mutex

	buffers      registry[uint32]
	textures     registry[uint32]
	shaders      registry[uint32]
	programs     registry[uint32]
	framebuffers registry[uint32]

	// GL core profiles refuse to draw without a vertex array object bound;
	// one shared VAO restores the pre-VAO call model the Context exposes.
	vao uint32
}

var _ Context = (*glContext)(nil)

// NewGLContext initializes the OpenGL function pointers and returns the
// immediate-mode Context. The calling goroutine must hold a current GL
// context (window.Open arranges this).
func NewGLContext() (Context, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	c := &glContext{}
	gl.GenVertexArrays(1, &c.vao)
	gl.BindVertexArray(c.vao)
	return c, nil
}

func (c *glContext) GetError() Enum {
	switch gl.GetError() {
	case gl.NO_ERROR:
		return None
	case gl.INVALID_ENUM:
		return InvalidEnum
	case gl.INVALID_VALUE:
		return InvalidValue
	case gl.INVALID_OPERATION:
		return InvalidOperation
	case gl.OUT_OF_MEMORY:
		return OutOfMemory
	default:
		return InvalidOperation
	}
}

func (c *glContext) CreateBuffer() Buffer {
	c.mu.Lock()
	defer c.mu.Unlock()
	var name uint32
	gl.GenBuffers(1, &name)
	return Buffer(c.buffers.alloc(name))
}

func (c *glContext) DeleteBuffer(buf Buffer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if name, ok := c.buffers.delete(Handle(buf)); ok {
		gl.DeleteBuffers(1, &name)
	}
}

func (c *glContext) IsBuffer(buf Buffer) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffers.has(Handle(buf))
}

func (c *glContext) BindBuffer(target Enum, buf Buffer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var name uint32
	if p := c.buffers.get(Handle(buf)); p != nil {
		name = *p
	}
	gl.BindBuffer(glEnums[target], name)
}

func (c *glContext) BufferData(target Enum, data []byte, usage Enum) {
	gl.BufferData(glEnums[target], len(data), glPtr(data), glEnums[usage])
}

func (c *glContext) BufferSubData(target Enum, offset int, data []byte) {
	gl.BufferSubData(glEnums[target], offset, len(data), glPtr(data))
}

func (c *glContext) DownloadBuffer(target Enum, out []byte) error {
	if len(out) == 0 {
		return nil
	}
	gl.GetBufferSubData(glEnums[target], 0, len(out), gl.Ptr(out))
	if code := c.GetError(); code != None {
		return fmt.Errorf("buffer readback failed with error code %d", code)
	}
	return nil
}

func (c *glContext) CreateTexture() Texture {
	c.mu.Lock()
	defer c.mu.Unlock()
	var name uint32
	gl.GenTextures(1, &name)
	return Texture(c.textures.alloc(name))
}

func (c *glContext) DeleteTexture(tex Texture) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if name, ok := c.textures.delete(Handle(tex)); ok {
		gl.DeleteTextures(1, &name)
	}
}

func (c *glContext) IsTexture(tex Texture) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.textures.has(Handle(tex))
}

func (c *glContext) ActiveTexture(unit uint32) {
	gl.ActiveTexture(gl.TEXTURE0 + unit)
}

func (c *glContext) BindTexture(target Enum, tex Texture) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var name uint32
	if p := c.textures.get(Handle(tex)); p != nil {
		name = *p
	}
	gl.BindTexture(glEnums[target], name)
}

func (c *glContext) TexImage2D(target Enum, level int, internalFormat Enum, width, height int, format Enum, pixels []byte) {
	gl.TexImage2D(glEnums[target], int32(level), int32(glEnums[internalFormat]),
		int32(width), int32(height), 0, glEnums[format], gl.UNSIGNED_BYTE, glPtr(pixels))
}

func (c *glContext) TexSubImage2D(target Enum, level, xoffset, yoffset, width, height int, format Enum, pixels []byte) {
	gl.TexSubImage2D(glEnums[target], int32(level), int32(xoffset), int32(yoffset),
		int32(width), int32(height), glEnums[format], gl.UNSIGNED_BYTE, glPtr(pixels))
}

func (c *glContext) TexParameter(target, pname, param Enum) {
	gl.TexParameteri(glEnums[target], glEnums[pname], int32(glEnums[param]))
}

func (c *glContext) CreateFramebuffer() Framebuffer {
	c.mu.Lock()
	defer c.mu.Unlock()
	var name uint32
	gl.GenFramebuffers(1, &name)
	return Framebuffer(c.framebuffers.alloc(name))
}

func (c *glContext) DeleteFramebuffer(fb Framebuffer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if name, ok := c.framebuffers.delete(Handle(fb)); ok {
		gl.DeleteFramebuffers(1, &name)
	}
}

func (c *glContext) IsFramebuffer(fb Framebuffer) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.framebuffers.has(Handle(fb))
}

func (c *glContext) CreateShader(stage Enum) Shader {
	c.mu.Lock()
	defer c.mu.Unlock()
	name := gl.CreateShader(glEnums[stage])
	return Shader(c.shaders.alloc(name))
}

func (c *glContext) DeleteShader(sh Shader) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if name, ok := c.shaders.delete(Handle(sh)); ok {
		gl.DeleteShader(name)
	}
}

func (c *glContext) IsShader(sh Shader) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shaders.has(Handle(sh))
}

func (c *glContext) ShaderSource(sh Shader, source string) {
	c.mu.Lock()
	name, ok := c.shaderName(sh)
	c.mu.Unlock()
	if !ok {
		return
	}
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(name, 1, csources, nil)
	free()
}

func (c *glContext) CompileShader(sh Shader) {
	c.mu.Lock()
	name, ok := c.shaderName(sh)
	c.mu.Unlock()
	if ok {
		gl.CompileShader(name)
	}
}

func (c *glContext) GetShaderParameter(sh Shader, pname Enum) (int, bool) {
	c.mu.Lock()
	name, ok := c.shaderName(sh)
	c.mu.Unlock()
	if !ok {
		return 0, false
	}
	var v int32
	gl.GetShaderiv(name, glEnums[pname], &v)
	return int(v), true
}

func (c *glContext) GetShaderInfoLog(sh Shader) string {
	c.mu.Lock()
	name, ok := c.shaderName(sh)
	c.mu.Unlock()
	if !ok {
		return ""
	}
	var logLen int32
	gl.GetShaderiv(name, gl.INFO_LOG_LENGTH, &logLen)
	if logLen == 0 {
		return ""
	}
	logStr := strings.Repeat("\x00", int(logLen+1))
	gl.GetShaderInfoLog(name, logLen, nil, gl.Str(logStr))
	return strings.TrimRight(logStr, "\x00")
}

func (c *glContext) CreateProgram() Program {
	c.mu.Lock()
	defer c.mu.Unlock()
	name := gl.CreateProgram()
	return Program(c.programs.alloc(name))
}

func (c *glContext) DeleteProgram(prog Program) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if name, ok := c.programs.delete(Handle(prog)); ok {
		gl.DeleteProgram(name)
	}
}

func (c *glContext) IsProgram(prog Program) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.programs.has(Handle(prog))
}

func (c *glContext) AttachShader(prog Program, sh Shader) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pName, pok := c.programName(prog)
	sName, sok := c.shaderName(sh)
	if pok && sok {
		gl.AttachShader(pName, sName)
	}
}

func (c *glContext) LinkProgram(prog Program) {
	c.mu.Lock()
	name, ok := c.programName(prog)
	c.mu.Unlock()
	if ok {
		gl.LinkProgram(name)
	}
}

func (c *glContext) IsLinked(prog Program) bool {
	c.mu.Lock()
	name, ok := c.programName(prog)
	c.mu.Unlock()
	if !ok {
		return false
	}
	var status int32
	gl.GetProgramiv(name, gl.LINK_STATUS, &status)
	return status == gl.TRUE
}

func (c *glContext) UseProgram(prog Program) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var name uint32
	if p := c.programs.get(Handle(prog)); p != nil {
		name = *p
	}
	gl.UseProgram(name)
}

func (c *glContext) GetAttribLocation(prog Program, name string) int {
	c.mu.Lock()
	pName, ok := c.programName(prog)
	c.mu.Unlock()
	if !ok {
		return -1
	}
	return int(gl.GetAttribLocation(pName, gl.Str(name+"\x00")))
}

func (c *glContext) GetUniformLocation(prog Program, name string) (UniformLocation, bool) {
	c.mu.Lock()
	pName, ok := c.programName(prog)
	c.mu.Unlock()
	if !ok {
		return UniformLocation{}, false
	}
	loc := gl.GetUniformLocation(pName, gl.Str(name+"\x00"))
	if loc < 0 {
		return UniformLocation{}, false
	}
	return UniformLocation{program: prog, name: name, gl: loc}, true
}

func (c *glContext) Uniform1f(loc UniformLocation, x float32) { gl.Uniform1f(loc.gl, x) }
func (c *glContext) Uniform2f(loc UniformLocation, x, y float32) {
	gl.Uniform2f(loc.gl, x, y)
}
func (c *glContext) Uniform3f(loc UniformLocation, x, y, z float32) {
	gl.Uniform3f(loc.gl, x, y, z)
}
func (c *glContext) Uniform4f(loc UniformLocation, x, y, z, w float32) {
	gl.Uniform4f(loc.gl, x, y, z, w)
}
func (c *glContext) Uniform1i(loc UniformLocation, x int32) { gl.Uniform1i(loc.gl, x) }
func (c *glContext) Uniform2i(loc UniformLocation, x, y int32) {
	gl.Uniform2i(loc.gl, x, y)
}
func (c *glContext) Uniform3i(loc UniformLocation, x, y, z int32) {
	gl.Uniform3i(loc.gl, x, y, z)
}

func (c *glContext) UniformMatrix2(loc UniformLocation, m mgl32.Mat2) {
	gl.UniformMatrix2fv(loc.gl, 1, false, &m[0])
}

func (c *glContext) UniformMatrix3(loc UniformLocation, m mgl32.Mat3) {
	gl.UniformMatrix3fv(loc.gl, 1, false, &m[0])
}

func (c *glContext) UniformMatrix4(loc UniformLocation, m mgl32.Mat4) {
	gl.UniformMatrix4fv(loc.gl, 1, false, &m[0])
}

func (c *glContext) Enable(cap Enum)  { gl.Enable(glEnums[cap]) }
func (c *glContext) Disable(cap Enum) { gl.Disable(glEnums[cap]) }

func (c *glContext) Viewport(x, y, width, height int) {
	gl.Viewport(int32(x), int32(y), int32(width), int32(height))
}

func (c *glContext) Scissor(x, y, width, height int) {
	gl.Scissor(int32(x), int32(y), int32(width), int32(height))
}

func (c *glContext) ClearColor(r, g, b, a float32) { gl.ClearColor(r, g, b, a) }

func (c *glContext) Clear(mask ClearMask) {
	var bits uint32
	if mask&ColorBufferBit != 0 {
		bits |= gl.COLOR_BUFFER_BIT
	}
	if mask&DepthBufferBit != 0 {
		bits |= gl.DEPTH_BUFFER_BIT
	}
	gl.Clear(bits)
}

func (c *glContext) VertexAttribPointer(index uint32, size int, kind Enum, normalized bool, stride, offset int) {
	gl.VertexAttribPointerWithOffset(index, int32(size), glEnums[kind], normalized, int32(stride), uintptr(offset))
}

func (c *glContext) EnableVertexAttribArray(index uint32)  { gl.EnableVertexAttribArray(index) }
func (c *glContext) DisableVertexAttribArray(index uint32) { gl.DisableVertexAttribArray(index) }
func (c *glContext) VertexAttribDivisor(index, divisor uint32) {
	gl.VertexAttribDivisor(index, divisor)
}

func (c *glContext) PointSize(size float32)  { gl.PointSize(size) }
func (c *glContext) LineWidth(width float32) { gl.LineWidth(width) }
func (c *glContext) DepthFunc(fn Enum)       { gl.DepthFunc(glEnums[fn]) }
func (c *glContext) CullFace(mode Enum)      { gl.CullFace(glEnums[mode]) }
func (c *glContext) FrontFace(mode Enum)     { gl.FrontFace(glEnums[mode]) }

func (c *glContext) BlendFunc(src, dst Enum) {
	gl.BlendFunc(glEnums[src], glEnums[dst])
}

func (c *glContext) PolygonMode(face, mode Enum) bool {
	gl.PolygonMode(glEnums[face], glEnums[mode])
	return true
}

func (c *glContext) PixelStore(pname Enum, param int) {
	gl.PixelStorei(glEnums[pname], int32(param))
}

func (c *glContext) ReadPixels(x, y, width, height int, format Enum, out []byte) {
	if len(out) == 0 {
		return
	}
	gl.ReadPixels(int32(x), int32(y), int32(width), int32(height), glEnums[format], gl.UNSIGNED_BYTE, gl.Ptr(out))
}

func (c *glContext) DrawArrays(mode Enum, first, count int) {
	gl.DrawArrays(glEnums[mode], int32(first), int32(count))
}

func (c *glContext) DrawElements(mode Enum, count int, kind Enum, offset int) {
	gl.DrawElementsWithOffset(glEnums[mode], int32(count), glEnums[kind], uintptr(offset))
}

func (c *glContext) DrawElementsInstanced(mode Enum, count int, kind Enum, offset, instanceCount int) {
	gl.DrawElementsInstanced(glEnums[mode], int32(count), glEnums[kind], gl.PtrOffset(offset), int32(instanceCount))
}

// BeginFrame is a no-op: the immediate backend draws directly into the
// window's default framebuffer and the window swap presents it.
func (c *glContext) BeginFrame() error { return nil }

// EndFrame is a no-op, see BeginFrame.
func (c *glContext) EndFrame() {}

func (c *glContext) shaderName(sh Shader) (uint32, bool) {
	if p := c.shaders.get(Handle(sh)); p != nil {
		return *p, true
	}
	return 0, false
}

func (c *glContext) programName(prog Program) (uint32, bool) {
	if p := c.programs.get(Handle(prog)); p != nil {
		return *p, true
	}
	return 0, false
}

// glPtr returns a pointer GL accepts for data, or nil for an empty slice
// (gl.Ptr panics on nil slices).
func glPtr(data []byte) unsafe.Pointer {
	if len(data) == 0 {
		return nil
	}
	return gl.Ptr(data)
}
