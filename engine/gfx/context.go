// Package gfx provides the uniform graphics command surface the rest of the
// engine draws through. The same Context interface is implemented by an
// immediate-mode OpenGL backend and an explicit WebGPU backend; meshes,
// materials and renderers issue classic bind-then-draw calls and each backend
// reinterprets the call sequence for its own programming model.
package gfx

import (
	"github.com/go-gl/mathgl/mgl32"
)

// UniformLocation names one uniform of one program. The immediate backend
// resolves it to a native location at query time; the explicit backend keys
// uniform storage by name and defers device writes to draw time.
type UniformLocation struct {
	program Program
	name    string
	gl      int32
}

// Context is the stateful graphics command surface consumed by every mesh,
// material and renderer in the engine. Calls follow the classic
// immediate-mode contract: binding calls mutate tracked state, draw calls
// consume it. No call aborts the process; failures surface through status
// queries (GetError, GetShaderParameter) and resources that fail to build
// simply do not render.
//
// A Context value is a cheap handle to one shared, lock-protected backend
// instance. Exactly one goroutine is expected to drive the frame loop.
type Context interface {
	// GetError returns the oldest pending error code and clears it, or None.
	// Only the immediate backend reports synchronous errors.
	GetError() Enum

	// Resource lifecycle. Creation returns a fresh handle backed by a
	// default-initialized record. Deletion of a live handle releases the
	// record; deleting a stale handle is a no-op. The Is* queries report
	// whether a handle currently names a live resource.

	CreateBuffer() Buffer
	DeleteBuffer(buf Buffer)
	IsBuffer(buf Buffer) bool

	CreateTexture() Texture
	DeleteTexture(tex Texture)
	IsTexture(tex Texture) bool

	CreateShader(stage Enum) Shader
	DeleteShader(sh Shader)
	IsShader(sh Shader) bool

	CreateProgram() Program
	DeleteProgram(prog Program)
	IsProgram(prog Program) bool

	CreateFramebuffer() Framebuffer
	DeleteFramebuffer(fb Framebuffer)
	IsFramebuffer(fb Framebuffer) bool

	// Buffer data. BufferData (re)allocates the buffer bound to target and
	// fills it; BufferSubData patches a byte range in place. DownloadBuffer
	// reads the bound buffer back into out, blocking until the copy
	// completes.

	BindBuffer(target Enum, buf Buffer)
	BufferData(target Enum, data []byte, usage Enum)
	BufferSubData(target Enum, offset int, data []byte)
	DownloadBuffer(target Enum, out []byte) error

	// Textures.

	ActiveTexture(unit uint32)
	BindTexture(target Enum, tex Texture)
	TexImage2D(target Enum, level int, internalFormat Enum, width, height int, format Enum, pixels []byte)
	TexSubImage2D(target Enum, level, xoffset, yoffset, width, height int, format Enum, pixels []byte)
	TexParameter(target, pname, param Enum)

	// Shader pipeline. CompileShader records pass/fail plus an info log; the
	// explicit backend defers real compilation to link time. LinkProgram is a
	// no-op until both stages are attached, and on the explicit backend it
	// additionally builds the pipeline, bind-group layout and default
	// resources. UseProgram only selects the current program; native pipeline
	// binding happens lazily at draw time.

	ShaderSource(sh Shader, source string)
	CompileShader(sh Shader)
	GetShaderParameter(sh Shader, pname Enum) (int, bool)
	GetShaderInfoLog(sh Shader) string
	AttachShader(prog Program, sh Shader)
	LinkProgram(prog Program)
	IsLinked(prog Program) bool
	UseProgram(prog Program)
	GetAttribLocation(prog Program, name string) int
	GetUniformLocation(prog Program, name string) (UniformLocation, bool)

	// Uniform uploads. Values are stored per program; the explicit backend
	// flushes them into the program's device uniform buffer immediately
	// before each resolved draw.

	Uniform1f(loc UniformLocation, x float32)
	Uniform2f(loc UniformLocation, x, y float32)
	Uniform3f(loc UniformLocation, x, y, z float32)
	Uniform4f(loc UniformLocation, x, y, z, w float32)
	Uniform1i(loc UniformLocation, x int32)
	Uniform2i(loc UniformLocation, x, y int32)
	Uniform3i(loc UniformLocation, x, y, z int32)
	UniformMatrix2(loc UniformLocation, m mgl32.Mat2)
	UniformMatrix3(loc UniformLocation, m mgl32.Mat3)
	UniformMatrix4(loc UniformLocation, m mgl32.Mat4)

	// Per-draw state. Every call is an unconditional overwrite of the
	// tracked value; no call fails.

	Enable(cap Enum)
	Disable(cap Enum)
	Viewport(x, y, width, height int)
	Scissor(x, y, width, height int)
	ClearColor(r, g, b, a float32)
	Clear(mask ClearMask)
	VertexAttribPointer(index uint32, size int, kind Enum, normalized bool, stride, offset int)
	EnableVertexAttribArray(index uint32)
	DisableVertexAttribArray(index uint32)
	VertexAttribDivisor(index, divisor uint32)
	PointSize(size float32)
	LineWidth(width float32)
	DepthFunc(fn Enum)
	CullFace(mode Enum)
	FrontFace(mode Enum)
	BlendFunc(src, dst Enum)
	PolygonMode(face, mode Enum) bool
	PixelStore(pname Enum, param int)
	ReadPixels(x, y, width, height int, format Enum, out []byte)

	// Drawing. A draw call is only valid while a program is in use; on the
	// explicit backend the program's link must additionally have produced a
	// pipeline, otherwise the draw is silently dropped.

	DrawArrays(mode Enum, first, count int)
	DrawElements(mode Enum, count int, kind Enum, offset int)
	DrawElementsInstanced(mode Enum, count int, kind Enum, offset, instanceCount int)

	// Frame bracket. The explicit backend acquires a drawable, opens a
	// command recorder and lazily opens exactly one render pass on the first
	// draw; EndFrame submits and presents. The immediate backend treats both
	// as no-ops (the window swap presents).

	BeginFrame() error
	EndFrame()
}
