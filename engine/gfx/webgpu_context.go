package gfx

import (
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// maxRecentArrayBuffers caps the window of array-buffer bindings the state
// tracker replays as vertex streams at draw time. Eight covers every vertex
// layout the engine uses.
const maxRecentArrayBuffers = 8

type wgpuBufferRec struct {
	native DeviceBuffer
	size   int
}

type wgpuTextureRec struct {
	native        DeviceTexture
	width, height int
	addressMode   wgpu.AddressMode
	filter        wgpu.FilterMode
	sampler       DeviceSampler
}

type wgpuShaderRec struct {
	stage   Enum
	source  string
	ready   bool
	infoLog string
}

type wgpuProgramRec struct {
	vertex   Shader
	fragment Shader

	linked bool

	pipeline        DevicePipeline
	bindGroupLayout DeviceBindGroupLayout
	uniformBuffer   DeviceBuffer
	bindGroup       DeviceBindGroup

	layout   uniformLayout
	uniforms map[string]uniformValue
}

// webgpuContext implements Context on the explicit backend. Bind-then-draw
// calls mutate tracked state; draw calls resolve the tracked state into
// pipeline, vertex/index buffers and bind group, stage them as pending
// render-pass state and replay them against the frame's single render pass.
type webgpuContext struct {
	mu  sync.Mutex
	dev Device

	buffers      registry[*wgpuBufferRec]
	textures     registry[*wgpuTextureRec]
	shaders      registry[*wgpuShaderRec]
	programs     registry[*wgpuProgramRec]
	framebuffers registry[struct{}]

	// State tracker.
	boundArrayBuffer   Buffer
	boundElementBuffer Buffer
	lastBoundBuffer    Buffer
	recentArrayBuffers []Buffer
	boundProgram       Program
	boundFramebuffer   Framebuffer
	boundTexture2D     Texture
	activeTextureUnit  uint32
	unitTextures       map[uint32]Texture
	caps               map[Enum]bool
	viewport           [4]int
	scissor            [4]int
	clearColor         [4]float32

	// Shared resources bound when a texture or sampler is missing.
	defaultTexture DeviceTexture
	defaultSampler DeviceSampler

	// Frame state. Nil outside a BeginFrame/EndFrame bracket.
	frame *wgpuFrameState

	// Depth attachment, recreated when the surface size changes.
	depthTexture   DeviceTexture
	depthW, depthH int
}

var _ Context = (*webgpuContext)(nil)

// NewWebGPUContext opens a native wgpu device for the given surface and wraps
// it in a Context.
func NewWebGPUContext(surfaceDescriptor *wgpu.SurfaceDescriptor, width, height int) (Context, error) {
	dev, err := NewWGPUDevice(surfaceDescriptor, width, height)
	if err != nil {
		return nil, err
	}
	return NewExplicitContext(dev), nil
}

// NewExplicitContext wraps an already-opened Device. Tests inject a fake
// device here.
func NewExplicitContext(dev Device) Context {
	w, h := dev.Size()
	return &webgpuContext{
		dev:          dev,
		unitTextures: make(map[uint32]Texture),
		caps:         make(map[Enum]bool),
		viewport:     [4]int{0, 0, w, h},
		scissor:      [4]int{0, 0, w, h},
		clearColor:   [4]float32{0, 0, 0, 1},
	}
}

// GetError always reports None: the explicit API has no synchronous error
// query.
func (c *webgpuContext) GetError() Enum { return None }

// Resize reconfigures the surface. The window layer calls this on framebuffer
// size events; the depth attachment is recreated lazily at the next frame.
func (c *webgpuContext) Resize(width, height int) {
	c.dev.Resize(width, height)
}

// Resource lifecycle.

func (c *webgpuContext) CreateBuffer() Buffer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Buffer(c.buffers.alloc(&wgpuBufferRec{}))
}

func (c *webgpuContext) DeleteBuffer(buf Buffer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.buffers.delete(Handle(buf))
	if !ok {
		return
	}
	if rec.native != nil {
		c.dev.DestroyBuffer(rec.native)
	}
	c.forgetBuffer(buf)
}

// forgetBuffer drops a deleted buffer from every tracked binding slot.
func (c *webgpuContext) forgetBuffer(buf Buffer) {
	if c.boundArrayBuffer == buf {
		c.boundArrayBuffer = Buffer{}
	}
	if c.boundElementBuffer == buf {
		c.boundElementBuffer = Buffer{}
	}
	if c.lastBoundBuffer == buf {
		c.lastBoundBuffer = Buffer{}
	}
	kept := c.recentArrayBuffers[:0]
	for _, b := range c.recentArrayBuffers {
		if b != buf {
			kept = append(kept, b)
		}
	}
	c.recentArrayBuffers = kept
}

func (c *webgpuContext) IsBuffer(buf Buffer) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffers.has(Handle(buf))
}

func (c *webgpuContext) CreateTexture() Texture {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Texture(c.textures.alloc(&wgpuTextureRec{
		addressMode: wgpu.AddressModeRepeat,
		filter:      wgpu.FilterModeLinear,
	}))
}

func (c *webgpuContext) DeleteTexture(tex Texture) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.textures.delete(Handle(tex))
	if !ok {
		return
	}
	if rec.native != nil {
		c.dev.DestroyTexture(rec.native)
	}
	if c.boundTexture2D == tex {
		c.boundTexture2D = Texture{}
	}
	for unit, t := range c.unitTextures {
		if t == tex {
			delete(c.unitTextures, unit)
		}
	}
}

func (c *webgpuContext) IsTexture(tex Texture) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.textures.has(Handle(tex))
}

func (c *webgpuContext) CreateShader(stage Enum) Shader {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Shader(c.shaders.alloc(&wgpuShaderRec{stage: stage}))
}

func (c *webgpuContext) DeleteShader(sh Shader) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shaders.delete(Handle(sh))
}

func (c *webgpuContext) IsShader(sh Shader) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.shaders.has(Handle(sh))
}

func (c *webgpuContext) CreateProgram() Program {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Program(c.programs.alloc(&wgpuProgramRec{
		uniforms: make(map[string]uniformValue),
	}))
}

func (c *webgpuContext) DeleteProgram(prog Program) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.programs.delete(Handle(prog))
	if !ok {
		return
	}
	if rec.uniformBuffer != nil {
		c.dev.DestroyBuffer(rec.uniformBuffer)
	}
	if c.boundProgram == prog {
		c.boundProgram = Program{}
	}
}

func (c *webgpuContext) IsProgram(prog Program) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.programs.has(Handle(prog))
}

func (c *webgpuContext) CreateFramebuffer() Framebuffer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Framebuffer(c.framebuffers.alloc(struct{}{}))
}

func (c *webgpuContext) DeleteFramebuffer(fb Framebuffer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.framebuffers.delete(Handle(fb))
	if c.boundFramebuffer == fb {
		c.boundFramebuffer = Framebuffer{}
	}
}

func (c *webgpuContext) IsFramebuffer(fb Framebuffer) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.framebuffers.has(Handle(fb))
}

// Buffer data.

func (c *webgpuContext) BindBuffer(target Enum, buf Buffer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch target {
	case ArrayBuffer:
		c.boundArrayBuffer = buf
		c.lastBoundBuffer = buf
		if !buf.IsZero() {
			c.rememberArrayBuffer(buf)
		}
	case ElementArrayBuffer:
		c.boundElementBuffer = buf
		c.lastBoundBuffer = buf
	}
}

// rememberArrayBuffer appends buf to the recent-bindings window unless it is
// already present, evicting the oldest entry past the cap.
func (c *webgpuContext) rememberArrayBuffer(buf Buffer) {
	for _, b := range c.recentArrayBuffers {
		if b == buf {
			return
		}
	}
	c.recentArrayBuffers = append(c.recentArrayBuffers, buf)
	if len(c.recentArrayBuffers) > maxRecentArrayBuffers {
		c.recentArrayBuffers = c.recentArrayBuffers[1:]
	}
}

func (c *webgpuContext) boundBufferFor(target Enum) *wgpuBufferRec {
	var h Buffer
	switch target {
	case ArrayBuffer:
		h = c.boundArrayBuffer
	case ElementArrayBuffer:
		h = c.boundElementBuffer
	default:
		return nil
	}
	if h.IsZero() {
		return nil
	}
	rec := c.buffers.get(Handle(h))
	if rec == nil {
		return nil
	}
	return *rec
}

func (c *webgpuContext) BufferData(target Enum, data []byte, usage Enum) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec := c.boundBufferFor(target)
	if rec == nil {
		return
	}
	if rec.native != nil {
		c.dev.DestroyBuffer(rec.native)
		rec.native = nil
	}
	native, err := c.dev.CreateBuffer("Buffer", len(data))
	if err != nil {
		return
	}
	rec.native = native
	rec.size = len(data)
	if len(data) > 0 {
		c.dev.WriteBuffer(native, 0, data)
	}
}

func (c *webgpuContext) BufferSubData(target Enum, offset int, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rec := c.boundBufferFor(target)
	if rec == nil || rec.native == nil {
		return
	}
	if offset < 0 || offset+len(data) > rec.size {
		return
	}
	c.dev.WriteBuffer(rec.native, offset, data)
}

func (c *webgpuContext) DownloadBuffer(target Enum, out []byte) error {
	c.mu.Lock()
	rec := c.boundBufferFor(target)
	c.mu.Unlock()

	if rec == nil || rec.native == nil {
		return errBufferNotAllocated
	}
	n := len(out)
	if n > rec.size {
		n = rec.size
	}
	return c.dev.ReadBuffer(rec.native, 0, out[:n])
}

// Textures.

func (c *webgpuContext) ActiveTexture(unit uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activeTextureUnit = unit
}

func (c *webgpuContext) BindTexture(target Enum, tex Texture) {
	if target != Texture2D {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.boundTexture2D = tex
	if tex.IsZero() {
		delete(c.unitTextures, c.activeTextureUnit)
	} else {
		c.unitTextures[c.activeTextureUnit] = tex
	}
}

func (c *webgpuContext) TexImage2D(target Enum, level int, internalFormat Enum, width, height int, format Enum, pixels []byte) {
	if target != Texture2D || level != 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	rec := c.boundTextureRec()
	if rec == nil {
		return
	}
	if rec.native != nil {
		c.dev.DestroyTexture(rec.native)
		rec.native = nil
	}
	native, err := c.dev.CreateTexture2D("Texture", width, height)
	if err != nil {
		return
	}
	rec.native = native
	rec.width = width
	rec.height = height
	if len(pixels) > 0 {
		c.dev.WriteTexture(native, 0, 0, width, height, expandToRGBA(format, width, height, pixels))
	}
}

func (c *webgpuContext) TexSubImage2D(target Enum, level, xoffset, yoffset, width, height int, format Enum, pixels []byte) {
	if target != Texture2D || level != 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	rec := c.boundTextureRec()
	if rec == nil || rec.native == nil {
		return
	}
	if xoffset < 0 || yoffset < 0 || xoffset+width > rec.width || yoffset+height > rec.height {
		return
	}
	c.dev.WriteTexture(rec.native, xoffset, yoffset, width, height, expandToRGBA(format, width, height, pixels))
}

func (c *webgpuContext) TexParameter(target, pname, param Enum) {
	if target != Texture2D {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	rec := c.boundTextureRec()
	if rec == nil {
		return
	}
	switch pname {
	case TextureWrapS, TextureWrapT:
		if param == ClampToEdge {
			rec.addressMode = wgpu.AddressModeClampToEdge
		} else {
			rec.addressMode = wgpu.AddressModeRepeat
		}
	case TextureMinFilter, TextureMagFilter:
		if param == Nearest {
			rec.filter = wgpu.FilterModeNearest
		} else {
			rec.filter = wgpu.FilterModeLinear
		}
	default:
		return
	}
	// Sampler parameters changed; rebuild lazily on next use.
	rec.sampler = nil
}

func (c *webgpuContext) boundTextureRec() *wgpuTextureRec {
	if c.boundTexture2D.IsZero() {
		return nil
	}
	rec := c.textures.get(Handle(c.boundTexture2D))
	if rec == nil {
		return nil
	}
	return *rec
}

// expandToRGBA widens tightly packed pixel data to the RGBA8 layout device
// textures use. RGBA input passes through; RGB gains an opaque alpha byte;
// single-channel input is replicated across RGB with full alpha.
func expandToRGBA(format Enum, width, height int, pixels []byte) []byte {
	n := width * height
	switch format {
	case RGBA:
		return pixels
	case RGB:
		if len(pixels) < n*3 {
			return pixels
		}
		out := make([]byte, n*4)
		for i := 0; i < n; i++ {
			out[i*4+0] = pixels[i*3+0]
			out[i*4+1] = pixels[i*3+1]
			out[i*4+2] = pixels[i*3+2]
			out[i*4+3] = 0xFF
		}
		return out
	case Red, Alpha:
		if len(pixels) < n {
			return pixels
		}
		out := make([]byte, n*4)
		for i := 0; i < n; i++ {
			out[i*4+0] = pixels[i]
			out[i*4+1] = pixels[i]
			out[i*4+2] = pixels[i]
			out[i*4+3] = 0xFF
		}
		return out
	default:
		return pixels
	}
}

// Per-draw state.

func (c *webgpuContext) Enable(cap Enum) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.caps[cap] = true
}

func (c *webgpuContext) Disable(cap Enum) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.caps[cap] = false
}

func (c *webgpuContext) Viewport(x, y, width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewport = [4]int{x, y, width, height}
}

func (c *webgpuContext) Scissor(x, y, width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scissor = [4]int{x, y, width, height}
}

func (c *webgpuContext) ClearColor(r, g, b, a float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearColor = [4]float32{r, g, b, a}
}

// Clear is a no-op: the render pass clears both attachments when it opens.
func (c *webgpuContext) Clear(mask ClearMask) {}

// Vertex attribute calls are no-ops: attribute layout is baked into the
// pipeline at link time, and the recent-array-buffers window supplies the
// vertex streams at draw time.
func (c *webgpuContext) VertexAttribPointer(index uint32, size int, kind Enum, normalized bool, stride, offset int) {
}
func (c *webgpuContext) EnableVertexAttribArray(index uint32)  {}
func (c *webgpuContext) DisableVertexAttribArray(index uint32) {}
func (c *webgpuContext) VertexAttribDivisor(index, divisor uint32) {}

// Fixed-function state baked into the pipeline at link time.
func (c *webgpuContext) PointSize(size float32)      {}
func (c *webgpuContext) LineWidth(width float32)     {}
func (c *webgpuContext) DepthFunc(fn Enum)           {}
func (c *webgpuContext) CullFace(mode Enum)          {}
func (c *webgpuContext) FrontFace(mode Enum)         {}
func (c *webgpuContext) BlendFunc(src, dst Enum)     {}
func (c *webgpuContext) PixelStore(pname Enum, param int) {}

// PolygonMode reports false: the explicit backend has no fill-mode toggle
// outside pipeline creation.
func (c *webgpuContext) PolygonMode(face, mode Enum) bool { return false }

// ReadPixels is unsupported on the explicit backend; the surface texture is
// not host-visible. The out slice is left untouched.
func (c *webgpuContext) ReadPixels(x, y, width, height int, format Enum, out []byte) {}
