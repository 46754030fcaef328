// Package gfxtest provides an in-memory gfx.Device for testing the explicit
// backend without a GPU. Buffers are byte slices, draws append to a command
// log, and allocation counters expose the patch-versus-reallocate behavior of
// the code under test.
package gfxtest

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/prism3d/prism/engine/gfx"
)

// Buffer is a fake device buffer backed by host memory.
type Buffer struct {
	Label     string
	Data      []byte
	Uniform   bool
	Destroyed bool
}

// Texture is a fake device texture. Pixels holds the most recent full-surface
// write in RGBA8 layout.
type Texture struct {
	Label         string
	Width, Height int
	Depth         bool
	Pixels        []byte
	Destroyed     bool
}

// Sampler records the parameters it was created with.
type Sampler struct {
	Label       string
	AddressMode wgpu.AddressMode
	Filter      wgpu.FilterMode
}

// ShaderModule records the source handed to CreateShaderModule.
type ShaderModule struct {
	Label  string
	Source string
}

// BindGroupLayout records its entries for shape assertions.
type BindGroupLayout struct {
	Label   string
	Entries []wgpu.BindGroupLayoutEntry
}

// BindGroup records the resources bound at creation.
type BindGroup struct {
	Label    string
	Layout   *BindGroupLayout
	Bindings []gfx.BindGroupBinding
}

// Pipeline records the full descriptor it was built from.
type Pipeline struct {
	Desc gfx.RenderPipelineDesc
}

// Device implements gfx.Device entirely in host memory.
type Device struct {
	mu sync.Mutex

	width, height int

	// Counters, cumulative over the device's lifetime.
	BufferAllocs  int
	BufferWrites  int
	BufferReads   int
	TextureAllocs int
	TextureWrites int
	PipelineCount int
	FrameCount    int
	PassCount     int

	Buffers   []*Buffer
	Textures  []*Texture
	Pipelines []*Pipeline

	frames []*Frame
}

var _ gfx.Device = (*Device)(nil)

// NewDevice returns a fake device reporting the given surface size.
func NewDevice(width, height int) *Device {
	return &Device{width: width, height: height}
}

// LastFrame returns the most recently begun frame, or nil.
func (d *Device) LastFrame() *Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.frames) == 0 {
		return nil
	}
	return d.frames[len(d.frames)-1]
}

// LiveBuffers counts buffers that have not been destroyed.
func (d *Device) LiveBuffers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, b := range d.Buffers {
		if !b.Destroyed {
			n++
		}
	}
	return n
}

func (d *Device) createBuffer(label string, size int, uniform bool) *Buffer {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf := &Buffer{Label: label, Data: make([]byte, size), Uniform: uniform}
	d.Buffers = append(d.Buffers, buf)
	d.BufferAllocs++
	return buf
}

func (d *Device) CreateBuffer(label string, size int) (gfx.DeviceBuffer, error) {
	return d.createBuffer(label, size, false), nil
}

func (d *Device) CreateUniformBuffer(label string, size int) (gfx.DeviceBuffer, error) {
	return d.createBuffer(label, size, true), nil
}

func (d *Device) WriteBuffer(buf gfx.DeviceBuffer, offset int, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b := buf.(*Buffer)
	if b.Destroyed || offset < 0 || offset+len(data) > len(b.Data) {
		return
	}
	copy(b.Data[offset:], data)
	d.BufferWrites++
}

func (d *Device) ReadBuffer(buf gfx.DeviceBuffer, offset int, out []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	b := buf.(*Buffer)
	if b.Destroyed {
		return fmt.Errorf("read of destroyed buffer %q", b.Label)
	}
	if offset < 0 || offset+len(out) > len(b.Data) {
		return fmt.Errorf("read of [%d, %d) out of range for buffer %q of size %d",
			offset, offset+len(out), b.Label, len(b.Data))
	}
	copy(out, b.Data[offset:])
	d.BufferReads++
	return nil
}

func (d *Device) DestroyBuffer(buf gfx.DeviceBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf.(*Buffer).Destroyed = true
}

func (d *Device) createTexture(label string, width, height int, depth bool) *Texture {
	d.mu.Lock()
	defer d.mu.Unlock()
	tex := &Texture{Label: label, Width: width, Height: height, Depth: depth}
	d.Textures = append(d.Textures, tex)
	d.TextureAllocs++
	return tex
}

func (d *Device) CreateTexture2D(label string, width, height int) (gfx.DeviceTexture, error) {
	return d.createTexture(label, width, height, false), nil
}

func (d *Device) CreateDepthTexture(label string, width, height int) (gfx.DeviceTexture, error) {
	return d.createTexture(label, width, height, true), nil
}

func (d *Device) WriteTexture(tex gfx.DeviceTexture, x, y, width, height int, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t := tex.(*Texture)
	if t.Destroyed {
		return
	}
	d.TextureWrites++
	if x == 0 && y == 0 && width == t.Width && height == t.Height {
		t.Pixels = append([]byte(nil), data...)
	}
}

func (d *Device) DestroyTexture(tex gfx.DeviceTexture) {
	d.mu.Lock()
	defer d.mu.Unlock()
	tex.(*Texture).Destroyed = true
}

func (d *Device) CreateSampler(label string, addressMode wgpu.AddressMode, filter wgpu.FilterMode) (gfx.DeviceSampler, error) {
	return &Sampler{Label: label, AddressMode: addressMode, Filter: filter}, nil
}

func (d *Device) CreateShaderModule(label, source string) (gfx.DeviceShaderModule, error) {
	return &ShaderModule{Label: label, Source: source}, nil
}

func (d *Device) CreateBindGroupLayout(label string, entries []wgpu.BindGroupLayoutEntry) (gfx.DeviceBindGroupLayout, error) {
	return &BindGroupLayout{Label: label, Entries: entries}, nil
}

func (d *Device) CreateBindGroup(label string, layout gfx.DeviceBindGroupLayout, bindings []gfx.BindGroupBinding) (gfx.DeviceBindGroup, error) {
	return &BindGroup{
		Label:    label,
		Layout:   layout.(*BindGroupLayout),
		Bindings: append([]gfx.BindGroupBinding(nil), bindings...),
	}, nil
}

func (d *Device) CreateRenderPipeline(desc gfx.RenderPipelineDesc) (gfx.DevicePipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p := &Pipeline{Desc: desc}
	d.Pipelines = append(d.Pipelines, p)
	d.PipelineCount++
	return p, nil
}

func (d *Device) BeginFrame() (gfx.DeviceFrame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.FrameCount++
	f := &Frame{dev: d}
	d.frames = append(d.frames, f)
	return f, nil
}

func (d *Device) Resize(width, height int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.width = width
	d.height = height
}

func (d *Device) Size() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.width, d.height
}

// Frame is one fake frame bracket.
type Frame struct {
	dev *Device

	ClearColor [4]float32
	Depth      gfx.DeviceTexture
	Pass       *Pass
	Submitted  bool
	Presented  bool
}

func (f *Frame) BeginPass(clearColor [4]float32, depth gfx.DeviceTexture) gfx.DevicePass {
	f.dev.mu.Lock()
	defer f.dev.mu.Unlock()
	f.dev.PassCount++
	f.ClearColor = clearColor
	f.Depth = depth
	f.Pass = &Pass{}
	return f.Pass
}

func (f *Frame) Submit()  { f.Submitted = true }
func (f *Frame) Present() { f.Presented = true }

// Pass records every command issued against it, in order, as readable
// strings, and tracks the most recently set resources.
type Pass struct {
	Commands []string
	Ended    bool

	Pipeline      gfx.DevicePipeline
	BindGroup     gfx.DeviceBindGroup
	VertexBuffers map[uint32]gfx.DeviceBuffer
	IndexBuffer   gfx.DeviceBuffer
	IndexFormat   wgpu.IndexFormat
}

func (p *Pass) log(format string, args ...any) {
	p.Commands = append(p.Commands, fmt.Sprintf(format, args...))
}

func (p *Pass) SetPipeline(pipeline gfx.DevicePipeline) {
	p.Pipeline = pipeline
	p.log("set-pipeline %s", pipeline.(*Pipeline).Desc.Label)
}

func (p *Pass) SetBindGroup(index uint32, bg gfx.DeviceBindGroup) {
	p.BindGroup = bg
	p.log("set-bind-group %d %s", index, bg.(*BindGroup).Label)
}

func (p *Pass) SetVertexBuffer(slot uint32, buf gfx.DeviceBuffer) {
	if p.VertexBuffers == nil {
		p.VertexBuffers = make(map[uint32]gfx.DeviceBuffer)
	}
	p.VertexBuffers[slot] = buf
	p.log("set-vertex-buffer %d %s", slot, buf.(*Buffer).Label)
}

func (p *Pass) SetIndexBuffer(buf gfx.DeviceBuffer, format wgpu.IndexFormat) {
	p.IndexBuffer = buf
	p.IndexFormat = format
	p.log("set-index-buffer %s", buf.(*Buffer).Label)
}

func (p *Pass) SetViewport(x, y, width, height int) {
	p.log("set-viewport %d %d %d %d", x, y, width, height)
}

func (p *Pass) SetScissor(x, y, width, height int) {
	p.log("set-scissor %d %d %d %d", x, y, width, height)
}

func (p *Pass) Draw(vertexCount, instanceCount, firstVertex uint32) {
	p.log("draw %d %d %d", vertexCount, instanceCount, firstVertex)
}

func (p *Pass) DrawIndexed(indexCount, instanceCount uint32) {
	p.log("draw-indexed %d %d", indexCount, instanceCount)
}

func (p *Pass) End() {
	p.Ended = true
}
