package gfx

import "github.com/cogentcore/webgpu/wgpu"

// DeviceBuffer is an opaque handle to a GPU buffer owned by a Device.
// Implementations store their own concrete type behind it.
type DeviceBuffer interface{}

// DeviceTexture is an opaque handle to a GPU texture owned by a Device.
type DeviceTexture interface{}

// DeviceSampler is an opaque handle to a GPU sampler owned by a Device.
type DeviceSampler interface{}

// DeviceShaderModule is an opaque handle to a compiled shader module.
type DeviceShaderModule interface{}

// DeviceBindGroupLayout is an opaque handle to a bind group layout.
type DeviceBindGroupLayout interface{}

// DeviceBindGroup is an opaque handle to a bind group.
type DeviceBindGroup interface{}

// DevicePipeline is an opaque handle to a render pipeline.
type DevicePipeline interface{}

// RenderPipelineDesc describes a render pipeline using only plain data and
// opaque Device handles, so a fake device can record it without touching
// native wgpu objects.
type RenderPipelineDesc struct {
	Label         string
	Vertex        DeviceShaderModule
	VertexEntry   string
	Fragment      DeviceShaderModule
	FragmentEntry string
	Layout        DeviceBindGroupLayout
	VertexBuffers []wgpu.VertexBufferLayout
	Topology      wgpu.PrimitiveTopology
	CullBack      bool
}

// BindGroupBinding pairs a binding index with exactly one resource.
type BindGroupBinding struct {
	Binding uint32
	Buffer  DeviceBuffer
	Sampler DeviceSampler
	Texture DeviceTexture
}

// Device abstracts the explicit GPU API surface the context needs: resource
// allocation, data transfer and frame encoding. The production implementation
// wraps a wgpu device and queue; tests substitute an in-memory fake.
type Device interface {
	// CreateBuffer allocates size bytes usable as vertex, index and copy
	// source/destination data.
	CreateBuffer(label string, size int) (DeviceBuffer, error)
	// CreateUniformBuffer allocates size bytes usable as a uniform binding.
	CreateUniformBuffer(label string, size int) (DeviceBuffer, error)
	// WriteBuffer copies data into buf at the given byte offset.
	WriteBuffer(buf DeviceBuffer, offset int, data []byte)
	// ReadBuffer copies len(out) bytes from buf at the given byte offset
	// back to the host, blocking until the copy completes.
	ReadBuffer(buf DeviceBuffer, offset int, out []byte) error
	DestroyBuffer(buf DeviceBuffer)

	// CreateTexture2D allocates a sampleable RGBA8 texture.
	CreateTexture2D(label string, width, height int) (DeviceTexture, error)
	// CreateDepthTexture allocates a Depth24Plus render attachment.
	CreateDepthTexture(label string, width, height int) (DeviceTexture, error)
	// WriteTexture uploads tightly packed RGBA8 pixels into a subregion.
	WriteTexture(tex DeviceTexture, x, y, width, height int, data []byte)
	DestroyTexture(tex DeviceTexture)

	CreateSampler(label string, addressMode wgpu.AddressMode, filter wgpu.FilterMode) (DeviceSampler, error)
	CreateShaderModule(label, source string) (DeviceShaderModule, error)
	CreateBindGroupLayout(label string, entries []wgpu.BindGroupLayoutEntry) (DeviceBindGroupLayout, error)
	CreateBindGroup(label string, layout DeviceBindGroupLayout, bindings []BindGroupBinding) (DeviceBindGroup, error)
	CreateRenderPipeline(desc RenderPipelineDesc) (DevicePipeline, error)

	// BeginFrame acquires the next surface image and opens a command
	// encoder for it. Only one frame may be in flight at a time.
	BeginFrame() (DeviceFrame, error)

	// Resize reconfigures the presentation surface.
	Resize(width, height int)
	// Size reports the current surface dimensions.
	Size() (width, height int)
}

// DeviceFrame is one acquired surface image plus its command encoder.
type DeviceFrame interface {
	// BeginPass opens a render pass that clears the color attachment to
	// clearColor and the depth attachment to 1.0.
	BeginPass(clearColor [4]float32, depth DeviceTexture) DevicePass
	// Submit finishes the encoder and submits the recorded commands.
	Submit()
	// Present presents the surface image and releases frame resources.
	Present()
}

// DevicePass records draw commands into an open render pass.
type DevicePass interface {
	SetPipeline(p DevicePipeline)
	SetBindGroup(index uint32, bg DeviceBindGroup)
	SetVertexBuffer(slot uint32, buf DeviceBuffer)
	SetIndexBuffer(buf DeviceBuffer, format wgpu.IndexFormat)
	SetViewport(x, y, width, height int)
	SetScissor(x, y, width, height int)
	Draw(vertexCount, instanceCount, firstVertex uint32)
	DrawIndexed(indexCount, instanceCount uint32)
	End()
}
