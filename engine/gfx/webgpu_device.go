package gfx

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// wgpuDevice implements Device on a native wgpu device and queue.
type wgpuDevice struct {
	mu sync.Mutex

	instance *wgpu.Instance
	surface  *wgpu.Surface
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	surfaceFormat wgpu.TextureFormat
	width, height int

	frameHeld bool
}

var _ Device = (*wgpuDevice)(nil)

// NewWGPUDevice opens a wgpu device presenting to the surface described by
// surfaceDescriptor, configured at the given dimensions.
func NewWGPUDevice(surfaceDescriptor *wgpu.SurfaceDescriptor, width, height int) (Device, error) {
	d := &wgpuDevice{
		instance: wgpu.CreateInstance(nil),
		width:    width,
		height:   height,
	}
	d.surface = d.instance.CreateSurface(surfaceDescriptor)

	adapter, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: d.surface,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to request adapter: %w", err)
	}
	d.adapter = adapter

	dev, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to request device: %w", err)
	}
	d.device = dev
	d.queue = dev.GetQueue()

	d.configureSurface(width, height)
	return d, nil
}

func (d *wgpuDevice) configureSurface(width, height int) {
	capabilities := d.surface.GetCapabilities(d.adapter)
	d.surfaceFormat = capabilities.Formats[0]

	d.surface.Configure(d.adapter, d.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      d.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   capabilities.AlphaModes[0],
	})
	d.width = width
	d.height = height
}

func (d *wgpuDevice) Resize(width, height int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if width <= 0 || height <= 0 {
		return
	}
	d.configureSurface(width, height)
}

func (d *wgpuDevice) Size() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.width, d.height
}

func (d *wgpuDevice) CreateBuffer(label string, size int) (DeviceBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  uint64(size),
		Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageIndex |
			wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc,
	})
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func (d *wgpuDevice) CreateUniformBuffer(label string, size int) (DeviceBuffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  uint64(size),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func (d *wgpuDevice) WriteBuffer(buf DeviceBuffer, offset int, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queue.WriteBuffer(buf.(*wgpu.Buffer), uint64(offset), data)
}

// ReadBuffer copies through a transient staging buffer and blocks on the map.
func (d *wgpuDevice) ReadBuffer(buf DeviceBuffer, offset int, out []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	size := len(out)
	if size == 0 {
		return nil
	}

	staging, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Readback Staging",
		Size:  uint64(size),
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	defer staging.Release()

	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	encoder.CopyBufferToBuffer(buf.(*wgpu.Buffer), uint64(offset), staging, 0, uint64(size))
	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		encoder.Release()
		return err
	}
	d.queue.Submit(commandBuffer)
	commandBuffer.Release()
	encoder.Release()

	var mapErr error
	err = staging.MapAsync(wgpu.MapModeRead, 0, uint64(size), func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			mapErr = fmt.Errorf("buffer map failed: status %v", status)
		}
	})
	if err != nil {
		return err
	}
	d.device.Poll(true, nil)
	if mapErr != nil {
		return mapErr
	}

	copy(out, staging.GetMappedRange(0, uint(size)))
	staging.Unmap()
	return nil
}

func (d *wgpuDevice) DestroyBuffer(buf DeviceBuffer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf.(*wgpu.Buffer).Release()
}

func (d *wgpuDevice) CreateTexture2D(label string, width, height int) (DeviceTexture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Usage: wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, err
	}
	return tex, nil
}

func (d *wgpuDevice) CreateDepthTexture(label string, width, height int) (DeviceTexture, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: label,
		Usage: wgpu.TextureUsageRenderAttachment,
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, err
	}
	return tex, nil
}

func (d *wgpuDevice) WriteTexture(tex DeviceTexture, x, y, width, height int, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex.(*wgpu.Texture),
			MipLevel: 0,
			Origin:   wgpu.Origin3D{X: uint32(x), Y: uint32(y)},
			Aspect:   wgpu.TextureAspectAll,
		},
		data,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(width) * 4,
			RowsPerImage: uint32(height),
		},
		&wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
	)
}

func (d *wgpuDevice) DestroyTexture(tex DeviceTexture) {
	d.mu.Lock()
	defer d.mu.Unlock()
	tex.(*wgpu.Texture).Release()
}

func (d *wgpuDevice) CreateSampler(label string, addressMode wgpu.AddressMode, filter wgpu.FilterMode) (DeviceSampler, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	mipmapFilter := wgpu.MipmapFilterModeNearest
	if filter == wgpu.FilterModeLinear {
		mipmapFilter = wgpu.MipmapFilterModeLinear
	}
	samp, err := d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         label,
		AddressModeU:  addressMode,
		AddressModeV:  addressMode,
		AddressModeW:  addressMode,
		MagFilter:     filter,
		MinFilter:     filter,
		MipmapFilter:  mipmapFilter,
		LodMinClamp:   0.0,
		LodMaxClamp:   32.0,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, err
	}
	return samp, nil
}

func (d *wgpuDevice) CreateShaderModule(label, source string) (DeviceShaderModule, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	module, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: source,
		},
	})
	if err != nil {
		return nil, err
	}
	return module, nil
}

func (d *wgpuDevice) CreateBindGroupLayout(label string, entries []wgpu.BindGroupLayoutEntry) (DeviceBindGroupLayout, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	layout, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   label,
		Entries: entries,
	})
	if err != nil {
		return nil, err
	}
	return layout, nil
}

func (d *wgpuDevice) CreateBindGroup(label string, layout DeviceBindGroupLayout, bindings []BindGroupBinding) (DeviceBindGroup, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entries := make([]wgpu.BindGroupEntry, len(bindings))
	for i, b := range bindings {
		switch {
		case b.Buffer != nil:
			entries[i] = wgpu.BindGroupEntry{
				Binding: b.Binding,
				Buffer:  b.Buffer.(*wgpu.Buffer),
				Offset:  0,
				Size:    wgpu.WholeSize,
			}
		case b.Sampler != nil:
			entries[i] = wgpu.BindGroupEntry{
				Binding: b.Binding,
				Sampler: b.Sampler.(*wgpu.Sampler),
			}
		case b.Texture != nil:
			view, err := b.Texture.(*wgpu.Texture).CreateView(nil)
			if err != nil {
				return nil, err
			}
			entries[i] = wgpu.BindGroupEntry{
				Binding:     b.Binding,
				TextureView: view,
			}
		default:
			return nil, fmt.Errorf("bind group %q binding %d has no resource", label, b.Binding)
		}
	}

	bindGroup, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label,
		Layout:  layout.(*wgpu.BindGroupLayout),
		Entries: entries,
	})
	if err != nil {
		return nil, err
	}
	return bindGroup, nil
}

func (d *wgpuDevice) CreateRenderPipeline(desc RenderPipelineDesc) (DevicePipeline, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	pipelineLayout, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            desc.Label + " Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{desc.Layout.(*wgpu.BindGroupLayout)},
	})
	if err != nil {
		return nil, err
	}
	defer pipelineLayout.Release()

	cullMode := wgpu.CullModeNone
	if desc.CullBack {
		cullMode = wgpu.CullModeBack
	}

	pipeline, err := d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     desc.Vertex.(*wgpu.ShaderModule),
			EntryPoint: desc.VertexEntry,
			Buffers:    desc.VertexBuffers,
		},
		Fragment: &wgpu.FragmentState{
			Module:     desc.Fragment.(*wgpu.ShaderModule),
			EntryPoint: desc.FragmentEntry,
			Targets: []wgpu.ColorTargetState{
				{
					Format: d.surfaceFormat,
					Blend: &wgpu.BlendState{
						Color: wgpu.BlendComponent{
							SrcFactor: wgpu.BlendFactorSrcAlpha,
							DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
							Operation: wgpu.BlendOperationAdd,
						},
						Alpha: wgpu.BlendComponent{
							SrcFactor: wgpu.BlendFactorOne,
							DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
							Operation: wgpu.BlendOperationAdd,
						},
					},
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  desc.Topology,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  cullMode,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth24Plus,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLessEqual,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
	})
	if err != nil {
		return nil, err
	}
	return pipeline, nil
}

func (d *wgpuDevice) BeginFrame() (DeviceFrame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.frameHeld {
		return nil, fmt.Errorf("previous frame surface not yet presented")
	}

	surfaceTexture, err := d.surface.GetCurrentTexture()
	if err != nil {
		return nil, err
	}
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return nil, err
	}
	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		view.Release()
		surfaceTexture.Release()
		return nil, err
	}

	d.frameHeld = true
	return &wgpuFrame{
		dev:            d,
		surfaceTexture: surfaceTexture,
		view:           view,
		encoder:        encoder,
	}, nil
}

type wgpuFrame struct {
	dev            *wgpuDevice
	surfaceTexture *wgpu.Texture
	view           *wgpu.TextureView
	encoder        *wgpu.CommandEncoder
}

func (f *wgpuFrame) BeginPass(clearColor [4]float32, depth DeviceTexture) DevicePass {
	depthView, err := depth.(*wgpu.Texture).CreateView(nil)
	if err != nil {
		return nil
	}
	pass := f.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    f.view,
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
				ClearValue: wgpu.Color{
					R: float64(clearColor[0]),
					G: float64(clearColor[1]),
					B: float64(clearColor[2]),
					A: float64(clearColor[3]),
				},
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            depthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})
	return &wgpuPass{pass: pass, depthView: depthView}
}

func (f *wgpuFrame) Submit() {
	commandBuffer, err := f.encoder.Finish(nil)
	if err != nil {
		f.encoder.Release()
		f.encoder = nil
		return
	}
	f.dev.queue.Submit(commandBuffer)
	commandBuffer.Release()
	f.encoder.Release()
	f.encoder = nil
}

func (f *wgpuFrame) Present() {
	f.dev.mu.Lock()
	defer f.dev.mu.Unlock()

	f.dev.surface.Present()
	if f.view != nil {
		f.view.Release()
		f.view = nil
	}
	if f.surfaceTexture != nil {
		f.surfaceTexture.Release()
		f.surfaceTexture = nil
	}
	f.dev.frameHeld = false
}

type wgpuPass struct {
	pass      *wgpu.RenderPassEncoder
	depthView *wgpu.TextureView
}

func (p *wgpuPass) SetPipeline(pipeline DevicePipeline) {
	p.pass.SetPipeline(pipeline.(*wgpu.RenderPipeline))
}

func (p *wgpuPass) SetBindGroup(index uint32, bg DeviceBindGroup) {
	p.pass.SetBindGroup(index, bg.(*wgpu.BindGroup), nil)
}

func (p *wgpuPass) SetVertexBuffer(slot uint32, buf DeviceBuffer) {
	p.pass.SetVertexBuffer(slot, buf.(*wgpu.Buffer), 0, wgpu.WholeSize)
}

func (p *wgpuPass) SetIndexBuffer(buf DeviceBuffer, format wgpu.IndexFormat) {
	p.pass.SetIndexBuffer(buf.(*wgpu.Buffer), format, 0, wgpu.WholeSize)
}

func (p *wgpuPass) SetViewport(x, y, width, height int) {
	p.pass.SetViewport(float32(x), float32(y), float32(width), float32(height), 0, 1)
}

func (p *wgpuPass) SetScissor(x, y, width, height int) {
	p.pass.SetScissorRect(uint32(x), uint32(y), uint32(width), uint32(height))
}

func (p *wgpuPass) Draw(vertexCount, instanceCount, firstVertex uint32) {
	p.pass.Draw(vertexCount, instanceCount, firstVertex, 0)
}

func (p *wgpuPass) DrawIndexed(indexCount, instanceCount uint32) {
	p.pass.DrawIndexed(indexCount, instanceCount, 0, 0, 0)
}

func (p *wgpuPass) End() {
	p.pass.End()
	if p.depthView != nil {
		p.depthView.Release()
		p.depthView = nil
	}
	p.pass.Release()
}
