package gfx

import (
	"errors"
	"log"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

var errBufferNotAllocated = errors.New("buffer has no device allocation")

// uniformBufferSize is the size of the per-program uniform buffer when the
// shader source yields no introspectable uniform struct. It matches the
// std140 footprint of the standard object uniforms: two 4x4 matrices for
// projection and view, a 4x4 model transform, a 3x3 normal transform, a 3x3
// scale, a light position and a color.
const uniformBufferSize = 320

func (c *webgpuContext) ShaderSource(sh Shader, source string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rec := c.shaders.get(Handle(sh)); rec != nil {
		(*rec).source = source
		(*rec).ready = false
	}
}

// CompileShader only marks the shader ready: native compilation happens at
// link time, once both stages and the vertex layout are known.
func (c *webgpuContext) CompileShader(sh Shader) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rec := c.shaders.get(Handle(sh)); rec != nil {
		(*rec).ready = true
		(*rec).infoLog = ""
	}
}

func (c *webgpuContext) GetShaderParameter(sh Shader, pname Enum) (int, bool) {
	if pname != CompileStatus {
		return 0, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	rec := c.shaders.get(Handle(sh))
	if rec == nil {
		return 0, false
	}
	if (*rec).ready {
		return 1, true
	}
	return 0, true
}

func (c *webgpuContext) GetShaderInfoLog(sh Shader) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rec := c.shaders.get(Handle(sh)); rec != nil {
		return (*rec).infoLog
	}
	return ""
}

// AttachShader records the shader under its stage slot; a second attach for
// the same stage overwrites the first.
func (c *webgpuContext) AttachShader(prog Program, sh Shader) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.programs.get(Handle(prog))
	s := c.shaders.get(Handle(sh))
	if p == nil || s == nil {
		return
	}
	switch (*s).stage {
	case VertexShaderStage:
		(*p).vertex = sh
	case FragmentShaderStage:
		(*p).fragment = sh
	}
}

// LinkProgram compiles the attached sources into a render pipeline plus the
// fixed bind-group layout, uniform buffer and default bind group. With either
// stage missing it is a no-op; any draw using the program then silently does
// nothing. GLSL sources cannot be consumed by this backend: the program stays
// unlinked and a warning is logged once per link attempt.
func (c *webgpuContext) LinkProgram(prog Program) {
	c.mu.Lock()

	p := c.programs.get(Handle(prog))
	if p == nil {
		c.mu.Unlock()
		return
	}
	rec := *p
	vs := c.shaders.get(Handle(rec.vertex))
	fs := c.shaders.get(Handle(rec.fragment))
	if vs == nil || fs == nil {
		c.mu.Unlock()
		return
	}
	vsSource := (*vs).source
	fsSource := (*fs).source
	c.mu.Unlock()

	if strings.HasPrefix(strings.TrimSpace(vsSource), "#version") ||
		strings.HasPrefix(strings.TrimSpace(fsSource), "#version") {
		log.Println("warning: GLSL shader detected; this material will not render on the wgpu backend")
		return
	}

	// A unified source carries both entry points in one module.
	vsModule, err := c.dev.CreateShaderModule("Vertex Shader", vsSource)
	if err != nil {
		log.Printf("warning: shader module creation failed: %v", err)
		return
	}
	fsModule := vsModule
	if vsSource != fsSource {
		fsModule, err = c.dev.CreateShaderModule("Fragment Shader", fsSource)
		if err != nil {
			log.Printf("warning: shader module creation failed: %v", err)
			return
		}
	}

	layout, err := c.dev.CreateBindGroupLayout("Bind Group Layout", objectBindGroupLayoutEntries())
	if err != nil {
		log.Printf("warning: bind group layout creation failed: %v", err)
		return
	}

	pipeline, err := c.dev.CreateRenderPipeline(RenderPipelineDesc{
		Label:         "Render Pipeline",
		Vertex:        vsModule,
		VertexEntry:   "vs_main",
		Fragment:      fsModule,
		FragmentEntry: "fs_main",
		Layout:        layout,
		VertexBuffers: objectVertexBufferLayouts(),
		Topology:      wgpu.PrimitiveTopologyTriangleList,
		CullBack:      true,
	})
	if err != nil {
		log.Printf("warning: pipeline creation failed: %v", err)
		return
	}

	uniformLayout := introspectUniformLayout(vsSource)
	size := uniformLayout.size
	if size == 0 {
		size = uniformBufferSize
	}
	uniformBuffer, err := c.dev.CreateUniformBuffer("Uniform Buffer", size)
	if err != nil {
		log.Printf("warning: uniform buffer creation failed: %v", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureDefaultsLocked(); err != nil {
		log.Printf("warning: default resource creation failed: %v", err)
		return
	}
	bindGroup, err := c.dev.CreateBindGroup("Default Bind Group", layout, []BindGroupBinding{
		{Binding: 0, Buffer: uniformBuffer},
		{Binding: 1, Sampler: c.defaultSampler},
		{Binding: 2, Texture: c.defaultTexture},
	})
	if err != nil {
		log.Printf("warning: bind group creation failed: %v", err)
		return
	}

	// Re-fetch: the program may have been deleted while unlocked.
	p = c.programs.get(Handle(prog))
	if p == nil {
		c.dev.DestroyBuffer(uniformBuffer)
		return
	}
	if (*p).uniformBuffer != nil {
		c.dev.DestroyBuffer((*p).uniformBuffer)
	}
	(*p).pipeline = pipeline
	(*p).bindGroupLayout = layout
	(*p).uniformBuffer = uniformBuffer
	(*p).bindGroup = bindGroup
	(*p).layout = uniformLayout
	(*p).linked = true
}

// ensureDefaultsLocked builds the shared 1x1 white texture and linear sampler
// bound in place of missing material resources. Caller holds c.mu.
func (c *webgpuContext) ensureDefaultsLocked() error {
	if c.defaultTexture != nil && c.defaultSampler != nil {
		return nil
	}
	tex, err := c.dev.CreateTexture2D("Default White Texture", 1, 1)
	if err != nil {
		return err
	}
	c.dev.WriteTexture(tex, 0, 0, 1, 1, []byte{0xFF, 0xFF, 0xFF, 0xFF})
	samp, err := c.dev.CreateSampler("Default Sampler", wgpu.AddressModeRepeat, wgpu.FilterModeLinear)
	if err != nil {
		c.dev.DestroyTexture(tex)
		return err
	}
	c.defaultTexture = tex
	c.defaultSampler = samp
	return nil
}

func (c *webgpuContext) IsLinked(prog Program) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p := c.programs.get(Handle(prog)); p != nil {
		return (*p).linked
	}
	return false
}

func (c *webgpuContext) UseProgram(prog Program) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.boundProgram = prog
}

// GetAttribLocation always reports slot zero: attribute locations are fixed
// by the pipeline's vertex layout, not queried from the shader.
func (c *webgpuContext) GetAttribLocation(prog Program, name string) int { return 0 }

// GetUniformLocation succeeds for any name on a live program; uniform storage
// is keyed by name and validated against the introspected layout at flush
// time.
func (c *webgpuContext) GetUniformLocation(prog Program, name string) (UniformLocation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.programs.has(Handle(prog)) {
		return UniformLocation{}, false
	}
	return UniformLocation{program: prog, name: name}, true
}

// objectBindGroupLayoutEntries is the fixed three-binding group shared by
// every linked program: uniform buffer, sampler, 2D texture.
func objectBindGroupLayoutEntries() []wgpu.BindGroupLayoutEntry {
	return []wgpu.BindGroupLayoutEntry{
		{
			Binding:    0,
			Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
			Buffer: wgpu.BufferBindingLayout{
				Type: wgpu.BufferBindingTypeUniform,
			},
		},
		{
			Binding:    1,
			Visibility: wgpu.ShaderStageFragment,
			Sampler: wgpu.SamplerBindingLayout{
				Type: wgpu.SamplerBindingTypeFiltering,
			},
		},
		{
			Binding:    2,
			Visibility: wgpu.ShaderStageFragment,
			Texture: wgpu.TextureBindingLayout{
				SampleType:    wgpu.TextureSampleTypeFloat,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		},
	}
}

// objectVertexBufferLayouts is the fixed vertex-stream convention every
// pipeline is built against: slot 0 carries interleaved per-vertex position,
// texture coordinate and normal; slot 1 carries per-instance translation,
// color and a 3x3 deformation supplied as three row vectors.
func objectVertexBufferLayouts() []wgpu.VertexBufferLayout {
	return []wgpu.VertexBufferLayout{
		{
			ArrayStride: 32,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes: []wgpu.VertexAttribute{
				{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
				{Format: wgpu.VertexFormatFloat32x2, Offset: 12, ShaderLocation: 1},
				{Format: wgpu.VertexFormatFloat32x3, Offset: 20, ShaderLocation: 2},
			},
		},
		{
			ArrayStride: 60,
			StepMode:    wgpu.VertexStepModeInstance,
			Attributes: []wgpu.VertexAttribute{
				{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 3},
				{Format: wgpu.VertexFormatFloat32x4, Offset: 12, ShaderLocation: 4},
				{Format: wgpu.VertexFormatFloat32x3, Offset: 28, ShaderLocation: 5},
				{Format: wgpu.VertexFormatFloat32x3, Offset: 40, ShaderLocation: 6},
				{Format: wgpu.VertexFormatFloat32x3, Offset: 52, ShaderLocation: 7},
			},
		},
	}
}
