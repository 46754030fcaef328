package gfx_test

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/prism3d/prism/engine/gfx"
	"github.com/prism3d/prism/engine/gfx/gfxtest"
)

const testShader = `
struct Uniforms {
    transform: mat4x4<f32>,
    color: vec4<f32>,
}

@group(0) @binding(0) var<uniform> uniforms: Uniforms;

@vertex
fn vs_main() -> @builtin(position) vec4<f32> {
    return vec4<f32>(0.0, 0.0, 0.0, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return uniforms.color;
}
`

func newTestContext(t *testing.T) (gfx.Context, *gfxtest.Device) {
	t.Helper()
	dev := gfxtest.NewDevice(800, 600)
	return gfx.NewExplicitContext(dev), dev
}

// linkObjectProgram compiles and links the unified test shader, failing the
// test if the link does not produce a pipeline.
func linkObjectProgram(t *testing.T, ctx gfx.Context) gfx.Program {
	t.Helper()

	vs := ctx.CreateShader(gfx.VertexShaderStage)
	fs := ctx.CreateShader(gfx.FragmentShaderStage)
	ctx.ShaderSource(vs, testShader)
	ctx.ShaderSource(fs, testShader)
	ctx.CompileShader(vs)
	ctx.CompileShader(fs)

	prog := ctx.CreateProgram()
	ctx.AttachShader(prog, vs)
	ctx.AttachShader(prog, fs)
	ctx.LinkProgram(prog)
	if !ctx.IsLinked(prog) {
		t.Fatal("program did not link")
	}
	return prog
}

// newFilledBuffer creates a buffer and uploads data through the given target.
func newFilledBuffer(t *testing.T, ctx gfx.Context, target gfx.Enum, data []byte) gfx.Buffer {
	t.Helper()
	buf := ctx.CreateBuffer()
	ctx.BindBuffer(target, buf)
	ctx.BufferData(target, data, gfx.StaticDraw)
	return buf
}

func countCommands(pass *gfxtest.Pass, prefix string) int {
	n := 0
	for _, cmd := range pass.Commands {
		if strings.HasPrefix(cmd, prefix) {
			n++
		}
	}
	return n
}

func TestBufferRoundTrip(t *testing.T) {
	ctx, _ := newTestContext(t)

	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	newFilledBuffer(t, ctx, gfx.ArrayBuffer, data)

	out := make([]byte, len(data))
	if err := ctx.DownloadBuffer(gfx.ArrayBuffer, out); err != nil {
		t.Fatalf("DownloadBuffer: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Errorf("downloaded %v, want %v", out, data)
	}
}

func TestBufferSubDataPatchesInPlace(t *testing.T) {
	ctx, dev := newTestContext(t)

	newFilledBuffer(t, ctx, gfx.ArrayBuffer, make([]byte, 16))
	allocs := dev.BufferAllocs

	ctx.BufferSubData(gfx.ArrayBuffer, 4, []byte{9, 9, 9, 9})
	if dev.BufferAllocs != allocs {
		t.Errorf("BufferSubData allocated a new buffer: %d allocs, want %d", dev.BufferAllocs, allocs)
	}

	out := make([]byte, 16)
	if err := ctx.DownloadBuffer(gfx.ArrayBuffer, out); err != nil {
		t.Fatalf("DownloadBuffer: %v", err)
	}
	want := make([]byte, 16)
	copy(want[4:], []byte{9, 9, 9, 9})
	if !bytes.Equal(out, want) {
		t.Errorf("downloaded %v, want %v", out, want)
	}
}

func TestBufferDataReallocates(t *testing.T) {
	ctx, dev := newTestContext(t)

	buf := newFilledBuffer(t, ctx, gfx.ArrayBuffer, make([]byte, 16))
	allocs := dev.BufferAllocs

	ctx.BindBuffer(gfx.ArrayBuffer, buf)
	ctx.BufferData(gfx.ArrayBuffer, make([]byte, 64), gfx.StaticDraw)
	if dev.BufferAllocs != allocs+1 {
		t.Errorf("BufferData allocs = %d, want %d", dev.BufferAllocs, allocs+1)
	}
}

func TestHandleGenerationPreventsStaleUse(t *testing.T) {
	ctx, _ := newTestContext(t)

	old := ctx.CreateBuffer()
	ctx.DeleteBuffer(old)
	if ctx.IsBuffer(old) {
		t.Error("deleted buffer still reported live")
	}

	// The freed slot is reused; the stale handle must not alias it.
	fresh := ctx.CreateBuffer()
	if ctx.IsBuffer(old) {
		t.Error("stale handle validates after slot reuse")
	}
	if !ctx.IsBuffer(fresh) {
		t.Error("fresh buffer not reported live")
	}
	ctx.DeleteBuffer(old) // must not free the reused slot
	if !ctx.IsBuffer(fresh) {
		t.Error("deleting a stale handle killed the reused slot")
	}
}

func TestAttachOrderDoesNotMatter(t *testing.T) {
	ctx, _ := newTestContext(t)

	vs := ctx.CreateShader(gfx.VertexShaderStage)
	fs := ctx.CreateShader(gfx.FragmentShaderStage)
	ctx.ShaderSource(vs, testShader)
	ctx.ShaderSource(fs, testShader)
	ctx.CompileShader(vs)
	ctx.CompileShader(fs)

	forward := ctx.CreateProgram()
	ctx.AttachShader(forward, vs)
	ctx.AttachShader(forward, fs)
	ctx.LinkProgram(forward)

	reversed := ctx.CreateProgram()
	ctx.AttachShader(reversed, fs)
	ctx.AttachShader(reversed, vs)
	ctx.LinkProgram(reversed)

	if !ctx.IsLinked(forward) || !ctx.IsLinked(reversed) {
		t.Errorf("linked(forward) = %v, linked(reversed) = %v, want both true",
			ctx.IsLinked(forward), ctx.IsLinked(reversed))
	}
}

func TestLinkRequiresBothStages(t *testing.T) {
	ctx, dev := newTestContext(t)

	vs := ctx.CreateShader(gfx.VertexShaderStage)
	ctx.ShaderSource(vs, testShader)
	ctx.CompileShader(vs)

	prog := ctx.CreateProgram()
	ctx.AttachShader(prog, vs)
	ctx.LinkProgram(prog)
	if ctx.IsLinked(prog) {
		t.Fatal("program linked with only a vertex stage attached")
	}

	// A draw using the unlinked program must silently do nothing.
	if err := ctx.BeginFrame(); err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	ctx.UseProgram(prog)
	ctx.DrawElements(gfx.Triangles, 36, gfx.UnsignedInt, 0)
	if frame := dev.LastFrame(); frame.Pass != nil {
		t.Error("draw with unlinked program opened a render pass")
	}
	ctx.EndFrame()
}

func TestGLSLSourceDegradesToUnlinked(t *testing.T) {
	ctx, dev := newTestContext(t)

	glsl := "#version 330 core\nvoid main() {}\n"
	vs := ctx.CreateShader(gfx.VertexShaderStage)
	fs := ctx.CreateShader(gfx.FragmentShaderStage)
	ctx.ShaderSource(vs, glsl)
	ctx.ShaderSource(fs, glsl)
	ctx.CompileShader(vs)
	ctx.CompileShader(fs)

	prog := ctx.CreateProgram()
	ctx.AttachShader(prog, vs)
	ctx.AttachShader(prog, fs)
	ctx.LinkProgram(prog)

	if ctx.IsLinked(prog) {
		t.Fatal("GLSL program reported linked on the wgpu backend")
	}
	if dev.PipelineCount != 0 {
		t.Errorf("GLSL link created %d pipelines, want 0", dev.PipelineCount)
	}

	if err := ctx.BeginFrame(); err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	ctx.UseProgram(prog)
	ctx.DrawElements(gfx.Triangles, 36, gfx.UnsignedInt, 0)
	if frame := dev.LastFrame(); frame.Pass != nil {
		t.Error("draw with GLSL program opened a render pass")
	}
	ctx.EndFrame()
}

func TestDrawResolvesTrackedState(t *testing.T) {
	ctx, dev := newTestContext(t)
	prog := linkObjectProgram(t, ctx)

	vertices := newFilledBuffer(t, ctx, gfx.ArrayBuffer, make([]byte, 96))
	newFilledBuffer(t, ctx, gfx.ElementArrayBuffer, make([]byte, 144))

	if err := ctx.BeginFrame(); err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	ctx.UseProgram(prog)
	ctx.BindBuffer(gfx.ArrayBuffer, vertices)
	ctx.DrawElements(gfx.Triangles, 36, gfx.UnsignedInt, 0)

	pass := dev.LastFrame().Pass
	if pass == nil {
		t.Fatal("draw did not open a render pass")
	}
	if pass.Pipeline == nil {
		t.Error("draw did not set a pipeline")
	}
	if pass.IndexBuffer == nil {
		t.Error("draw did not set the bound element buffer")
	}
	if pass.BindGroup == nil {
		t.Error("draw did not set the default bind group")
	}
	if got := countCommands(pass, "draw-indexed"); got != 1 {
		t.Errorf("draw-indexed commands = %d, want 1", got)
	}
	ctx.EndFrame()

	frame := dev.LastFrame()
	if !frame.Submitted || !frame.Presented {
		t.Errorf("EndFrame submitted = %v, presented = %v, want both", frame.Submitted, frame.Presented)
	}
}

func TestSingleRenderPassPerFrame(t *testing.T) {
	ctx, dev := newTestContext(t)
	prog := linkObjectProgram(t, ctx)

	newFilledBuffer(t, ctx, gfx.ArrayBuffer, make([]byte, 96))
	newFilledBuffer(t, ctx, gfx.ElementArrayBuffer, make([]byte, 144))

	if err := ctx.BeginFrame(); err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	ctx.UseProgram(prog)
	ctx.DrawElements(gfx.Triangles, 36, gfx.UnsignedInt, 0)
	ctx.DrawElements(gfx.Triangles, 36, gfx.UnsignedInt, 0)
	ctx.EndFrame()

	if dev.PassCount != 1 {
		t.Errorf("render passes opened = %d, want 1", dev.PassCount)
	}
	if got := countCommands(dev.LastFrame().Pass, "draw-indexed"); got != 2 {
		t.Errorf("draw-indexed commands = %d, want 2", got)
	}
}

func TestPendingStateClearedAfterDraw(t *testing.T) {
	ctx, dev := newTestContext(t)
	prog := linkObjectProgram(t, ctx)

	newFilledBuffer(t, ctx, gfx.ArrayBuffer, make([]byte, 96))
	newFilledBuffer(t, ctx, gfx.ElementArrayBuffer, make([]byte, 144))

	if err := ctx.BeginFrame(); err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	ctx.UseProgram(prog)
	ctx.DrawElements(gfx.Triangles, 36, gfx.UnsignedInt, 0)
	draws := countCommands(dev.LastFrame().Pass, "draw-indexed")

	// With no program in use the second draw must not reuse the first
	// draw's staged pipeline.
	ctx.UseProgram(gfx.Program{})
	ctx.DrawElements(gfx.Triangles, 36, gfx.UnsignedInt, 0)
	if got := countCommands(dev.LastFrame().Pass, "draw-indexed"); got != draws {
		t.Errorf("draw without a program issued commands: %d draws, want %d", got, draws)
	}
	ctx.EndFrame()
}

const flatShader = `
struct Uniforms {
    transform: mat4x4<f32>,
    color: vec4<f32>,
}

@group(0) @binding(0) var<uniform> uniforms: Uniforms;

@vertex
fn vs_main() -> @builtin(position) vec4<f32> {
    return uniforms.transform * vec4<f32>(1.0, 0.0, 0.0, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(uniforms.color.rgb, 1.0);
}
`

// linkProgramFromSource is linkObjectProgram for an arbitrary WGSL source.
func linkProgramFromSource(t *testing.T, ctx gfx.Context, source string) gfx.Program {
	t.Helper()

	vs := ctx.CreateShader(gfx.VertexShaderStage)
	fs := ctx.CreateShader(gfx.FragmentShaderStage)
	ctx.ShaderSource(vs, source)
	ctx.ShaderSource(fs, source)
	ctx.CompileShader(vs)
	ctx.CompileShader(fs)

	prog := ctx.CreateProgram()
	ctx.AttachShader(prog, vs)
	ctx.AttachShader(prog, fs)
	ctx.LinkProgram(prog)
	if !ctx.IsLinked(prog) {
		t.Fatal("program did not link")
	}
	return prog
}

func TestProgramSwitchRestagesPipeline(t *testing.T) {
	ctx, dev := newTestContext(t)
	first := linkObjectProgram(t, ctx)
	second := linkProgramFromSource(t, ctx, flatShader)

	newFilledBuffer(t, ctx, gfx.ArrayBuffer, make([]byte, 96))
	newFilledBuffer(t, ctx, gfx.ElementArrayBuffer, make([]byte, 144))

	if len(dev.Pipelines) != 2 {
		t.Fatalf("links created %d pipelines, want 2", len(dev.Pipelines))
	}

	if err := ctx.BeginFrame(); err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	ctx.UseProgram(first)
	ctx.DrawElements(gfx.Triangles, 36, gfx.UnsignedInt, 0)
	ctx.UseProgram(second)
	ctx.DrawElements(gfx.Triangles, 36, gfx.UnsignedInt, 0)

	pass := dev.LastFrame().Pass
	if pass == nil {
		t.Fatal("draws did not open a render pass")
	}
	if got := countCommands(pass, "draw-indexed"); got != 2 {
		t.Fatalf("draw-indexed commands = %d, want 2", got)
	}
	// After the second draw the pass must carry the second program's
	// pipeline and bind group, not leftovers from the first.
	if pass.Pipeline != dev.Pipelines[1] {
		t.Error("second draw did not switch to the second program's pipeline")
	}
	var uniforms []*gfxtest.Buffer
	for _, b := range dev.Buffers {
		if b.Uniform {
			uniforms = append(uniforms, b)
		}
	}
	if len(uniforms) != 2 {
		t.Fatalf("links allocated %d uniform buffers, want 2", len(uniforms))
	}
	group := pass.BindGroup.(*gfxtest.BindGroup)
	if group.Bindings[0].Buffer != uniforms[1] {
		t.Error("second draw did not switch to the second program's bind group")
	}
	ctx.EndFrame()
}

func TestViewportAppliedToRenderPass(t *testing.T) {
	ctx, dev := newTestContext(t)
	prog := linkObjectProgram(t, ctx)

	newFilledBuffer(t, ctx, gfx.ArrayBuffer, make([]byte, 96))
	newFilledBuffer(t, ctx, gfx.ElementArrayBuffer, make([]byte, 144))

	ctx.Viewport(10, 20, 640, 480)
	if err := ctx.BeginFrame(); err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	ctx.UseProgram(prog)
	ctx.DrawElements(gfx.Triangles, 36, gfx.UnsignedInt, 0)

	pass := dev.LastFrame().Pass
	if pass == nil {
		t.Fatal("draw did not open a render pass")
	}
	found := false
	for _, cmd := range pass.Commands {
		if cmd == "set-viewport 10 20 640 480" {
			found = true
		}
	}
	if !found {
		t.Errorf("pass commands %v do not apply the tracked viewport", pass.Commands)
	}
	ctx.EndFrame()
}

func TestRecentArrayBufferWindow(t *testing.T) {
	ctx, dev := newTestContext(t)
	prog := linkObjectProgram(t, ctx)

	// Bind ten array buffers; only the most recent eight may survive.
	buffers := make([]gfx.Buffer, 10)
	for i := range buffers {
		buffers[i] = newFilledBuffer(t, ctx, gfx.ArrayBuffer, make([]byte, 32))
	}
	// Rebinding an already-tracked buffer must not duplicate it.
	ctx.BindBuffer(gfx.ArrayBuffer, buffers[9])

	newFilledBuffer(t, ctx, gfx.ElementArrayBuffer, make([]byte, 144))

	if err := ctx.BeginFrame(); err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	ctx.UseProgram(prog)
	ctx.DrawElements(gfx.Triangles, 36, gfx.UnsignedInt, 0)

	pass := dev.LastFrame().Pass
	if pass == nil {
		t.Fatal("draw did not open a render pass")
	}
	if got := countCommands(pass, "set-vertex-buffer"); got != 8 {
		t.Errorf("vertex buffers set = %d, want 8", got)
	}
	ctx.EndFrame()
}

func TestStateTrackerLastWriteWins(t *testing.T) {
	ctx, dev := newTestContext(t)
	prog := linkObjectProgram(t, ctx)

	newFilledBuffer(t, ctx, gfx.ElementArrayBuffer, make([]byte, 64))
	second := newFilledBuffer(t, ctx, gfx.ElementArrayBuffer, make([]byte, 64))
	ctx.BindBuffer(gfx.ElementArrayBuffer, second)

	newFilledBuffer(t, ctx, gfx.ArrayBuffer, make([]byte, 96))

	if err := ctx.BeginFrame(); err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	ctx.UseProgram(prog)
	ctx.DrawElements(gfx.Triangles, 12, gfx.UnsignedInt, 0)

	pass := dev.LastFrame().Pass
	if pass == nil {
		t.Fatal("draw did not open a render pass")
	}
	// The two 64-byte element buffers were allocated in bind order; the
	// draw must use the second one.
	var elems []*gfxtest.Buffer
	for _, b := range dev.Buffers {
		if len(b.Data) == 64 {
			elems = append(elems, b)
		}
	}
	if len(elems) != 2 {
		t.Fatalf("found %d 64-byte buffers, want 2", len(elems))
	}
	if pass.IndexBuffer != elems[1] {
		t.Errorf("index buffer = %v, want the most recently bound element buffer", pass.IndexBuffer)
	}
	ctx.EndFrame()
}

func TestUniformsFlushBeforeDraw(t *testing.T) {
	ctx, dev := newTestContext(t)
	prog := linkObjectProgram(t, ctx)

	loc, ok := ctx.GetUniformLocation(prog, "color")
	if !ok {
		t.Fatal("GetUniformLocation failed for live program")
	}
	ctx.Uniform4f(loc, 0.25, 0.5, 0.75, 1.0)

	newFilledBuffer(t, ctx, gfx.ArrayBuffer, make([]byte, 96))
	newFilledBuffer(t, ctx, gfx.ElementArrayBuffer, make([]byte, 144))

	if err := ctx.BeginFrame(); err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	ctx.UseProgram(prog)
	ctx.DrawElements(gfx.Triangles, 36, gfx.UnsignedInt, 0)
	ctx.EndFrame()

	var uniformBuf *gfxtest.Buffer
	for _, b := range dev.Buffers {
		if b.Uniform {
			uniformBuf = b
			break
		}
	}
	if uniformBuf == nil {
		t.Fatal("link did not allocate a uniform buffer")
	}
	// color is the second field of the test shader's uniform struct,
	// offset 64 after the mat4x4 transform.
	got := uniformBuf.Data[64:80]
	want := packVec4(0.25, 0.5, 0.75, 1.0)
	if !bytes.Equal(got, want) {
		t.Errorf("uniform buffer at color offset = % x, want % x", got, want)
	}
}

func TestEmptyFrameStillClears(t *testing.T) {
	ctx, dev := newTestContext(t)

	ctx.ClearColor(0.1, 0.2, 0.3, 1.0)
	if err := ctx.BeginFrame(); err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	ctx.EndFrame()

	frame := dev.LastFrame()
	if frame.Pass == nil {
		t.Fatal("empty frame did not open a clearing pass")
	}
	if frame.ClearColor != [4]float32{0.1, 0.2, 0.3, 1.0} {
		t.Errorf("clear color = %v, want [0.1 0.2 0.3 1]", frame.ClearColor)
	}
	if !frame.Submitted || !frame.Presented {
		t.Errorf("submitted = %v, presented = %v, want both", frame.Submitted, frame.Presented)
	}
}

func TestDepthTextureRecreatedOnResize(t *testing.T) {
	ctx, dev := newTestContext(t)

	if err := ctx.BeginFrame(); err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	ctx.EndFrame()
	depthAllocs := dev.TextureAllocs

	if err := ctx.BeginFrame(); err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	ctx.EndFrame()
	if dev.TextureAllocs != depthAllocs {
		t.Errorf("same-size frame recreated the depth texture: %d allocs, want %d",
			dev.TextureAllocs, depthAllocs)
	}

	dev.Resize(1024, 768)
	if err := ctx.BeginFrame(); err != nil {
		t.Fatalf("BeginFrame: %v", err)
	}
	ctx.EndFrame()
	if dev.TextureAllocs != depthAllocs+1 {
		t.Errorf("resized frame did not recreate the depth texture: %d allocs, want %d",
			dev.TextureAllocs, depthAllocs+1)
	}
}

func TestLinkBuildsFixedBindGroupLayout(t *testing.T) {
	ctx, dev := newTestContext(t)
	linkObjectProgram(t, ctx)

	var pipeline *gfxtest.Pipeline
	if len(dev.Pipelines) != 1 {
		t.Fatalf("link created %d pipelines, want 1", len(dev.Pipelines))
	}
	pipeline = dev.Pipelines[0]

	layout := pipeline.Desc.Layout.(*gfxtest.BindGroupLayout)
	if len(layout.Entries) != 3 {
		t.Fatalf("bind group layout has %d entries, want 3", len(layout.Entries))
	}
	for i, binding := range []uint32{0, 1, 2} {
		if layout.Entries[i].Binding != binding {
			t.Errorf("entry %d binding = %d, want %d", i, layout.Entries[i].Binding, binding)
		}
	}

	if len(pipeline.Desc.VertexBuffers) != 2 {
		t.Fatalf("pipeline has %d vertex buffer layouts, want 2", len(pipeline.Desc.VertexBuffers))
	}
	if got := pipeline.Desc.VertexBuffers[0].ArrayStride; got != 32 {
		t.Errorf("per-vertex stride = %d, want 32", got)
	}
	if got := pipeline.Desc.VertexBuffers[1].ArrayStride; got != 60 {
		t.Errorf("per-instance stride = %d, want 60", got)
	}
}

func TestDefaultTextureIsWhitePixel(t *testing.T) {
	ctx, dev := newTestContext(t)
	linkObjectProgram(t, ctx)

	var def *gfxtest.Texture
	for _, tex := range dev.Textures {
		if tex.Width == 1 && tex.Height == 1 && !tex.Depth {
			def = tex
			break
		}
	}
	if def == nil {
		t.Fatal("link did not allocate a 1x1 default texture")
	}
	if !bytes.Equal(def.Pixels, []byte{0xFF, 0xFF, 0xFF, 0xFF}) {
		t.Errorf("default texture pixels = % x, want ff ff ff ff", def.Pixels)
	}
}

func packVec4(x, y, z, w float32) []byte {
	out := make([]byte, 16)
	for i, f := range []float32{x, y, z, w} {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}
