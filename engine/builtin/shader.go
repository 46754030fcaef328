// Package builtin provides the engine's stock materials: the standard
// textured, lit object material and a flat-colored line material. Shader
// sources are embedded per dialect; the caller picks the dialect matching
// the context's backend.
package builtin

import (
	"fmt"

	"github.com/prism3d/prism/engine/gfx"
)

// Dialect selects the shading language a material's sources are written in.
type Dialect int

const (
	// GLSL targets the immediate OpenGL backend.
	GLSL Dialect = iota

	// WGSL targets the explicit wgpu backend. WGSL sources are unified:
	// the same text carries both entry points.
	WGSL
)

// newProgram compiles both stages and links them. A failed native
// compilation is an error. An unlinked program on the explicit backend is
// not: the material then simply does not render, matching the degraded
// behavior for untranslated shaders.
func newProgram(ctx gfx.Context, vertexSrc, fragmentSrc string) (gfx.Program, error) {
	vs := ctx.CreateShader(gfx.VertexShaderStage)
	ctx.ShaderSource(vs, vertexSrc)
	ctx.CompileShader(vs)
	if status, ok := ctx.GetShaderParameter(vs, gfx.CompileStatus); ok && status == 0 {
		return gfx.Program{}, fmt.Errorf("vertex shader compilation failed: %s", ctx.GetShaderInfoLog(vs))
	}

	fs := ctx.CreateShader(gfx.FragmentShaderStage)
	ctx.ShaderSource(fs, fragmentSrc)
	ctx.CompileShader(fs)
	if status, ok := ctx.GetShaderParameter(fs, gfx.CompileStatus); ok && status == 0 {
		return gfx.Program{}, fmt.Errorf("fragment shader compilation failed: %s", ctx.GetShaderInfoLog(fs))
	}

	prog := ctx.CreateProgram()
	ctx.AttachShader(prog, vs)
	ctx.AttachShader(prog, fs)
	ctx.LinkProgram(prog)
	return prog, nil
}
