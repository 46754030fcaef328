package builtin

import (
	_ "embed"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/prism3d/prism/engine/gfx"
	"github.com/prism3d/prism/engine/resource"
)

//go:embed assets/lines.vert
var linesVert string

//go:embed assets/lines.frag
var linesFrag string

// linesStride is the byte stride of one line vertex: position then color,
// three floats each.
const linesStride = 24

// LinesMaterial draws flat-colored line and point primitives from an
// interleaved position/color stream. Its sources are GLSL; on the explicit
// backend the program degrades to unlinked and draws are dropped.
type LinesMaterial struct {
	prog gfx.Program

	positionLoc int
	colorLoc    int

	proj gfx.UniformLocation
	view gfx.UniformLocation
}

// NewLinesMaterial compiles the line shader.
func NewLinesMaterial(ctx gfx.Context) (*LinesMaterial, error) {
	prog, err := newProgram(ctx, linesVert, linesFrag)
	if err != nil {
		return nil, err
	}
	m := &LinesMaterial{
		prog:        prog,
		positionLoc: ctx.GetAttribLocation(prog, "position"),
		colorLoc:    ctx.GetAttribLocation(prog, "color"),
	}
	m.proj, _ = ctx.GetUniformLocation(prog, "proj")
	m.view, _ = ctx.GetUniformLocation(prog, "view")
	return m, nil
}

// Render draws the first count vertices of the interleaved stream with the
// given topology, Lines or Points.
func (m *LinesMaterial) Render(ctx gfx.Context, proj, view mgl32.Mat4, mode gfx.Enum, vertices *resource.GPUVec[float32], count int) {
	if count == 0 {
		return
	}
	ctx.UseProgram(m.prog)
	ctx.Enable(gfx.DepthTest)
	if mode == gfx.Points {
		ctx.Enable(gfx.ProgramPointSize)
	}

	ctx.UniformMatrix4(m.proj, proj)
	ctx.UniformMatrix4(m.view, view)

	vertices.Bind()
	ctx.VertexAttribPointer(uint32(m.positionLoc), 3, gfx.Float, false, linesStride, 0)
	ctx.EnableVertexAttribArray(uint32(m.positionLoc))
	ctx.VertexAttribPointer(uint32(m.colorLoc), 3, gfx.Float, false, linesStride, 12)
	ctx.EnableVertexAttribArray(uint32(m.colorLoc))

	ctx.DrawArrays(mode, 0, count)

	ctx.DisableVertexAttribArray(uint32(m.positionLoc))
	ctx.DisableVertexAttribArray(uint32(m.colorLoc))
	vertices.Unbind()
}
