// Package render provides immediate-style renderers for debug and overlay
// geometry: lines and points accumulated each frame into a GPU vector, drawn
// once, then truncated. Because the host length shrinks to zero and regrows
// every frame, the vector's capacity-aware updates patch the same device
// buffer in place frame after frame.
package render

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/prism3d/prism/engine/builtin"
	"github.com/prism3d/prism/engine/gfx"
	"github.com/prism3d/prism/engine/resource"
)

// LineRenderer accumulates colored line segments and draws them in one call.
type LineRenderer struct {
	material *builtin.LinesMaterial
	vertices *resource.GPUVec[float32]
}

// NewLineRenderer compiles the line material and prepares an empty stream.
func NewLineRenderer(ctx gfx.Context) (*LineRenderer, error) {
	material, err := builtin.NewLinesMaterial(ctx)
	if err != nil {
		return nil, err
	}
	return &LineRenderer{
		material: material,
		vertices: resource.NewGPUVec(ctx, []float32{}, gfx.ArrayBuffer, gfx.StreamDraw),
	}, nil
}

// DrawLine stages one segment from a to b for this frame.
func (r *LineRenderer) DrawLine(a, b, color mgl32.Vec3) {
	data := r.vertices.DataMut()
	if data == nil {
		return
	}
	*data = append(*data,
		a.X(), a.Y(), a.Z(), color.X(), color.Y(), color.Z(),
		b.X(), b.Y(), b.Z(), color.X(), color.Y(), color.Z(),
	)
}

// NumSegments returns the number of segments staged for this frame.
func (r *LineRenderer) NumSegments() int {
	return r.vertices.Len() / 12
}

// Render draws the staged segments and truncates the stream for the next
// frame. The truncation keeps host capacity, so steady-state frames reuse
// both the host and the device allocation.
func (r *LineRenderer) Render(ctx gfx.Context, proj, view mgl32.Mat4) {
	count := r.vertices.Len() / 6
	if count == 0 {
		return
	}
	r.material.Render(ctx, proj, view, gfx.Lines, r.vertices, count)

	data := r.vertices.DataMut()
	*data = (*data)[:0]
}

// PointRenderer accumulates colored points and draws them in one call.
type PointRenderer struct {
	material *builtin.LinesMaterial
	vertices *resource.GPUVec[float32]
}

// NewPointRenderer compiles the line material and prepares an empty stream.
func NewPointRenderer(ctx gfx.Context) (*PointRenderer, error) {
	material, err := builtin.NewLinesMaterial(ctx)
	if err != nil {
		return nil, err
	}
	return &PointRenderer{
		material: material,
		vertices: resource.NewGPUVec(ctx, []float32{}, gfx.ArrayBuffer, gfx.StreamDraw),
	}, nil
}

// DrawPoint stages one point for this frame.
func (r *PointRenderer) DrawPoint(p, color mgl32.Vec3) {
	data := r.vertices.DataMut()
	if data == nil {
		return
	}
	*data = append(*data, p.X(), p.Y(), p.Z(), color.X(), color.Y(), color.Z())
}

// NumPoints returns the number of points staged for this frame.
func (r *PointRenderer) NumPoints() int {
	return r.vertices.Len() / 6
}

// Render draws the staged points and truncates the stream for the next frame.
func (r *PointRenderer) Render(ctx gfx.Context, proj, view mgl32.Mat4) {
	count := r.vertices.Len() / 6
	if count == 0 {
		return
	}
	r.material.Render(ctx, proj, view, gfx.Points, r.vertices, count)

	data := r.vertices.DataMut()
	*data = (*data)[:0]
}
