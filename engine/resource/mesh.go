package resource

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/prism3d/prism/engine/gfx"
)

// Mesh aggregates the GPU vectors for one piece of indexed geometry:
// vertex coordinates, texture coordinates, normals and triangle faces.
type Mesh struct {
	coords  *GPUVec[float32]
	uvs     *GPUVec[float32]
	normals *GPUVec[float32]
	faces   *GPUVec[uint32]
}

// NewMesh builds a mesh from its attribute arrays. Normals are computed from
// the face topology when nil; texture coordinates default to zero when nil.
func NewMesh(ctx gfx.Context, coords []mgl32.Vec3, faces [][3]uint32, uvs []mgl32.Vec2, normals []mgl32.Vec3, dynamic bool) *Mesh {
	usage := gfx.Enum(gfx.StaticDraw)
	if dynamic {
		usage = gfx.DynamicDraw
	}
	if normals == nil {
		normals = ComputeNormals(coords, faces)
	}
	if uvs == nil {
		uvs = make([]mgl32.Vec2, len(coords))
	}
	return &Mesh{
		coords:  NewGPUVec(ctx, flattenVec3(coords), gfx.ArrayBuffer, usage),
		uvs:     NewGPUVec(ctx, flattenVec2(uvs), gfx.ArrayBuffer, usage),
		normals: NewGPUVec(ctx, flattenVec3(normals), gfx.ArrayBuffer, usage),
		faces:   NewGPUVec(ctx, flattenFaces(faces), gfx.ElementArrayBuffer, usage),
	}
}

// Coords returns the vertex coordinate vector, three floats per vertex.
func (m *Mesh) Coords() *GPUVec[float32] { return m.coords }

// UVs returns the texture coordinate vector, two floats per vertex.
func (m *Mesh) UVs() *GPUVec[float32] { return m.uvs }

// Normals returns the normal vector, three floats per vertex.
func (m *Mesh) Normals() *GPUVec[float32] { return m.normals }

// Faces returns the triangle index vector.
func (m *Mesh) Faces() *GPUVec[uint32] { return m.faces }

// NumIndices returns the number of indices to draw.
func (m *Mesh) NumIndices() int { return m.faces.Len() }

// NumVertices returns the vertex count.
func (m *Mesh) NumVertices() int { return m.coords.Len() / 3 }

// Bind uploads and binds every attribute vector and associates each with its
// shader attribute location.
func (m *Mesh) Bind(ctx gfx.Context, coordsLoc, uvLoc, normalLoc int) {
	m.coords.Bind()
	ctx.VertexAttribPointer(uint32(coordsLoc), 3, gfx.Float, false, 0, 0)
	ctx.EnableVertexAttribArray(uint32(coordsLoc))

	m.uvs.Bind()
	ctx.VertexAttribPointer(uint32(uvLoc), 2, gfx.Float, false, 0, 0)
	ctx.EnableVertexAttribArray(uint32(uvLoc))

	m.normals.Bind()
	ctx.VertexAttribPointer(uint32(normalLoc), 3, gfx.Float, false, 0, 0)
	ctx.EnableVertexAttribArray(uint32(normalLoc))

	m.faces.Bind()
}

// BindCoords binds only the coordinate vector to its attribute location.
func (m *Mesh) BindCoords(ctx gfx.Context, coordsLoc int) {
	m.coords.Bind()
	ctx.VertexAttribPointer(uint32(coordsLoc), 3, gfx.Float, false, 0, 0)
	ctx.EnableVertexAttribArray(uint32(coordsLoc))
}

// Unbind clears the attribute arrays and buffer bindings.
func (m *Mesh) Unbind(ctx gfx.Context, coordsLoc, uvLoc, normalLoc int) {
	ctx.DisableVertexAttribArray(uint32(coordsLoc))
	ctx.DisableVertexAttribArray(uint32(uvLoc))
	ctx.DisableVertexAttribArray(uint32(normalLoc))
	m.coords.Unbind()
	m.faces.Unbind()
}

// Release frees every device buffer the mesh holds.
func (m *Mesh) Release() {
	m.coords.UnloadFromDevice()
	m.uvs.UnloadFromDevice()
	m.normals.UnloadFromDevice()
	m.faces.UnloadFromDevice()
}

// ComputeNormals derives per-vertex normals by accumulating the area-weighted
// face normals around each vertex and normalizing the sums.
func ComputeNormals(coords []mgl32.Vec3, faces [][3]uint32) []mgl32.Vec3 {
	normals := make([]mgl32.Vec3, len(coords))
	for _, f := range faces {
		a, b, c := coords[f[0]], coords[f[1]], coords[f[2]]
		n := b.Sub(a).Cross(c.Sub(a))
		for _, idx := range f {
			normals[idx] = normals[idx].Add(n)
		}
	}
	for i, n := range normals {
		if n.Len() > 0 {
			normals[i] = n.Normalize()
		}
	}
	return normals
}

func flattenVec3(vs []mgl32.Vec3) []float32 {
	out := make([]float32, 0, len(vs)*3)
	for _, v := range vs {
		out = append(out, v[0], v[1], v[2])
	}
	return out
}

func flattenVec2(vs []mgl32.Vec2) []float32 {
	out := make([]float32, 0, len(vs)*2)
	for _, v := range vs {
		out = append(out, v[0], v[1])
	}
	return out
}

func flattenFaces(fs [][3]uint32) []uint32 {
	out := make([]uint32, 0, len(fs)*3)
	for _, f := range fs {
		out = append(out, f[0], f[1], f[2])
	}
	return out
}
