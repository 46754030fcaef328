package resource

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/prism3d/prism/engine/gfx"
)

// NewCube returns a box mesh centered at the origin with the given extents,
// four vertices per face so normals and uvs stay flat.
func NewCube(ctx gfx.Context, extents mgl32.Vec3) *Mesh {
	hx, hy, hz := extents.X()/2, extents.Y()/2, extents.Z()/2

	faces := []struct {
		normal mgl32.Vec3
		// corners wind counterclockwise seen from outside
		corners [4]mgl32.Vec3
	}{
		{mgl32.Vec3{0, 0, 1}, [4]mgl32.Vec3{{-hx, -hy, hz}, {hx, -hy, hz}, {hx, hy, hz}, {-hx, hy, hz}}},
		{mgl32.Vec3{0, 0, -1}, [4]mgl32.Vec3{{hx, -hy, -hz}, {-hx, -hy, -hz}, {-hx, hy, -hz}, {hx, hy, -hz}}},
		{mgl32.Vec3{1, 0, 0}, [4]mgl32.Vec3{{hx, -hy, hz}, {hx, -hy, -hz}, {hx, hy, -hz}, {hx, hy, hz}}},
		{mgl32.Vec3{-1, 0, 0}, [4]mgl32.Vec3{{-hx, -hy, -hz}, {-hx, -hy, hz}, {-hx, hy, hz}, {-hx, hy, -hz}}},
		{mgl32.Vec3{0, 1, 0}, [4]mgl32.Vec3{{-hx, hy, hz}, {hx, hy, hz}, {hx, hy, -hz}, {-hx, hy, -hz}}},
		{mgl32.Vec3{0, -1, 0}, [4]mgl32.Vec3{{-hx, -hy, -hz}, {hx, -hy, -hz}, {hx, -hy, hz}, {-hx, -hy, hz}}},
	}
	faceUVs := [4]mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

	coords := make([]mgl32.Vec3, 0, 24)
	normals := make([]mgl32.Vec3, 0, 24)
	uvs := make([]mgl32.Vec2, 0, 24)
	idx := make([][3]uint32, 0, 12)
	for _, f := range faces {
		base := uint32(len(coords))
		for i, c := range f.corners {
			coords = append(coords, c)
			normals = append(normals, f.normal)
			uvs = append(uvs, faceUVs[i])
		}
		idx = append(idx, [3]uint32{base, base + 1, base + 2}, [3]uint32{base, base + 2, base + 3})
	}
	return NewMesh(ctx, coords, idx, uvs, normals, false)
}

// NewSphere returns a uv sphere of the given radius. slices are longitudinal
// segments, stacks latitudinal; both are clamped to a minimum of 3 and 2.
func NewSphere(ctx gfx.Context, radius float32, slices, stacks int) *Mesh {
	if slices < 3 {
		slices = 3
	}
	if stacks < 2 {
		stacks = 2
	}

	var coords []mgl32.Vec3
	var normals []mgl32.Vec3
	var uvs []mgl32.Vec2
	for i := 0; i <= stacks; i++ {
		theta := float64(i) / float64(stacks) * math.Pi
		y := float32(math.Cos(theta))
		r := float32(math.Sin(theta))
		for j := 0; j <= slices; j++ {
			phi := float64(j) / float64(slices) * 2 * math.Pi
			n := mgl32.Vec3{r * float32(math.Cos(phi)), y, r * float32(math.Sin(phi))}
			coords = append(coords, n.Mul(radius))
			normals = append(normals, n)
			uvs = append(uvs, mgl32.Vec2{float32(j) / float32(slices), float32(i) / float32(stacks)})
		}
	}

	var idx [][3]uint32
	ring := uint32(slices + 1)
	for i := 0; i < stacks; i++ {
		for j := 0; j < slices; j++ {
			a := uint32(i)*ring + uint32(j)
			b := a + ring
			idx = append(idx, [3]uint32{a, a + 1, b}, [3]uint32{a + 1, b + 1, b})
		}
	}
	return NewMesh(ctx, coords, idx, uvs, normals, false)
}

// NewQuad returns a subdivided rectangle in the xy plane facing +z.
func NewQuad(ctx gfx.Context, width, height float32, usub, vsub int) *Mesh {
	if usub < 1 {
		usub = 1
	}
	if vsub < 1 {
		vsub = 1
	}

	var coords []mgl32.Vec3
	var normals []mgl32.Vec3
	var uvs []mgl32.Vec2
	for i := 0; i <= vsub; i++ {
		v := float32(i) / float32(vsub)
		for j := 0; j <= usub; j++ {
			u := float32(j) / float32(usub)
			coords = append(coords, mgl32.Vec3{(u - 0.5) * width, (v - 0.5) * height, 0})
			normals = append(normals, mgl32.Vec3{0, 0, 1})
			uvs = append(uvs, mgl32.Vec2{u, v})
		}
	}

	var idx [][3]uint32
	ring := uint32(usub + 1)
	for i := 0; i < vsub; i++ {
		for j := 0; j < usub; j++ {
			a := uint32(i)*ring + uint32(j)
			b := a + ring
			idx = append(idx, [3]uint32{a, a + 1, b}, [3]uint32{a + 1, b + 1, b})
		}
	}
	return NewMesh(ctx, coords, idx, uvs, normals, false)
}
