package resource_test

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/prism3d/prism/engine/gfx"
	"github.com/prism3d/prism/engine/gfx/gfxtest"
	"github.com/prism3d/prism/engine/resource"
)

func TestComputeNormals(t *testing.T) {
	// A single CCW triangle in the xy plane faces +z.
	coords := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	faces := [][3]uint32{{0, 1, 2}}

	normals := resource.ComputeNormals(coords, faces)
	if len(normals) != 3 {
		t.Fatalf("got %d normals, want 3", len(normals))
	}
	for i, n := range normals {
		if math.Abs(float64(n.Z()-1)) > 1e-6 || math.Abs(float64(n.X())) > 1e-6 || math.Abs(float64(n.Y())) > 1e-6 {
			t.Errorf("normal %d = %v, want (0, 0, 1)", i, n)
		}
	}
}

func TestMeshUploadsAllAttributes(t *testing.T) {
	dev := gfxtest.NewDevice(800, 600)
	ctx := gfx.NewExplicitContext(dev)

	coords := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	faces := [][3]uint32{{0, 1, 2}}
	mesh := resource.NewMesh(ctx, coords, faces, nil, nil, false)

	if mesh.NumVertices() != 3 {
		t.Errorf("NumVertices = %d, want 3", mesh.NumVertices())
	}
	if mesh.NumIndices() != 3 {
		t.Errorf("NumIndices = %d, want 3", mesh.NumIndices())
	}

	mesh.Bind(ctx, 0, 1, 2)
	// Coordinates, uvs, normals and faces each get a device buffer.
	if dev.BufferAllocs != 4 {
		t.Errorf("device buffers allocated = %d, want 4", dev.BufferAllocs)
	}

	mesh.Release()
	if dev.LiveBuffers() != 0 {
		t.Errorf("%d buffers live after Release, want 0", dev.LiveBuffers())
	}
}
