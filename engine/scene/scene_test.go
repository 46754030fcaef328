package scene_test

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/prism3d/prism/engine/camera"
	"github.com/prism3d/prism/engine/gfx"
	"github.com/prism3d/prism/engine/gfx/gfxtest"
	"github.com/prism3d/prism/engine/light"
	"github.com/prism3d/prism/engine/resource"
	"github.com/prism3d/prism/engine/scene"
)

// recordingMaterial captures the per-object data handed to Render.
type recordingMaterial struct {
	calls  int
	trans  []mgl32.Mat4
	scales []mgl32.Mat3
	colors []mgl32.Vec3
}

func (m *recordingMaterial) Render(_ gfx.Context, _, _ mgl32.Mat4, _ mgl32.Vec3, data *resource.ObjectData, _ *resource.Mesh) {
	m.calls++
	m.trans = append(m.trans, data.Transform)
	m.scales = append(m.scales, data.Scale)
	m.colors = append(m.colors, data.Color)
}

func newTestMesh(ctx gfx.Context) *resource.Mesh {
	coords := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	faces := [][3]uint32{{0, 1, 2}}
	return resource.NewMesh(ctx, coords, faces, nil, nil, false)
}

func vecNear(a, b mgl32.Vec3, eps float32) bool {
	return float32(math.Abs(float64(a.X()-b.X()))) < eps &&
		float32(math.Abs(float64(a.Y()-b.Y()))) < eps &&
		float32(math.Abs(float64(a.Z()-b.Z()))) < eps
}

func worldPos(m mgl32.Mat4) mgl32.Vec3 {
	return mgl32.Vec3{m.At(0, 3), m.At(1, 3), m.At(2, 3)}
}

func TestUpdatePropagatesWorldTransforms(t *testing.T) {
	mgr := resource.NewMaterialManager(&recordingMaterial{})
	s := scene.NewScene(mgr)

	child := s.Root().AddChild()
	child.SetTranslation(mgl32.Vec3{1, 0, 0})
	child.SetRotation(mgl32.QuatRotate(float32(math.Pi/2), mgl32.Vec3{0, 0, 1}))

	grandchild := child.AddChild()
	grandchild.SetTranslation(mgl32.Vec3{1, 0, 0})

	s.Update()

	// The grandchild's local +x offset rotates onto +y before the parent's
	// translation applies.
	got := worldPos(grandchild.World())
	want := mgl32.Vec3{1, 1, 0}
	if !vecNear(got, want, 1e-5) {
		t.Errorf("grandchild world position = %v, want %v", got, want)
	}
	if got := worldPos(child.World()); !vecNear(got, mgl32.Vec3{1, 0, 0}, 1e-5) {
		t.Errorf("child world position = %v, want {1 0 0}", got)
	}
}

func TestUpdateParallelMatchesSequential(t *testing.T) {
	mgr := resource.NewMaterialManager(&recordingMaterial{})
	s := scene.NewScene(mgr, scene.WithComputeWorkers(4))

	// Wide tree well above the fan-out threshold: 8 subtrees of 16 nodes.
	var leaves []*scene.Node
	var offsets []mgl32.Vec3
	for i := 0; i < 8; i++ {
		n := s.Root().AddChild()
		base := mgl32.Vec3{float32(i), 0, 0}
		n.SetTranslation(base)
		sum := base
		for j := 0; j < 15; j++ {
			n = n.AddChild()
			step := mgl32.Vec3{0, 1, 0}
			n.SetTranslation(step)
			sum = sum.Add(step)
		}
		leaves = append(leaves, n)
		offsets = append(offsets, sum)
	}

	s.Update()

	for i, leaf := range leaves {
		if got := worldPos(leaf.World()); !vecNear(got, offsets[i], 1e-5) {
			t.Errorf("leaf %d world position = %v, want %v", i, got, offsets[i])
		}
	}
}

func TestRenderSkipsInvisibleSubtrees(t *testing.T) {
	dev := gfxtest.NewDevice(640, 480)
	ctx := gfx.NewExplicitContext(dev)

	mat := &recordingMaterial{}
	mgr := resource.NewMaterialManager(mat)
	s := scene.NewScene(mgr)

	visible := s.Root().AddObject(newTestMesh(ctx), "default")
	visible.SetColor(1, 0, 0)

	hidden := s.Root().AddChild()
	hidden.SetVisible(false)
	hidden.AddObject(newTestMesh(ctx), "default")

	cam := camera.NewArcBall(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{0, 0, 0})
	s.Update()
	s.Render(ctx, cam, light.StickToCamera())

	if mat.calls != 1 {
		t.Fatalf("material rendered %d objects, want 1", mat.calls)
	}
	if got := mat.colors[0]; !vecNear(got, mgl32.Vec3{1, 0, 0}, 1e-6) {
		t.Errorf("rendered color = %v, want {1 0 0}", got)
	}
}

func TestRenderFillsScaleFromNode(t *testing.T) {
	dev := gfxtest.NewDevice(640, 480)
	ctx := gfx.NewExplicitContext(dev)

	mat := &recordingMaterial{}
	mgr := resource.NewMaterialManager(mat)
	s := scene.NewScene(mgr)

	n := s.Root().AddObject(newTestMesh(ctx), "missing-material-name")
	n.SetScale(mgl32.Vec3{2, 3, 4})

	cam := camera.NewArcBall(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{0, 0, 0})
	s.Update()
	s.Render(ctx, cam, light.Absolute(mgl32.Vec3{0, 10, 0}))

	// Unregistered names fall back to the default material.
	if mat.calls != 1 {
		t.Fatalf("material rendered %d objects, want 1", mat.calls)
	}
	want := mgl32.Diag3(mgl32.Vec3{2, 3, 4})
	if mat.scales[0] != want {
		t.Errorf("scale matrix = %v, want %v", mat.scales[0], want)
	}
}
