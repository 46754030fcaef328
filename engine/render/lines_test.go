package render_test

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/prism3d/prism/engine/gfx"
	"github.com/prism3d/prism/engine/gfx/gfxtest"
	"github.com/prism3d/prism/engine/render"
)

func TestLineRendererAccumulatesAndTruncates(t *testing.T) {
	dev := gfxtest.NewDevice(800, 600)
	ctx := gfx.NewExplicitContext(dev)

	r, err := render.NewLineRenderer(ctx)
	if err != nil {
		t.Fatalf("NewLineRenderer: %v", err)
	}

	r.DrawLine(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{1, 1, 1})
	r.DrawLine(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0})
	if r.NumSegments() != 2 {
		t.Errorf("NumSegments = %d, want 2", r.NumSegments())
	}

	r.Render(ctx, mgl32.Ident4(), mgl32.Ident4())
	if r.NumSegments() != 0 {
		t.Errorf("NumSegments after Render = %d, want 0", r.NumSegments())
	}
}

// Steady per-frame streaming must settle on a single device allocation.
func TestLineRendererSteadyStateReusesBuffer(t *testing.T) {
	dev := gfxtest.NewDevice(800, 600)
	ctx := gfx.NewExplicitContext(dev)

	r, err := render.NewLineRenderer(ctx)
	if err != nil {
		t.Fatalf("NewLineRenderer: %v", err)
	}

	var allocsAfterFirst int
	for frame := 0; frame < 10; frame++ {
		for i := 0; i < 8; i++ {
			r.DrawLine(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 1, 1}, mgl32.Vec3{1, 1, 1})
		}
		r.Render(ctx, mgl32.Ident4(), mgl32.Ident4())
		if frame == 0 {
			allocsAfterFirst = dev.BufferAllocs
		}
	}
	if dev.BufferAllocs != allocsAfterFirst {
		t.Errorf("steady-state streaming allocated: %d allocs, want %d",
			dev.BufferAllocs, allocsAfterFirst)
	}
}

func TestPointRendererAccumulates(t *testing.T) {
	dev := gfxtest.NewDevice(800, 600)
	ctx := gfx.NewExplicitContext(dev)

	r, err := render.NewPointRenderer(ctx)
	if err != nil {
		t.Fatalf("NewPointRenderer: %v", err)
	}

	r.DrawPoint(mgl32.Vec3{1, 2, 3}, mgl32.Vec3{1, 0, 0})
	if r.NumPoints() != 1 {
		t.Errorf("NumPoints = %d, want 1", r.NumPoints())
	}
	r.Render(ctx, mgl32.Ident4(), mgl32.Ident4())
	if r.NumPoints() != 0 {
		t.Errorf("NumPoints after Render = %d, want 0", r.NumPoints())
	}
}
