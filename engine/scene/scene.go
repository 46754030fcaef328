package scene

import (
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/prism3d/prism/engine/camera"
	"github.com/prism3d/prism/engine/gfx"
	"github.com/prism3d/prism/engine/light"
	"github.com/prism3d/prism/engine/resource"
)

// parallelThreshold is the node count above which transform propagation fans
// out across the compute pool, one task per root subtree. Small trees stay on
// the calling goroutine where the fan-out overhead is not worth paying.
const parallelThreshold = 64

// Scene owns the node tree and the material registry used to draw it. Update
// recomputes world matrices, Render walks the tree and hands each visible
// object to its material.
type Scene struct {
	root      *Node
	materials *resource.MaterialManager

	// computePool runs transform propagation for large trees. Workers persist
	// across frames, avoiding per-frame goroutine spawn/teardown overhead.
	computePool    worker.DynamicWorkerPool
	computeWorkers int
}

// Option configures a Scene during construction.
type Option func(*Scene)

// WithComputeWorkers overrides the worker count used for parallel transform
// propagation. Values below one are ignored.
func WithComputeWorkers(n int) Option {
	return func(s *Scene) {
		if n >= 1 {
			s.computeWorkers = n
		}
	}
}

// NewScene returns a scene with an empty root node.
func NewScene(materials *resource.MaterialManager, options ...Option) *Scene {
	s := &Scene{
		root:           newNode(nil),
		materials:      materials,
		computeWorkers: max(runtime.NumCPU()-1, 1),
	}
	for _, option := range options {
		option(s)
	}

	// Initialize the compute pool after options so WithComputeWorkers can
	// override the default. Queue size of 256 accommodates typical subtree
	// counts with headroom.
	s.computePool = worker.NewDynamicWorkerPool(s.computeWorkers, 256, 1*time.Second)
	return s
}

// Root returns the tree root. Attach nodes and objects under it.
func (s *Scene) Root() *Node { return s.root }

// Materials returns the scene's material registry.
func (s *Scene) Materials() *resource.MaterialManager { return s.materials }

// Update recomputes every node's world matrix from its local transform.
// Large trees propagate one root subtree per pool task, with a WaitGroup
// providing the per-frame barrier.
func (s *Scene) Update() {
	s.root.world = s.root.local()
	if len(s.root.children) < 2 || s.root.count() <= parallelThreshold {
		for _, c := range s.root.children {
			c.propagate(s.root.world)
		}
		return
	}

	var wg sync.WaitGroup
	taskID := 0
	for _, c := range s.root.children {
		wg.Add(1)
		child := c // capture for closure
		id := taskID
		taskID++
		s.computePool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				child.propagate(s.root.world)
				return nil, nil
			},
		})
	}
	wg.Wait()
}

// Render draws every visible object node using its registered material. The
// caller brackets this with the context's BeginFrame/EndFrame.
func (s *Scene) Render(ctx gfx.Context, cam *camera.ArcBall, lt light.Light) {
	proj := cam.Proj()
	view := cam.View()
	lightPos := lt.Position(cam.Eye())
	s.renderNode(ctx, s.root, proj, view, lightPos)
}

func (s *Scene) renderNode(ctx gfx.Context, n *Node, proj, view mgl32.Mat4, lightPos mgl32.Vec3) {
	if !n.visible {
		return
	}
	if n.object != nil && n.object.Mesh != nil {
		mat, _ := s.materials.Get(n.object.Material)
		data := &n.object.Data
		data.Transform = n.world
		data.NTransform = n.world.Mat3()
		data.Scale = mgl32.Diag3(n.scale)
		mat.Render(ctx, proj, view, lightPos, data, n.object.Mesh)
	}
	for _, c := range n.children {
		s.renderNode(ctx, c, proj, view, lightPos)
	}
}

// Release frees every mesh in the tree.
func (s *Scene) Release() {
	s.root.Release()
}
