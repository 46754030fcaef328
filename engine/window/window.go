// Package window owns the GLFW window, the rendering context for the
// configured backend, and the per-frame loop driving the scene.
package window

import (
	"fmt"
	"runtime"

	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/prism3d/prism/engine/builtin"
	"github.com/prism3d/prism/engine/camera"
	"github.com/prism3d/prism/engine/gfx"
	"github.com/prism3d/prism/engine/light"
	"github.com/prism3d/prism/engine/profiler"
	"github.com/prism3d/prism/engine/render"
	"github.com/prism3d/prism/engine/resource"
	"github.com/prism3d/prism/engine/scene"
)

const (
	rotateSensitivity = 0.005
	panSensitivity    = 0.01
	zoomSensitivity   = 0.1
)

// Window couples a GLFW window with the rendering context of the configured
// backend and the scene rendered into it each frame. It must be created and
// run on the main goroutine.
type Window struct {
	cfg Config
	win *glfw.Window

	ctx     gfx.Context
	dialect builtin.Dialect

	scn    *scene.Scene
	cam    *camera.ArcBall
	lt     light.Light
	lines  *render.LineRenderer
	points *render.PointRenderer
	prof   *profiler.Profiler

	clearColor [3]float32
	width      int
	height     int

	rotating bool
	panning  bool
	lastX    float64
	lastY    float64
}

// Open creates a window using prism.toml next to the binary if present, with
// the given title overriding the configured one.
func Open(title string) (*Window, error) {
	cfg, err := LoadConfig(DefaultConfigFile)
	if err != nil {
		return nil, err
	}
	if title != "" {
		cfg.Title = title
	}
	return New(cfg)
}

// New creates a window and its rendering context per cfg.
func New(cfg Config) (*Window, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("initializing GLFW: %w", err)
	}

	switch cfg.Backend {
	case BackendExplicit:
		// The explicit backend brings its own graphics API; no GL context.
		glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	case BackendImmediate:
		glfw.WindowHint(glfw.ContextVersionMajor, 4)
		glfw.WindowHint(glfw.ContextVersionMinor, 1)
		glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
		glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	}

	win, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("creating window: %w", err)
	}

	// Framebuffer size may differ from the requested size on high-DPI
	// displays; the surface wants pixel dimensions.
	fbWidth, fbHeight := win.GetFramebufferSize()

	w := &Window{
		cfg:        cfg,
		win:        win,
		lt:         light.StickToCamera(),
		clearColor: cfg.ClearColor,
		width:      fbWidth,
		height:     fbHeight,
	}

	switch cfg.Backend {
	case BackendExplicit:
		w.ctx, err = gfx.NewWebGPUContext(wgpuglfw.GetSurfaceDescriptor(win), fbWidth, fbHeight)
		w.dialect = builtin.WGSL
	case BackendImmediate:
		win.MakeContextCurrent()
		if cfg.VSync {
			glfw.SwapInterval(1)
		} else {
			glfw.SwapInterval(0)
		}
		w.ctx, err = gfx.NewGLContext()
		w.dialect = builtin.GLSL
	}
	if err != nil {
		win.Destroy()
		glfw.Terminate()
		return nil, fmt.Errorf("creating %s context: %w", cfg.Backend, err)
	}

	if err := w.initScene(); err != nil {
		win.Destroy()
		glfw.Terminate()
		return nil, err
	}

	w.cam = camera.NewArcBall(mgl32.Vec3{0, 0, 5}, mgl32.Vec3{0, 0, 0})
	w.cam.SetAspect(fbWidth, fbHeight)
	w.installCallbacks()

	if cfg.Profile {
		w.prof = profiler.New()
	}

	return w, nil
}

func (w *Window) initScene() error {
	objectMat, err := builtin.NewObjectMaterial(w.ctx, w.dialect)
	if err != nil {
		return fmt.Errorf("building object material: %w", err)
	}
	w.scn = scene.NewScene(resource.NewMaterialManager(objectMat))

	w.lines, err = render.NewLineRenderer(w.ctx)
	if err != nil {
		return fmt.Errorf("building line renderer: %w", err)
	}
	w.points, err = render.NewPointRenderer(w.ctx)
	if err != nil {
		return fmt.Errorf("building point renderer: %w", err)
	}
	return nil
}

func (w *Window) installCallbacks() {
	w.win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			w.win.SetShouldClose(true)
		}
	})

	w.win.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		pressed := action == glfw.Press
		switch button {
		case glfw.MouseButtonLeft:
			w.rotating = pressed
		case glfw.MouseButtonRight, glfw.MouseButtonMiddle:
			w.panning = pressed
		}
		if pressed {
			w.lastX, w.lastY = w.win.GetCursorPos()
		}
	})

	w.win.SetCursorPosCallback(func(_ *glfw.Window, xpos, ypos float64) {
		dx := float32(xpos - w.lastX)
		dy := float32(ypos - w.lastY)
		w.lastX, w.lastY = xpos, ypos
		if w.rotating {
			w.cam.Rotate(dx*rotateSensitivity, -dy*rotateSensitivity)
		}
		if w.panning {
			w.cam.Pan(-dx*panSensitivity, dy*panSensitivity)
		}
	})

	w.win.SetScrollCallback(func(_ *glfw.Window, _, yoff float64) {
		w.cam.Zoom(1 - float32(yoff)*zoomSensitivity)
	})

	w.win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		if width <= 0 || height <= 0 {
			return
		}
		w.width = width
		w.height = height
		w.cam.SetAspect(width, height)
		if r, ok := w.ctx.(interface{ Resize(int, int) }); ok {
			r.Resize(width, height)
		}
	})
}

// Context returns the rendering context.
func (w *Window) Context() gfx.Context { return w.ctx }

// Scene returns the scene rendered each frame.
func (w *Window) Scene() *scene.Scene { return w.scn }

// Camera returns the arc-ball camera driven by the window's input.
func (w *Window) Camera() *camera.ArcBall { return w.cam }

// Dialect reports the shader dialect of the active backend, for callers
// registering their own materials.
func (w *Window) Dialect() builtin.Dialect { return w.dialect }

// SetLight replaces the scene light.
func (w *Window) SetLight(lt light.Light) { w.lt = lt }

// SetClearColor sets the frame clear color.
func (w *Window) SetClearColor(r, g, b float32) {
	w.clearColor = [3]float32{r, g, b}
}

// DrawLine queues a world-space line segment for this frame.
func (w *Window) DrawLine(a, b, color mgl32.Vec3) {
	w.lines.DrawLine(a, b, color)
}

// DrawPoint queues a world-space point for this frame.
func (w *Window) DrawPoint(p, color mgl32.Vec3) {
	w.points.DrawPoint(p, color)
}

// Run drives the frame loop until the window closes: poll events, call the
// user frame function, update and render the scene, bracket the frame. The
// frame function may be nil.
func (w *Window) Run(frame func(*Window)) error {
	defer w.Close()

	for !w.win.ShouldClose() {
		glfw.PollEvents()

		if frame != nil {
			frame(w)
		}

		w.scn.Update()

		if err := w.ctx.BeginFrame(); err != nil {
			return fmt.Errorf("beginning frame: %w", err)
		}
		w.ctx.Viewport(0, 0, w.width, w.height)
		w.ctx.ClearColor(w.clearColor[0], w.clearColor[1], w.clearColor[2], 1)
		w.ctx.Clear(gfx.ColorBufferBit | gfx.DepthBufferBit)

		w.scn.Render(w.ctx, w.cam, w.lt)

		proj, view := w.cam.Proj(), w.cam.View()
		w.lines.Render(w.ctx, proj, view)
		w.points.Render(w.ctx, proj, view)

		w.ctx.EndFrame()
		if w.cfg.Backend == BackendImmediate {
			w.win.SwapBuffers()
		}

		if w.prof != nil {
			w.prof.Tick()
		}
	}
	return nil
}

// Close releases the scene's device resources and tears the window down.
// Run calls it on exit; calling it again is a no-op.
func (w *Window) Close() {
	if w.win == nil {
		return
	}
	w.scn.Release()
	w.win.Destroy()
	glfw.Terminate()
	w.win = nil
}
