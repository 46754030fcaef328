package resource

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/prism3d/prism/engine/gfx"
)

// ObjectData carries the per-object values a material needs for one draw.
type ObjectData struct {
	// Transform is the object's world matrix.
	Transform mgl32.Mat4

	// NTransform is the normal matrix derived from Transform.
	NTransform mgl32.Mat3

	// Scale is the object's non-uniform scale.
	Scale mgl32.Mat3

	// Color modulates the texture.
	Color mgl32.Vec3

	// Texture is the object's texture, or the zero handle for plain white.
	Texture gfx.Texture

	// Instances optionally holds packed per-instance records for instanced
	// draws; nil draws a single instance.
	Instances *GPUVec[float32]

	// Wireframe draws edges instead of filled triangles where the backend
	// supports a polygon-mode toggle.
	Wireframe bool

	// PointsMode draws vertices as points.
	PointsMode bool
}

// Material draws a mesh with a given projection, view and light.
type Material interface {
	Render(ctx gfx.Context, proj, view mgl32.Mat4, lightPos mgl32.Vec3, data *ObjectData, mesh *Mesh)
}

// MaterialManager is a named material registry with a default entry, shared
// by every scene node that does not carry its own material.
type MaterialManager struct {
	mu        sync.Mutex
	materials map[string]Material
	def       Material
}

// NewMaterialManager returns a manager whose default material is def,
// registered under the name "default".
func NewMaterialManager(def Material) *MaterialManager {
	return &MaterialManager{
		materials: map[string]Material{"default": def},
		def:       def,
	}
}

// Register adds or replaces a named material.
func (m *MaterialManager) Register(name string, mat Material) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.materials[name] = mat
}

// Get returns the named material, or the default and false if no material is
// registered under name.
func (m *MaterialManager) Get(name string) (Material, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mat, ok := m.materials[name]; ok {
		return mat, true
	}
	return m.def, false
}

// Default returns the default material.
func (m *MaterialManager) Default() Material {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.def
}
