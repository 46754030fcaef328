// Package scene provides the node tree the engine renders each frame. Nodes
// carry a local translation/rotation/scale; world matrices are recomputed on
// Update and flow top-down. Object nodes pair a mesh with a named material
// and per-object render data.
package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/prism3d/prism/engine/resource"
)

// Object is the renderable payload of a node: a mesh, the registered name of
// the material drawing it, and the per-object data handed to that material.
type Object struct {
	Mesh     *resource.Mesh
	Material string
	Data     resource.ObjectData
}

// Node is a scene graph node. The local transform composes as
// translate * rotate; scale is node-local and does not propagate to children,
// it is passed to the material as its own matrix.
type Node struct {
	translation mgl32.Vec3
	rotation    mgl32.Quat
	scale       mgl32.Vec3

	world   mgl32.Mat4
	visible bool

	parent   *Node
	children []*Node
	object   *Object
}

func newNode(parent *Node) *Node {
	return &Node{
		rotation: mgl32.QuatIdent(),
		scale:    mgl32.Vec3{1, 1, 1},
		world:    mgl32.Ident4(),
		visible:  true,
		parent:   parent,
	}
}

// AddChild creates and returns a new empty child node.
func (n *Node) AddChild() *Node {
	c := newNode(n)
	n.children = append(n.children, c)
	return c
}

// AddObject creates a child node carrying the given mesh and material.
func (n *Node) AddObject(mesh *resource.Mesh, material string) *Node {
	c := n.AddChild()
	c.object = &Object{
		Mesh:     mesh,
		Material: material,
		Data: resource.ObjectData{
			Color: mgl32.Vec3{1, 1, 1},
		},
	}
	return c
}

// Object returns the node's renderable payload, or nil for group nodes.
func (n *Node) Object() *Object { return n.object }

// Children returns the node's direct children.
func (n *Node) Children() []*Node { return n.children }

// Translation returns the node's local translation.
func (n *Node) Translation() mgl32.Vec3 { return n.translation }

// SetTranslation sets the node's local translation.
func (n *Node) SetTranslation(t mgl32.Vec3) { n.translation = t }

// Rotation returns the node's local rotation.
func (n *Node) Rotation() mgl32.Quat { return n.rotation }

// SetRotation sets the node's local rotation.
func (n *Node) SetRotation(q mgl32.Quat) { n.rotation = q }

// Rotate composes an additional rotation onto the node's local rotation.
func (n *Node) Rotate(q mgl32.Quat) { n.rotation = q.Mul(n.rotation) }

// Scale returns the node's local scale.
func (n *Node) Scale() mgl32.Vec3 { return n.scale }

// SetScale sets the node's local scale.
func (n *Node) SetScale(s mgl32.Vec3) { n.scale = s }

// SetColor sets the object color. No-op on group nodes.
func (n *Node) SetColor(r, g, b float32) {
	if n.object != nil {
		n.object.Data.Color = mgl32.Vec3{r, g, b}
	}
}

// Visible reports whether the node and its subtree are rendered.
func (n *Node) Visible() bool { return n.visible }

// SetVisible toggles rendering of the node and its subtree.
func (n *Node) SetVisible(v bool) { n.visible = v }

// World returns the world matrix computed by the last Update.
func (n *Node) World() mgl32.Mat4 { return n.world }

// local returns the rigid part of the node's transform. Scale is kept out of
// the hierarchy and delivered to the material separately.
func (n *Node) local() mgl32.Mat4 {
	return mgl32.Translate3D(n.translation.X(), n.translation.Y(), n.translation.Z()).
		Mul4(n.rotation.Mat4())
}

func (n *Node) propagate(parentWorld mgl32.Mat4) {
	n.world = parentWorld.Mul4(n.local())
	for _, c := range n.children {
		c.propagate(n.world)
	}
}

func (n *Node) count() int {
	total := 1
	for _, c := range n.children {
		total += c.count()
	}
	return total
}

// Release frees the device resources of every mesh in the subtree.
func (n *Node) Release() {
	for _, c := range n.children {
		c.Release()
	}
	if n.object != nil && n.object.Mesh != nil {
		n.object.Mesh.Release()
	}
}
