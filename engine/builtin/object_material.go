package builtin

import (
	_ "embed"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/prism3d/prism/engine/gfx"
	"github.com/prism3d/prism/engine/resource"
)

//go:embed assets/object.wgsl
var objectWGSL string

//go:embed assets/object.vert
var objectVert string

//go:embed assets/object.frag
var objectFrag string

// instanceStride is the byte stride of one packed per-instance record:
// translation, color, and a 3x3 deformation as three row vectors.
const instanceStride = 60

// ObjectMaterial is the standard material for textured, lit triangle meshes.
// It uploads the camera, light and object transforms as uniforms, binds the
// mesh attributes and issues an indexed draw, instanced when the object
// carries instance data.
type ObjectMaterial struct {
	prog gfx.Program

	positionLoc int
	uvLoc       int
	normalLoc   int

	proj       gfx.UniformLocation
	view       gfx.UniformLocation
	transform  gfx.UniformLocation
	ntransform gfx.UniformLocation
	scale      gfx.UniformLocation
	lightPos   gfx.UniformLocation
	color      gfx.UniformLocation
}

var _ resource.Material = (*ObjectMaterial)(nil)

// NewObjectMaterial compiles the object shader in the given dialect.
func NewObjectMaterial(ctx gfx.Context, dialect Dialect) (*ObjectMaterial, error) {
	var prog gfx.Program
	var err error
	if dialect == WGSL {
		prog, err = newProgram(ctx, objectWGSL, objectWGSL)
	} else {
		prog, err = newProgram(ctx, objectVert, objectFrag)
	}
	if err != nil {
		return nil, err
	}

	m := &ObjectMaterial{
		prog:        prog,
		positionLoc: ctx.GetAttribLocation(prog, "position"),
		uvLoc:       ctx.GetAttribLocation(prog, "uv"),
		normalLoc:   ctx.GetAttribLocation(prog, "normal"),
	}
	m.proj, _ = ctx.GetUniformLocation(prog, "proj")
	m.view, _ = ctx.GetUniformLocation(prog, "view")
	m.transform, _ = ctx.GetUniformLocation(prog, "transform")
	m.ntransform, _ = ctx.GetUniformLocation(prog, "ntransform")
	m.scale, _ = ctx.GetUniformLocation(prog, "scale")
	m.lightPos, _ = ctx.GetUniformLocation(prog, "light_position")
	m.color, _ = ctx.GetUniformLocation(prog, "color")
	return m, nil
}

func (m *ObjectMaterial) Render(ctx gfx.Context, proj, view mgl32.Mat4, lightPos mgl32.Vec3, data *resource.ObjectData, mesh *resource.Mesh) {
	ctx.UseProgram(m.prog)
	ctx.Enable(gfx.DepthTest)
	ctx.Enable(gfx.CullFace)
	ctx.CullFace(gfx.Back)
	ctx.FrontFace(gfx.CCW)
	ctx.DepthFunc(gfx.LEqual)

	ctx.UniformMatrix4(m.proj, proj)
	ctx.UniformMatrix4(m.view, view)
	ctx.UniformMatrix4(m.transform, data.Transform)
	ctx.UniformMatrix3(m.ntransform, data.NTransform)
	ctx.UniformMatrix3(m.scale, data.Scale)
	ctx.Uniform3f(m.lightPos, lightPos.X(), lightPos.Y(), lightPos.Z())
	ctx.Uniform3f(m.color, data.Color.X(), data.Color.Y(), data.Color.Z())

	ctx.ActiveTexture(0)
	ctx.BindTexture(gfx.Texture2D, data.Texture)

	mesh.Bind(ctx, m.positionLoc, m.uvLoc, m.normalLoc)

	switch {
	case data.Wireframe:
		ctx.PolygonMode(gfx.FrontAndBack, gfx.Line)
	case data.PointsMode:
		ctx.PolygonMode(gfx.FrontAndBack, gfx.Point)
		ctx.Enable(gfx.ProgramPointSize)
	default:
		ctx.PolygonMode(gfx.FrontAndBack, gfx.Fill)
	}

	if data.Instances != nil && data.Instances.Len() > 0 {
		m.bindInstances(ctx, data.Instances)
		count := data.Instances.Len() * 4 / instanceStride
		ctx.DrawElementsInstanced(gfx.Triangles, mesh.NumIndices(), gfx.UnsignedInt, 0, count)
		m.unbindInstances(ctx)
	} else {
		ctx.DrawElements(gfx.Triangles, mesh.NumIndices(), gfx.UnsignedInt, 0)
	}

	ctx.PolygonMode(gfx.FrontAndBack, gfx.Fill)
	mesh.Unbind(ctx, m.positionLoc, m.uvLoc, m.normalLoc)
}

// bindInstances binds the packed instance buffer and points the per-instance
// attributes into it: translation, color and the three deformation rows.
func (m *ObjectMaterial) bindInstances(ctx gfx.Context, instances *resource.GPUVec[float32]) {
	instances.Bind()
	attribs := []struct {
		loc    uint32
		size   int
		offset int
	}{
		{3, 3, 0},
		{4, 4, 12},
		{5, 3, 28},
		{6, 3, 40},
		{7, 3, 52},
	}
	for _, a := range attribs {
		ctx.VertexAttribPointer(a.loc, a.size, gfx.Float, false, instanceStride, a.offset)
		ctx.EnableVertexAttribArray(a.loc)
		ctx.VertexAttribDivisor(a.loc, 1)
	}
}

func (m *ObjectMaterial) unbindInstances(ctx gfx.Context) {
	for loc := uint32(3); loc <= 7; loc++ {
		ctx.VertexAttribDivisor(loc, 0)
		ctx.DisableVertexAttribArray(loc)
	}
}
