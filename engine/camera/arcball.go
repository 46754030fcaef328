// Package camera provides the engine's camera models. ArcBall orbits a focus
// point and is what the examples and the default window loop drive.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	defaultFOVy  = math.Pi / 4
	defaultZNear = 0.1
	defaultZFar  = 1024.0

	minPitch = 0.01
	maxPitch = math.Pi - 0.01
	minDist  = 0.00001
)

// ArcBall is a camera orbiting a focus point at a fixed distance, steered in
// yaw and pitch. Projection parameters follow the tracked surface aspect.
type ArcBall struct {
	at    mgl32.Vec3
	yaw   float32
	pitch float32
	dist  float32

	fovy   float32
	znear  float32
	zfar   float32
	aspect float32
}

// NewArcBall returns a camera at eye looking at the focus point at.
func NewArcBall(eye, at mgl32.Vec3) *ArcBall {
	c := &ArcBall{
		at:     at,
		fovy:   defaultFOVy,
		znear:  defaultZNear,
		zfar:   defaultZFar,
		aspect: 4.0 / 3.0,
	}
	c.LookAt(eye, at)
	return c
}

// LookAt repositions the camera at eye looking at the focus point at.
func (c *ArcBall) LookAt(eye, at mgl32.Vec3) {
	d := eye.Sub(at)
	c.at = at
	c.dist = d.Len()
	if c.dist < minDist {
		c.dist = minDist
	}
	c.yaw = float32(math.Atan2(float64(d.Z()), float64(d.X())))
	c.pitch = float32(math.Acos(float64(d.Y()) / float64(c.dist)))
	c.clamp()
}

// Eye returns the camera position in world space.
func (c *ArcBall) Eye() mgl32.Vec3 {
	px := c.dist * float32(math.Sin(float64(c.pitch))*math.Cos(float64(c.yaw)))
	py := c.dist * float32(math.Cos(float64(c.pitch)))
	pz := c.dist * float32(math.Sin(float64(c.pitch))*math.Sin(float64(c.yaw)))
	return c.at.Add(mgl32.Vec3{px, py, pz})
}

// At returns the focus point.
func (c *ArcBall) At() mgl32.Vec3 { return c.at }

// View returns the view matrix.
func (c *ArcBall) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Eye(), c.at, mgl32.Vec3{0, 1, 0})
}

// Proj returns the projection matrix for the tracked aspect ratio.
func (c *ArcBall) Proj() mgl32.Mat4 {
	return mgl32.Perspective(c.fovy, c.aspect, c.znear, c.zfar)
}

// Rotate orbits the camera by the given yaw and pitch deltas, in radians.
func (c *ArcBall) Rotate(dyaw, dpitch float32) {
	c.yaw += dyaw
	c.pitch += dpitch
	c.clamp()
}

// Zoom scales the orbit distance; factors below one move closer.
func (c *ArcBall) Zoom(factor float32) {
	c.dist *= factor
	c.clamp()
}

// Pan translates the focus point in the camera's right/up plane.
func (c *ArcBall) Pan(dx, dy float32) {
	view := c.View()
	right := mgl32.Vec3{view.At(0, 0), view.At(0, 1), view.At(0, 2)}
	up := mgl32.Vec3{view.At(1, 0), view.At(1, 1), view.At(1, 2)}
	c.at = c.at.Add(right.Mul(dx)).Add(up.Mul(dy))
}

// SetAspect updates the projection aspect ratio from surface dimensions.
func (c *ArcBall) SetAspect(width, height int) {
	if height <= 0 {
		return
	}
	c.aspect = float32(width) / float32(height)
}

func (c *ArcBall) clamp() {
	if c.pitch < minPitch {
		c.pitch = minPitch
	}
	if c.pitch > maxPitch {
		c.pitch = maxPitch
	}
	if c.dist < minDist {
		c.dist = minDist
	}
}
