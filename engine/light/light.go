// Package light models the point light consumed by the built-in materials.
package light

import "github.com/go-gl/mathgl/mgl32"

// Light is a point light. It either sits at a fixed world position or rides
// along with the camera eye.
type Light struct {
	pos    mgl32.Vec3
	follow bool
}

// Absolute returns a light fixed at pos in world space.
func Absolute(pos mgl32.Vec3) Light {
	return Light{pos: pos}
}

// StickToCamera returns a light that tracks the camera eye.
func StickToCamera() Light {
	return Light{follow: true}
}

// Position resolves the light's world position given the current camera eye.
func (l Light) Position(eye mgl32.Vec3) mgl32.Vec3 {
	if l.follow {
		return eye
	}
	return l.pos
}
