// Package camera is a fly camera with yaw/pitch Euler angles, the source of
// the view and projection matrices for every render pass.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/chazu/cityview/pkg/kernel"
)

const (
	DefaultYaw         = -90.0
	DefaultPitch       = 0.0
	DefaultZoom        = 45.0
	MaxZoom            = 90.0
	MinZoom            = 1.0
	DefaultSpeed       = 35.0
	DefaultSensitivity = 0.1
	MaxPitch           = 89.0

	Near = 1.0
	Far  = 1000.0
)

// Direction is a keyboard movement direction.
type Direction int

const (
	Left Direction = iota
	Right
	Backward
	Forward
)

// Pose is the restorable part of the camera state.
type Pose struct {
	Position kernel.Vec3 `json:"position"`
	Yaw      float64     `json:"yaw"`
	Pitch    float64     `json:"pitch"`
	Zoom     float64     `json:"zoom"`
}

// Camera is not safe for concurrent use; the session serializes access.
type Camera struct {
	pose    Pose
	worldUp kernel.Vec3

	front, right, up kernel.Vec3

	Speed       float64
	Sensitivity float64
}

// New returns a camera at pos looking down -Z.
func New(pos kernel.Vec3) *Camera {
	c := &Camera{
		pose: Pose{
			Position: pos,
			Yaw:      DefaultYaw,
			Pitch:    DefaultPitch,
			Zoom:     DefaultZoom,
		},
		worldUp:     kernel.V(0, 1, 0),
		Speed:       DefaultSpeed,
		Sensitivity: DefaultSensitivity,
	}
	c.updateBasis()
	return c
}

func (c *Camera) updateBasis() {
	yaw, pitch := kernel.Radians(c.pose.Yaw), kernel.Radians(c.pose.Pitch)
	c.front = kernel.Normalize(kernel.V(
		math.Cos(yaw)*math.Cos(pitch),
		math.Sin(pitch),
		math.Sin(yaw)*math.Cos(pitch),
	))
	c.right = kernel.Normalize(c.front.Cross(c.worldUp))
	c.up = kernel.Normalize(c.right.Cross(c.front))
}

func (c *Camera) Position() kernel.Vec3 { return c.pose.Position }
func (c *Camera) Yaw() float64          { return c.pose.Yaw }
func (c *Camera) Pitch() float64        { return c.pose.Pitch }
func (c *Camera) Zoom() float64         { return c.pose.Zoom }
func (c *Camera) Front() kernel.Vec3    { return c.front }
func (c *Camera) Right() kernel.Vec3    { return c.right }
func (c *Camera) Up() kernel.Vec3       { return c.up }

func (c *Camera) SetPosition(p kernel.Vec3) {
	c.pose.Position = p
}

func (c *Camera) SetYaw(deg float64) {
	c.pose.Yaw = deg
	c.updateBasis()
}

func (c *Camera) SetPitch(deg float64) {
	c.pose.Pitch = deg
	c.updateBasis()
}

// SetZoom sets the vertical field of view in degrees, clamped to
// [MinZoom, MaxZoom].
func (c *Camera) SetZoom(deg float64) {
	c.pose.Zoom = clamp(deg, MinZoom, MaxZoom)
}

// Move translates the camera for dt seconds of keyboard input.
func (c *Camera) Move(dir Direction, dt float64) {
	v := c.Speed * dt
	switch dir {
	case Left:
		c.pose.Position = c.pose.Position.Sub(c.right.MulScalar(v))
	case Right:
		c.pose.Position = c.pose.Position.Add(c.right.MulScalar(v))
	case Backward:
		c.pose.Position = c.pose.Position.Sub(c.front.MulScalar(v))
	case Forward:
		c.pose.Position = c.pose.Position.Add(c.front.MulScalar(v))
	}
}

// Look applies a mouse delta. Yaw wraps at 360 and pitch is clamped short of
// the poles.
func (c *Camera) Look(dx, dy float64) {
	c.pose.Yaw = math.Mod(c.pose.Yaw+dx*c.Sensitivity, 360)
	c.pose.Pitch = clamp(c.pose.Pitch+dy*c.Sensitivity, -MaxPitch, MaxPitch)
	c.updateBasis()
}

// Scroll narrows the field of view by dy degrees.
func (c *Camera) Scroll(dy float64) {
	c.SetZoom(c.pose.Zoom - dy)
}

// View is the look-at matrix for the current pose.
func (c *Camera) View() mgl64.Mat4 {
	eye := vec(c.pose.Position)
	return mgl64.LookAtV(eye, eye.Add(vec(c.front)), vec(c.up))
}

// Projection is the perspective matrix for the given aspect ratio.
func (c *Camera) Projection(aspect float64) mgl64.Mat4 {
	return mgl64.Perspective(mgl64.DegToRad(c.pose.Zoom), aspect, Near, Far)
}

// Snapshot captures the pose for a later Restore.
func (c *Camera) Snapshot() Pose {
	return c.pose
}

// Restore returns the camera to a snapshotted pose.
func (c *Camera) Restore(p Pose) {
	c.pose = p
	c.updateBasis()
}

func vec(v kernel.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{v.X, v.Y, v.Z}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
