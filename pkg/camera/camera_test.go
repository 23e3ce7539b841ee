package camera

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"

	"github.com/chazu/cityview/pkg/kernel"
)

func assertVec(t *testing.T, want, got kernel.Vec3) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-9, "x")
	assert.InDelta(t, want.Y, got.Y, 1e-9, "y")
	assert.InDelta(t, want.Z, got.Z, 1e-9, "z")
}

func TestDefaults(t *testing.T) {
	c := New(kernel.V(1, 2, 3))
	assert.Equal(t, DefaultYaw, c.Yaw())
	assert.Equal(t, DefaultZoom, c.Zoom())
	assertVec(t, kernel.V(0, 0, -1), c.Front())
	assertVec(t, kernel.V(1, 0, 0), c.Right())
	assertVec(t, kernel.V(0, 1, 0), c.Up())
}

func TestSetYaw(t *testing.T) {
	tests := []struct {
		yaw   float64
		front kernel.Vec3
	}{
		{0, kernel.V(1, 0, 0)},
		{90, kernel.V(0, 0, 1)},
		{180, kernel.V(-1, 0, 0)},
		{-90, kernel.V(0, 0, -1)},
	}
	c := New(kernel.Vec3{})
	for _, tt := range tests {
		c.SetYaw(tt.yaw)
		assertVec(t, tt.front, c.Front())
		assert.InDelta(t, 0, c.Front().Dot(c.Right()), 1e-12)
		assert.InDelta(t, 0, c.Up().Dot(c.Right()), 1e-12)
	}
}

func TestMove(t *testing.T) {
	c := New(kernel.Vec3{})
	c.Move(Forward, 1)
	assertVec(t, kernel.V(0, 0, -DefaultSpeed), c.Position())
	c.Move(Right, 0.5)
	assertVec(t, kernel.V(DefaultSpeed/2, 0, -DefaultSpeed), c.Position())
	c.Move(Backward, 1)
	c.Move(Left, 0.5)
	assertVec(t, kernel.Vec3{}, c.Position())
}

func TestLookClampsPitch(t *testing.T) {
	c := New(kernel.Vec3{})
	c.Look(0, 5000)
	assert.Equal(t, MaxPitch, c.Pitch())
	c.Look(0, -5000)
	assert.Equal(t, -MaxPitch, c.Pitch())

	c.Look(4500, 0)
	assert.InDelta(t, 0, c.Yaw()-(-90+450-360), 1e-9)
}

func TestScrollClampsZoom(t *testing.T) {
	c := New(kernel.Vec3{})
	c.Scroll(100)
	assert.Equal(t, MinZoom, c.Zoom())
	c.Scroll(-500)
	assert.Equal(t, MaxZoom, c.Zoom())
}

func TestSnapshotRestore(t *testing.T) {
	c := New(kernel.V(5, 5, 5))
	snap := c.Snapshot()
	front := c.Front()

	c.SetPosition(kernel.V(100, 0, 0))
	c.SetYaw(33)
	c.SetPitch(-20)
	c.Restore(snap)

	assert.Equal(t, snap, c.Snapshot())
	assertVec(t, front, c.Front())
}

func TestViewProjection(t *testing.T) {
	c := New(kernel.V(0, 0, 10))
	view := c.View()

	// A point straight ahead ends up on the -Z axis in eye space.
	p := view.Mul4x1(mgl64.Vec4{0, 0, 0, 1})
	assert.InDelta(t, 0, p[0], 1e-9)
	assert.InDelta(t, 0, p[1], 1e-9)
	assert.InDelta(t, -10, p[2], 1e-9)

	proj := c.Projection(1)
	clip := proj.Mul4x1(p)
	ndcZ := clip[2] / clip[3]
	assert.True(t, ndcZ > -1 && ndcZ < 1, "point inside the depth range, got %v", ndcZ)
}
