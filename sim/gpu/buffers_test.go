package gpu

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

func TestRing_WriteNeverAliasesReadOrPreviousRead(t *testing.T) {
	r := newRing(4)
	prevRead := r.Read().f
	for k := 0; k < 9; k++ {
		read, write := r.Read().f, r.Write().f
		assert.NotSame(t, read, write, "rotation %d", k)
		if k > 0 {
			assert.NotSame(t, prevRead, write, "rotation %d", k)
		}
		prevRead = read
		r.Rotate()
		assert.Same(t, write, r.Read().f, "written frame becomes readable")
	}
}

func TestRing_WrittenValuesVisibleAfterRotate(t *testing.T) {
	r := newRing(2)
	r.Write().Set(1, mgl64.Vec3{1, 2, 3}, mgl64.Vec3{4, 5, 6}, mgl64.Vec3{0, 0, 1}, mgl64.QuatIdent())
	r.Rotate()
	read := r.Read()
	assert.Equal(t, mgl64.Vec3{1, 2, 3}, read.Position(1))
	assert.Equal(t, mgl64.Vec3{4, 5, 6}, read.Velocity(1))
	assert.Equal(t, mgl64.Vec3{0, 0, 1}, read.AngularVelocity(1))
	assert.Equal(t, mgl64.QuatIdent(), read.Orientation(1))
}

func TestAccum_WriterAndReaderShareStorage(t *testing.T) {
	a := accum{acc: make([]mgl64.Vec3, 3), torque: make([]mgl64.Vec3, 3)}
	AccumWriter{&a}.Set(2, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 1, 0})
	r := AccumReader{&a}
	assert.Equal(t, mgl64.Vec3{1, 0, 0}, r.Acceleration(2))
	assert.Equal(t, mgl64.Vec3{0, 1, 0}, r.Torque(2))
}
