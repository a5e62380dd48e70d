package gpu

import "github.com/go-gl/mathgl/mgl64"

// frame is one generation of the dynamic per-cell state.
type frame struct {
	pos    []mgl64.Vec3
	vel    []mgl64.Vec3
	omega  []mgl64.Vec3
	orient []mgl64.Quat
}

func newFrame(n int) frame {
	return frame{
		pos:    make([]mgl64.Vec3, n),
		vel:    make([]mgl64.Vec3, n),
		omega:  make([]mgl64.Vec3, n),
		orient: make([]mgl64.Quat, n),
	}
}

// ReadView is the read-only side of a pass. It exposes no setters.
type ReadView struct{ f *frame }

func (r ReadView) Position(i int) mgl64.Vec3        { return r.f.pos[i] }
func (r ReadView) Velocity(i int) mgl64.Vec3        { return r.f.vel[i] }
func (r ReadView) AngularVelocity(i int) mgl64.Vec3 { return r.f.omega[i] }
func (r ReadView) Orientation(i int) mgl64.Quat     { return r.f.orient[i] }

// WriteView is the write-only side of a pass. It exposes no getters.
type WriteView struct{ f *frame }

// Set writes every dynamic field of cell i.
func (w WriteView) Set(i int, pos, vel, omega mgl64.Vec3, orient mgl64.Quat) {
	w.f.pos[i] = pos
	w.f.vel[i] = vel
	w.f.omega[i] = omega
	w.f.orient[i] = orient
}

// ring rotates three frames so a pass never writes the frame it reads, and the frame a
// pass writes is not the one the previous pass read.
type ring struct {
	frames [3]frame
	read   int
}

func newRing(n int) *ring {
	return &ring{frames: [3]frame{newFrame(n), newFrame(n), newFrame(n)}}
}

// Read returns the view dependent passes consume.
func (r *ring) Read() ReadView { return ReadView{&r.frames[r.read]} }

// Write returns the view the current pass fills.
func (r *ring) Write() WriteView { return WriteView{&r.frames[(r.read+1)%len(r.frames)]} }

// Rotate promotes the frame just written to the read role.
func (r *ring) Rotate() { r.read = (r.read + 1) % len(r.frames) }

// accum holds the per-cell force pass outputs.
type accum struct {
	acc    []mgl64.Vec3
	torque []mgl64.Vec3
}

// AccumWriter is the force pass output. Each invocation assigns only its own cell.
type AccumWriter struct{ a *accum }

func (w AccumWriter) Set(i int, acc, torque mgl64.Vec3) {
	w.a.acc[i] = acc
	w.a.torque[i] = torque
}

// AccumReader is the integrate pass input.
type AccumReader struct{ a *accum }

func (r AccumReader) Acceleration(i int) mgl64.Vec3 { return r.a.acc[i] }
func (r AccumReader) Torque(i int) mgl64.Vec3       { return r.a.torque[i] }
