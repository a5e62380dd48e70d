package gpu

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/u0068/Biospheres-sub000/sim"
	"github.com/u0068/Biospheres-sub000/sim/kernel"
)

// forcePass gathers collision and adhesion contributions for cells [lo, hi). The store is
// only read: connection topology, anchors and any external accumulators seeded between
// steps.
func (b *Backend) forcePass(s *sim.Store, g *sim.Genome, read ReadView, out AccumWriter, p *partial, lo, hi int, queryRadius float64) {
	cc := &s.Connections
	n := s.CellCount()
	for i := lo; i < hi; i++ {
		self := b.body(read, i)
		acc := s.Cells.Accelerations.At(i)

		if b.direct {
			for j := 0; j < n; j++ {
				acc = acc.Add(b.collide(self, read, i, j, p))
			}
		} else {
			p.neighbors = b.grid.Query(self.Position, queryRadius, p.neighbors[:0])
			for _, j := range p.neighbors {
				acc = acc.Add(b.collide(self, read, i, int(j), p))
			}
		}
		acc = b.tuning.Damping.Apply(acc)

		torque := s.Cells.Torques.At(i)
		for _, conn := range s.Cells.AdhesionSlots[i] {
			if conn == sim.NoConnection || !cc.Active[conn] {
				continue
			}
			a, bb := int(cc.CellA[conn]), int(cc.CellB[conn])
			mode := cc.ModeIndices[conn]
			r := kernel.BondForces(b.body(read, a), b.body(read, bb), s.Frame(int(conn)), g.BondParamsFor(mode), b.tuning)
			if !r.Applied {
				continue
			}
			if a == i {
				acc = acc.Add(r.ForceA.Mul(1 / self.Mass))
				torque = torque.Add(r.TorqueA)
				p.bonds++
				p.energy += r.Energy
				if sim.ExceedsBreakLimits(&g.Mode(int(mode)).Adhesion, r) {
					p.breaks = append(p.breaks, sim.BondBreak{Connection: int(conn), SpringForce: r.SpringForce, Stretch: r.Stretch})
				}
			} else {
				acc = acc.Add(r.ForceB.Mul(1 / self.Mass))
				torque = torque.Add(r.TorqueB)
			}
		}
		out.Set(i, acc, torque)
	}
}

// collide returns the collision acceleration on cell i from cell j. Each unordered pair is
// counted once, by its lower index.
func (b *Backend) collide(self kernel.Body, read ReadView, i, j int, p *partial) mgl64.Vec3 {
	if i == j {
		return mgl64.Vec3{}
	}
	f, ok := kernel.CollisionForce(self, b.body(read, j), b.tuning)
	if !ok {
		return mgl64.Vec3{}
	}
	if i < j {
		p.collisions++
	}
	return f.Mul(1 / self.Mass)
}

// integratePass advances translation and rotation of cells [lo, hi).
func (b *Backend) integratePass(read ReadView, in AccumReader, write WriteView, lo, hi int, dt float64) {
	for i := lo; i < hi; i++ {
		a := in.Acceleration(i)
		pos := kernel.AdvancePosition(read.Position(i), read.Velocity(i), a, dt)
		vel := kernel.AdvanceVelocity(read.Velocity(i), a, dt)
		omega := kernel.AdvanceAngular(read.AngularVelocity(i), in.Torque(i), b.mass[i], b.radius[i], dt, b.angularDamping)
		orient := kernel.AdvanceOrientation(read.Orientation(i), omega, dt)
		write.Set(i, pos, vel, omega, orient)
	}
}

// boundaryPass applies the spherical wall to cells [lo, hi).
func (b *Backend) boundaryPass(read ReadView, write WriteView, p *partial, lo, hi int) {
	for i := lo; i < hi; i++ {
		pos, vel, hit := b.boundary.Apply(read.Position(i), read.Velocity(i), b.radius[i])
		if hit {
			p.boundaryHits++
		}
		write.Set(i, pos, vel, read.AngularVelocity(i), read.Orientation(i))
	}
}
