package cpu

import "github.com/u0068/Biospheres-sub000/sim"

type lane = [sim.LaneWidth]float64

// laneEnd rounds n up to a whole number of lanes. Columns are padded so the tail lane is
// always addressable.
func laneEnd(n int) int {
	return (n + sim.LaneWidth - 1) / sim.LaneWidth * sim.LaneWidth
}

// advanceLanes applies the Verlet position update followed by the explicit velocity update
// to every axis, LaneWidth cells at a time. Padding cells past n are advanced too; their
// accelerations are always zero after the first step.
func advanceLanes(c *sim.CellColumns, n int, dt float64) {
	end := laneEnd(n)
	axes := [3][3][]float64{
		{c.Positions.X, c.Velocities.X, c.Accelerations.X},
		{c.Positions.Y, c.Velocities.Y, c.Accelerations.Y},
		{c.Positions.Z, c.Velocities.Z, c.Accelerations.Z},
	}
	for _, axis := range axes {
		verlet(axis[0][:end], axis[1][:end], axis[2][:end], dt)
	}
}

// verlet updates one axis. p, v and a have equal length, a multiple of sim.LaneWidth.
func verlet(p, v, a []float64, dt float64) {
	half := 0.5 * dt * dt
	for base := 0; base < len(p); base += sim.LaneWidth {
		pl := (*lane)(p[base : base+sim.LaneWidth])
		vl := (*lane)(v[base : base+sim.LaneWidth])
		al := (*lane)(a[base : base+sim.LaneWidth])
		for k := range pl {
			pl[k] = pl[k] + vl[k]*dt
			pl[k] = pl[k] + al[k]*half
		}
		for k := range vl {
			vl[k] = vl[k] + al[k]*dt
		}
	}
}
