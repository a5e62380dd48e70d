// register.go wires the compute-pipeline backend into the sim package's backend registry.
package gpu

import "github.com/u0068/Biospheres-sub000/sim"

func init() {
	sim.RegisterBackend(Name, func(cfg sim.BackendConfig) (sim.Backend, error) {
		return New(cfg)
	})
}
