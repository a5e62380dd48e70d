// register.go wires the CPU backend into the sim package's backend registry. This init()
// runs when any package imports sim/cpu; test code in package sim uses
// backend_import_test.go for the blank import.
package cpu

import "github.com/u0068/Biospheres-sub000/sim"

func init() {
	sim.RegisterBackend(Name, func(cfg sim.BackendConfig) (sim.Backend, error) {
		return New(cfg)
	})
}
