package sim_test

// Blank imports trigger sim/cpu's and sim/gpu's init(), which register the "cpu" and "gpu"
// backends. This allows package sim's internal test files to build worlds without
// importing the backends directly (which would create an import cycle).
import (
	_ "github.com/u0068/Biospheres-sub000/sim/cpu"
	_ "github.com/u0068/Biospheres-sub000/sim/gpu"
)
