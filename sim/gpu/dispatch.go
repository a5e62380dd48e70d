package gpu

import "golang.org/x/sync/errgroup"

// WorkgroupSize is the number of cells one dispatched invocation group covers.
const WorkgroupSize = 64

// groups returns the workgroup count covering n cells.
func groups(n int) int {
	return (n + WorkgroupSize - 1) / WorkgroupSize
}

// dispatch runs kernel once per workgroup, at most workers at a time, and returns after
// every group finished. kernel receives its group id and cell range [lo, hi).
//
// The errgroup is used for its SetLimit bound and Wait barrier only. Kernels have no
// failure path, so every Go func returns nil and Wait has no error to report.
func dispatch(workers, n int, kernel func(group, lo, hi int)) {
	var eg errgroup.Group
	eg.SetLimit(workers)
	for g := 0; g < groups(n); g++ {
		lo := g * WorkgroupSize
		hi := min(lo+WorkgroupSize, n)
		g := g
		eg.Go(func() error {
			kernel(g, lo, hi)
			return nil
		})
	}
	_ = eg.Wait()
}
