package gpu

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDispatch_CoversEveryCellOnce(t *testing.T) {
	for _, n := range []int{0, 1, WorkgroupSize - 1, WorkgroupSize, WorkgroupSize + 1, 1000} {
		counts := make([]int, n)
		owners := make([]int, groups(n))
		dispatch(3, n, func(group, lo, hi int) {
			owners[group] = hi - lo
			for i := lo; i < hi; i++ {
				counts[i]++
			}
		})
		for i, c := range counts {
			assert.Equal(t, 1, c, "n=%d cell %d", n, i)
		}
		total := 0
		for _, size := range owners {
			assert.LessOrEqual(t, size, WorkgroupSize)
			total += size
		}
		assert.Equal(t, n, total)
	}
}

func TestGroups(t *testing.T) {
	assert.Equal(t, 0, groups(0))
	assert.Equal(t, 1, groups(1))
	assert.Equal(t, 1, groups(WorkgroupSize))
	assert.Equal(t, 2, groups(WorkgroupSize+1))
}

func TestDispatch_RespectsWorkerLimitAndWaitsForAllGroups(t *testing.T) {
	// GIVEN more workgroups than workers
	const workers = 2
	n := 8 * WorkgroupSize
	var running, peak, done atomic.Int32

	// WHEN dispatch runs kernels that overlap in time
	dispatch(workers, n, func(_, _, _ int) {
		cur := running.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		running.Add(-1)
		done.Add(1)
	})

	// THEN no more than workers kernels ran at once and every group finished before return
	assert.LessOrEqual(t, peak.Load(), int32(workers))
	assert.Equal(t, int32(groups(n)), done.Load())
}
