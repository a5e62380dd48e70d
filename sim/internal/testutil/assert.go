// Package testutil provides shared assertion helpers for the simulator's test packages.
// It has no dependency on sim/ so package-internal tests can import it.
package testutil

import (
	"math"
	"testing"
)

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// AssertFinite fails the test for the first NaN or Inf in values[:n].
func AssertFinite(t *testing.T, name string, values []float64, n int) {
	t.Helper()
	for i, v := range values[:n] {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("%s[%d] is not finite: %v", name, i, v)
		}
	}
}

// AssertBitsEqual fails when two columns differ in any bit over [0, n).
func AssertBitsEqual(t *testing.T, name string, want, got []float64, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if math.Float64bits(want[i]) != math.Float64bits(got[i]) {
			t.Fatalf("%s[%d]: %v (%#x) != %v (%#x)", name, i, got[i], math.Float64bits(got[i]), want[i], math.Float64bits(want[i]))
		}
	}
}
