package rtk

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cortexmcu/rtkernel/pkg/rtk/hal/sim"
)

func newTestKernel(t *testing.T, cfg Config) *Kernel {
	t.Helper()
	k := New(zap.NewNop().Sugar(), sim.New(), nil)
	require.NoError(t, k.ThreadInit(cfg))
	return k
}

// ubBound recomputes the Liu-Layland bound independently of admission.go's
// ubTable, so the boundary assertions below cross-check the formula itself
// rather than just re-deriving the production table.
func ubBound(n int) float64 {
	return float64(n) * (math.Pow(2, 1/float64(n)) - 1)
}

func TestUBTableMatchesFormula(t *testing.T) {
	require.Equal(t, float32(0), ubTable[0])
	require.InDelta(t, 1.0, ubTable[1], 1e-6)
	for n := 2; n < 32; n++ {
		require.InDelta(t, ubBound(n), float64(ubTable[n]), 1e-3, "n=%d", n)
	}
}

// TestAdmissionBoundary exercises spec.md §8's "Admitting exactly at the
// Liu-Layland bound succeeds; one ulp above fails" with numbers chosen so
// the boundary lands on an exact integer tick count: two threads, n=2,
// UB(2) = 2*(sqrt(2)-1) ~= 0.828427.
func TestAdmissionBoundary(t *testing.T) {
	k := newTestKernel(t, Config{MaxThreads: 4, StackWords: 256})

	require.NoError(t, k.ThreadCreate(nil, 0, 50, 100, 0)) // utilization 0.5

	// Remaining budget for a T=100 candidate: floor((0.828427-0.5)*100) = 32.
	// One tick over is rejected (and leaves the slot free), then the
	// boundary value itself is admitted into the same slot.
	err := k.ThreadCreate(nil, 1, 33, 100, 0)
	require.ErrorIs(t, err, ErrAdmissionRejected)

	require.NoError(t, k.ThreadCreate(nil, 1, 32, 100, 0))
}

// TestAdmissionBinarySearch finds the largest admissible C for a third
// thread by binary search, the procedure spec.md §8 scenario 1 describes,
// and cross-checks it against the formula directly rather than against a
// specific literal constant (see DESIGN.md for why the scenario's prose
// numbers could not be independently reproduced from the stated formula).
func TestAdmissionBinarySearch(t *testing.T) {
	const T = 1000
	existing := 100.0/500 + 100.0/700
	bound := ubBound(3)
	want := int(math.Floor((bound - existing) * T))

	lo, hi := 0, T
	for lo < hi {
		mid := (lo + hi + 1) / 2
		k := newTestKernel(t, Config{MaxThreads: 4, StackWords: 256})
		require.NoError(t, k.ThreadCreate(nil, 0, 100, 500, 0))
		require.NoError(t, k.ThreadCreate(nil, 1, 100, 700, 0))
		if k.ThreadCreate(nil, 2, mid, T, 0) == nil {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	require.Equal(t, want, lo)
}

func TestThreadInitRejectsOversizedThreadCount(t *testing.T) {
	k := New(zap.NewNop().Sugar(), sim.New(), nil)
	require.ErrorIs(t, k.ThreadInit(Config{MaxThreads: MaxUserThreads + 1, StackWords: 256}), ErrTooManyThreads)
	require.NoError(t, k.ThreadInit(Config{MaxThreads: MaxUserThreads, StackWords: 256}))
}
