package rtk

import "math"

// ubTable is the Liu-Layland utilization bound, k*(2^(1/k) - 1), tabulated
// for k = 0..31 (spec.md §4.4). Index 0 is unused (defined as 0 so an
// accidental n=0 lookup rejects everything rather than panicking); index 1
// is exactly 1. Computed in single precision per spec.md §4.4.
var ubTable = computeUBTable()

func computeUBTable() [32]float32 {
	var t [32]float32
	t[0] = 0
	for k := 1; k < len(t); k++ {
		kf := float32(k)
		t[k] = kf * (float32(math.Pow(2, 1.0/float64(k))) - 1)
	}
	return t
}

// totalUtilizationLocked sums Cᵢ/Tᵢ over active user threads (state not New
// or Done). Called with k.mu held.
func (k *Kernel) totalUtilizationLocked() float32 {
	var u float32
	for i := 0; i < k.maxThreads; i++ {
		tcb := &k.tcb[i]
		if tcb.active() {
			u += float32(tcb.C) / float32(tcb.T)
		}
	}
	return u
}

// ubAdmitLocked implements spec.md §4.4's ub_admit. Called with k.mu held,
// before the candidate is actually installed into the TCB table (so the
// "1 +" in the formula counts the candidate itself, not yet an active
// slot).
func (k *Kernel) ubAdmitLocked(c, t int) bool {
	activeCount := 0
	for i := 0; i < k.maxThreads; i++ {
		if k.tcb[i].active() {
			activeCount++
		}
	}
	n := 1 + activeCount
	if n >= len(ubTable) {
		return false
	}
	u := float32(c)/float32(t) + k.totalUtilizationLocked()
	return u <= ubTable[n]
}
