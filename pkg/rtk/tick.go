package rtk

// Tick implements the tick accountant of spec.md §4.6. It is the callback a
// TickSource invokes at the configured frequency; it is equally valid to
// call it directly from a test or from cmd/rtkctl's deterministic harness,
// since the spec's correctness properties (§8) are phrased entirely in
// terms of tick counts.
func (k *Kernel) Tick() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.halted {
		return
	}

	k.tickCount++
	cur := &k.tcb[k.current]
	cur.Elapsed++

	// Step 2: debit the running user thread's budget, if it is a user
	// slot (not idle, not default).
	if k.current < ThreadID(k.maxThreads) {
		if cur.CRemaining > 0 {
			cur.CRemaining--
		}
		if cur.CRemaining == 0 {
			if cur.HeldMutexBitmap != 0 {
				k.log.Warnw("thread exhausted its budget while still holding a mutex",
					"thread", int(k.current), "held_mutex_bitmap", uint32(cur.HeldMutexBitmap))
			}
			cur.State = StateWaiting
			cur.CRemaining = cur.C
		}
	}

	// Step 3: release pass. Debit-then-release so a thread that is both
	// "used up its budget" and "at a period boundary" in the same tick
	// is released cleanly for its next job (spec.md §4.6 ordering note).
	for i := 0; i < k.maxThreads; i++ {
		tcb := &k.tcb[i]
		switch tcb.State {
		case StateReady, StateWaiting, StateRunning:
			if tcb.T > 0 && k.tickCount%uint32(tcb.T) == 0 {
				tcb.CRemaining = tcb.C
				tcb.ReleaseTime = k.tickCount
				tcb.State = StateReady
				if k.metrics != nil {
					k.metrics.releases.Inc()
				}
			}
		}
	}

	if k.metrics != nil {
		k.metrics.ticks.Inc()
		k.metrics.utilization.Set(float64(k.totalUtilizationLocked()))
	}

	// Step 4: request a switch.
	k.requestSwitch()
	k.runTrampolineLocked()
}
