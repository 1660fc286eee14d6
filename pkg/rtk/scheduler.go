package rtk

// schedule implements spec.md §4.5. It is called only from the trampoline
// (trampoline.go) with k.mu already held, and is kept side-effect-visible
// only through TCB.State and k.current — it never touches budgets or
// timers, which live in the tick accountant (tick.go).
func (k *Kernel) schedule() ThreadID {
	// 1. Unblock pass: a Blocked thread with no outstanding mutex waits
	// becomes eligible again.
	for i := 0; i < k.maxThreads; i++ {
		tcb := &k.tcb[i]
		if tcb.State == StateBlocked && tcb.WaitingMutexBitmap.isZero() {
			tcb.State = StateReady
		}
	}

	// 2. Ready-down pass: anything still marked Running (normally just
	// k.current) goes back to Ready so selection treats it like any
	// other contender.
	for i := range k.tcb {
		if k.tcb[i].State == StateRunning {
			k.tcb[i].State = StateReady
		}
	}

	// 3. Selection: smallest dynamic priority among Ready threads with
	// no pending mutex wait. Index order is the tie-break: a thread
	// promoted to a ceiling ties with the thread whose static priority
	// equals that ceiling, and the smaller index wins.
	best := ThreadID(-1)
	bestPrio := 0
	for i := 0; i < k.maxThreads+2; i++ {
		tcb := &k.tcb[i]
		if tcb.State != StateReady || !tcb.WaitingMutexBitmap.isZero() {
			continue
		}
		if best == -1 || tcb.DynamicPriority < bestPrio {
			best = ThreadID(i)
			bestPrio = tcb.DynamicPriority
		}
	}

	if best == -1 {
		// 4. Fallback: idle if anything is merely parked (Waiting or
		// Blocked), otherwise the default slot (nothing has ever run).
		best = k.defaultID()
		for i := 0; i < k.maxThreads; i++ {
			if k.tcb[i].State == StateWaiting || k.tcb[i].State == StateBlocked {
				best = k.idleID()
				break
			}
		}
	}

	k.tcb[best].State = StateRunning
	return best
}
