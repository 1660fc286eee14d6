package rtk

// runTrampolineLocked implements the five steps of spec.md §4.2, with
// k.mu already held by the caller (every kernel operation that can change
// who should run next ends by calling this). It never invokes thread user
// code itself: on real hardware the final "exception return" is what
// resumes the user PC, and here that role is played by whoever is driving
// the kernel (a test, or pkg/rtk/runner) observing Current() change and
// releasing the corresponding thread body to proceed. See SPEC_FULL.md §A.
func (k *Kernel) runTrampolineLocked() {
	k.switchPending = false

	outgoing := k.current
	if outgoing >= 0 && int(outgoing) < len(k.tcb) {
		// Step 1: save the outgoing thread's frame.
		k.tcb[outgoing].Frame = k.hal.Save(k.tcb[outgoing].Frame.UserSP)
		// Step 2: record its privilege level.
		k.tcb[outgoing].Privileged = k.hal.Privileged()
	}

	// Step 3: ask the scheduler for the next thread.
	next := k.schedule()

	// Step 4: restore that thread's privilege level.
	k.hal.SetPrivileged(k.tcb[next].Privileged)

	// Step 5: restore its frame; on hardware, exception return now
	// resumes execution there.
	k.hal.Restore(k.tcb[next].Frame)

	k.current = next
	if k.metrics != nil {
		k.metrics.switches.Inc()
	}
}

// requestSwitch pends a deferred switch, mirroring PendSV (spec.md §4.2):
// on real hardware this would return immediately and let the trampoline run
// at the next opportunity below all IRQ priorities. Because this kernel is
// single-threaded end to end, every call site that sets switchPending also
// calls runTrampolineLocked directly in the same critical section, so this
// flag exists for fidelity to the spec's two-phase description and for
// tests that want to assert a switch was requested before it ran.
func (k *Kernel) requestSwitch() {
	k.switchPending = true
}
