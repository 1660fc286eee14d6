package rtk

// ThreadSnapshot is a read-only copy of one TCB, safe to retain after the
// lock is released.
type ThreadSnapshot struct {
	ID                 ThreadID
	StaticPriority     int
	DynamicPriority    int
	C, T               int
	CRemaining         int
	State              ThreadState
	HeldMutexBitmap    MutexBitmap
	WaitingMutexBitmap MutexBitmap
	Elapsed            uint32
	ReleaseTime        uint32
}

// MutexSnapshot is a read-only copy of one mutex table entry.
type MutexSnapshot struct {
	ID        MutexID
	Allocated bool
	Ceiling   int
	Owner     ThreadID
}

// Snapshot is a point-in-time, read-only copy of the kernel's scheduling
// state: not part of the syscall ABI (spec.md §6 lists none), but useful
// for tests and cmd/rtkctl's status output, the way a real kernel would
// expose a debug/proc interface alongside its syscalls.
type Snapshot struct {
	TickCount uint32
	Current   ThreadID
	Threads   []ThreadSnapshot
	Mutexes   []MutexSnapshot
}

// Snapshot captures the current kernel state.
func (k *Kernel) Snapshot() Snapshot {
	k.mu.Lock()
	defer k.mu.Unlock()

	s := Snapshot{TickCount: k.tickCount, Current: k.current}
	for i := 0; i < k.maxThreads+2; i++ {
		tcb := &k.tcb[i]
		s.Threads = append(s.Threads, ThreadSnapshot{
			ID:                 ThreadID(i),
			StaticPriority:     tcb.StaticPriority,
			DynamicPriority:    tcb.DynamicPriority,
			C:                  tcb.C,
			T:                  tcb.T,
			CRemaining:         tcb.CRemaining,
			State:              tcb.State,
			HeldMutexBitmap:    tcb.HeldMutexBitmap,
			WaitingMutexBitmap: tcb.WaitingMutexBitmap,
			Elapsed:            tcb.Elapsed,
			ReleaseTime:        tcb.ReleaseTime,
		})
	}
	for i := 0; i < k.maxMutexes; i++ {
		m := &k.mutexes[i]
		s.Mutexes = append(s.Mutexes, MutexSnapshot{
			ID:        MutexID(i),
			Allocated: m.allocated,
			Ceiling:   m.ceiling,
			Owner:     m.owner,
		})
	}
	return s
}
