package rtk

import "github.com/pkg/errors"

// Sentinel errors for the caller-input and resource-exhaustion classes of
// spec.md §7. Programming mistakes (double lock, double unlock, unlock of a
// foreign mutex) are not represented here: per §4.9 they are a no-op plus a
// logged warning, never a returned error, on the user-visible syscall path.
var (
	// ErrInvalidPriority covers thread_create's prio >= max_threads and
	// mutex_lock's ceiling violation.
	ErrInvalidPriority = errors.New("rtk: invalid priority")

	// ErrSlotBusy is returned by thread_create when the target slot is
	// not in state New or Done.
	ErrSlotBusy = errors.New("rtk: thread slot not available")

	// ErrAdmissionRejected is returned when ub_admit rejects a candidate
	// (C, T).
	ErrAdmissionRejected = errors.New("rtk: admission control rejected thread")

	// ErrTooManyThreads is returned by ThreadInit when max_threads
	// exceeds MaxUserThreads.
	ErrTooManyThreads = errors.New("rtk: max_threads exceeds capacity")

	// ErrStackBudgetExceeded is returned by ThreadInit when the
	// requested stack geometry does not fit the configured stack pools.
	ErrStackBudgetExceeded = errors.New("rtk: stack pool exhausted")

	// ErrMutexTableFull is returned by MutexInit when no free mutex slot
	// remains.
	ErrMutexTableFull = errors.New("rtk: mutex table full")

	// ErrAlreadyStarted is returned by SchedulerStart on a second call.
	ErrAlreadyStarted = errors.New("rtk: scheduler already started")

	// ErrNotStarted is returned by operations that require the scheduler
	// to be running.
	ErrNotStarted = errors.New("rtk: scheduler not started")

	// ErrHalted is returned by MutexInit, MutexLock and MutexUnlock once
	// the kernel has halted; Tick ignores further ticks.
	ErrHalted = errors.New("rtk: kernel halted")

	// ErrBadFD names an unrecognized file descriptor. The kernel itself
	// does not return it; a Stdio implementation may, and the read/write
	// syscalls report any Stdio error as -1.
	ErrBadFD = errors.New("rtk: bad file descriptor")

	// ErrBadMutex is returned when a MutexID refers to an unallocated or
	// out-of-range slot.
	ErrBadMutex = errors.New("rtk: invalid mutex handle")

	// ErrBadThread is returned when a ThreadID refers to an out-of-range
	// slot.
	ErrBadThread = errors.New("rtk: invalid thread id")
)
