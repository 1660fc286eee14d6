package rtk

import (
	"reflect"
	"sync"

	"go.uber.org/zap"

	"github.com/cortexmcu/rtkernel/pkg/rtk/hal"
)

// terminatorAddr is the fixed "return address" thread_create seeds into a
// fresh frame's LR: it is not a real function pointer, only a sentinel PC
// marking "this thread ran off the end of its body", standing in for the
// real port's assembly thread-terminator stub (spec.md §4.7). Nothing in
// this package reads it back out of a frame.
const terminatorAddr = ^uintptr(0)

// Kernel is the single mutable kernel-state value every kernel operation
// mutates through, replacing the source pattern of scattered globals
// (TCB_ARRAY, mutex_array, global_threads_info) that spec.md §9 calls out
// for re-architecture. mu serializes kernel operations the way elevated
// exception priority serializes them on real hardware (spec.md §5): no
// kernel-visible state is ever read or written outside it.
type Kernel struct {
	mu sync.Mutex

	log     *zap.SugaredLogger
	hal     hal.Platform
	metrics *Metrics

	maxThreads int
	maxMutexes int
	stackWords int

	tickCount uint32
	current   ThreadID

	tcb     [MaxSlots]TCB
	mutexes [MaxMutexes]mutexEntry

	started bool
	halted  bool
	haltErr error

	switchPending bool

	// brk is the simulated heap break for the sbrk syscall (spec.md §4.3
	// host I/O surface). It is a bookkeeping value only; no real memory
	// is mapped.
	brk uint32

	// io is the host-simulated UART the write/read syscalls front for.
	// Nil until SetStdio is called; write/read then return -1.
	io Stdio

	// funcs maps the numeric "function pointer" values the syscall ABI
	// carries in its argument registers back to real ThreadFunc values,
	// since a hosted Go simulation has no single flat address space for
	// thread entry points to live in. RegisterThreadFunc populates it.
	funcs      map[uint32]ThreadFunc
	nextFuncID uint32
}

// RegisterThreadFunc assigns a stable numeric id to fn and returns it, for
// use as the "fn" argument of a thread_create trap (syscall.go). Direct Go
// callers of ThreadCreate do not need this; it exists only for the
// trap-frame ABI, which can only carry integers in its argument registers.
func (k *Kernel) RegisterThreadFunc(fn ThreadFunc) uint32 {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.funcs == nil {
		k.funcs = make(map[uint32]ThreadFunc)
		k.nextFuncID = 1
	}
	id := k.nextFuncID
	k.nextFuncID++
	k.funcs[id] = fn
	return id
}

// New constructs a Kernel. It does not perform thread_init's validation;
// call ThreadInit next, exactly as the syscall ABI's ordering requires
// (spec.md §4.7).
func New(logger *zap.SugaredLogger, platform hal.Platform, metrics *Metrics) *Kernel {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	k := &Kernel{
		log:     logger,
		hal:     platform,
		metrics: metrics,
		current: -1,
	}
	return k
}

// SetStdio wires the host I/O surface the write/read syscalls front for
// (spec.md §4.3). Optional; write/read against an unset Stdio return -1.
func (k *Kernel) SetStdio(io Stdio) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.io = io
}

// idleID and defaultID are the two reserved slots beyond user threads
// (spec.md §3).
func (k *Kernel) idleID() ThreadID    { return ThreadID(k.maxThreads) }
func (k *Kernel) defaultID() ThreadID { return ThreadID(k.maxThreads + 1) }

func (k *Kernel) requireRunnable() error {
	if k.halted {
		return ErrHalted
	}
	if !k.started {
		return ErrNotStarted
	}
	return nil
}

// ThreadInit implements spec.md §4.7's thread_init. It must be called
// exactly once, before any thread_create and before scheduler_start.
func (k *Kernel) ThreadInit(cfg Config) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if cfg.MaxThreads <= 0 || cfg.MaxThreads > MaxUserThreads {
		return ErrTooManyThreads
	}
	stackWords := roundStackWords(cfg.StackWords)
	slots := cfg.MaxThreads + 2
	if stackWords*slots*2 > MaxCombinedStackWords {
		return ErrStackBudgetExceeded
	}
	if cfg.MaxMutexes < 0 || cfg.MaxMutexes > MaxMutexes {
		return ErrMutexTableFull
	}

	k.maxThreads = cfg.MaxThreads
	k.maxMutexes = cfg.MaxMutexes
	k.stackWords = stackWords
	k.tickCount = 0
	k.current = k.defaultID()
	k.started = false
	k.halted = false
	k.switchPending = false

	for i := range k.tcb {
		k.tcb[i] = TCB{State: StateNew, HeldMutexBitmap: 0, WaitingMutexBitmap: 0}
	}
	for i := range k.mutexes {
		k.mutexes[i] = mutexEntry{owner: noOwner}
	}

	idleFn := cfg.IdleFunc
	if idleFn == nil {
		idleFn = defaultIdle
	}
	k.tcb[k.idleID()] = TCB{
		StaticPriority:  k.maxThreads,
		DynamicPriority: k.maxThreads,
		C:               1,
		T:               1,
		CRemaining:      1,
		State:           StateReady,
		Fn:              idleFn,
	}
	k.tcb[k.defaultID()] = TCB{
		StaticPriority:  k.maxThreads + 1,
		DynamicPriority: k.maxThreads + 1,
		C:               1,
		T:               1,
		CRemaining:      1,
		State:           StateRunning,
	}

	k.log.Infow("thread_init", "max_threads", k.maxThreads, "stack_words", k.stackWords, "max_mutexes", k.maxMutexes)
	return nil
}

// defaultIdle is the fallback idle body: it does nothing per tick, standing
// in for a real "wait for interrupt" instruction.
func defaultIdle(k *Kernel, self ThreadID) {}

// ThreadCreate implements spec.md §4.7's thread_create.
func (k *Kernel) ThreadCreate(fn ThreadFunc, prio, c, t int, argp uint32) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if prio < 0 || prio >= k.maxThreads {
		return ErrInvalidPriority
	}
	tcb := &k.tcb[prio]
	if tcb.State != StateNew && tcb.State != StateDone {
		return ErrSlotBusy
	}
	if !k.ubAdmitLocked(c, t) {
		if k.metrics != nil {
			k.metrics.admissionRejections.Inc()
		}
		return ErrAdmissionRejected
	}

	*tcb = TCB{
		StaticPriority:  prio,
		DynamicPriority: prio,
		C:               c,
		T:               t,
		CRemaining:      c,
		ReleaseTime:     k.tickCount,
		State:           StateReady,
		Fn:              fn,
		Argp:            argp,
	}
	if k.hal != nil {
		var pc uintptr
		if fn != nil {
			pc = reflect.ValueOf(fn).Pointer()
		}
		tcb.Frame = k.hal.BuildInitialFrame(pc, argp, terminatorAddr)
	}

	k.log.Debugw("thread_create", "priority", prio, "C", c, "T", t)
	return nil
}

// ThreadKill implements spec.md §4.7's thread_kill.
func (k *Kernel) ThreadKill(t ThreadID) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.validThread(t) {
		return ErrBadThread
	}

	switch t {
	case k.defaultID():
		k.haltErr = nil
		k.halted = true
		k.hal.Halt("exit from default thread")
		return nil
	case k.idleID():
		k.log.Warnw("idle thread attempted to exit, restarting its body")
		k.tcb[t].Fn = defaultIdle
		return nil
	default:
		k.killLocked(t)
		k.runTrampolineLocked()
		return nil
	}
}

// killLocked transitions t to Done. Called with k.mu held.
func (k *Kernel) killLocked(t ThreadID) {
	tcb := &k.tcb[t]
	if tcb.HeldMutexBitmap != 0 {
		k.log.Warnw("thread killed while holding mutexes; releasing them", "thread", int(t))
		for i := 0; i < k.maxMutexes; i++ {
			if tcb.HeldMutexBitmap.has(i) {
				k.mutexes[i].owner = noOwner
				for j := 0; j < k.maxThreads; j++ {
					k.tcb[j].WaitingMutexBitmap.clear(i)
				}
			}
		}
	}
	tcb.State = StateDone
	tcb.HeldMutexBitmap = 0
	tcb.WaitingMutexBitmap = 0
	tcb.DynamicPriority = tcb.StaticPriority
}

// WaitUntilNextPeriod implements spec.md §4.7.
func (k *Kernel) WaitUntilNextPeriod(t ThreadID) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if !k.validThread(t) {
		return ErrBadThread
	}
	if t == k.idleID() {
		k.log.Warnw("wait_until_next_period called from idle thread, ignoring")
		return nil
	}
	k.tcb[t].State = StateWaiting
	k.runTrampolineLocked()
	return nil
}

// SchedulerStart implements spec.md §4.7's scheduler_start. Must be called
// exactly once, after ThreadInit and after all initial ThreadCreate calls.
func (k *Kernel) SchedulerStart(frequency int, source TickSource) error {
	k.mu.Lock()
	if k.started {
		k.mu.Unlock()
		return ErrAlreadyStarted
	}
	k.started = true
	k.mu.Unlock()

	if source != nil {
		if err := source.Start(frequency, k.Tick); err != nil {
			return err
		}
	}

	k.mu.Lock()
	k.runTrampolineLocked()
	k.mu.Unlock()
	return nil
}

// GetTime implements spec.md §4.7's get_time.
func (k *Kernel) GetTime() uint32 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.tickCount
}

// GetPriority implements spec.md §4.7's get_priority: the dynamic priority
// of the calling (current) thread.
func (k *Kernel) GetPriority() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.tcb[k.current].DynamicPriority
}

// ThreadTime implements spec.md §4.7's thread_time: elapsed ticks of the
// current thread.
func (k *Kernel) ThreadTime() uint32 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.tcb[k.current].Elapsed
}

// Current returns the currently running thread's id.
func (k *Kernel) Current() ThreadID {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.current
}

func (k *Kernel) validThread(t ThreadID) bool {
	return t >= 0 && int(t) < k.maxThreads+2
}

// TickSource is the interface SchedulerStart drives; hal/sim provides two
// implementations (time.Ticker-based and, on Linux, timerfd-based).
type TickSource interface {
	Start(frequency int, onTick func()) error
	Stop()
}

// Stdio is the host-simulated surface the write/read syscalls trap into
// (spec.md §4.3); sbrk and exit do not use it. Real UART/peripheral drivers are out of scope (spec.md
// §1); this only plumbs the syscall boundary through to whatever the host
// supplies.
type Stdio interface {
	Write(fd int, p []byte) (int, error)
	Read(fd int, p []byte) (int, error)
}
