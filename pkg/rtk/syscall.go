package rtk

// Opcode is the 8-bit supervisor-call number a trap carries (spec.md §6).
type Opcode uint8

// Recognized operations, spec.md §6's ABI table.
const (
	OpSbrk                Opcode = 0
	OpWrite               Opcode = 1
	OpRead                Opcode = 6
	OpExit                Opcode = 7
	OpThreadInit          Opcode = 9
	OpThreadCreate        Opcode = 10
	OpThreadKill          Opcode = 11
	OpSchedulerStart      Opcode = 12
	OpMutexInit           Opcode = 13
	OpMutexLock           Opcode = 14
	OpMutexUnlock         Opcode = 15
	OpWaitUntilNextPeriod Opcode = 16
	OpGetTime             Opcode = 17
	OpGetPriority         Opcode = 19
	OpThreadTime          Opcode = 20
)

// TrapFrame is the fixed-shape register file a supervisor call decodes
// (spec.md §6): four argument registers, a return value slot reusing A0 on
// the way out, a return address, a program counter, and a saved status
// word. A5 stands in for the fifth argument some calls need, normally read
// from the user stack slot immediately above the trap frame; here it is
// simply a fifth field since this kernel has no real user stack to index
// into.
type TrapFrame struct {
	Op             Opcode
	A0, A1, A2, A3 uint32
	A5             uint32
	ReturnAddr     uintptr
	PC             uintptr
	PSR            uint32
}

const (
	retOK    = 0
	retFail  = 0xFFFFFFFF // -1 as an unsigned ABI register value
	retAbort = 0
)

// Dispatch decodes and executes the trap frame's operation as caller
// (spec.md §4.3). It sets Privileged on entry and clears it again before
// returning, matching the spec's requirement that a preemption mid-call
// restore correctly to privileged mode; source is used only by
// scheduler_start.
func (k *Kernel) Dispatch(caller ThreadID, frame *TrapFrame, source TickSource) {
	k.hal.SetPrivileged(true)
	defer k.hal.SetPrivileged(false)

	switch frame.Op {
	case OpSbrk:
		frame.A0 = k.sysSbrk(int32(frame.A0))
	case OpWrite:
		frame.A0 = k.sysWrite(int(frame.A0), frame.A1, int(frame.A2))
	case OpRead:
		frame.A0 = k.sysRead(int(frame.A0), frame.A1, int(frame.A2))
	case OpExit:
		k.ThreadKill(caller)
		frame.A0 = retAbort
	case OpThreadInit:
		cfg := Config{
			MaxThreads: int(frame.A0),
			StackWords: int(frame.A1),
			MaxMutexes: int(frame.A3),
		}
		if frame.A2 != 0 {
			if fn, ok := k.lookupFunc(frame.A2); ok {
				cfg.IdleFunc = fn
			}
		}
		frame.A0 = boolRet(k.ThreadInit(cfg) == nil)
	case OpThreadCreate:
		fn, ok := k.lookupFunc(frame.A0)
		if !ok {
			frame.A0 = retFail
			break
		}
		err := k.ThreadCreate(fn, int(frame.A1), int(frame.A2), int(frame.A3), frame.A5)
		frame.A0 = boolRet(err == nil)
	case OpThreadKill:
		k.ThreadKill(caller)
		frame.A0 = retAbort
	case OpSchedulerStart:
		err := k.SchedulerStart(int(frame.A0), source)
		frame.A0 = boolRet(err == nil)
	case OpMutexInit:
		id, err := k.MutexInit(int(frame.A0))
		if err != nil {
			frame.A0 = retFail
		} else {
			frame.A0 = uint32(id)
		}
	case OpMutexLock:
		_ = k.MutexLock(caller, MutexID(int32(frame.A0)))
		frame.A0 = retOK
	case OpMutexUnlock:
		_ = k.MutexUnlock(caller, MutexID(int32(frame.A0)))
		frame.A0 = retOK
	case OpWaitUntilNextPeriod:
		_ = k.WaitUntilNextPeriod(caller)
		frame.A0 = retOK
	case OpGetTime:
		frame.A0 = k.GetTime()
	case OpGetPriority:
		frame.A0 = uint32(k.GetPriority())
	case OpThreadTime:
		frame.A0 = k.ThreadTime()
	default:
		frame.A0 = retFail
	}
}

func boolRet(ok bool) uint32 {
	if ok {
		return retOK
	}
	return retFail
}

func (k *Kernel) lookupFunc(id uint32) (ThreadFunc, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	fn, ok := k.funcs[id]
	return fn, ok
}

// sysSbrk implements the sbrk(incr) syscall as a bookkeeping-only bump
// allocator: no memory is actually mapped, since real heap/MMU management is
// outside this kernel's scope.
func (k *Kernel) sysSbrk(incr int32) uint32 {
	k.mu.Lock()
	defer k.mu.Unlock()
	prev := k.brk
	next := int64(k.brk) + int64(incr)
	if next < 0 {
		return retFail
	}
	k.brk = uint32(next)
	return prev
}

func (k *Kernel) sysWrite(fd int, buf uint32, n int) uint32 {
	k.mu.Lock()
	io := k.io
	k.mu.Unlock()
	if io == nil {
		return retFail
	}
	written, err := io.Write(fd, make([]byte, n))
	if err != nil {
		return retFail
	}
	return uint32(written)
}

func (k *Kernel) sysRead(fd int, buf uint32, n int) uint32 {
	k.mu.Lock()
	io := k.io
	k.mu.Unlock()
	if io == nil {
		return retFail
	}
	read, err := io.Read(fd, make([]byte, n))
	if err != nil {
		return retFail
	}
	return uint32(read)
}
