// Package sim is a software-simulated hal.Platform: the only backend this
// repository ships, since boot glue and vector-table dispatch for a real
// Cortex-M port are out of scope (spec.md §1). It exists so the kernel core
// can be driven and tested on any host, the way gVisor's systrap platform
// stands in for a guest CPU via ptrace rather than silicon.
package sim

import (
	"fmt"

	"github.com/cortexmcu/rtkernel/pkg/rtk/hal"
)

// Platform is a host-simulated hal.Platform. It does not execute any real
// machine instructions: Save/Restore simply record bookkeeping so the kernel
// core's state machine (and its tests) can observe that a switch happened
// and in what order, exactly as spec.md §4.2 describes the five trampoline
// steps.
type Platform struct {
	privileged bool
	halted     bool
	haltReason string

	// current is the frame most recently handed to Restore, retained for
	// introspection (Snapshot, tests).
	current hal.Frame
}

// New returns a ready Platform.
func New() *Platform {
	return &Platform{}
}

// BuildInitialFrame implements hal.Platform.
func (p *Platform) BuildInitialFrame(fn uintptr, argp uint32, terminator uintptr) hal.Frame {
	return hal.Frame{
		PC:  fn,
		LR:  terminator,
		Arg: argp,
		// Thumb-bit-only status word: bit 24 (EPSR.T) set, nothing else.
		PSR: 1 << 24,
	}
}

// Save implements hal.Platform. There is no real register file to read on
// the host, so the returned frame is the one most recently passed to
// Restore with its UserSP replaced by userSP; a bare-metal port overwrites
// Registers from the exception entry stub.
func (p *Platform) Save(userSP uintptr) hal.Frame {
	f := p.current
	f.UserSP = userSP
	return f
}

// Restore implements hal.Platform.
func (p *Platform) Restore(f hal.Frame) {
	p.current = f
}

// Privileged implements hal.Platform.
func (p *Platform) Privileged() bool { return p.privileged }

// SetPrivileged implements hal.Platform.
func (p *Platform) SetPrivileged(v bool) { p.privileged = v }

// Halt implements hal.Platform. The simulated core just latches the halt
// state; callers (cmd/rtkctl, tests) observe it via Halted.
func (p *Platform) Halt(reason string) {
	p.halted = true
	p.haltReason = reason
}

// Halted reports whether Halt was called, and with what reason. Simulation
// and test-only introspection; a real port would instead be looping on WFI.
func (p *Platform) Halted() (bool, string) {
	return p.halted, p.haltReason
}

func (p *Platform) String() string {
	return fmt.Sprintf("sim.Platform{privileged=%v halted=%v}", p.privileged, p.halted)
}
