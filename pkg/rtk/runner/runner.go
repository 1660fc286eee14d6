// Package runner drives a rtk.Kernel's thread bodies as real goroutines,
// gated by a per-thread baton that is granted only to the kernel-selected
// "Running" thread — the host-process analogue of a real Cortex-M's
// exception return resuming exactly one PC. A body that has already passed
// Baton.Wait keeps running until it next checks Baton.Done; the Runner does
// not stop it. It exists outside pkg/rtk because the kernel core itself
// never calls user code (SPEC_FULL.md §A); this is the optional piece that
// does, for integration tests that want to see real goroutines run under
// the kernel's scheduling decisions rather than driving the syscalls by
// hand. cmd/rtkctl does not use it.
//
// Modelled on the baton/availability-channel pattern used to simulate a Go
// scheduler over plain goroutines in the retrieved toy-scheduler reference
// (an M grants its P to a new M by sending on a channel rather than the
// receiver polling); here a single Runner grants the core to a thread by
// setting that thread's baton and broadcasting on its condition variable.
package runner

import (
	"sync"

	"github.com/cortexmcu/rtkernel/pkg/rtk"
)

// Body is a thread body driven by the Runner. It receives a Baton and must
// call Baton.Wait before touching shared state or calling back into the
// kernel, and should check Baton.Done between logical steps of its job so a
// preempted thread actually stops making progress promptly.
type Body func(k *rtk.Kernel, self rtk.ThreadID, baton *Baton)

// Baton grants one thread permission to run. Wait blocks until the Runner's
// poll loop has observed this thread as Kernel.Current(); Done reports
// whether the kernel has since moved on to another thread, so a body
// mid-job can yield promptly instead of racing the next poll.
type Baton struct {
	mu      sync.Mutex
	cond    *sync.Cond
	granted bool
	revoked bool
}

func newBaton() *Baton {
	b := &Baton{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Wait blocks until this thread is granted the core.
func (b *Baton) Wait() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for !b.granted {
		b.cond.Wait()
	}
}

// Done reports whether the core has since been revoked.
func (b *Baton) Done() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.revoked
}

func (b *Baton) grant() {
	b.mu.Lock()
	b.granted = true
	b.revoked = false
	b.mu.Unlock()
	b.cond.Broadcast()
}

func (b *Baton) revoke() {
	b.mu.Lock()
	b.granted = false
	b.revoked = true
	b.mu.Unlock()
}

// Runner polls a Kernel's current thread and grants/revokes batons
// accordingly, starting one goroutine per registered body.
type Runner struct {
	k       *rtk.Kernel
	mu      sync.Mutex
	batons  map[rtk.ThreadID]*Baton
	last    rtk.ThreadID
	stop    chan struct{}
	stopped chan struct{}
}

// New returns a Runner bound to k. Call Register for each thread before
// Start.
func New(k *rtk.Kernel) *Runner {
	return &Runner{
		k:       k,
		batons:  make(map[rtk.ThreadID]*Baton),
		last:    -1,
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Register starts body as thread id's goroutine. Call before Start.
func (r *Runner) Register(id rtk.ThreadID, body Body) {
	b := newBaton()
	r.mu.Lock()
	r.batons[id] = b
	r.mu.Unlock()
	go body(r.k, id, b)
}

// Start begins polling Kernel.Current and granting/revoking batons. pollEvery
// governs responsiveness; a real port has no equivalent of this, since the
// exception return is instantaneous and synchronous.
func (r *Runner) Start(pollEvery func() <-chan struct{}) {
	go func() {
		defer close(r.stopped)
		for {
			select {
			case <-r.stop:
				return
			case <-pollEvery():
				r.poll()
			}
		}
	}()
}

func (r *Runner) poll() {
	cur := r.k.Current()
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur == r.last {
		return
	}
	if old, ok := r.batons[r.last]; ok {
		old.revoke()
	}
	if next, ok := r.batons[cur]; ok {
		next.grant()
	}
	r.last = cur
}

// Stop halts the poll loop and waits for it to exit. Registered goroutines
// are not joined: a well-behaved Body returns once it observes Done and its
// job is complete, but the Runner does not force that.
func (r *Runner) Stop() {
	close(r.stop)
	<-r.stopped
}
