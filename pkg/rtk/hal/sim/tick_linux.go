//go:build linux

package sim

import (
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// LinuxTickSource drives the tick callback off a timerfd instead of
// time.Ticker, the way the teacher's systrap platform reaches for raw
// unix.RawSyscall/unix.Wait4 rather than a Go-level abstraction when it
// needs precise control over a kernel-delivered event. Closer to how a real
// SysTick's hardware underflow behaves than a runtime-scheduled ticker,
// since the firing is entirely kernel-driven rather than goroutine-scheduled.
type LinuxTickSource struct {
	mu      sync.Mutex
	fd      int
	stop    chan struct{}
	wg      sync.WaitGroup
	running bool
}

// NewLinuxTickSource returns a timerfd-backed TickSource-compatible type.
func NewLinuxTickSource() *LinuxTickSource {
	return &LinuxTickSource{}
}

// Start implements the same contract as TickSource.Start.
func (s *LinuxTickSource) Start(frequency int, onTick func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	fd, err := unix.TimerfdCreate(unix.CLOCK_MONOTONIC, 0)
	if err != nil {
		return errors.Wrapf(err, "timerfd_create")
	}
	periodNS := int64(1e9) / int64(frequency)
	spec := unix.ItimerSpec{
		Interval: unix.NsecToTimespec(periodNS),
		Value:    unix.NsecToTimespec(periodNS),
	}
	if err := unix.TimerfdSettime(fd, 0, &spec, nil); err != nil {
		unix.Close(fd)
		return errors.Wrapf(err, "timerfd_settime(frequency=%d)", frequency)
	}

	s.fd = fd
	s.stop = make(chan struct{})
	s.running = true

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		buf := make([]byte, 8)
		for {
			select {
			case <-s.stop:
				return
			default:
			}
			n, err := unix.Read(fd, buf)
			if err != nil || n != len(buf) {
				select {
				case <-s.stop:
					return
				default:
					continue
				}
			}
			onTick()
		}
	}()
	return nil
}

// Stop halts the timerfd loop and closes the descriptor.
func (s *LinuxTickSource) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	fd := s.fd
	s.mu.Unlock()
	unix.Close(fd)
	s.wg.Wait()
}
