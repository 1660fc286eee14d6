package rtk

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cortexmcu/rtkernel/pkg/rtk/hal/sim"
)

type fakeStdio struct {
	writeErr error
	readErr  error
}

func (f *fakeStdio) Write(fd int, p []byte) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	return len(p), nil
}

func (f *fakeStdio) Read(fd int, p []byte) (int, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	return len(p), nil
}

func TestDispatchThreadInitAndCreateViaTrapFrame(t *testing.T) {
	k := New(zap.NewNop().Sugar(), sim.New(), nil)

	init := &TrapFrame{Op: OpThreadInit, A0: 2, A1: 256, A3: 1}
	k.Dispatch(0, init, nil)
	require.EqualValues(t, retOK, init.A0)

	create := &TrapFrame{Op: OpThreadCreate, A0: 0, A1: 0, A2: 10, A3: 100}
	k.Dispatch(0, create, nil)
	require.EqualValues(t, retFail, create.A0, "fn id 0 was never registered")

	id := k.RegisterThreadFunc(func(k *Kernel, self ThreadID) {})
	create2 := &TrapFrame{Op: OpThreadCreate, A0: id, A1: 0, A2: 10, A3: 100}
	k.Dispatch(0, create2, nil)
	require.EqualValues(t, retOK, create2.A0)
}

func TestDispatchGetTimeAndPriority(t *testing.T) {
	k := newTestKernel(t, Config{MaxThreads: 1, StackWords: 256})
	require.NoError(t, k.ThreadCreate(nil, 0, 10, 100, 0))
	require.NoError(t, k.SchedulerStart(0, nil))

	frame := &TrapFrame{Op: OpGetTime}
	k.Dispatch(0, frame, nil)
	require.EqualValues(t, 0, frame.A0)

	frame = &TrapFrame{Op: OpGetPriority}
	k.Dispatch(0, frame, nil)
	require.EqualValues(t, 0, frame.A0)
}

func TestDispatchMutexOps(t *testing.T) {
	k := newTestKernel(t, Config{MaxThreads: 1, StackWords: 256, MaxMutexes: 1})
	require.NoError(t, k.ThreadCreate(nil, 0, 10, 100, 0))
	require.NoError(t, k.SchedulerStart(0, nil))

	initFrame := &TrapFrame{Op: OpMutexInit, A0: 0}
	k.Dispatch(0, initFrame, nil)
	require.NotEqual(t, retFail, initFrame.A0)
	m := MutexID(initFrame.A0)

	lock := &TrapFrame{Op: OpMutexLock, A0: uint32(m)}
	k.Dispatch(0, lock, nil)

	k.mu.Lock()
	require.Equal(t, ThreadID(0), k.mutexes[m].owner)
	k.mu.Unlock()

	unlock := &TrapFrame{Op: OpMutexUnlock, A0: uint32(m)}
	k.Dispatch(0, unlock, nil)

	k.mu.Lock()
	require.Equal(t, noOwner, k.mutexes[m].owner)
	k.mu.Unlock()
}

func TestDispatchWriteReadGoThroughStdio(t *testing.T) {
	k := newTestKernel(t, Config{MaxThreads: 1, StackWords: 256})
	k.SetStdio(&fakeStdio{})

	write := &TrapFrame{Op: OpWrite, A0: 1, A2: 5}
	k.Dispatch(0, write, nil)
	require.EqualValues(t, 5, write.A0)

	read := &TrapFrame{Op: OpRead, A0: 0, A2: 3}
	k.Dispatch(0, read, nil)
	require.EqualValues(t, 3, read.A0)
}

func TestDispatchWriteWithoutStdioFails(t *testing.T) {
	k := newTestKernel(t, Config{MaxThreads: 1, StackWords: 256})
	write := &TrapFrame{Op: OpWrite, A0: 1, A2: 5}
	k.Dispatch(0, write, nil)
	require.EqualValues(t, retFail, write.A0)
}

func TestDispatchSbrkBumpsAndRejectsNegative(t *testing.T) {
	k := New(zap.NewNop().Sugar(), sim.New(), nil)

	a := &TrapFrame{Op: OpSbrk, A0: uint32(int32(100))}
	k.Dispatch(0, a, nil)
	require.EqualValues(t, 0, a.A0, "previous break")

	b := &TrapFrame{Op: OpSbrk, A0: uint32(int32(-200))}
	k.Dispatch(0, b, nil)
	require.EqualValues(t, retFail, b.A0)
}

func TestDispatchUnknownOpcodeFails(t *testing.T) {
	k := New(zap.NewNop().Sugar(), sim.New(), nil)
	frame := &TrapFrame{Op: Opcode(250)}
	k.Dispatch(0, frame, nil)
	require.EqualValues(t, retFail, frame.A0)
}
