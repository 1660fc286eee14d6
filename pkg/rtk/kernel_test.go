package rtk

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cortexmcu/rtkernel/pkg/rtk/hal/sim"
)

func TestThreadInitRejectsOversizedStack(t *testing.T) {
	k := New(zap.NewNop().Sugar(), sim.New(), nil)
	err := k.ThreadInit(Config{MaxThreads: MaxUserThreads, StackWords: MaxCombinedStackWords})
	require.ErrorIs(t, err, ErrStackBudgetExceeded)
}

func TestThreadInitRejectsOversizedMutexTable(t *testing.T) {
	k := New(zap.NewNop().Sugar(), sim.New(), nil)
	err := k.ThreadInit(Config{MaxThreads: 2, StackWords: 256, MaxMutexes: MaxMutexes + 1})
	require.ErrorIs(t, err, ErrMutexTableFull)
}

func TestThreadCreateRejectsInvalidPriority(t *testing.T) {
	k := newTestKernel(t, Config{MaxThreads: 2, StackWords: 256})
	require.ErrorIs(t, k.ThreadCreate(nil, -1, 10, 100, 0), ErrInvalidPriority)
	require.ErrorIs(t, k.ThreadCreate(nil, 2, 10, 100, 0), ErrInvalidPriority)
}

func TestThreadCreateRejectsBusySlot(t *testing.T) {
	k := newTestKernel(t, Config{MaxThreads: 2, StackWords: 256})
	require.NoError(t, k.ThreadCreate(nil, 0, 10, 100, 0))
	require.ErrorIs(t, k.ThreadCreate(nil, 0, 10, 100, 0), ErrSlotBusy)
}

func TestThreadCreateReusesKilledSlot(t *testing.T) {
	k := newTestKernel(t, Config{MaxThreads: 2, StackWords: 256})
	require.NoError(t, k.ThreadCreate(nil, 0, 10, 100, 0))
	require.NoError(t, k.ThreadKill(0))
	require.NoError(t, k.ThreadCreate(nil, 0, 10, 100, 0))
}

func TestSchedulerStartIsOneShot(t *testing.T) {
	k := newTestKernel(t, Config{MaxThreads: 1, StackWords: 256})
	require.NoError(t, k.SchedulerStart(0, nil))
	require.ErrorIs(t, k.SchedulerStart(0, nil), ErrAlreadyStarted)
}

func TestMutexOpsRequireStartedKernel(t *testing.T) {
	k := newTestKernel(t, Config{MaxThreads: 1, StackWords: 256, MaxMutexes: 1})
	_, err := k.MutexInit(0)
	require.ErrorIs(t, err, ErrNotStarted)
}

func TestKillingDefaultThreadHaltsTheKernel(t *testing.T) {
	k := newTestKernel(t, Config{MaxThreads: 1, StackWords: 256})
	require.NoError(t, k.SchedulerStart(0, nil))
	require.NoError(t, k.ThreadKill(k.defaultID()))

	k.Tick()

	snap := k.Snapshot()
	require.Equal(t, uint32(0), snap.TickCount, "halted kernel ignores further ticks")
}

func TestKillingIdleRestartsItsBody(t *testing.T) {
	k := newTestKernel(t, Config{MaxThreads: 1, StackWords: 256})
	require.NoError(t, k.ThreadKill(k.idleID()))

	k.mu.Lock()
	defer k.mu.Unlock()
	require.NotEqual(t, StateDone, k.tcb[k.idleID()].State, "idle is never actually terminated")
}

func TestGetTimeGetPriorityThreadTime(t *testing.T) {
	k := newTestKernel(t, Config{MaxThreads: 1, StackWords: 256})
	require.NoError(t, k.ThreadCreate(nil, 0, 10, 100, 0))
	require.NoError(t, k.SchedulerStart(0, nil))

	require.Equal(t, uint32(0), k.GetTime())
	require.Equal(t, 0, k.GetPriority())
	require.Equal(t, uint32(0), k.ThreadTime())

	k.Tick()
	require.Equal(t, uint32(1), k.GetTime())
	require.Equal(t, uint32(1), k.ThreadTime())
}

func TestRegisterThreadFuncRoundTrip(t *testing.T) {
	k := newTestKernel(t, Config{MaxThreads: 1, StackWords: 256})
	called := false
	id := k.RegisterThreadFunc(func(k *Kernel, self ThreadID) { called = true })
	require.NotZero(t, id)

	fn, ok := k.lookupFunc(id)
	require.True(t, ok)
	fn(k, 0)
	require.True(t, called)
}
