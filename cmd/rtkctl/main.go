// Command rtkctl boots the kernel against the host-simulated platform and
// runs it for a fixed number of ticks, printing a snapshot at the end. It
// is a demo/integration harness, not a guest program: the threads it
// creates have no bodies, so only the kernel's own bookkeeping for them
// runs (spec.md §1 names sample user programs out of scope).
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cortexmcu/rtkernel/pkg/rtk"
	"github.com/cortexmcu/rtkernel/pkg/rtk/hal/sim"
)

type bootFlags struct {
	maxThreads int
	stackWords int
	maxMutexes int
	frequency  int
	ticks      int
}

func main() {
	flags := &bootFlags{}
	root := &cobra.Command{
		Use:   "rtkctl",
		Short: "Drive the real-time kernel core against the simulated platform",
	}

	boot := &cobra.Command{
		Use:   "boot",
		Short: "Run the kernel for a fixed number of ticks and print a snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoot(cmd.Context(), flags)
		},
	}
	boot.Flags().IntVar(&flags.maxThreads, "max-threads", 3, "number of user thread slots")
	boot.Flags().IntVar(&flags.stackWords, "stack-words", 256, "per-thread stack size in words")
	boot.Flags().IntVar(&flags.maxMutexes, "max-mutexes", 4, "mutex table capacity")
	boot.Flags().IntVar(&flags.frequency, "frequency", 1000, "tick frequency in Hz")
	boot.Flags().IntVar(&flags.ticks, "ticks", 2000, "number of ticks to run before reporting")
	root.AddCommand(boot)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runBoot(ctx context.Context, flags *bootFlags) error {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer logger.Sync()

	reg := prometheus.NewRegistry()
	metrics := rtk.NewMetrics(reg)
	platform := sim.New()
	k := rtk.New(logger.Sugar(), platform, metrics)

	if err := k.ThreadInit(rtk.Config{
		MaxThreads: flags.maxThreads,
		StackWords: flags.stackWords,
		MaxMutexes: flags.maxMutexes,
	}); err != nil {
		return err
	}

	for i := 0; i < flags.maxThreads; i++ {
		period := 100 * (i + 2)
		budget := period / 5
		if err := k.ThreadCreate(nil, i, budget, period, 0); err != nil {
			logger.Sugar().Warnw("thread_create rejected", "priority", i, "error", err)
		}
	}

	source := sim.NewTickSource()
	if err := k.SchedulerStart(flags.frequency, source); err != nil {
		return err
	}
	defer source.Stop()

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		for k.GetTime() < uint32(flags.ticks) {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
				time.Sleep(time.Millisecond)
			}
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		return err
	}

	snap := k.Snapshot()
	fmt.Printf("tick=%d current=%d\n", snap.TickCount, snap.Current)
	for _, t := range snap.Threads {
		fmt.Printf("  thread %d: prio=%d/%d state=%s elapsed=%d\n",
			t.ID, t.StaticPriority, t.DynamicPriority, t.State, t.Elapsed)
	}
	return nil
}
