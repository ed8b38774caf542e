// Command simhost boots the kernel on top of goroutines and runs one of
// the testable scenarios from SPEC_FULL.md §10 for the wall-clock time given
// by -for (or until interrupted), logging task lifecycle events as it goes.
// It exists to give the kernel a
// runnable home outside of its test suite — there is no bare-metal target
// to flash from this repository.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"golang.org/x/sync/errgroup"

	"corertos/hal"
	"corertos/internal/buildinfo"
	"corertos/kernel"
)

func main() {
	var scenario string
	var runFor time.Duration
	flag.StringVar(&scenario, "scenario", "sleepers", "Demo scenario to run: sleepers, mutex, producer-consumer, mempool.")
	flag.DurationVar(&runFor, "for", 2*time.Second, "Wall-clock time to let the scenario run before exiting.")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))
	log.Info("simhost starting", "version", buildinfo.Short(), "scenario", scenario)

	run, ok := scenarios[scenario]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown scenario %q\n", scenario)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	k := kernel.New(hal.NewHostRunner())
	k.SetLogger(log)

	var g errgroup.Group
	g.Go(func() error {
		run(k, log)
		return nil
	})
	g.Go(func() error {
		// OS.Start never returns — it is the scheduler driver loop itself,
		// exactly as the original OS_start never returns to main().
		k.Start()
		return nil
	})

	select {
	case <-ctx.Done():
		log.Info("simhost interrupted")
	case <-time.After(runFor):
		log.Info("simhost finished", "ran_for", runFor)
	}
}
