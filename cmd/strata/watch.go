package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/aretw0/lifecycle/pkg/core/supervisor"
	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/spf13/cobra"

	"github.com/aretw0/strata"
	"github.com/aretw0/strata/pkg/adapters/fs"
)

var (
	watchFlags    engineFlags
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch <input>",
	Short: "Scan an exported folder and rescan it whenever it changes",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		opts, err := watchFlags.options(cmd)
		if err != nil {
			fatal("Error loading configuration", err)
		}

		eng, err := strata.New(args[0], opts...)
		if err != nil {
			fatal("Error initializing strata", err)
		}
		defer eng.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		report, err := eng.Run(ctx)
		if err != nil {
			fatal("Error scanning", err)
		}
		printReport(report)

		rescan := func(ctx context.Context, paths []string) {
			slog.Info("changes detected", "paths", len(paths))
			report, err := eng.Run(ctx)
			if err != nil {
				slog.Error("rescan failed", "error", err)
				return
			}
			printReport(report)
		}

		spec := supervisor.Spec{
			Name: "fs-watcher",
			Type: string(worker.TypeGoroutine),
			Factory: func() (worker.Worker, error) {
				return fs.NewWatcher(fs.WatchConfig{
					Root:     args[0],
					Debounce: watchDebounce,
					Ignore:   outputIgnore(args[0], eng.Output),
					Logger:   slog.Default(),
				}, rescan), nil
			},
			Backoff: supervisor.Backoff{
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     10 * time.Second,
				Multiplier:      2,
				ResetDuration:   time.Minute,
				MaxRestarts:     5,
				MaxDuration:     5 * time.Minute,
			},
			RestartPolicy: supervisor.RestartOnFailure,
		}

		sup := supervisor.New("strata-watch", supervisor.StrategyOneForOne, spec)
		if err := sup.Start(ctx); err != nil {
			fatal("Error starting watcher", err)
		}
		fmt.Printf("Watching %s (Ctrl+C to stop)\n", args[0])

		<-ctx.Done()

		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sup.Stop(stopCtx); err != nil {
			slog.Warn("watcher did not stop cleanly", "error", err)
		}
	},
}

// outputIgnore returns the globs that keep the watcher from reacting to its
// own writes when the output lives inside the input.
func outputIgnore(input, output string) []string {
	if output == "" {
		return nil
	}
	in, err := filepath.Abs(input)
	if err != nil {
		return nil
	}
	out, err := filepath.Abs(output)
	if err != nil {
		return nil
	}
	rel, err := filepath.Rel(in, out)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return nil
	}
	rel = filepath.ToSlash(rel)
	return []string{rel, rel + "/**", rel + "-*"}
}

func init() {
	watchFlags.register(watchCmd)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", fs.DefaultDebounce, "Quiet period before a rescan")
	rootCmd.AddCommand(watchCmd)
}
