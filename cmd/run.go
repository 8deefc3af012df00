// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Thermoquad/spiloop/pkg/spibridge"
	"github.com/Thermoquad/spiloop/pkg/transport"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	runCycles     uint64
	runPattern    string
	runSeed       int64
	runStatsEvery uint64
	runQuiet      bool
	runTUI        bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Cycle every device pair until a response fails validation",
	Long: `Run the bridge test cycle.

Each cycle sends, in order:
  - RS485 1->2, 2->1, 3->4, 4->3
  - RS232 1->2, 2->1
  - CAN 1->2, 2->1
  - DI/DO sweep: every DO asserted with its DI deasserted, then reversed

Each response must come from the expected device, be exactly one frame long,
and echo the payload (CAN compares 8 data bytes). Serial and CAN frames
advance their first payload byte every cycle.

The cycle repeats forever unless --cycles is given. The first response that
fails validation stops the run with a non-zero exit code. Transfer errors are
logged and the cycle moves on to the next pair.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Uint64Var(&runCycles, "cycles", 0, "Number of cycles to run (0 = forever)")
	runCmd.Flags().StringVar(&runPattern, "pattern", "random", "Initial payloads: fixed or random")
	runCmd.Flags().Int64Var(&runSeed, "seed", 0, "Random seed (0 = time based)")
	runCmd.Flags().Uint64Var(&runStatsEvery, "stats-every", 100, "Print statistics every N cycles (0 = only at exit)")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "Only print failures and statistics")
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "Use terminal UI")
}

// harness bundles everything a run needs
type harness struct {
	conn    transport.Conn
	gen     *spibridge.Generator
	plan    spibridge.Plan
	pattern spibridge.Pattern
	log     *logrus.Entry
}

func newHarness(c Config, pattern string, seed int64) (*harness, error) {
	plan, err := loadPlan(c)
	if err != nil {
		return nil, err
	}

	p, err := spibridge.ParsePattern(pattern)
	if err != nil {
		return nil, err
	}

	gen, err := spibridge.NewGenerator(seed, c.FrameSize)
	if err != nil {
		return nil, err
	}

	conn, err := OpenConnection(c, plan)
	if err != nil {
		return nil, err
	}

	entry := log.WithFields(logrus.Fields{
		"session": uuid.New().String(),
		"conn":    conn.String(),
	})

	return &harness{conn: conn, gen: gen, plan: plan, pattern: p, log: entry}, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	if runTUI {
		if err := setupLogging(cfg, true); err != nil {
			return err
		}
	}

	h, err := newHarness(cfg, runPattern, runSeed)
	if err != nil {
		return err
	}
	defer h.conn.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h.log.WithFields(logrus.Fields{
		"seed":       h.gen.Seed(),
		"pattern":    h.pattern.String(),
		"frame_size": h.gen.FrameSize(),
		"cycles":     runCycles,
	}).Info("Starting test cycle")

	var seq *spibridge.Sequencer
	if runTUI {
		seq, err = runTUIMode(ctx, h, runCycles)
	} else {
		seq, err = runTextMode(ctx, h, runCycles)
	}
	if seq == nil {
		return err
	}

	fmt.Printf("\n%s", seq.Statistics().String())
	return finishRun(h, seq, err)
}

// runTextMode runs the sequencer with console narration
func runTextMode(ctx context.Context, h *harness, cycles uint64) (*spibridge.Sequencer, error) {
	fmt.Printf("spiloop - SPI Bridge Test\n")
	fmt.Printf("Connection: %s\n", h.conn.String())
	fmt.Printf("Pattern: %s (seed %d), frame size %d\n", h.pattern, h.gen.Seed(), h.gen.FrameSize())
	fmt.Printf("Press Ctrl+C to exit\n")

	obs := newConsoleObserver(os.Stdout, h.log, runStatsEvery, runQuiet)
	seq, err := spibridge.NewSequencer(h.conn, h.gen, h.plan, h.pattern, obs)
	if err != nil {
		return nil, err
	}
	return seq, seq.Run(ctx, cycles)
}

// finishRun reports how the run ended and converts it to the command result
func finishRun(h *harness, seq *spibridge.Sequencer, err error) error {
	entry := h.log.WithFields(logrus.Fields{
		"iterations": seq.Iteration(),
		"phase":      seq.Phase().String(),
	})

	var abort *spibridge.AbortError
	switch {
	case err == nil:
		entry.Info("Test cycle complete")
		return nil
	case errors.Is(err, context.Canceled):
		entry.Info("Test cycle interrupted")
		return nil
	case errors.As(err, &abort):
		fmt.Println(failStyle.Render(fmt.Sprintf("ABORTED: %s", abort.Error())))
		fmt.Print(dimStyle.Render(spibridge.FormatExchange(abort.Exchange)))
		fmt.Println()
		entry.WithField("outcome", abort.Err.Outcome.String()).Error("Test cycle aborted")
		return err
	default:
		entry.WithError(err).Error("Test cycle failed")
		return err
	}
}
