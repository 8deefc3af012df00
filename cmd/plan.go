// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/Thermoquad/spiloop/pkg/spibridge"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var (
	planPattern string
	planSeed    int64
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show one cycle of the test plan",
	Long: `Show every step of one cycle in order, with the frame each step sends on
the first iteration. Use the same --pattern and --seed as a run to preview
its frames.`,
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().StringVar(&planPattern, "pattern", "fixed", "Initial payloads: fixed or random")
	planCmd.Flags().Int64Var(&planSeed, "seed", 0, "Random seed (0 = time based)")
}

// planTable renders one cycle of steps with their first-iteration frames
func planTable(plan spibridge.Plan, gen *spibridge.Generator, pattern spibridge.Pattern) *table.Table {
	frames := make(map[spibridge.DeviceID]spibridge.Frame)
	for _, pair := range plan.Pairs {
		frames[pair.From] = gen.Build(pair, pattern)
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers("#", "STEP", "FRAME").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})

	for i, step := range plan.Steps() {
		var frame spibridge.Frame
		if step.Digital {
			frame = gen.Fixed(step.From, nil)
			frame.SetState(step.State)
		} else {
			frame = frames[step.From].Clone()
			frame.Mutate()
		}
		t.Row(fmt.Sprintf("%d", i+1), spibridge.FormatStep(step), spibridge.FormatHex(frame))
	}
	return t
}

func runPlan(cmd *cobra.Command, args []string) error {
	plan, err := loadPlan(cfg)
	if err != nil {
		return err
	}

	pattern, err := spibridge.ParsePattern(planPattern)
	if err != nil {
		return err
	}

	gen, err := spibridge.NewGenerator(planSeed, cfg.FrameSize)
	if err != nil {
		return err
	}

	fmt.Printf("Pattern: %s (seed %d), frame size %d, %d steps per cycle\n",
		pattern, gen.Seed(), gen.FrameSize(), len(plan.Steps()))
	fmt.Println(planTable(plan, gen, pattern).Render())
	return nil
}
