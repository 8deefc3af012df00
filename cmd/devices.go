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

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List the bridge's logical devices",
	Long: `List every logical device the bridge addresses, with its class and the
device expected to acknowledge frames it sends under the current plan.`,
	RunE: runDevices,
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}

var (
	tableHeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true).Padding(0, 1)
	tableCellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// deviceTable renders the registry as a table
func deviceTable(plan spibridge.Plan) *table.Table {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers("ID", "NAME", "CLASS", "RESPONDER").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})

	for _, id := range spibridge.Devices() {
		responder := "-"
		if to, ok := plan.Partner(id); ok {
			responder = to.String()
		}
		t.Row(fmt.Sprintf("0x%02X", byte(id)), id.String(), id.Class().String(), responder)
	}
	return t
}

func runDevices(cmd *cobra.Command, args []string) error {
	plan, err := loadPlan(cfg)
	if err != nil {
		return err
	}
	fmt.Println(deviceTable(plan).Render())
	return nil
}
