// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/Thermoquad/spiloop/pkg/transport"
	"github.com/spf13/cobra"
)

var discoveryCmd = &cobra.Command{
	Use:   "discovery",
	Short: "List SPI and serial ports the harness can open",
	Long: `List the ports available to the spidev and serial transports.

SPI ports come from the host's spidev drivers and can be passed to --device by
path or by name. Serial ports include USB identification when available.

Examples:
  spiloop discovery
  spiloop run --transport spidev --device SPI0.1`,
	RunE: runDiscovery,
}

func init() {
	rootCmd.AddCommand(discoveryCmd)
}

func runDiscovery(cmd *cobra.Command, args []string) error {
	fmt.Printf("spiloop - Port Discovery\n\n")

	found := 0

	spiPorts, err := transport.SPIPorts()
	if err != nil {
		log.WithError(err).Warn("SPI discovery failed")
	}
	fmt.Println(sendingStyle.Render("SPI ports:"))
	if len(spiPorts) == 0 {
		fmt.Println(dimStyle.Render("  (none)"))
	}
	for _, name := range spiPorts {
		fmt.Printf("  %s\n", name)
		found++
	}

	serialPorts, err := transport.SerialPorts()
	if err != nil {
		log.WithError(err).Warn("Serial discovery failed")
	}
	fmt.Println(sendingStyle.Render("\nSerial ports:"))
	if len(serialPorts) == 0 {
		fmt.Println(dimStyle.Render("  (none)"))
	}
	for _, port := range serialPorts {
		if port.IsUSB {
			fmt.Printf("  %s  USB %s:%s %s\n", port.Name, port.VID, port.PID, port.Product)
		} else {
			fmt.Printf("  %s\n", port.Name)
		}
		found++
	}

	if found == 0 {
		return fmt.Errorf("no ports found")
	}
	fmt.Printf("\n%d port(s) found\n", found)
	return nil
}
