// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// spiloop - SPI Bridge Loopback Validation Harness
//
// A CLI tool for cycling test frames through every device behind the SPI
// bridge and validating each acknowledgement.

package main

import (
	"os"

	"github.com/Thermoquad/spiloop/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
