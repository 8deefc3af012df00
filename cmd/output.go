// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"io"

	"github.com/Thermoquad/spiloop/pkg/spibridge"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"
)

// Console styles
var (
	sendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")) // yellow
	dataStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14")) // cyan
	passStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// consoleObserver narrates every exchange on a text console
type consoleObserver struct {
	out        io.Writer
	log        *logrus.Entry
	statsEvery uint64
	quiet      bool
}

func newConsoleObserver(out io.Writer, entry *logrus.Entry, statsEvery uint64, quiet bool) *consoleObserver {
	return &consoleObserver{out: out, log: entry, statsEvery: statsEvery, quiet: quiet}
}

func (o *consoleObserver) Sending(ex spibridge.Exchange) {
	if o.quiet {
		return
	}
	fmt.Fprintf(o.out, "\n%s\n", sendingStyle.Render(fmt.Sprintf("Sending....iteration %d, device [%s] to [%s]:",
		ex.Iteration, ex.Step.From, ex.Step.To)))
	fmt.Fprintln(o.out, dataStyle.Render(fmt.Sprintf("Sending  data, iteration %d: %s", ex.Iteration, spibridge.FormatHex(ex.Sent))))
}

func (o *consoleObserver) Received(ex spibridge.Exchange) {
	if o.quiet {
		return
	}
	fmt.Fprintln(o.out, dataStyle.Render(fmt.Sprintf("Received data, iteration %d: %s", ex.Iteration, spibridge.FormatHex(ex.Received))))
}

func (o *consoleObserver) TransferFailed(ex spibridge.Exchange, err error) {
	o.log.WithFields(logrus.Fields{
		"iteration": ex.Iteration,
		"from":      ex.Step.From.String(),
		"to":        ex.Step.To.String(),
	}).WithError(err).Error("SPI transfer failed")
}

func (o *consoleObserver) Validated(ex spibridge.Exchange, verr *spibridge.ValidationError) {
	// The length check precedes the payload check, so a payload mismatch
	// still means the length was right
	lengthOK := verr == nil || verr.Outcome == spibridge.OutcomePayloadMismatch
	if lengthOK && !o.quiet {
		fmt.Fprintln(o.out, passStyle.Render(fmt.Sprintf("Received data length: %d bytes, expected length: %d bytes",
			ex.ReceivedLen, len(ex.Sent))))
	}

	if verr == nil {
		return
	}

	fmt.Fprintln(o.out, failStyle.Render("Data validation failed: "+verr.Message))
	fields := logrus.Fields{
		"iteration": ex.Iteration,
		"from":      ex.Step.From.String(),
		"to":        ex.Step.To.String(),
		"outcome":   verr.Outcome.String(),
		"sent":      spibridge.FormatHex(ex.Sent),
		"received":  spibridge.FormatHex(ex.Received),
		"details":   verr.Details,
	}
	o.log.WithFields(fields).Error("Data validation failed")
}

func (o *consoleObserver) CycleComplete(iteration uint64, stats spibridge.Statistics) {
	o.log.WithFields(logrus.Fields{
		"iteration": iteration,
		"exchanges": stats.TotalExchanges,
		"failures":  stats.Failures(),
	}).Debug("Cycle complete")

	if o.statsEvery > 0 && iteration%o.statsEvery == 0 {
		fmt.Fprintf(o.out, "\n%s", stats.String())
	}
}
