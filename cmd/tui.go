// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Thermoquad/spiloop/pkg/spibridge"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Event log entry
type eventLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// TUI model
type runModel struct {
	connInfo      string
	seed          int64
	pattern       spibridge.Pattern
	frameSize     int
	spinner       spinner.Model
	stats         spibridge.Statistics
	iteration     uint64
	last          *spibridge.Exchange
	lastOutcome   string
	lastFailed    bool
	eventLog      []eventLogEntry
	maxLogEntries int
	width         int
	height        int
	done          bool
	quitting      bool
	cancel        context.CancelFunc
}

// Messages
type tickMsg time.Time
type exchangeMsg struct {
	ex          spibridge.Exchange
	verr        *spibridge.ValidationError
	transferErr error
	stats       spibridge.Statistics
}
type cycleMsg struct {
	iteration uint64
	stats     spibridge.Statistics
}
type doneMsg struct {
	err error
}

// formatElapsed formats a run duration as a human-friendly string
func formatElapsed(d time.Duration) string {
	seconds := uint64(d / time.Second)
	hours := seconds / 3600
	minutes := (seconds / 60) % 60
	seconds %= 60

	plural := func(n uint64, unit string) string {
		if n == 1 {
			return "1 " + unit
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}

	parts := []string{}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, plural(seconds, "second"))
	}

	if len(parts) == 1 {
		return parts[0]
	}
	last := parts[len(parts)-1]
	return strings.Join(parts[:len(parts)-1], ", ") + " and " + last
}

func newRunModel(h *harness, cancel context.CancelFunc) runModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))

	return runModel{
		connInfo:      h.conn.String(),
		seed:          h.gen.Seed(),
		pattern:       h.pattern,
		frameSize:     h.gen.FrameSize(),
		spinner:       s,
		stats:         *spibridge.NewStatistics(),
		eventLog:      make([]eventLogEntry, 0),
		maxLogEntries: 100,
		width:         80,
		height:        24,
		cancel:        cancel,
	}
}

func (m runModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			m.cancel()
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tickMsg:
		m.stats.CalculateRates()
		return m, tickCmd()

	case exchangeMsg:
		m.stats = msg.stats
		ex := msg.ex
		m.last = &ex
		switch {
		case msg.transferErr != nil:
			m.lastOutcome = "TRANSFER ERROR"
			m.lastFailed = true
			m.addLogEntry(fmt.Sprintf("%s: %v", spibridge.FormatStep(ex.Step), msg.transferErr), true)
		case msg.verr != nil:
			m.lastOutcome = msg.verr.Outcome.String()
			m.lastFailed = true
			m.addLogEntry(fmt.Sprintf("%s: %s", spibridge.FormatStep(ex.Step), msg.verr.Message), true)
		default:
			m.lastOutcome = spibridge.OutcomePass.String()
			m.lastFailed = false
		}

	case cycleMsg:
		m.stats = msg.stats
		m.iteration = msg.iteration
		m.addLogEntry(fmt.Sprintf("Cycle %d complete (%d exchanges)", msg.iteration, msg.stats.TotalExchanges), false)

	case doneMsg:
		m.done = true
		return m, tea.Quit
	}

	return m, nil
}

func (m *runModel) addLogEntry(message string, isError bool) {
	m.eventLog = append(m.eventLog, eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})

	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

func (m runModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	infoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	var s strings.Builder
	s.WriteString(titleStyle.Render("SPILOOP - SPI BRIDGE TEST"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Pattern: %s (seed %d) | Frame: %d bytes | Press 'q' to quit",
		m.connInfo, m.pattern, m.seed, m.frameSize)))
	s.WriteString("\n\n")

	if !m.done {
		s.WriteString(m.spinner.View())
		s.WriteString(infoStyle.Render(fmt.Sprintf(" Cycling, iteration %d", m.iteration)))
	} else {
		s.WriteString(statsValueStyle.Render("✓ Finished"))
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("  (running %s)", formatElapsed(time.Since(m.stats.StartTime)))))
	s.WriteString("\n\n")

	// Statistics
	var passPercent float64
	if m.stats.TotalExchanges > 0 {
		passPercent = float64(m.stats.Passed) * 100.0 / float64(m.stats.TotalExchanges)
	}
	failures := m.stats.Failures()

	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Cycles:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.Cycles)),
		statsLabelStyle.Render("Exchanges:"), statsValueStyle.Render(fmt.Sprintf("%d", m.stats.TotalExchanges)),
		statsLabelStyle.Render("Passed:"), statsValueStyle.Render(fmt.Sprintf("%d (%.1f%%)", m.stats.Passed, passPercent)),
		statsLabelStyle.Render("Failures:"), func() string {
			if failures > 0 {
				return errorStyle.Render(fmt.Sprintf("%d", failures))
			}
			return statsValueStyle.Render("0")
		}(),
	))

	if failures > 0 {
		statsContent.WriteString(headerStyle.Render(fmt.Sprintf("transfer: %d  invalid input: %d  identity: %d  length: %d  payload: %d",
			m.stats.TransferErrors, m.stats.InvalidInputs, m.stats.IdentityMismatches,
			m.stats.LengthMismatches, m.stats.PayloadMismatches)))
		statsContent.WriteString("\n")
	}

	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s",
		statsLabelStyle.Render("Exchange Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f xfers/s", m.stats.ExchangeRate)),
		statsLabelStyle.Render("Error Rate:"), func() string {
			if m.stats.ErrorRate > 0 {
				return errorStyle.Render(fmt.Sprintf("%.1f err/s", m.stats.ErrorRate))
			}
			return statsValueStyle.Render(fmt.Sprintf("%.1f err/s", m.stats.ErrorRate))
		}(),
	))

	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	if m.last != nil {
		s.WriteString(statsLabelStyle.Render("Last Exchange:"))
		s.WriteString("\n")

		outcome := statsValueStyle.Render(m.lastOutcome)
		if m.lastFailed {
			outcome = errorStyle.Render(m.lastOutcome)
		}

		lastContent := strings.Builder{}
		lastContent.WriteString(fmt.Sprintf("%s %s   %s\n",
			statsLabelStyle.Render("Step:"), spibridge.FormatStep(m.last.Step), outcome))
		lastContent.WriteString(fmt.Sprintf("%s %s\n",
			statsLabelStyle.Render("Sent:    "), spibridge.FormatHex(m.last.Sent)))
		lastContent.WriteString(fmt.Sprintf("%s %s",
			statsLabelStyle.Render("Received:"), spibridge.FormatHex(m.last.Received)))

		s.WriteString(boxStyle.Render(lastContent.String()))
		s.WriteString("\n\n")
	}

	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := m.height - 20
	if logHeight < 5 {
		logHeight = 5
	}

	logContent := strings.Builder{}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					infoStyle.Render("ℹ "+entry.message),
				))
			}
		}
	}

	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	return s.String()
}

// tuiObserver forwards sequencer events to the TUI program. It runs on the
// sequencer goroutine, so statistics are copied before they are sent.
type tuiObserver struct {
	p   *tea.Program
	seq *spibridge.Sequencer
}

func (o *tuiObserver) Sending(spibridge.Exchange)  {}
func (o *tuiObserver) Received(spibridge.Exchange) {}

func (o *tuiObserver) TransferFailed(ex spibridge.Exchange, err error) {
	o.p.Send(exchangeMsg{ex: ex, transferErr: err, stats: o.seq.Statistics().Snapshot()})
	log.WithField("step", spibridge.FormatStep(ex.Step)).WithError(err).Error("SPI transfer failed")
}

func (o *tuiObserver) Validated(ex spibridge.Exchange, verr *spibridge.ValidationError) {
	o.p.Send(exchangeMsg{ex: ex, verr: verr, stats: o.seq.Statistics().Snapshot()})
	if verr != nil {
		log.WithField("step", spibridge.FormatStep(ex.Step)).WithField("details", verr.Details).Error(verr.Message)
	}
}

func (o *tuiObserver) CycleComplete(iteration uint64, stats spibridge.Statistics) {
	o.p.Send(cycleMsg{iteration: iteration, stats: stats})
}

// runTUIMode runs the sequencer on its own goroutine behind the terminal UI
func runTUIMode(ctx context.Context, h *harness, cycles uint64) (*spibridge.Sequencer, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newRunModel(h, cancel), tea.WithAltScreen())
	obs := &tuiObserver{p: p}

	seq, err := spibridge.NewSequencer(h.conn, h.gen, h.plan, h.pattern, obs)
	if err != nil {
		return nil, err
	}
	obs.seq = seq

	done := make(chan error, 1)
	go func() {
		err := seq.Run(ctx, cycles)
		done <- err
		p.Send(doneMsg{err: err})
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-done
		return seq, fmt.Errorf("TUI error: %w", err)
	}

	// The UI may exit first when the user quits
	cancel()
	return seq, <-done
}
