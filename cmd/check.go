// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/Thermoquad/spiloop/pkg/spibridge"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	checkFrom    string
	checkTo      string
	checkPayload string
	checkRandom  bool
	checkState   string
	checkSeed    int64
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Send a single frame and validate the response",
	Long: `Send one frame from a device and validate the bridge's response.

The responder defaults to the sender's partner in the plan. Digital devices
acknowledge with their own id. Without --payload or --random the plan's fixed
payload for the sender is used.

Exit codes:
  0 - Response passed validation
  1 - Response failed validation
  2 - Connection or transfer error

Useful for checking a single link before starting a full run.`,
	Example: `  spiloop check --from RS485_1
  spiloop check --from CAN_2 --payload "18 17 16 15 14 13 12 11"
  spiloop check --from DO_3 --state on -t serial -d /dev/ttyUSB0`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVar(&checkFrom, "from", "", "Sending device (name or id)")
	checkCmd.Flags().StringVar(&checkTo, "to", "", "Expected responder (default: partner from the plan)")
	checkCmd.Flags().StringVar(&checkPayload, "payload", "", "Payload as hex bytes")
	checkCmd.Flags().BoolVar(&checkRandom, "random", false, "Use a random payload")
	checkCmd.Flags().StringVar(&checkState, "state", "on", "Digital state to write: on or off")
	checkCmd.Flags().Int64Var(&checkSeed, "seed", 0, "Random seed (0 = time based)")
	checkCmd.MarkFlagRequired("from")
}

// parseHexPayload accepts hex bytes with optional spaces, colons or 0x prefixes
func parseHexPayload(s string) ([]byte, error) {
	s = strings.ReplaceAll(s, "0x", "")
	s = strings.ReplaceAll(s, "0X", "")
	s = strings.NewReplacer(" ", "", ":", "", ",", "").Replace(s)
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid payload: %w", err)
	}
	return data, nil
}

// parseState maps on/off to a digital state byte
func parseState(s string) (byte, error) {
	switch strings.ToLower(s) {
	case "on", "1", "high":
		return spibridge.StateAsserted, nil
	case "off", "0", "low":
		return spibridge.StateDeasserted, nil
	default:
		return 0, fmt.Errorf("invalid state %q (use on or off)", s)
	}
}

// checkRequest is a fully resolved single exchange
type checkRequest struct {
	step  spibridge.Step
	frame spibridge.Frame
}

// buildCheck resolves the devices and frame for one check exchange
func buildCheck(gen *spibridge.Generator, plan spibridge.Plan, from, to, payload string, random bool, state string) (checkRequest, error) {
	var req checkRequest

	src, err := spibridge.ParseDevice(from)
	if err != nil {
		return req, err
	}

	dst, ok := plan.Partner(src)
	if to != "" {
		if dst, err = spibridge.ParseDevice(to); err != nil {
			return req, err
		}
	} else if !ok {
		return req, fmt.Errorf("%s has no partner in the plan, use --to", src)
	}

	req.step = spibridge.Step{From: src, To: dst}

	if src.Class() == spibridge.ClassDigital {
		st, err := parseState(state)
		if err != nil {
			return req, err
		}
		req.step.Digital = true
		req.step.State = st
		req.frame = gen.Fixed(src, nil)
		req.frame.SetState(st)
		return req, nil
	}

	switch {
	case payload != "":
		data, err := parseHexPayload(payload)
		if err != nil {
			return req, err
		}
		if len(data) > gen.FrameSize()-1 {
			return req, fmt.Errorf("payload is %d bytes, frame holds %d", len(data), gen.FrameSize()-1)
		}
		if req.frame, err = spibridge.NewFrameWithPayload(src, gen.FrameSize(), data); err != nil {
			return req, err
		}
	case random:
		req.frame = gen.Random(src)
	default:
		req.frame = gen.Random(src)
		for _, pair := range plan.Pairs {
			if pair.From == src {
				req.frame = gen.Build(pair, spibridge.PatternFixed)
				break
			}
		}
	}
	return req, nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	plan, err := loadPlan(cfg)
	if err != nil {
		return err
	}

	gen, err := spibridge.NewGenerator(checkSeed, cfg.FrameSize)
	if err != nil {
		return err
	}

	req, err := buildCheck(gen, plan, checkFrom, checkTo, checkPayload, checkRandom, checkState)
	if err != nil {
		return err
	}

	conn, err := OpenConnection(cfg, plan)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	fmt.Printf("spiloop - Single Frame Check\n")
	fmt.Printf("Connection: %s\n", conn.String())
	fmt.Printf("Step: %s\n\n", spibridge.FormatStep(req.step))

	seq, err := spibridge.NewSequencer(conn, gen, plan, spibridge.PatternFixed, spibridge.NopObserver{})
	if err != nil {
		return err
	}

	ex, verr, err := seq.Transact(req.step, req.frame)
	fmt.Print(spibridge.FormatExchange(ex))

	entry := log.WithFields(logrus.Fields{
		"from": req.step.From.String(),
		"to":   req.step.To.String(),
	})

	switch {
	case err != nil:
		entry.WithError(err).Error("SPI transfer failed")
		fmt.Fprintf(os.Stderr, "TRANSFER ERROR: %v\n", err)
		conn.Close()
		os.Exit(2)
	case verr != nil:
		entry.WithField("outcome", verr.Outcome.String()).Error(verr.Message)
		fmt.Println(failStyle.Render(fmt.Sprintf("FAIL: %s", verr.Message)))
		conn.Close()
		os.Exit(1)
	}

	fmt.Println(passStyle.Render("PASS: response matched"))
	return nil
}
