// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kineto Labs

package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/kinetolab/dxl/pkg/bus"
	"github.com/spf13/cobra"
)

var pingCmd = &cobra.Command{
	Use:   "ping <id>",
	Short: "Identify the device at one bus id",
	Long: `Send a PING to one id and print the device's model and firmware version.

Exit codes:
  0 - device answered
  1 - no answer or device fault
  2 - connection error`,
	Args: cobra.ExactArgs(1),
	RunE: runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
}

// parseID parses a bus id argument, rejecting broadcast and out-of-range
// values.
func parseID(arg string) (uint8, error) {
	v, err := strconv.ParseUint(arg, 0, 8)
	if err != nil || v < 1 || v > 252 {
		return 0, fmt.Errorf("invalid id %q (want 1-252)", arg)
	}
	return uint8(v), nil
}

func runPing(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	s, err := openBus()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer s.Close()

	info, err := s.bus.Ping(id, replyTimeout)
	if err != nil {
		fmt.Printf("id %d: %v\n", id, err)
		os.Exit(1)
	}

	fmt.Printf("id %d: %s (model %d, firmware v%d)\n",
		id, bus.ModelName(info.ModelNumber), info.ModelNumber, info.FirmwareVersion)
	return nil
}
