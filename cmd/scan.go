// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kineto Labs

package cmd

import (
	"fmt"
	"os"

	"github.com/kinetolab/dxl/pkg/bus"
	"github.com/spf13/cobra"
)

var (
	scanFull  bool
	scanFirst uint8
	scanLast  uint8
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Discover devices on the bus",
	Long: `Probe bus ids sequentially with bounded-timeout pings and report every
device that answers.

The default quick scan covers ids 1-20, where factory-fresh devices live.
Use --full for all assignable ids (1-252), or --first/--last for a custom
range. Probing is strictly sequential: the bus is half-duplex, so one id
is always in flight at a time.

Examples:
  dxl scan --port /dev/ttyUSB0
  dxl scan --port /dev/ttyUSB0 --full
  dxl scan --url ws://bridge.local/bus --first 10 --last 30

Exit codes:
  0 - at least one device found
  1 - no devices found
  2 - connection error`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().BoolVar(&scanFull, "full", false, "Scan all assignable ids (1-252)")
	scanCmd.Flags().Uint8Var(&scanFirst, "first", 0, "First id of a custom range")
	scanCmd.Flags().Uint8Var(&scanLast, "last", 0, "Last id of a custom range")
}

func runScan(cmd *cobra.Command, args []string) error {
	s, err := openBus()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer s.Close()

	first, last := uint8(bus.QuickScanFirst), uint8(bus.QuickScanLast)
	if scanFull {
		first, last = bus.FullScanFirst, bus.FullScanLast
	}
	if scanFirst != 0 || scanLast != 0 {
		first, last = scanFirst, scanLast
	}

	fmt.Printf("dxl - Device Scan\n")
	fmt.Printf("Connection: %s\n", s.connInfo)
	fmt.Printf("Range: %d-%d, %v per id\n\n", first, last, replyTimeout)

	found := s.bus.Scan(first, last, replyTimeout, func(p bus.ScanProgress) {
		if p.Found != nil {
			fmt.Printf("  id %3d: %s (model %d, firmware v%d)\n",
				p.Found.ID, p.Found.ModelName, p.Found.ModelNumber, p.Found.FirmwareVersion)
		} else if p.Err != nil {
			fmt.Printf("  id %3d: %v\n", p.ID, p.Err)
		}
	})

	fmt.Printf("\nDevices found: %d\n", len(found))
	if len(found) == 0 {
		os.Exit(1)
	}
	return nil
}
