// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kineto Labs

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/kinetolab/dxl/pkg/capture"
	"github.com/kinetolab/dxl/pkg/proto2"
	"github.com/spf13/cobra"
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Work with bus traffic capture files",
	Long: `Inspect capture files recorded with the global --capture flag.

Recording happens alongside any other command:
  dxl scan --port /dev/ttyUSB0 --capture session.cap
  dxl capture show session.cap`,
}

var captureShowCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Print a capture file in human-readable form",
	Args:  cobra.ExactArgs(1),
	RunE:  runCaptureShow,
}

func init() {
	rootCmd.AddCommand(captureCmd)
	captureCmd.AddCommand(captureShowCmd)
}

func runCaptureShow(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open capture file: %w", err)
	}
	defer f.Close()

	records, err := capture.NewReader(f).ReadAll()
	if err != nil {
		return err
	}

	for _, rec := range records {
		timestamp := rec.Time.Format("15:04:05.000")
		switch {
		case rec.Dir == capture.DirTx:
			fmt.Printf("[%s] -> %s\n", timestamp, formatWire(rec.Data))
		case rec.ParseError != "":
			fmt.Printf("[%s] <- DECODE ERROR: %s\n", timestamp, rec.ParseError)
		default:
			line := fmt.Sprintf("[%s] <- id %d %s", timestamp, rec.ID, instructionName(rec.Instruction))
			if rec.Error != 0 {
				line += fmt.Sprintf(" error=[%s]", strings.Join(proto2.DecodeErrorBits(rec.Error), ", "))
			}
			if len(rec.Data) > 0 {
				line += " params=" + formatWire(rec.Data)
			}
			fmt.Println(line)
		}
	}

	fmt.Printf("\n%d records\n", len(records))
	return nil
}

func formatWire(data []byte) string {
	var b strings.Builder
	for i, v := range data {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%02X", v)
	}
	return b.String()
}

func instructionName(instr uint8) string {
	switch instr {
	case proto2.InstPing:
		return "PING"
	case proto2.InstRead:
		return "READ"
	case proto2.InstWrite:
		return "WRITE"
	case proto2.InstRegWrite:
		return "REG_WRITE"
	case proto2.InstAction:
		return "ACTION"
	case proto2.InstFactoryReset:
		return "FACTORY_RESET"
	case proto2.InstReboot:
		return "REBOOT"
	case proto2.InstClear:
		return "CLEAR"
	case proto2.InstStatus:
		return "STATUS"
	case proto2.InstSyncRead:
		return "SYNC_READ"
	case proto2.InstSyncWrite:
		return "SYNC_WRITE"
	case proto2.InstBulkRead:
		return "BULK_READ"
	case proto2.InstBulkWrite:
		return "BULK_WRITE"
	default:
		return fmt.Sprintf("UNKNOWN(0x%02X)", instr)
	}
}
