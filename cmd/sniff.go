// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kineto Labs

package cmd

import (
	"fmt"
	"log"
	"strings"

	"github.com/kinetolab/dxl/pkg/proto2"
	"github.com/spf13/cobra"
)

var sniffCmd = &cobra.Command{
	Use:   "sniff",
	Short: "Passively decode status traffic on the line",
	Long: `Continuously decode and display status packets as they arrive, without
sending anything.

Useful for watching a bus driven by another host, or for verifying that a
device's periodic output is well-formed. Corrupt frames are reported and
the stream resynchronizes on the next packet header.`,
	RunE: runSniff,
}

func init() {
	rootCmd.AddCommand(sniffCmd)
}

func runSniff(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("dxl - Bus Sniffer\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	reasm := proto2.NewReassembler(func(pkt *proto2.StatusPacket, err error) {
		if err != nil {
			fmt.Printf("[ERROR] %v\n", err)
			return
		}
		timestamp := pkt.Timestamp.Format("15:04:05.000")
		line := fmt.Sprintf("[%s] id %d %s", timestamp, pkt.ID, instructionName(pkt.Instruction))
		if pkt.HasError() {
			line += fmt.Sprintf(" error=[%s]", strings.Join(pkt.Faults(), ", "))
		}
		if len(pkt.Params) > 0 {
			line += " params=" + formatWire(pkt.Params)
		}
		fmt.Println(line)
	})

	buf := make([]byte, 256)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			if err == ErrConnectionClosed {
				log.Printf("Connection closed")
				return nil
			}
			log.Printf("Read error: %v", err)
			continue
		}
		reasm.Feed(buf[:n])
	}
}
