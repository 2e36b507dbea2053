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

var readCmd = &cobra.Command{
	Use:   "read <id> <register>",
	Short: "Read a named register",
	Long: `Read one control-table register by name and print its value.

Run "dxl regs" for the register catalogue.

Example:
  dxl read 1 present_position --port /dev/ttyUSB0`,
	Args: cobra.ExactArgs(2),
	RunE: runRead,
}

var writeCmd = &cobra.Command{
	Use:   "write <id> <register> <value>",
	Short: "Write a named register",
	Long: `Write one control-table register by name. The value is an unsigned
integer (decimal or 0x-prefixed hex) and must fit the register's width.

Example:
  dxl write 1 goal_position 2048 --port /dev/ttyUSB0`,
	Args: cobra.ExactArgs(3),
	RunE: runWrite,
}

var regsCmd = &cobra.Command{
	Use:   "regs",
	Short: "List the register catalogue",
	RunE:  runRegs,
}

func init() {
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(writeCmd)
	rootCmd.AddCommand(regsCmd)
}

func runRead(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	name := args[1]
	if _, ok := bus.LookupRegister(name); !ok {
		return fmt.Errorf("unknown register %q (run \"dxl regs\" for the catalogue)", name)
	}

	s, err := openBus()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer s.Close()

	v, err := s.bus.Device(id).ReadRegister(name, replyTimeout)
	if err != nil {
		fmt.Printf("id %d %s: %v\n", id, name, err)
		os.Exit(1)
	}
	fmt.Printf("%d (0x%X)\n", v, v)
	return nil
}

func runWrite(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	name := args[1]
	entry, ok := bus.LookupRegister(name)
	if !ok {
		return fmt.Errorf("unknown register %q (run \"dxl regs\" for the catalogue)", name)
	}

	value, err := strconv.ParseUint(args[2], 0, 32)
	if err != nil {
		return fmt.Errorf("invalid value %q: %v", args[2], err)
	}
	if entry.Size < 4 && value >= 1<<(8*entry.Size) {
		return fmt.Errorf("value %d does not fit %d-byte register %q", value, entry.Size, name)
	}

	s, err := openBus()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer s.Close()

	if err := s.bus.Device(id).WriteRegister(name, uint32(value), replyTimeout); err != nil {
		fmt.Printf("id %d %s: %v\n", id, name, err)
		os.Exit(1)
	}
	fmt.Printf("id %d %s = %d\n", id, name, value)
	return nil
}

func runRegs(cmd *cobra.Command, args []string) error {
	for _, name := range bus.RegisterNames() {
		entry, _ := bus.LookupRegister(name)
		fmt.Printf("%3d  %d  %s\n", entry.Address, entry.Size, entry.Name)
	}
	return nil
}
