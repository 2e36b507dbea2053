// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kineto Labs

package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/kinetolab/dxl/pkg/bus"
	"github.com/kinetolab/dxl/pkg/preset"
	"github.com/spf13/cobra"
)

var applyCmd = &cobra.Command{
	Use:   "apply <preset-file> <preset-name> <id>",
	Short: "Apply a motor preset to a device",
	Long: `Load a YAML preset file and write the named preset's registers to one
device. The file is fully validated (register names and value widths)
before anything is written.

Example preset file:

  presets:
    - name: position_mode
      description: Stiff position control
      registers:
        operating_mode: 3
        position_p_gain: 800
  alarms:
    temperature_max_c: 70
    voltage_min: 10.0
    voltage_max: 14.0

Registers are written in control-table address order, so mode switches
land before the gains that depend on them.`,
	Args: cobra.ExactArgs(3),
	RunE: runApply,
}

func init() {
	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	f, err := preset.Load(args[0])
	if err != nil {
		return err
	}
	p, ok := f.Find(args[1])
	if !ok {
		return fmt.Errorf("no preset %q in %s", args[1], args[0])
	}
	id, err := parseID(args[2])
	if err != nil {
		return err
	}

	s, err := openBus()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer s.Close()

	d := s.bus.Device(id)
	if p.Description != "" {
		fmt.Printf("Applying %q (%s) to id %d\n", p.Name, p.Description, id)
	} else {
		fmt.Printf("Applying %q to id %d\n", p.Name, id)
	}

	for _, name := range registersInAddressOrder(p) {
		value := p.Registers[name]
		if err := d.WriteRegister(name, value, replyTimeout); err != nil {
			fmt.Printf("  %s = %d: %v\n", name, value, err)
			os.Exit(1)
		}
		fmt.Printf("  %s = %d\n", name, value)
	}
	return nil
}

func registersInAddressOrder(p preset.Preset) []string {
	names := make([]string, 0, len(p.Registers))
	for name := range p.Registers {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return registerAddress(names[i]) < registerAddress(names[j])
	})
	return names
}

func registerAddress(name string) uint16 {
	entry, _ := bus.LookupRegister(name)
	return entry.Address
}
