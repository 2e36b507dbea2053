// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kineto Labs

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/kinetolab/dxl/pkg/preset"
	"github.com/spf13/cobra"
)

var rebootCmd = &cobra.Command{
	Use:   "reboot <id>",
	Short: "Reboot a device",
	Long: `Reboot the device at one id. Live registers, including any indirect
block configuration, reset to their power-on values.`,
	Args: cobra.ExactArgs(1),
	RunE: runReboot,
}

var factoryResetCmd = &cobra.Command{
	Use:   "factory-reset <id>",
	Short: "Restore a device's factory defaults",
	Long: `Restore the EEPROM area of the device at one id to factory defaults.
The device keeps its id and baud rate so the bus stays reachable.`,
	Args: cobra.ExactArgs(1),
	RunE: runFactoryReset,
}

var healthPresetFile string

var healthCmd = &cobra.Command{
	Use:   "health <id>",
	Short: "Check a device's hardware error status and readings",
	Long: `Read the hardware error status, temperature and input voltage of one
device and report any active faults.

With --presets, the alarm thresholds from the preset file are evaluated
against the live readings as well.

Exit codes:
  0 - healthy
  1 - faults or threshold violations
  2 - connection error`,
	Args: cobra.ExactArgs(1),
	RunE: runHealth,
}

func init() {
	rootCmd.AddCommand(rebootCmd)
	rootCmd.AddCommand(factoryResetCmd)
	rootCmd.AddCommand(healthCmd)
	healthCmd.Flags().StringVar(&healthPresetFile, "presets", "", "Preset file providing alarm thresholds")
}

func runReboot(cmd *cobra.Command, args []string) error {
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

	if err := s.bus.Device(id).Reboot(replyTimeout); err != nil {
		fmt.Printf("id %d: %v\n", id, err)
		os.Exit(1)
	}
	fmt.Printf("id %d rebooted\n", id)
	return nil
}

func runFactoryReset(cmd *cobra.Command, args []string) error {
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

	if err := s.bus.Device(id).FactoryReset(replyTimeout); err != nil {
		fmt.Printf("id %d: %v\n", id, err)
		os.Exit(1)
	}
	fmt.Printf("id %d restored to factory defaults\n", id)
	return nil
}

func runHealth(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	var alarms preset.Alarms
	if healthPresetFile != "" {
		f, err := preset.Load(healthPresetFile)
		if err != nil {
			return err
		}
		alarms = f.Alarms
	}

	s, err := openBus()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer s.Close()

	d := s.bus.Device(id)
	hwErr, err := d.ReadRegister("hardware_error_status", replyTimeout)
	if err != nil {
		fmt.Printf("id %d: %v\n", id, err)
		os.Exit(1)
	}
	temperature, err := d.ReadRegister("present_temperature", replyTimeout)
	if err != nil {
		fmt.Printf("id %d: %v\n", id, err)
		os.Exit(1)
	}
	voltage, err := d.ReadRegister("present_input_voltage", replyTimeout)
	if err != nil {
		fmt.Printf("id %d: %v\n", id, err)
		os.Exit(1)
	}

	fmt.Printf("id %d: temperature %d°C, input voltage %.1fV\n",
		id, temperature, float64(voltage)/10)

	problems := preset.DecodeHardwareError(uint8(hwErr))
	problems = append(problems, alarms.Check(uint8(temperature), uint16(voltage))...)

	if len(problems) == 0 {
		fmt.Println("Status: healthy")
		return nil
	}
	fmt.Printf("Status: %s\n", strings.Join(problems, "; "))
	os.Exit(1)
	return nil
}
