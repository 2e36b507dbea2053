// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kineto Labs

package cmd

import (
	"time"

	"github.com/spf13/cobra"
)

var (
	// Serial connection flags
	portName string
	baudRate int

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// USB connection flags
	useUSB bool
	usbVID uint16
	usbPID uint16

	// Traffic capture
	captureFile string

	// Per-transaction reply deadline
	replyTimeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "dxl",
	Short: "Dynamixel Protocol 2.0 servo bus tool",
	Long: `dxl - A CLI tool for driving Dynamixel Protocol 2.0 servo actuators.

Provides device discovery, register access, indirect block configuration,
live monitoring and motor preset application over a shared half-duplex bus.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 57600]
  WebSocket: --url ws://host/path [--username user]
  USB:       --usb [--usb-vid 0x0403 --usb-pid 0x6014]

For WebSocket authentication, the password is read from the DXL_PASSWORD
environment variable, or prompted interactively if not set. The --password
flag is intentionally not provided to avoid leaking credentials in shell
history.

Pass --capture <file> with any command to record bus traffic for later
inspection with "dxl capture show".`,
	Version: "1.0.0",
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 57600, "Baud rate (serial only)")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// USB connection flags
	rootCmd.PersistentFlags().BoolVar(&useUSB, "usb", false, "Use a USB bulk-endpoint adapter")
	rootCmd.PersistentFlags().Uint16Var(&usbVID, "usb-vid", 0x0403, "USB vendor id")
	rootCmd.PersistentFlags().Uint16Var(&usbPID, "usb-pid", 0x6014, "USB product id")

	rootCmd.PersistentFlags().StringVar(&captureFile, "capture", "", "Record bus traffic to a capture file")
	rootCmd.PersistentFlags().DurationVar(&replyTimeout, "timeout", 100*time.Millisecond, "Reply deadline per transaction")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
