// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Kineto Labs
//
// dxl - Dynamixel Protocol 2.0 servo bus tool
//
// A CLI tool for discovering, configuring and monitoring Dynamixel
// Protocol 2.0 servo actuators on a shared half-duplex bus.

package main

import (
	"os"

	"github.com/kinetolab/dxl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
