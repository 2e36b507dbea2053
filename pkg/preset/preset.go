// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kineto Labs

// Package preset loads motor configuration presets and alarm thresholds
// from YAML.
package preset

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kinetolab/dxl/pkg/bus"
)

// File is the top-level document shape.
type File struct {
	Presets []Preset `yaml:"presets"`
	Alarms  Alarms   `yaml:"alarms"`
}

// Preset is one named bundle of register values to push at a device.
type Preset struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Registers   map[string]uint32 `yaml:"registers"`
}

// Alarms holds the health thresholds evaluated against live readings.
// Voltage thresholds are in volts; the register reports tenths of a volt.
type Alarms struct {
	TemperatureMaxC uint8   `yaml:"temperature_max_c"`
	VoltageMin      float64 `yaml:"voltage_min"`
	VoltageMax      float64 `yaml:"voltage_max"`
}

// Parse decodes and validates a preset document. Every register name
// must resolve against the control table and every value must fit the
// register's width.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse preset file: %w", err)
	}

	seen := make(map[string]bool, len(f.Presets))
	for _, p := range f.Presets {
		if p.Name == "" {
			return nil, fmt.Errorf("preset with empty name")
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("duplicate preset %q", p.Name)
		}
		seen[p.Name] = true
		if len(p.Registers) == 0 {
			return nil, fmt.Errorf("preset %q sets no registers", p.Name)
		}
		for name, value := range p.Registers {
			entry, ok := bus.LookupRegister(name)
			if !ok {
				return nil, fmt.Errorf("preset %q: unknown register %q", p.Name, name)
			}
			if max := maxValue(entry.Size); value > max {
				return nil, fmt.Errorf("preset %q: %q value %d exceeds %d-byte register (max %d)",
					p.Name, name, value, entry.Size, max)
			}
		}
	}

	if f.Alarms.VoltageMin > 0 && f.Alarms.VoltageMax > 0 && f.Alarms.VoltageMin >= f.Alarms.VoltageMax {
		return nil, fmt.Errorf("alarm voltage_min %.1f must be below voltage_max %.1f",
			f.Alarms.VoltageMin, f.Alarms.VoltageMax)
	}
	return &f, nil
}

// Load reads and parses a preset document from disk.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read preset file: %w", err)
	}
	return Parse(data)
}

// Find returns the named preset.
func (f *File) Find(name string) (Preset, bool) {
	for _, p := range f.Presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

func maxValue(size int) uint32 {
	switch size {
	case 1:
		return 0xFF
	case 2:
		return 0xFFFF
	default:
		return 0xFFFFFFFF
	}
}
