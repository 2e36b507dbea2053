// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kineto Labs

package preset

import "fmt"

// Hardware Error Status register bits.
const (
	HWErrInputVoltage = 0x01
	HWErrOverheating  = 0x04
	HWErrEncoder      = 0x08
	HWErrShock        = 0x10
	HWErrOverload     = 0x20
)

var hwErrorNames = []struct {
	bit  uint8
	name string
}{
	{HWErrInputVoltage, "Input Voltage Error"},
	{HWErrOverheating, "Overheating Error"},
	{HWErrEncoder, "Motor Encoder Error"},
	{HWErrShock, "Electrical Shock Error"},
	{HWErrOverload, "Overload Error"},
}

// DecodeHardwareError expands the Hardware Error Status bitmask into
// fault names. Unknown bits are reported numerically rather than lost.
func DecodeHardwareError(mask uint8) []string {
	var out []string
	known := uint8(0)
	for _, e := range hwErrorNames {
		known |= e.bit
		if mask&e.bit != 0 {
			out = append(out, e.name)
		}
	}
	if rest := mask &^ known; rest != 0 {
		out = append(out, fmt.Sprintf("Unknown (0x%02X)", rest))
	}
	return out
}

// Check evaluates live readings against the thresholds and returns one
// message per violated limit. Temperature is in degrees Celsius as the
// register reports it; rawVoltage is in tenths of a volt.
func (a Alarms) Check(temperature uint8, rawVoltage uint16) []string {
	var out []string
	if a.TemperatureMaxC > 0 && temperature > a.TemperatureMaxC {
		out = append(out, fmt.Sprintf("temperature %d°C above limit %d°C",
			temperature, a.TemperatureMaxC))
	}
	volts := float64(rawVoltage) / 10
	if a.VoltageMin > 0 && volts < a.VoltageMin {
		out = append(out, fmt.Sprintf("voltage %.1fV below limit %.1fV", volts, a.VoltageMin))
	}
	if a.VoltageMax > 0 && volts > a.VoltageMax {
		out = append(out, fmt.Sprintf("voltage %.1fV above limit %.1fV", volts, a.VoltageMax))
	}
	return out
}
