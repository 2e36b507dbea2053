// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kineto Labs

package bus

import "fmt"

// ControlTableEntry describes one named register in the actuator's
// register file.
type ControlTableEntry struct {
	Name    string
	Address uint16
	Size    int // 1, 2 or 4 bytes
}

// Indirect addressing register layout, fixed by the hardware register
// file. Twenty remappable one-byte slots: each slot i has a 2-byte
// mapping register at IndirectAddrBase+2i and a mirrored data byte at
// IndirectDataBase+i.
const (
	IndirectSlotCount = 20
	IndirectAddrBase  = 168
	IndirectDataBase  = 208

	// Valid source addresses for a slot mapping. Only the live register
	// area and the indirect data mirror itself are remappable.
	IndirectSourceMin = 64
	IndirectSourceMax = 227
)

// controlTable is the X-series register catalogue. Addresses below 64 are
// EEPROM-backed configuration; 64 and up are live RAM registers.
var controlTable = []ControlTableEntry{
	{"model_number", 0, 2},
	{"model_information", 2, 4},
	{"firmware_version", 6, 1},
	{"id", 7, 1},
	{"baud_rate", 8, 1},
	{"return_delay_time", 9, 1},
	{"drive_mode", 10, 1},
	{"operating_mode", 11, 1},
	{"secondary_id", 12, 1},
	{"protocol_type", 13, 1},
	{"homing_offset", 20, 4},
	{"moving_threshold", 24, 4},
	{"temperature_limit", 31, 1},
	{"max_voltage_limit", 32, 2},
	{"min_voltage_limit", 34, 2},
	{"pwm_limit", 36, 2},
	{"current_limit", 38, 2},
	{"acceleration_limit", 40, 4},
	{"velocity_limit", 44, 4},
	{"max_position_limit", 48, 4},
	{"min_position_limit", 52, 4},
	{"startup_configuration", 60, 1},
	{"shutdown", 63, 1},
	{"torque_enable", 64, 1},
	{"led", 65, 1},
	{"status_return_level", 68, 1},
	{"registered_instruction", 69, 1},
	{"hardware_error_status", 70, 1},
	{"velocity_i_gain", 76, 2},
	{"velocity_p_gain", 78, 2},
	{"position_d_gain", 80, 2},
	{"position_i_gain", 82, 2},
	{"position_p_gain", 84, 2},
	{"feedforward_2nd_gain", 88, 2},
	{"feedforward_1st_gain", 90, 2},
	{"bus_watchdog", 98, 1},
	{"goal_pwm", 100, 2},
	{"goal_current", 102, 2},
	{"goal_velocity", 104, 4},
	{"profile_acceleration", 108, 4},
	{"profile_velocity", 112, 4},
	{"goal_position", 116, 4},
	{"realtime_tick", 120, 2},
	{"moving", 122, 1},
	{"moving_status", 123, 1},
	{"present_pwm", 124, 2},
	{"present_current", 126, 2},
	{"present_velocity", 128, 4},
	{"present_position", 132, 4},
	{"velocity_trajectory", 136, 4},
	{"position_trajectory", 140, 4},
	{"present_input_voltage", 144, 2},
	{"present_temperature", 146, 1},
	{"backup_ready", 147, 1},
	{"indirect_address_1", IndirectAddrBase, 2},
	{"indirect_data_1", IndirectDataBase, 1},
}

var (
	entriesByName    map[string]ControlTableEntry
	entriesByAddress map[uint16]ControlTableEntry
)

func init() {
	entriesByName = make(map[string]ControlTableEntry, len(controlTable))
	entriesByAddress = make(map[uint16]ControlTableEntry, len(controlTable))
	for _, e := range controlTable {
		if e.Size != 1 && e.Size != 2 && e.Size != 4 {
			panic(fmt.Sprintf("control table entry %q has invalid size %d", e.Name, e.Size))
		}
		if _, dup := entriesByName[e.Name]; dup {
			panic(fmt.Sprintf("duplicate control table name %q", e.Name))
		}
		entriesByName[e.Name] = e
		entriesByAddress[e.Address] = e
	}
}

// LookupRegister resolves a register name against the catalogue.
func LookupRegister(name string) (ControlTableEntry, bool) {
	e, ok := entriesByName[name]
	return e, ok
}

// RegisterAt resolves a register by its byte address.
func RegisterAt(addr uint16) (ControlTableEntry, bool) {
	e, ok := entriesByAddress[addr]
	return e, ok
}

// RegisterNames returns every catalogued register name, in address order.
func RegisterNames() []string {
	names := make([]string, len(controlTable))
	for i, e := range controlTable {
		names[i] = e.Name
	}
	return names
}
