// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kineto Labs

package bus

import (
	"fmt"
	"time"

	"github.com/kinetolab/dxl/pkg/proto2"
)

// Device is the handle for one addressable actuator. All register and
// indirect-addressing operations go through it. Handles are created by
// the orchestration layer after discovery (or a manual add) and live as
// long as the owning connection.
type Device struct {
	ID              uint8
	ModelNumber     uint16
	FirmwareVersion uint8

	conn *Conn

	// Host-side mirror of the device's indirect mapping registers.
	// slots[i] == 0 means slot i is unmapped.
	slots       [IndirectSlotCount]uint16
	readBlock   *Block
	writeBlocks map[string]*Block
}

// Device creates a handle for the actuator at id.
func (c *Conn) Device(id uint8) *Device {
	return &Device{
		ID:          id,
		conn:        c,
		writeBlocks: make(map[string]*Block),
	}
}

// ModelName returns the catalogued name for the handle's model number.
func (d *Device) ModelName() string {
	return ModelName(d.ModelNumber)
}

// Ping identifies the device and records its model number and firmware
// version on the handle.
func (d *Device) Ping(timeout time.Duration) (proto2.PingInfo, error) {
	info, err := d.conn.Ping(d.ID, timeout)
	if err != nil {
		return proto2.PingInfo{}, err
	}
	d.ModelNumber = info.ModelNumber
	d.FirmwareVersion = info.FirmwareVersion
	return info, nil
}

// ReadRegister reads a catalogued register by name, decoding it as a
// little-endian unsigned value of the register's declared width.
func (d *Device) ReadRegister(name string, timeout time.Duration) (uint32, error) {
	entry, ok := LookupRegister(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownRegister, name)
	}
	switch entry.Size {
	case 1:
		v, err := d.conn.ReadU8(d.ID, entry.Address, timeout)
		return uint32(v), err
	case 2:
		v, err := d.conn.ReadU16(d.ID, entry.Address, timeout)
		return uint32(v), err
	default:
		return d.conn.ReadU32(d.ID, entry.Address, timeout)
	}
}

// WriteRegister writes a catalogued register by name.
func (d *Device) WriteRegister(name string, value uint32, timeout time.Duration) error {
	entry, ok := LookupRegister(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRegister, name)
	}
	switch entry.Size {
	case 1:
		return d.conn.WriteU8(d.ID, entry.Address, uint8(value), timeout)
	case 2:
		return d.conn.WriteU16(d.ID, entry.Address, uint16(value), timeout)
	default:
		return d.conn.WriteU32(d.ID, entry.Address, value, timeout)
	}
}

// Reboot restarts the device. The host-side indirect bookkeeping is
// dropped because live registers (the mapping table included) reset.
func (d *Device) Reboot(timeout time.Duration) error {
	if err := d.conn.Reboot(d.ID, timeout); err != nil {
		return err
	}
	d.slots = [IndirectSlotCount]uint16{}
	d.readBlock = nil
	d.writeBlocks = make(map[string]*Block)
	return nil
}

// FactoryReset restores the device's EEPROM defaults.
func (d *Device) FactoryReset(timeout time.Duration) error {
	return d.conn.FactoryReset(d.ID, timeout)
}
