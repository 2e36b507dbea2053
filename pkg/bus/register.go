// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kineto Labs

package bus

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/kinetolab/dxl/pkg/proto2"
)

// checkStatus converts a fault-flagged status packet into a DeviceError.
func checkStatus(pkt *proto2.StatusPacket) error {
	if pkt.HasError() {
		return newDeviceError(pkt.ID, pkt.Error)
	}
	return nil
}

// ReadBytes reads length bytes from a control-table address.
func (c *Conn) ReadBytes(id uint8, addr uint16, length uint16, timeout time.Duration) ([]byte, error) {
	if id == proto2.BroadcastID {
		return nil, ErrBroadcastRead
	}
	pkt := proto2.BuildInstructionPacket(id, proto2.InstRead, proto2.ReadParams(addr, length))
	status, err := c.SendAwait(pkt, id, timeout)
	if err != nil {
		return nil, err
	}
	if err := checkStatus(status); err != nil {
		return nil, err
	}
	if len(status.Params) < int(length) {
		return nil, fmt.Errorf("short read at addr %d: wanted %d bytes, device sent %d",
			addr, length, len(status.Params))
	}
	return status.Params[:length], nil
}

// WriteBytes writes data to a control-table address. A broadcast write is
// transmitted without awaiting a reply.
func (c *Conn) WriteBytes(id uint8, addr uint16, data []byte, timeout time.Duration) error {
	pkt := proto2.BuildInstructionPacket(id, proto2.InstWrite, proto2.WriteParams(addr, data))
	if id == proto2.BroadcastID {
		return c.Send(pkt)
	}
	status, err := c.SendAwait(pkt, id, timeout)
	if err != nil {
		return err
	}
	return checkStatus(status)
}

// Typed little-endian register helpers.

func (c *Conn) ReadU8(id uint8, addr uint16, timeout time.Duration) (uint8, error) {
	b, err := c.ReadBytes(id, addr, 1, timeout)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *Conn) ReadU16(id uint8, addr uint16, timeout time.Duration) (uint16, error) {
	b, err := c.ReadBytes(id, addr, 2, timeout)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (c *Conn) ReadU32(id uint8, addr uint16, timeout time.Duration) (uint32, error) {
	b, err := c.ReadBytes(id, addr, 4, timeout)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (c *Conn) WriteU8(id uint8, addr uint16, v uint8, timeout time.Duration) error {
	return c.WriteBytes(id, addr, []byte{v}, timeout)
}

func (c *Conn) WriteU16(id uint8, addr uint16, v uint16, timeout time.Duration) error {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return c.WriteBytes(id, addr, b, timeout)
}

func (c *Conn) WriteU32(id uint8, addr uint16, v uint32, timeout time.Duration) error {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return c.WriteBytes(id, addr, b, timeout)
}

// Ping identifies the device at id, returning its model number and
// firmware version.
func (c *Conn) Ping(id uint8, timeout time.Duration) (proto2.PingInfo, error) {
	pkt := proto2.BuildInstructionPacket(id, proto2.InstPing, nil)
	status, err := c.SendAwait(pkt, id, timeout)
	if err != nil {
		return proto2.PingInfo{}, err
	}
	if err := checkStatus(status); err != nil {
		return proto2.PingInfo{}, err
	}
	info, ok := proto2.ParsePingResponse(status)
	if !ok {
		return proto2.PingInfo{}, fmt.Errorf("malformed ping reply from id %d (%d param bytes)",
			id, len(status.Params))
	}
	return info, nil
}

// Reboot restarts the device's firmware. Live registers reset to their
// power-on values.
func (c *Conn) Reboot(id uint8, timeout time.Duration) error {
	pkt := proto2.BuildInstructionPacket(id, proto2.InstReboot, nil)
	status, err := c.SendAwait(pkt, id, timeout)
	if err != nil {
		return err
	}
	return checkStatus(status)
}

// FactoryReset restores the device's EEPROM area to factory defaults,
// keeping its id and baud rate (reset option 0x02).
func (c *Conn) FactoryReset(id uint8, timeout time.Duration) error {
	pkt := proto2.BuildInstructionPacket(id, proto2.InstFactoryReset, []byte{0x02})
	status, err := c.SendAwait(pkt, id, timeout)
	if err != nil {
		return err
	}
	return checkStatus(status)
}
