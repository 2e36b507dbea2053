// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kineto Labs

package proto2

import "time"

// InstructionPacket is an outgoing command before serialization.
type InstructionPacket struct {
	ID          uint8
	Instruction uint8
	Params      []byte
}

// StatusPacket is a decoded reply from a device. It is produced only by
// ParseStatusPacket and is immutable after decode.
type StatusPacket struct {
	ID          uint8
	Instruction uint8
	Error       uint8 // fault bitmask; data, not a decode failure
	Params      []byte
	Length      uint16 // declared length field from the wire
	Timestamp   time.Time
}

// HasError reports whether the device flagged any fault.
func (p *StatusPacket) HasError() bool {
	return p.Error != 0
}

// Faults returns the decoded names of every set error bit.
func (p *StatusPacket) Faults() []string {
	return DecodeErrorBits(p.Error)
}

// PingInfo is the payload of a PING status packet.
type PingInfo struct {
	ModelNumber     uint16
	FirmwareVersion uint8
}

// ParsePingResponse extracts model number and firmware version from a PING
// reply. It returns false when the packet is not a status packet or its
// parameters are too short to carry the identification fields.
func ParsePingResponse(p *StatusPacket) (PingInfo, bool) {
	if p == nil || p.Instruction != InstStatus || len(p.Params) < 3 {
		return PingInfo{}, false
	}
	return PingInfo{
		ModelNumber:     uint16(p.Params[0]) | uint16(p.Params[1])<<8,
		FirmwareVersion: p.Params[2],
	}, true
}
