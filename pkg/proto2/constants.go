// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kineto Labs

// Package proto2 implements the Dynamixel Protocol 2.0 wire codec:
// instruction packet construction, status packet parsing, CRC-16
// validation, and stream-to-packet reassembly.
//
// The package is pure protocol. It performs no I/O and holds no
// connection state beyond the Reassembler's receive accumulator.
package proto2

// Packet header. Every packet starts with these four bytes.
const (
	Header1  = 0xFF
	Header2  = 0xFF
	Header3  = 0xFD
	Reserved = 0x00
)

// Fixed byte offsets within a packet.
const (
	offID     = 4
	offLenLo  = 5
	offLenHi  = 6
	offInstr  = 7
	offError  = 8
	offParams = 9

	// headerSize covers header + id + length; a packet is
	// headerSize + declared length bytes long.
	headerSize = 7

	// minStatusLength is the declared length of a parameterless status
	// packet: instruction + error + 2 CRC bytes.
	minStatusLength = 4
)

// Instruction opcodes.
const (
	InstPing         = 0x01
	InstRead         = 0x02
	InstWrite        = 0x03
	InstRegWrite     = 0x04
	InstAction       = 0x05
	InstFactoryReset = 0x06
	InstReboot       = 0x08
	InstClear        = 0x10
	InstStatus       = 0x55
	InstSyncRead     = 0x82
	InstSyncWrite    = 0x83
	InstBulkRead     = 0x92
	InstBulkWrite    = 0x93
)

// BroadcastID addresses every device on the bus. Broadcast instructions
// (other than PING) produce no status packets.
const BroadcastID = 0xFE

// MaxID is the highest assignable device id.
const MaxID = 252

// Status packet error bits. The error byte is a bitmask: multiple faults
// may be reported in one packet.
const (
	ErrBitResultFail  = 0x01
	ErrBitInstruction = 0x02
	ErrBitCRC         = 0x04
	ErrBitDataRange   = 0x08
	ErrBitDataLength  = 0x10
	ErrBitDataLimit   = 0x20
	ErrBitAccess      = 0x40
)
