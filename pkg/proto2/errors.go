// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kineto Labs

package proto2

import (
	"errors"
	"fmt"
)

// ErrInvalidHeader is returned when a byte range does not start with the
// FF FF FD 00 header.
var ErrInvalidHeader = errors.New("invalid packet header")

// ErrIncomplete is returned when a byte range holds fewer bytes than the
// packet's declared length requires. The Reassembler treats it as "wait
// for more bytes"; it never reaches callers of the bus layer.
var ErrIncomplete = errors.New("incomplete packet")

// CRCError reports a checksum mismatch on a received packet.
type CRCError struct {
	Want uint16 // computed over the received bytes
	Got  uint16 // trailing CRC field as transmitted
}

func (e *CRCError) Error() string {
	return fmt.Sprintf("CRC mismatch: computed 0x%04X, packet carries 0x%04X", e.Want, e.Got)
}

// deviceFaultNames maps each error bit to its documented fault name, in
// ascending bit order.
var deviceFaultNames = []struct {
	bit  uint8
	name string
}{
	{ErrBitResultFail, "Result Fail"},
	{ErrBitInstruction, "Instruction Error"},
	{ErrBitCRC, "CRC Error"},
	{ErrBitDataRange, "Data Range Error"},
	{ErrBitDataLength, "Data Length Error"},
	{ErrBitDataLimit, "Data Limit Error"},
	{ErrBitAccess, "Access Error"},
}

// DecodeErrorBits expands a status packet error bitmask into the fault
// names of every set bit. Unknown high bits are ignored.
func DecodeErrorBits(mask uint8) []string {
	var names []string
	for _, f := range deviceFaultNames {
		if mask&f.bit != 0 {
			names = append(names, f.name)
		}
	}
	return names
}
