// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kineto Labs

package proto2

import (
	"encoding/binary"
	"fmt"
	"time"
)

// CompletePacketLength inspects a byte prefix without consuming it. It
// returns the total wire length of the packet at the front of prefix when
// enough bytes are present, or ok=false when more bytes are needed.
// A prefix that cannot start a packet yields ErrInvalidHeader.
func CompletePacketLength(prefix []byte) (n int, ok bool, err error) {
	if len(prefix) >= 1 && prefix[0] != Header1 {
		return 0, false, ErrInvalidHeader
	}
	if len(prefix) >= 2 && prefix[1] != Header2 {
		return 0, false, ErrInvalidHeader
	}
	if len(prefix) >= 3 && prefix[2] != Header3 {
		return 0, false, ErrInvalidHeader
	}
	if len(prefix) >= 4 && prefix[3] != Reserved {
		return 0, false, ErrInvalidHeader
	}
	if len(prefix) < headerSize {
		return 0, false, nil
	}

	declared := int(binary.LittleEndian.Uint16(prefix[offLenLo : offLenHi+1]))
	total := headerSize + declared
	if len(prefix) < total {
		return 0, false, nil
	}
	return total, true, nil
}

// ParseStatusPacket decodes a complete status packet byte range. The input
// must hold exactly one packet. A set error byte is data, not a parse
// failure; only structural problems (header, truncation, CRC) fail.
func ParseStatusPacket(data []byte) (*StatusPacket, error) {
	if len(data) < 4 ||
		data[0] != Header1 || data[1] != Header2 ||
		data[2] != Header3 || data[3] != Reserved {
		return nil, ErrInvalidHeader
	}
	if len(data) < headerSize {
		return nil, ErrIncomplete
	}

	declared := binary.LittleEndian.Uint16(data[offLenLo : offLenHi+1])
	total := headerSize + int(declared)
	if declared < minStatusLength {
		return nil, fmt.Errorf("declared length %d below minimum %d", declared, minStatusLength)
	}
	if len(data) < total {
		return nil, ErrIncomplete
	}

	want := CRC(data[:total-2])
	got := binary.LittleEndian.Uint16(data[total-2 : total])
	if want != got {
		return nil, &CRCError{Want: want, Got: got}
	}

	params := make([]byte, declared-minStatusLength)
	copy(params, data[offParams:total-2])

	return &StatusPacket{
		ID:          data[offID],
		Instruction: data[offInstr],
		Error:       data[offError],
		Params:      params,
		Length:      declared,
		Timestamp:   time.Now(),
	}, nil
}
