// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kineto Labs

package proto2

import "encoding/binary"

// BuildInstructionPacket serializes an instruction packet to wire bytes:
// header, id, length, instruction, parameters, CRC. The declared length is
// instruction + parameters + the two CRC bytes.
func BuildInstructionPacket(id uint8, instruction uint8, params []byte) []byte {
	length := 3 + len(params)

	pkt := make([]byte, 0, headerSize+length)
	pkt = append(pkt, Header1, Header2, Header3, Reserved, id,
		byte(length&0xFF), byte(length>>8), instruction)
	pkt = append(pkt, params...)

	crc := CRC(pkt)
	return append(pkt, byte(crc&0xFF), byte(crc>>8))
}

// Encode serializes the packet.
func (p *InstructionPacket) Encode() []byte {
	return BuildInstructionPacket(p.ID, p.Instruction, p.Params)
}

// ReadParams builds READ instruction parameters for a register range.
func ReadParams(addr uint16, length uint16) []byte {
	params := make([]byte, 4)
	binary.LittleEndian.PutUint16(params[0:2], addr)
	binary.LittleEndian.PutUint16(params[2:4], length)
	return params
}

// WriteParams builds WRITE instruction parameters for a register range.
func WriteParams(addr uint16, data []byte) []byte {
	params := make([]byte, 2, 2+len(data))
	binary.LittleEndian.PutUint16(params[0:2], addr)
	return append(params, data...)
}

// SyncReadParams builds SYNC_READ parameters: one register range read from
// every listed device in a single broadcast instruction.
func SyncReadParams(addr uint16, length uint16, ids []uint8) []byte {
	params := make([]byte, 4, 4+len(ids))
	binary.LittleEndian.PutUint16(params[0:2], addr)
	binary.LittleEndian.PutUint16(params[2:4], length)
	return append(params, ids...)
}

// SyncWriteParams builds SYNC_WRITE parameters. Each entry of data must be
// exactly length bytes; entries are appended in the order of ids.
func SyncWriteParams(addr uint16, length uint16, ids []uint8, data map[uint8][]byte) []byte {
	params := make([]byte, 4, 4+len(ids)*(1+int(length)))
	binary.LittleEndian.PutUint16(params[0:2], addr)
	binary.LittleEndian.PutUint16(params[2:4], length)
	for _, id := range ids {
		params = append(params, id)
		params = append(params, data[id]...)
	}
	return params
}
