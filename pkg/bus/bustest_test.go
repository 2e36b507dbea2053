// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kineto Labs

package bus

import (
	"encoding/binary"

	"github.com/kinetolab/dxl/pkg/proto2"
)

// ============================================================
// In-memory bus emulation
// ============================================================

// fakeServo emulates one actuator's register file, including the
// indirect mapping semantics: reads and writes of the data mirror
// (208..227) are redirected through the mapping registers (168..207).
type fakeServo struct {
	id    uint8
	model uint16
	fw    uint8
	regs  [256]byte

	// failNext, when nonzero, is returned as the error byte of the next
	// status packet and then cleared.
	failNext uint8
}

func (s *fakeServo) mapping(slot int) uint16 {
	return binary.LittleEndian.Uint16(s.regs[IndirectAddrBase+2*slot:])
}

func (s *fakeServo) readByte(addr uint16) byte {
	if addr >= IndirectDataBase && addr < IndirectDataBase+IndirectSlotCount {
		src := s.mapping(int(addr - IndirectDataBase))
		if src == 0 {
			return 0
		}
		return s.regs[src]
	}
	return s.regs[addr]
}

func (s *fakeServo) writeByte(addr uint16, v byte) {
	if addr >= IndirectDataBase && addr < IndirectDataBase+IndirectSlotCount {
		src := s.mapping(int(addr - IndirectDataBase))
		if src != 0 {
			s.regs[src] = v
		}
		return
	}
	s.regs[addr] = v
}

func (s *fakeServo) takeErrBits() uint8 {
	bits := s.failNext
	s.failNext = 0
	return bits
}

// status assembles a wire-format status packet from this servo.
func (s *fakeServo) status(errBits uint8, params []byte) []byte {
	length := 4 + len(params)
	pkt := []byte{proto2.Header1, proto2.Header2, proto2.Header3, proto2.Reserved,
		s.id, byte(length & 0xFF), byte(length >> 8), proto2.InstStatus, errBits}
	pkt = append(pkt, params...)
	crc := proto2.CRC(pkt)
	return append(pkt, byte(crc&0xFF), byte(crc>>8))
}

// fakeBus is a Transport whose Send parses each instruction packet and
// feeds the emulated servos' replies straight back into the Conn.
type fakeBus struct {
	conn   *Conn
	servos []*fakeServo
	sent   [][]byte

	// mute suppresses all replies (a silent line).
	mute bool
	// corruptNext flips a CRC byte in the next reply.
	corruptNext bool
}

func newFakeBus(servos ...*fakeServo) (*fakeBus, *Conn) {
	fb := &fakeBus{servos: servos}
	c := NewConn(fb)
	fb.conn = c
	return fb, c
}

func (f *fakeBus) servo(id uint8) *fakeServo {
	for _, s := range f.servos {
		if s.id == id {
			return s
		}
	}
	return nil
}

func (f *fakeBus) deliver(reply []byte) {
	if f.corruptNext {
		reply = append([]byte{}, reply...)
		reply[len(reply)-1] ^= 0xFF
		f.corruptNext = false
	}
	f.conn.Receive(reply)
}

func (f *fakeBus) Send(pkt []byte) error {
	f.sent = append(f.sent, append([]byte{}, pkt...))
	if f.mute {
		return nil
	}

	id := pkt[4]
	instr := pkt[7]
	params := pkt[8 : len(pkt)-2]

	switch instr {
	case proto2.InstPing:
		for _, s := range f.servos {
			if id == s.id || id == proto2.BroadcastID {
				f.deliver(s.status(s.takeErrBits(),
					[]byte{byte(s.model & 0xFF), byte(s.model >> 8), s.fw}))
			}
		}

	case proto2.InstRead:
		s := f.servo(id)
		if s == nil {
			return nil
		}
		addr := binary.LittleEndian.Uint16(params[0:2])
		length := binary.LittleEndian.Uint16(params[2:4])
		data := make([]byte, length)
		for i := range data {
			data[i] = s.readByte(addr + uint16(i))
		}
		f.deliver(s.status(s.takeErrBits(), data))

	case proto2.InstWrite:
		addr := binary.LittleEndian.Uint16(params[0:2])
		for _, s := range f.servos {
			if id != s.id && id != proto2.BroadcastID {
				continue
			}
			for i, b := range params[2:] {
				s.writeByte(addr+uint16(i), b)
			}
			if id != proto2.BroadcastID {
				f.deliver(s.status(s.takeErrBits(), nil))
			}
		}

	case proto2.InstSyncRead:
		addr := binary.LittleEndian.Uint16(params[0:2])
		length := binary.LittleEndian.Uint16(params[2:4])
		for _, want := range params[4:] {
			s := f.servo(want)
			if s == nil {
				continue
			}
			data := make([]byte, length)
			for i := range data {
				data[i] = s.readByte(addr + uint16(i))
			}
			f.deliver(s.status(s.takeErrBits(), data))
		}

	case proto2.InstSyncWrite:
		addr := binary.LittleEndian.Uint16(params[0:2])
		length := int(binary.LittleEndian.Uint16(params[2:4]))
		rest := params[4:]
		for len(rest) >= 1+length {
			s := f.servo(rest[0])
			if s != nil {
				for i := 0; i < length; i++ {
					s.writeByte(addr+uint16(i), rest[1+i])
				}
			}
			rest = rest[1+length:]
		}

	case proto2.InstReboot, proto2.InstFactoryReset:
		if s := f.servo(id); s != nil {
			f.deliver(s.status(s.takeErrBits(), nil))
		}
	}
	return nil
}
