// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kineto Labs

package bus

import (
	"encoding/binary"
	"errors"
	"testing"
)

// ============================================================
// Slot Mapping Tests
// ============================================================

func TestSetupSlot_Validation(t *testing.T) {
	fb, c := newFakeBus(&fakeServo{id: 1, model: 1020, fw: 1})
	d := c.Device(1)

	tests := []struct {
		name    string
		index   int
		source  uint16
		wantErr error
	}{
		{"negative index", -1, 100, ErrIndexOutOfRange},
		{"index past pool", 20, 100, ErrIndexOutOfRange},
		{"address below live area", 5, 63, ErrAddressOutOfRange},
		{"address past mirror", 5, 228, ErrAddressOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sentBefore := len(fb.sent)
			if err := d.SetupSlot(tt.index, tt.source, testTimeout); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if len(fb.sent) != sentBefore {
				t.Error("configuration error reached the wire")
			}
		})
	}
}

func TestSlotReadWriteThroughMirror(t *testing.T) {
	fb, c := newFakeBus(&fakeServo{id: 1, model: 1020, fw: 1})
	d := c.Device(1)

	// Map slot 3 at the torque enable register and set the underlying
	// register directly on the emulated device.
	if err := d.SetupSlot(3, 64, testTimeout); err != nil {
		t.Fatalf("SetupSlot: %v", err)
	}
	fb.servo(1).regs[64] = 0x5A

	v, err := d.ReadSlot(3, testTimeout)
	if err != nil || v != 0x5A {
		t.Fatalf("ReadSlot: v=0x%02X err=%v", v, err)
	}

	if err := d.WriteSlot(3, 0x01, testTimeout); err != nil {
		t.Fatalf("WriteSlot: %v", err)
	}
	if fb.servo(1).regs[64] != 0x01 {
		t.Error("write did not pass through the mirror to the source register")
	}

	// Unmapped slots refuse I/O.
	if _, err := d.ReadSlot(4, testTimeout); !errors.Is(err, ErrNotMapped) {
		t.Errorf("expected ErrNotMapped, got %v", err)
	}
	if err := d.WriteSlot(4, 1, testTimeout); !errors.Is(err, ErrNotMapped) {
		t.Errorf("expected ErrNotMapped, got %v", err)
	}
}

func TestClearSlot(t *testing.T) {
	_, c := newFakeBus(&fakeServo{id: 1, model: 1020, fw: 1})
	d := c.Device(1)

	if err := d.SetupSlot(0, 65, testTimeout); err != nil {
		t.Fatalf("SetupSlot: %v", err)
	}
	if err := d.ClearSlot(0, testTimeout); err != nil {
		t.Fatalf("ClearSlot: %v", err)
	}
	if _, err := d.ReadSlot(0, testTimeout); !errors.Is(err, ErrNotMapped) {
		t.Errorf("cleared slot still readable: %v", err)
	}
	if len(d.MappedSlots()) != 0 {
		t.Errorf("mirror not cleared: %v", d.MappedSlots())
	}
}

// ============================================================
// Bulk Transfer Tests
// ============================================================

func TestBulkRead_ContiguousUsesOneTransaction(t *testing.T) {
	fb, c := newFakeBus(&fakeServo{id: 1, model: 1020, fw: 1})
	d := c.Device(1)

	// Slots 2..5 mapped to four live registers with known values.
	for i := 0; i < 4; i++ {
		if err := d.SetupSlot(2+i, uint16(100+i), testTimeout); err != nil {
			t.Fatalf("SetupSlot: %v", err)
		}
		fb.servo(1).regs[100+i] = byte(0xA0 + i)
	}

	sentBefore := len(fb.sent)
	got, err := d.BulkRead([]int{5, 3, 2, 4}, testTimeout)
	if err != nil {
		t.Fatalf("BulkRead: %v", err)
	}
	if len(fb.sent)-sentBefore != 1 {
		t.Errorf("contiguous bulk read used %d transactions", len(fb.sent)-sentBefore)
	}
	for i := 0; i < 4; i++ {
		if got[2+i] != byte(0xA0+i) {
			t.Errorf("slot %d: got 0x%02X", 2+i, got[2+i])
		}
	}
}

func TestBulkRead_GappedFallsBackPerSlot(t *testing.T) {
	fb, c := newFakeBus(&fakeServo{id: 1, model: 1020, fw: 1})
	d := c.Device(1)

	for _, i := range []int{0, 2, 7} {
		if err := d.SetupSlot(i, uint16(110+i), testTimeout); err != nil {
			t.Fatalf("SetupSlot: %v", err)
		}
		fb.servo(1).regs[110+i] = byte(i)
	}

	sentBefore := len(fb.sent)
	got, err := d.BulkRead([]int{7, 0, 2}, testTimeout)
	if err != nil {
		t.Fatalf("BulkRead: %v", err)
	}
	if len(fb.sent)-sentBefore != 3 {
		t.Errorf("gapped bulk read used %d transactions, expected 3", len(fb.sent)-sentBefore)
	}
	for _, i := range []int{0, 2, 7} {
		if got[i] != byte(i) {
			t.Errorf("slot %d: got 0x%02X", i, got[i])
		}
	}
}

func TestBulkRead_EquivalentToIndividualReads(t *testing.T) {
	fb, c := newFakeBus(&fakeServo{id: 1, model: 1020, fw: 1})
	d := c.Device(1)

	indices := []int{4, 5, 6, 7}
	for n, i := range indices {
		if err := d.SetupSlot(i, uint16(120+n), testTimeout); err != nil {
			t.Fatalf("SetupSlot: %v", err)
		}
		fb.servo(1).regs[120+n] = byte(0x30 + n)
	}

	bulk, err := d.BulkRead(indices, testTimeout)
	if err != nil {
		t.Fatalf("BulkRead: %v", err)
	}
	for _, i := range indices {
		single, err := d.ReadSlot(i, testTimeout)
		if err != nil {
			t.Fatalf("ReadSlot(%d): %v", i, err)
		}
		if bulk[i] != single {
			t.Errorf("slot %d: bulk 0x%02X != single 0x%02X", i, bulk[i], single)
		}
	}
}

func TestBulkWrite_ContiguousAndGapped(t *testing.T) {
	fb, c := newFakeBus(&fakeServo{id: 1, model: 1020, fw: 1})
	d := c.Device(1)

	for i := 0; i < 3; i++ {
		if err := d.SetupSlot(i, uint16(130+i), testTimeout); err != nil {
			t.Fatalf("SetupSlot: %v", err)
		}
	}
	if err := d.SetupSlot(9, 140, testTimeout); err != nil {
		t.Fatalf("SetupSlot: %v", err)
	}

	sentBefore := len(fb.sent)
	err := d.BulkWrite(map[int]uint8{0: 0x11, 1: 0x22, 2: 0x33}, testTimeout)
	if err != nil {
		t.Fatalf("BulkWrite contiguous: %v", err)
	}
	if len(fb.sent)-sentBefore != 1 {
		t.Errorf("contiguous bulk write used %d transactions", len(fb.sent)-sentBefore)
	}
	for i, want := range []byte{0x11, 0x22, 0x33} {
		if fb.servo(1).regs[130+i] != want {
			t.Errorf("reg %d: got 0x%02X", 130+i, fb.servo(1).regs[130+i])
		}
	}

	sentBefore = len(fb.sent)
	if err := d.BulkWrite(map[int]uint8{0: 0x44, 9: 0x55}, testTimeout); err != nil {
		t.Fatalf("BulkWrite gapped: %v", err)
	}
	if len(fb.sent)-sentBefore != 2 {
		t.Errorf("gapped bulk write used %d transactions, expected 2", len(fb.sent)-sentBefore)
	}
	if fb.servo(1).regs[130] != 0x44 || fb.servo(1).regs[140] != 0x55 {
		t.Error("gapped writes not applied")
	}
}

// ============================================================
// Block Tests
// ============================================================

func TestSetupReadBlock_LayoutAndDecode(t *testing.T) {
	fb, c := newFakeBus(&fakeServo{id: 1, model: 1020, fw: 1})
	d := c.Device(1)

	// Deliberately unsorted: the block must sort by source address.
	block, err := d.SetupReadBlock([]string{"present_position", "present_temperature", "present_current"}, testTimeout)
	if err != nil {
		t.Fatalf("SetupReadBlock: %v", err)
	}
	if block.SlotCount != 7 { // 4 + 1 + 2
		t.Fatalf("slot count: got %d, want 7", block.SlotCount)
	}
	if block.Items[0] != "present_current" || block.Items[1] != "present_position" || block.Items[2] != "present_temperature" {
		t.Errorf("items not address-sorted: %v", block.Items)
	}

	// Seed the emulated registers: current=0x0102 @126, position=0x0A0B0C0D @132,
	// temperature=0x25 @146.
	s := fb.servo(1)
	binary.LittleEndian.PutUint16(s.regs[126:], 0x0102)
	binary.LittleEndian.PutUint32(s.regs[132:], 0x0A0B0C0D)
	s.regs[146] = 0x25

	sentBefore := len(fb.sent)
	values, err := d.ReadBlockValues(testTimeout)
	if err != nil {
		t.Fatalf("ReadBlockValues: %v", err)
	}
	if len(fb.sent)-sentBefore != 1 {
		t.Errorf("block read used %d transactions", len(fb.sent)-sentBefore)
	}
	if values["present_current"] != 0x0102 {
		t.Errorf("present_current: 0x%X", values["present_current"])
	}
	if values["present_position"] != 0x0A0B0C0D {
		t.Errorf("present_position: 0x%X", values["present_position"])
	}
	if values["present_temperature"] != 0x25 {
		t.Errorf("present_temperature: 0x%X", values["present_temperature"])
	}
}

func TestSetupReadBlock_UnknownName(t *testing.T) {
	fb, c := newFakeBus(&fakeServo{id: 1, model: 1020, fw: 1})
	d := c.Device(1)

	sentBefore := len(fb.sent)
	_, err := d.SetupReadBlock([]string{"present_position", "warp_drive"}, testTimeout)
	if !errors.Is(err, ErrUnknownRegister) {
		t.Errorf("expected ErrUnknownRegister, got %v", err)
	}
	if len(fb.sent) != sentBefore {
		t.Error("rejected block setup reached the wire")
	}
}

func TestCapacityExceeded_NoWireTraffic(t *testing.T) {
	fb, c := newFakeBus(&fakeServo{id: 1, model: 1020, fw: 1})
	d := c.Device(1)

	// Six 4-byte registers need 24 slots; the pool holds 20.
	items := []string{
		"goal_velocity", "profile_acceleration", "profile_velocity",
		"goal_position", "present_velocity", "present_position",
	}
	sentBefore := len(fb.sent)
	_, err := d.SetupReadBlock(items, testTimeout)
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	if len(fb.sent) != sentBefore {
		t.Error("capacity failure performed register writes")
	}
}

func TestWriteBlock_EncodeAndPush(t *testing.T) {
	fb, c := newFakeBus(&fakeServo{id: 1, model: 1020, fw: 1})
	d := c.Device(1)

	if _, err := d.SetupWriteBlock("motion", []string{"goal_position", "goal_velocity"}, testTimeout); err != nil {
		t.Fatalf("SetupWriteBlock: %v", err)
	}

	sentBefore := len(fb.sent)
	err := d.WriteBlockValues("motion", map[string]uint32{
		"goal_position": 2048,
		"goal_velocity": 100,
	}, testTimeout)
	if err != nil {
		t.Fatalf("WriteBlockValues: %v", err)
	}
	if len(fb.sent)-sentBefore != 1 {
		t.Errorf("block write used %d transactions", len(fb.sent)-sentBefore)
	}

	s := fb.servo(1)
	if binary.LittleEndian.Uint32(s.regs[116:]) != 2048 {
		t.Errorf("goal_position: %d", binary.LittleEndian.Uint32(s.regs[116:]))
	}
	if binary.LittleEndian.Uint32(s.regs[104:]) != 100 {
		t.Errorf("goal_velocity: %d", binary.LittleEndian.Uint32(s.regs[104:]))
	}

	// A missing item value is rejected before the wire.
	sentBefore = len(fb.sent)
	err = d.WriteBlockValues("motion", map[string]uint32{"goal_position": 1}, testTimeout)
	if err == nil {
		t.Fatal("incomplete value set accepted")
	}
	if len(fb.sent) != sentBefore {
		t.Error("incomplete value set reached the wire")
	}
}

func TestBlocksShareThePool(t *testing.T) {
	_, c := newFakeBus(&fakeServo{id: 1, model: 1020, fw: 1})
	d := c.Device(1)

	// Read block: 4+2 = 6 slots. Write blocks: 4 and 4 slots. Total 14.
	if _, err := d.SetupReadBlock([]string{"present_position", "present_current"}, testTimeout); err != nil {
		t.Fatalf("read block: %v", err)
	}
	if _, err := d.SetupWriteBlock("position", []string{"goal_position"}, testTimeout); err != nil {
		t.Fatalf("write block 1: %v", err)
	}
	if _, err := d.SetupWriteBlock("velocity", []string{"goal_velocity"}, testTimeout); err != nil {
		t.Fatalf("write block 2: %v", err)
	}

	if got := len(d.MappedSlots()); got != 14 {
		t.Errorf("mapped slots: %d, want 14", got)
	}

	// 8 more bytes do not fit in the remaining 6 slots.
	if _, err := d.SetupWriteBlock("overflow", []string{"profile_velocity", "profile_acceleration"}, testTimeout); !errors.Is(err, ErrCapacityExceeded) {
		t.Errorf("expected ErrCapacityExceeded, got %v", err)
	}

	// Clearing a block frees its run for reuse.
	if err := d.ClearWriteBlock("position", testTimeout); err != nil {
		t.Fatalf("ClearWriteBlock: %v", err)
	}
	if _, err := d.SetupWriteBlock("pwm", []string{"goal_pwm"}, testTimeout); err != nil {
		t.Fatalf("reuse after clear: %v", err)
	}
}

func TestClearReadBlock_ZeroesMappings(t *testing.T) {
	fb, c := newFakeBus(&fakeServo{id: 1, model: 1020, fw: 1})
	d := c.Device(1)

	block, err := d.SetupReadBlock([]string{"present_temperature"}, testTimeout)
	if err != nil {
		t.Fatalf("SetupReadBlock: %v", err)
	}
	if err := d.ClearReadBlock(testTimeout); err != nil {
		t.Fatalf("ClearReadBlock: %v", err)
	}

	s := fb.servo(1)
	for i := block.SlotStart; i < block.SlotStart+block.SlotCount; i++ {
		if s.mapping(i) != 0 {
			t.Errorf("slot %d mapping register not zeroed", i)
		}
	}
	if d.ReadBlock() != nil {
		t.Error("host-side read block survives clear")
	}
	if _, err := d.ReadBlockValues(testTimeout); !errors.Is(err, ErrNotMapped) {
		t.Errorf("expected ErrNotMapped after clear, got %v", err)
	}
}
