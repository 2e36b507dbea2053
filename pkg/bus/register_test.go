// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kineto Labs

package bus

import (
	"errors"
	"testing"

	"github.com/kinetolab/dxl/pkg/proto2"
)

// ============================================================
// Register Access Tests
// ============================================================

func TestTypedReadWriteRoundTrip(t *testing.T) {
	_, c := newFakeBus(&fakeServo{id: 1, model: 1020, fw: 1})

	if err := c.WriteU8(1, 64, 1, testTimeout); err != nil {
		t.Fatalf("WriteU8: %v", err)
	}
	if err := c.WriteU16(1, 126, 0xBEEF, testTimeout); err != nil {
		t.Fatalf("WriteU16: %v", err)
	}
	if err := c.WriteU32(1, 116, 0xDEADBEEF, testTimeout); err != nil {
		t.Fatalf("WriteU32: %v", err)
	}

	if v, err := c.ReadU8(1, 64, testTimeout); err != nil || v != 1 {
		t.Errorf("ReadU8: v=%d err=%v", v, err)
	}
	if v, err := c.ReadU16(1, 126, testTimeout); err != nil || v != 0xBEEF {
		t.Errorf("ReadU16: v=0x%04X err=%v", v, err)
	}
	if v, err := c.ReadU32(1, 116, testTimeout); err != nil || v != 0xDEADBEEF {
		t.Errorf("ReadU32: v=0x%08X err=%v", v, err)
	}
}

func TestLittleEndianOnTheWire(t *testing.T) {
	fb, c := newFakeBus(&fakeServo{id: 1, model: 1020, fw: 1})

	if err := c.WriteU32(1, 116, 0x01020304, testTimeout); err != nil {
		t.Fatalf("WriteU32: %v", err)
	}

	// WRITE params: addr_lo addr_hi then data bytes, least significant
	// first.
	sent := fb.sent[len(fb.sent)-1]
	params := sent[8 : len(sent)-2]
	want := []byte{116, 0, 0x04, 0x03, 0x02, 0x01}
	for i := range want {
		if params[i] != want[i] {
			t.Fatalf("wire params: got % X, want % X", params, want)
		}
	}
}

func TestDeviceErrorDecoding(t *testing.T) {
	fb, c := newFakeBus(&fakeServo{id: 2, model: 1020, fw: 1})

	tests := []struct {
		bits   uint8
		faults []string
	}{
		{proto2.ErrBitCRC, []string{"CRC Error"}},
		{proto2.ErrBitResultFail | proto2.ErrBitCRC, []string{"Result Fail", "CRC Error"}},
	}

	for _, tt := range tests {
		fb.servo(2).failNext = tt.bits
		err := c.WriteU8(2, 65, 1, testTimeout)

		var devErr *DeviceError
		if !errors.As(err, &devErr) {
			t.Fatalf("bits 0x%02X: expected DeviceError, got %v", tt.bits, err)
		}
		if devErr.Bits != tt.bits {
			t.Errorf("raw bitmask lost: got 0x%02X, want 0x%02X", devErr.Bits, tt.bits)
		}
		if len(devErr.Faults) != len(tt.faults) {
			t.Fatalf("bits 0x%02X: faults %v, want %v", tt.bits, devErr.Faults, tt.faults)
		}
		for i := range tt.faults {
			if devErr.Faults[i] != tt.faults[i] {
				t.Errorf("bits 0x%02X: faults %v, want %v", tt.bits, devErr.Faults, tt.faults)
			}
		}
	}
}

func TestBroadcastWriteDoesNotAwait(t *testing.T) {
	fb, c := newFakeBus(
		&fakeServo{id: 1, model: 1020, fw: 1},
		&fakeServo{id: 2, model: 1020, fw: 1},
	)

	if err := c.WriteU8(proto2.BroadcastID, 65, 1, testTimeout); err != nil {
		t.Fatalf("broadcast write: %v", err)
	}
	// Both servos applied it even though nobody replied.
	if fb.servo(1).regs[65] != 1 || fb.servo(2).regs[65] != 1 {
		t.Error("broadcast write not applied to all devices")
	}
}

func TestBroadcastReadRejected(t *testing.T) {
	_, c := newFakeBus()
	if _, err := c.ReadBytes(proto2.BroadcastID, 0, 2, testTimeout); !errors.Is(err, ErrBroadcastRead) {
		t.Errorf("expected ErrBroadcastRead, got %v", err)
	}
}

// ============================================================
// Device Handle Tests
// ============================================================

func TestDevicePingRecordsIdentity(t *testing.T) {
	_, c := newFakeBus(&fakeServo{id: 4, model: 1030, fw: 0x2C})

	d := c.Device(4)
	info, err := d.Ping(testTimeout)
	if err != nil {
		t.Fatalf("ping: %v", err)
	}
	if info.ModelNumber != 1030 || info.FirmwareVersion != 0x2C {
		t.Errorf("ping info: %+v", info)
	}
	if d.ModelNumber != 1030 || d.FirmwareVersion != 0x2C {
		t.Errorf("handle not updated: %+v", d)
	}
	if d.ModelName() != "XM430-W210" {
		t.Errorf("model name: %q", d.ModelName())
	}
}

func TestReadWriteRegisterByName(t *testing.T) {
	_, c := newFakeBus(&fakeServo{id: 1, model: 1020, fw: 1})
	d := c.Device(1)

	if err := d.WriteRegister("goal_position", 2048, testTimeout); err != nil {
		t.Fatalf("WriteRegister: %v", err)
	}
	v, err := d.ReadRegister("goal_position", testTimeout)
	if err != nil || v != 2048 {
		t.Errorf("ReadRegister: v=%d err=%v", v, err)
	}

	if _, err := d.ReadRegister("flux_capacitor", testTimeout); !errors.Is(err, ErrUnknownRegister) {
		t.Errorf("unknown register: expected ErrUnknownRegister, got %v", err)
	}
}
