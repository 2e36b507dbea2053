// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kineto Labs

package bus

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kinetolab/dxl/pkg/proto2"
)

// Configuration errors. These are raised synchronously, before any bytes
// touch the wire.
var (
	ErrIndexOutOfRange   = errors.New("indirect slot index out of range")
	ErrAddressOutOfRange = errors.New("source address out of indirect range")
	ErrNotMapped         = errors.New("indirect slot not mapped")
	ErrCapacityExceeded  = errors.New("indirect slot capacity exceeded")
	ErrGeometryMismatch  = errors.New("group members have differing block layout")
	ErrUnknownRegister   = errors.New("unknown control table register")
	ErrClosed            = errors.New("connection closed")
	ErrBroadcastRead     = errors.New("cannot read from the broadcast id")
)

// TimeoutError reports a conversation that expired before its expectation
// was satisfied. For id-set conversations Missing lists the devices that
// never answered.
type TimeoutError struct {
	Missing []uint8
}

func (e *TimeoutError) Error() string {
	if len(e.Missing) == 0 {
		return "response timeout"
	}
	ids := make([]string, len(e.Missing))
	for i, id := range e.Missing {
		ids[i] = fmt.Sprintf("%d", id)
	}
	return "response timeout: no reply from ids " + strings.Join(ids, ", ")
}

// IsTimeout reports whether err is (or wraps) a conversation timeout.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// DeviceError reports a status packet whose error bitmask was nonzero.
// The raw bitmask is preserved; Faults carries the decoded names of every
// set bit.
type DeviceError struct {
	ID     uint8
	Bits   uint8
	Faults []string
}

func newDeviceError(id uint8, bits uint8) *DeviceError {
	return &DeviceError{ID: id, Bits: bits, Faults: proto2.DecodeErrorBits(bits)}
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device %d error 0x%02X: %s", e.ID, e.Bits, strings.Join(e.Faults, ", "))
}
