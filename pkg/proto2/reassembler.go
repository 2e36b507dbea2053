// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kineto Labs

package proto2

import "errors"

// Reassembler caps. The buffer cap bounds memory when the line produces
// garbage faster than packets; the per-feed packet budget keeps one Feed
// call from starving its caller on a pathological backlog.
const (
	maxBufferedBytes  = 4096
	maxPacketsPerFeed = 32
)

// ErrBufferOverflow is published when the receive accumulator exceeds its
// cap without yielding a packet. The accumulator is reset afterwards.
var ErrBufferOverflow = errors.New("receive buffer overflow")

// Reassembler turns a fragmented byte stream into discrete status packets.
// One instance owns the receive accumulator of one connection.
//
// On each Feed it appends the arriving bytes, then repeatedly slices
// complete packets off the front. A prefix that cannot start a packet is
// resynchronized by dropping exactly one leading byte and retrying.
type Reassembler struct {
	buf     []byte
	publish func(*StatusPacket, error)
}

// NewReassembler creates a reassembler delivering decoded packets (or
// decode errors) to publish. Errors do not terminate the stream; the next
// Feed continues from the surviving buffer.
func NewReassembler(publish func(*StatusPacket, error)) *Reassembler {
	return &Reassembler{
		buf:     make([]byte, 0, 256),
		publish: publish,
	}
}

// Buffered returns the number of accumulated bytes awaiting a complete
// packet.
func (r *Reassembler) Buffered() int {
	return len(r.buf)
}

// Reset discards the accumulator.
func (r *Reassembler) Reset() {
	r.buf = r.buf[:0]
}

// Feed appends newly arrived bytes and publishes every complete packet
// found at the front of the accumulator, up to the per-call budget.
func (r *Reassembler) Feed(data []byte) {
	r.buf = append(r.buf, data...)

	published := 0
	for published < maxPacketsPerFeed {
		n, ok, err := CompletePacketLength(r.buf)
		if err == ErrInvalidHeader {
			// Line noise or a torn packet: drop one byte and retry.
			r.buf = r.buf[1:]
			continue
		}
		if !ok {
			break // wait for more bytes
		}

		frame := r.buf[:n]
		pkt, perr := ParseStatusPacket(frame)
		r.buf = r.buf[n:]
		r.publish(pkt, perr)
		published++
	}

	if len(r.buf) > maxBufferedBytes {
		r.buf = r.buf[:0]
		r.publish(nil, ErrBufferOverflow)
	}

	// Slicing off the front leaves consumed bytes pinned; copy the tail
	// down once the stream is drained or mostly drained.
	if len(r.buf) == 0 {
		if cap(r.buf) > maxBufferedBytes {
			r.buf = make([]byte, 0, 256)
		}
	} else if cap(r.buf) < len(r.buf)*2 {
		fresh := make([]byte, len(r.buf), 256+len(r.buf))
		copy(fresh, r.buf)
		r.buf = fresh
	}
}
