// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kineto Labs

package proto2

import (
	"bytes"
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"
)

// getFuzzRounds returns the number of fuzz rounds from FUZZ_ROUNDS env var, default 500
func getFuzzRounds() int {
	if envRounds := os.Getenv("FUZZ_ROUNDS"); envRounds != "" {
		if rounds, err := strconv.Atoi(envRounds); err == nil && rounds > 0 {
			return rounds
		}
	}
	return 500
}

// getFuzzSeed returns the seed from FUZZ_SEED env var, or generates one from current time
func getFuzzSeed() int64 {
	if envSeed := os.Getenv("FUZZ_SEED"); envSeed != "" {
		if seed, err := strconv.ParseInt(envSeed, 10, 64); err == nil {
			return seed
		}
	}
	return time.Now().UnixNano()
}

// newFuzzRng creates a new random number generator and logs the seed for reproducibility
func newFuzzRng(t *testing.T) *rand.Rand {
	seed := getFuzzSeed()
	t.Logf("Seed: %d (reproduce with FUZZ_SEED=%d)", seed, seed)
	return rand.New(rand.NewSource(seed))
}

// TestFuzz_RandomFragmentation streams randomly generated status packets
// through the Reassembler in random-sized fragments and checks that every
// packet survives intact and in order.
func TestFuzz_RandomFragmentation(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for round := 0; round < rounds; round++ {
		count := 1 + rng.Intn(8)
		var stream []byte
		var want []*StatusPacket

		for i := 0; i < count; i++ {
			params := make([]byte, rng.Intn(24))
			rng.Read(params)
			id := uint8(1 + rng.Intn(250))
			errByte := uint8(rng.Intn(0x80))
			stream = append(stream, buildStatusPacket(id, errByte, params)...)
			want = append(want, &StatusPacket{ID: id, Error: errByte, Params: params})
		}

		var c collector
		r := NewReassembler(c.publish)
		for len(stream) > 0 {
			n := 1 + rng.Intn(len(stream))
			r.Feed(stream[:n])
			stream = stream[n:]
		}
		r.Feed(nil) // drain any per-call budget remainder

		if len(c.errs) != 0 {
			t.Fatalf("round %d: publish errors %v", round, c.errs)
		}
		if len(c.packets) != len(want) {
			t.Fatalf("round %d: expected %d packets, got %d", round, len(want), len(c.packets))
		}
		for i, pkt := range c.packets {
			w := want[i]
			if pkt.ID != w.ID || pkt.Error != w.Error || !bytes.Equal(pkt.Params, w.Params) {
				t.Fatalf("round %d packet %d: got id=%d err=0x%02X params=% X, want id=%d err=0x%02X params=% X",
					round, i, pkt.ID, pkt.Error, pkt.Params, w.ID, w.Error, w.Params)
			}
		}
	}
}

// TestFuzz_NoiseResync prepends random noise to a valid packet and checks
// the Reassembler always recovers it.
func TestFuzz_NoiseResync(t *testing.T) {
	rng := newFuzzRng(t)
	rounds := getFuzzRounds()

	for round := 0; round < rounds; round++ {
		noise := make([]byte, 1+rng.Intn(32))
		rng.Read(noise)
		// A full header inside the noise could legitimately open a frame
		// that swallows the packet; keep the noise header-free.
		for i := range noise {
			if noise[i] == Header1 {
				noise[i] = 0x00
			}
		}

		wire := buildStatusPacket(uint8(1+rng.Intn(250)), 0, []byte{0x42})

		var c collector
		r := NewReassembler(c.publish)
		r.Feed(append(noise, wire...))

		if len(c.packets) != 1 {
			t.Fatalf("round %d: expected 1 packet after noise % X, got %d (errs %v)",
				round, noise, len(c.packets), c.errs)
		}
	}
}
