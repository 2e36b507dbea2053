// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kineto Labs

// Package bus layers request/response conversations, typed register
// access, indirect addressing, and device discovery on top of the
// proto2 wire codec.
//
// The package owns no transport. The caller supplies a Transport for
// outgoing bytes and pushes incoming bytes through Conn.Receive; connect
// and disconnect lifecycle stays with the transport's owner.
package bus

import (
	"sync"
	"time"

	"github.com/kinetolab/dxl/pkg/proto2"
)

// Transport sends raw bytes toward the devices. Implementations may block
// until the underlying medium accepts the bytes.
type Transport interface {
	Send(data []byte) error
}

// expectation kinds for a pending conversation.
const (
	expectOne = iota
	expectSet
	expectAny
)

// watcher is one pending conversation awaiting its reply (or set of
// replies). It fires exactly once: either with a terminal result or with
// an error, and is removed from the table at that moment.
type watcher struct {
	kind     int
	id       uint8
	want     map[uint8]bool
	received map[uint8]*proto2.StatusPacket
	done     chan watchResult
}

type watchResult struct {
	packets map[uint8]*proto2.StatusPacket
	err     error
}

// Conn correlates instruction packets with the status packets they
// provoke. One Conn owns one connection's receive accumulator and pending
// conversation table; there is no cross-connection sharing.
//
// Concurrent conversations are permitted only when their expectations are
// disjoint. Two unserialized conversations against the same id race on
// which receives the first reply; callers must serialize same-id traffic.
type Conn struct {
	transport Transport

	mu       sync.Mutex
	reasm    *proto2.Reassembler
	watchers []*watcher
	closed   bool
}

// NewConn creates a correlator over the given transport.
func NewConn(t Transport) *Conn {
	c := &Conn{transport: t}
	c.reasm = proto2.NewReassembler(c.deliver)
	return c
}

// Receive is the "bytes arrived" notification. The transport's owner
// calls it with each chunk read from the wire, in arrival order.
func (c *Conn) Receive(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.reasm.Feed(data)
}

// Close fails every pending conversation and rejects further sends.
func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for _, w := range c.watchers {
		w.done <- watchResult{err: ErrClosed}
	}
	c.watchers = nil
	c.reasm.Reset()
}

// deliver runs under c.mu via Receive -> Reassembler.Feed.
func (c *Conn) deliver(pkt *proto2.StatusPacket, err error) {
	if err != nil {
		// A corrupt frame carries no trustworthy id, so it cannot be
		// attributed to one conversation: every pending conversation
		// observes the failure.
		for _, w := range c.watchers {
			w.done <- watchResult{err: err}
		}
		c.watchers = nil
		return
	}

	// First registered matching watcher consumes the packet.
	for i, w := range c.watchers {
		switch w.kind {
		case expectOne:
			if pkt.ID != w.id {
				continue
			}
			w.received[pkt.ID] = pkt
			c.removeWatcherAt(i)
			w.done <- watchResult{packets: w.received}
			return
		case expectSet:
			if !w.want[pkt.ID] {
				continue
			}
			w.received[pkt.ID] = pkt
			if len(w.received) == len(w.want) {
				c.removeWatcherAt(i)
				w.done <- watchResult{packets: w.received}
			}
			return
		case expectAny:
			w.received[pkt.ID] = pkt
			c.removeWatcherAt(i)
			w.done <- watchResult{packets: w.received}
			return
		}
	}
	// No watcher wanted it: a late reply after timeout, or unsolicited
	// traffic. Dropped.
}

func (c *Conn) removeWatcherAt(i int) {
	c.watchers = append(c.watchers[:i], c.watchers[i+1:]...)
}

func (c *Conn) removeWatcher(w *watcher) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, cur := range c.watchers {
		if cur == w {
			c.removeWatcherAt(i)
			return true
		}
	}
	return false
}

// register installs a watcher and transmits pkt while holding the table
// lock, so a reply cannot slip past between registration and send.
func (c *Conn) register(pkt []byte, w *watcher) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.watchers = append(c.watchers, w)
	c.mu.Unlock()

	if err := c.transport.Send(pkt); err != nil {
		c.removeWatcher(w)
		return err
	}
	return nil
}

func (c *Conn) await(w *watcher, timeout time.Duration) (map[uint8]*proto2.StatusPacket, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-w.done:
		return res.packets, res.err
	case <-timer.C:
		if !c.removeWatcher(w) {
			// The watcher fired between deadline expiry and removal;
			// take its result rather than dropping a matched reply.
			res := <-w.done
			return res.packets, res.err
		}
		var missing []uint8
		if w.kind == expectSet {
			c.mu.Lock()
			for id := range w.want {
				if _, got := w.received[id]; !got {
					missing = append(missing, id)
				}
			}
			c.mu.Unlock()
		}
		return nil, &TimeoutError{Missing: missing}
	}
}

// Send transmits an instruction packet without awaiting any reply.
// Broadcast instructions other than PING produce no status packets and
// must use this path.
func (c *Conn) Send(pkt []byte) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.mu.Unlock()
	return c.transport.Send(pkt)
}

// SendAwait transmits pkt and blocks until the device with the given id
// answers or the timeout expires.
func (c *Conn) SendAwait(pkt []byte, id uint8, timeout time.Duration) (*proto2.StatusPacket, error) {
	w := &watcher{
		kind:     expectOne,
		id:       id,
		received: make(map[uint8]*proto2.StatusPacket, 1),
		done:     make(chan watchResult, 1),
	}
	if err := c.register(pkt, w); err != nil {
		return nil, err
	}
	packets, err := c.await(w, timeout)
	if err != nil {
		return nil, err
	}
	return packets[id], nil
}

// SendAwaitSet transmits pkt and blocks until every id in ids has
// answered. On timeout the error reports which ids never replied.
func (c *Conn) SendAwaitSet(pkt []byte, ids []uint8, timeout time.Duration) (map[uint8]*proto2.StatusPacket, error) {
	want := make(map[uint8]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	w := &watcher{
		kind:     expectSet,
		want:     want,
		received: make(map[uint8]*proto2.StatusPacket, len(ids)),
		done:     make(chan watchResult, 1),
	}
	if err := c.register(pkt, w); err != nil {
		return nil, err
	}
	return c.await(w, timeout)
}

// SendAwaitAny transmits pkt and resolves on the first decoded packet
// regardless of id. Used for broadcast collection, where the caller
// decides how long to keep asking.
func (c *Conn) SendAwaitAny(pkt []byte, timeout time.Duration) (*proto2.StatusPacket, error) {
	w := &watcher{
		kind:     expectAny,
		received: make(map[uint8]*proto2.StatusPacket, 1),
		done:     make(chan watchResult, 1),
	}
	if err := c.register(pkt, w); err != nil {
		return nil, err
	}
	packets, err := c.await(w, timeout)
	if err != nil {
		return nil, err
	}
	for _, pkt := range packets {
		return pkt, nil
	}
	return nil, &TimeoutError{}
}
