// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kineto Labs

package bus

import (
	"fmt"
	"time"

	"github.com/kinetolab/dxl/pkg/proto2"
)

// GroupWrite pairs one device with the values destined for its block.
type GroupWrite struct {
	Device *Device
	Values map[string]uint32
}

// blockGeometry is the wire-visible shape of a block: where its data
// lives and how many bytes it spans. Devices sharing a geometry can move
// their blocks in one bus transaction.
type blockGeometry struct {
	addr uint16
	size int
}

func geometryOf(b *Block) blockGeometry {
	return blockGeometry{addr: b.DataAddress(), size: b.SlotCount}
}

// GroupReadBlock reads every device's read block in a single SYNC_READ
// transaction. All devices must share one connection and one block
// geometry; replies are collected with an id-set expectation so one slow
// device cannot be confused with another's reply.
func GroupReadBlock(devices []*Device, timeout time.Duration) (map[uint8]map[string]uint32, error) {
	if len(devices) == 0 {
		return map[uint8]map[string]uint32{}, nil
	}

	conn := devices[0].conn
	first := devices[0].readBlock
	if first == nil {
		return nil, fmt.Errorf("%w: device %d has no read block", ErrNotMapped, devices[0].ID)
	}
	geom := geometryOf(first)

	ids := make([]uint8, len(devices))
	for i, d := range devices {
		if d.conn != conn {
			return nil, fmt.Errorf("%w: device %d is on a different connection", ErrGeometryMismatch, d.ID)
		}
		if d.readBlock == nil {
			return nil, fmt.Errorf("%w: device %d has no read block", ErrNotMapped, d.ID)
		}
		if geometryOf(d.readBlock) != geom {
			return nil, fmt.Errorf("%w: device %d block at addr %d size %d, group uses addr %d size %d",
				ErrGeometryMismatch, d.ID, d.readBlock.DataAddress(), d.readBlock.SlotCount,
				geom.addr, geom.size)
		}
		ids[i] = d.ID
	}

	pkt := proto2.BuildInstructionPacket(proto2.BroadcastID, proto2.InstSyncRead,
		proto2.SyncReadParams(geom.addr, uint16(geom.size), ids))
	replies, err := conn.SendAwaitSet(pkt, ids, timeout)
	if err != nil {
		return nil, err
	}

	out := make(map[uint8]map[string]uint32, len(devices))
	for _, d := range devices {
		status := replies[d.ID]
		if err := checkStatus(status); err != nil {
			return nil, err
		}
		values, err := d.readBlock.decode(status.Params)
		if err != nil {
			return nil, fmt.Errorf("device %d: %w", d.ID, err)
		}
		out[d.ID] = values
	}
	return out, nil
}

// GroupWriteBlock pushes the named write block of several devices with
// SYNC_WRITE, one broadcast packet per distinct block geometry. Broadcast
// writes produce no status packets, so nothing is awaited; configuration
// errors are still raised before any bytes are sent.
func GroupWriteBlock(name string, writes []GroupWrite) error {
	if len(writes) == 0 {
		return nil
	}
	conn := writes[0].Device.conn

	type geomGroup struct {
		ids  []uint8
		data map[uint8][]byte
	}
	groups := make(map[blockGeometry]*geomGroup)
	order := make([]blockGeometry, 0, 1)

	for _, w := range writes {
		d := w.Device
		if d.conn != conn {
			return fmt.Errorf("%w: device %d is on a different connection", ErrGeometryMismatch, d.ID)
		}
		block, ok := d.writeBlocks[name]
		if !ok {
			return fmt.Errorf("%w: device %d has no write block %q", ErrNotMapped, d.ID, name)
		}
		data, err := block.encode(w.Values)
		if err != nil {
			return fmt.Errorf("device %d: %w", d.ID, err)
		}

		geom := geometryOf(block)
		g, seen := groups[geom]
		if !seen {
			g = &geomGroup{data: make(map[uint8][]byte)}
			groups[geom] = g
			order = append(order, geom)
		}
		g.ids = append(g.ids, d.ID)
		g.data[d.ID] = data
	}

	for _, geom := range order {
		g := groups[geom]
		pkt := proto2.BuildInstructionPacket(proto2.BroadcastID, proto2.InstSyncWrite,
			proto2.SyncWriteParams(geom.addr, uint16(geom.size), g.ids, g.data))
		if err := conn.Send(pkt); err != nil {
			return err
		}
	}
	return nil
}
