// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Kineto Labs

package bus

import (
	"encoding/binary"
	"fmt"
	"sort"
	"time"
)

// BlockItem locates one register's bytes inside an indirect block.
type BlockItem struct {
	SlotStart int
	Size      int
}

// Block is a named group of control-table registers packed into a
// contiguous run of indirect slots so the whole group moves in one bus
// transaction. A device carries at most one read block and any number of
// named write blocks, all sharing the 20-slot pool.
type Block struct {
	Items     []string // sorted by source address at setup
	ItemMap   map[string]BlockItem
	SlotStart int
	SlotCount int
}

// DataAddress returns the register address of the block's first mirrored
// data byte.
func (b *Block) DataAddress() uint16 {
	return IndirectDataBase + uint16(b.SlotStart)
}

// slotAddr returns the mapping-table register holding slot i's source
// address.
func slotAddr(i int) uint16 {
	return IndirectAddrBase + uint16(2*i)
}

// SetupSlot points indirect slot index at a source register address.
// The mapping register is written on the device and mirrored host-side.
func (d *Device) SetupSlot(index int, source uint16, timeout time.Duration) error {
	if index < 0 || index >= IndirectSlotCount {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	if source < IndirectSourceMin || source > IndirectSourceMax {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrAddressOutOfRange,
			source, IndirectSourceMin, IndirectSourceMax)
	}
	if err := d.conn.WriteU16(d.ID, slotAddr(index), source, timeout); err != nil {
		return err
	}
	d.slots[index] = source
	return nil
}

// ClearSlot unmaps indirect slot index by writing zero to its mapping
// register.
func (d *Device) ClearSlot(index int, timeout time.Duration) error {
	if index < 0 || index >= IndirectSlotCount {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	if err := d.conn.WriteU16(d.ID, slotAddr(index), 0, timeout); err != nil {
		return err
	}
	d.slots[index] = 0
	return nil
}

// ReadSlot reads the one-byte mirror of a mapped slot.
func (d *Device) ReadSlot(index int, timeout time.Duration) (uint8, error) {
	if err := d.requireMapped(index); err != nil {
		return 0, err
	}
	return d.conn.ReadU8(d.ID, IndirectDataBase+uint16(index), timeout)
}

// WriteSlot writes through the one-byte mirror of a mapped slot.
func (d *Device) WriteSlot(index int, value uint8, timeout time.Duration) error {
	if err := d.requireMapped(index); err != nil {
		return err
	}
	return d.conn.WriteU8(d.ID, IndirectDataBase+uint16(index), value, timeout)
}

func (d *Device) requireMapped(index int) error {
	if index < 0 || index >= IndirectSlotCount {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	if d.slots[index] == 0 {
		return fmt.Errorf("%w: slot %d", ErrNotMapped, index)
	}
	return nil
}

// contiguousRun reports whether sorted covers a gap-free index range.
func contiguousRun(sorted []int) bool {
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1]+1 {
			return false
		}
	}
	return true
}

// BulkRead reads several mapped slots, keyed by slot index. Indices that
// form one contiguous run of length > 1 are fetched in a single
// multi-byte read; otherwise each slot is read individually.
func (d *Device) BulkRead(indices []int, timeout time.Duration) (map[int]uint8, error) {
	for _, i := range indices {
		if err := d.requireMapped(i); err != nil {
			return nil, err
		}
	}

	sorted := append([]int{}, indices...)
	sort.Ints(sorted)
	out := make(map[int]uint8, len(sorted))

	if len(sorted) > 1 && contiguousRun(sorted) {
		data, err := d.conn.ReadBytes(d.ID, IndirectDataBase+uint16(sorted[0]),
			uint16(len(sorted)), timeout)
		if err != nil {
			return nil, err
		}
		for i, idx := range sorted {
			out[idx] = data[i]
		}
		return out, nil
	}

	for _, idx := range sorted {
		v, err := d.conn.ReadU8(d.ID, IndirectDataBase+uint16(idx), timeout)
		if err != nil {
			return nil, err
		}
		out[idx] = v
	}
	return out, nil
}

// BulkWrite writes several mapped slots, keyed by slot index, using one
// multi-byte write when the indices form a contiguous run.
func (d *Device) BulkWrite(values map[int]uint8, timeout time.Duration) error {
	sorted := make([]int, 0, len(values))
	for i := range values {
		if err := d.requireMapped(i); err != nil {
			return err
		}
		sorted = append(sorted, i)
	}
	sort.Ints(sorted)

	if len(sorted) > 1 && contiguousRun(sorted) {
		data := make([]byte, len(sorted))
		for i, idx := range sorted {
			data[i] = values[idx]
		}
		return d.conn.WriteBytes(d.ID, IndirectDataBase+uint16(sorted[0]), data, timeout)
	}

	for _, idx := range sorted {
		if err := d.conn.WriteU8(d.ID, IndirectDataBase+uint16(idx), values[idx], timeout); err != nil {
			return err
		}
	}
	return nil
}

// planBlock resolves item names, sorts them by source address, and lays
// them out over a contiguous run of free slots. No bytes touch the wire;
// every configuration error is raised here.
func (d *Device) planBlock(items []string) (*Block, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: block needs at least one item", ErrUnknownRegister)
	}

	entries := make([]ControlTableEntry, 0, len(items))
	total := 0
	for _, name := range items {
		entry, ok := LookupRegister(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRegister, name)
		}
		if entry.Address < IndirectSourceMin || entry.Address+uint16(entry.Size)-1 > IndirectSourceMax {
			return nil, fmt.Errorf("%w: %q at %d", ErrAddressOutOfRange, name, entry.Address)
		}
		entries = append(entries, entry)
		total += entry.Size
	}

	// Sorting by source address keeps neighbouring registers adjacent in
	// the slot layout, which is what lets one wire transaction cover the
	// whole block.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Address < entries[j].Address })

	start, ok := d.findFreeRun(total)
	if !ok {
		return nil, fmt.Errorf("%w: need %d slots, pool is %d with %d free",
			ErrCapacityExceeded, total, IndirectSlotCount, d.freeSlots())
	}

	block := &Block{
		Items:     make([]string, len(entries)),
		ItemMap:   make(map[string]BlockItem, len(entries)),
		SlotStart: start,
		SlotCount: total,
	}
	slot := start
	for i, entry := range entries {
		block.Items[i] = entry.Name
		block.ItemMap[entry.Name] = BlockItem{SlotStart: slot, Size: entry.Size}
		slot += entry.Size
	}
	return block, nil
}

func (d *Device) freeSlots() int {
	n := 0
	for _, src := range d.slots {
		if src == 0 {
			n++
		}
	}
	return n
}

// findFreeRun locates the first contiguous run of n unmapped slots.
func (d *Device) findFreeRun(n int) (int, bool) {
	if n <= 0 || n > IndirectSlotCount {
		return 0, false
	}
	run := 0
	for i := 0; i < IndirectSlotCount; i++ {
		if d.slots[i] != 0 {
			run = 0
			continue
		}
		run++
		if run == n {
			return i - n + 1, true
		}
	}
	return 0, false
}

// installBlock writes the whole mapping-table range for a planned block
// in one contiguous register write, then mirrors it host-side.
func (d *Device) installBlock(block *Block, timeout time.Duration) error {
	mappings := make([]byte, 0, 2*block.SlotCount)
	for _, name := range block.Items {
		entry := entriesByName[name]
		for b := 0; b < entry.Size; b++ {
			var buf [2]byte
			binary.LittleEndian.PutUint16(buf[:], entry.Address+uint16(b))
			mappings = append(mappings, buf[0], buf[1])
		}
	}

	if err := d.conn.WriteBytes(d.ID, slotAddr(block.SlotStart), mappings, timeout); err != nil {
		return err
	}

	slot := block.SlotStart
	for _, name := range block.Items {
		entry := entriesByName[name]
		for b := 0; b < entry.Size; b++ {
			d.slots[slot] = entry.Address + uint16(b)
			slot++
		}
	}
	return nil
}

// SetupReadBlock lays the named registers out as the device's read block.
// Any existing read block must be cleared first.
func (d *Device) SetupReadBlock(items []string, timeout time.Duration) (*Block, error) {
	if d.readBlock != nil {
		return nil, fmt.Errorf("read block already configured (%d slots); clear it first",
			d.readBlock.SlotCount)
	}
	block, err := d.planBlock(items)
	if err != nil {
		return nil, err
	}
	if err := d.installBlock(block, timeout); err != nil {
		return nil, err
	}
	d.readBlock = block
	return block, nil
}

// SetupWriteBlock lays the named registers out as a named write block.
// Multiple write blocks coexist with the read block in the shared pool.
func (d *Device) SetupWriteBlock(name string, items []string, timeout time.Duration) (*Block, error) {
	if _, exists := d.writeBlocks[name]; exists {
		return nil, fmt.Errorf("write block %q already configured; clear it first", name)
	}
	block, err := d.planBlock(items)
	if err != nil {
		return nil, err
	}
	if err := d.installBlock(block, timeout); err != nil {
		return nil, err
	}
	d.writeBlocks[name] = block
	return block, nil
}

// ReadBlockValues fetches the whole read block in one register read and
// decodes each item as a little-endian unsigned value of its width.
func (d *Device) ReadBlockValues(timeout time.Duration) (map[string]uint32, error) {
	if d.readBlock == nil {
		return nil, fmt.Errorf("%w: no read block configured", ErrNotMapped)
	}
	data, err := d.conn.ReadBytes(d.ID, d.readBlock.DataAddress(),
		uint16(d.readBlock.SlotCount), timeout)
	if err != nil {
		return nil, err
	}
	return d.readBlock.decode(data)
}

// decode unpacks one device's share of block bytes.
func (b *Block) decode(data []byte) (map[string]uint32, error) {
	if len(data) < b.SlotCount {
		return nil, fmt.Errorf("block data truncated: %d of %d bytes", len(data), b.SlotCount)
	}
	out := make(map[string]uint32, len(b.Items))
	for _, name := range b.Items {
		item := b.ItemMap[name]
		off := item.SlotStart - b.SlotStart
		raw := data[off : off+item.Size]
		switch item.Size {
		case 1:
			out[name] = uint32(raw[0])
		case 2:
			out[name] = uint32(binary.LittleEndian.Uint16(raw))
		default:
			out[name] = binary.LittleEndian.Uint32(raw)
		}
	}
	return out, nil
}

// encode packs item values into one contiguous buffer covering the block.
// Every item must have a value.
func (b *Block) encode(values map[string]uint32) ([]byte, error) {
	data := make([]byte, b.SlotCount)
	for _, name := range b.Items {
		v, ok := values[name]
		if !ok {
			return nil, fmt.Errorf("missing value for block item %q", name)
		}
		item := b.ItemMap[name]
		off := item.SlotStart - b.SlotStart
		switch item.Size {
		case 1:
			data[off] = uint8(v)
		case 2:
			binary.LittleEndian.PutUint16(data[off:off+2], uint16(v))
		default:
			binary.LittleEndian.PutUint32(data[off:off+4], v)
		}
	}
	return data, nil
}

// WriteBlockValues encodes every item of the named write block and pushes
// the whole block in one register write.
func (d *Device) WriteBlockValues(name string, values map[string]uint32, timeout time.Duration) error {
	block, ok := d.writeBlocks[name]
	if !ok {
		return fmt.Errorf("%w: no write block %q", ErrNotMapped, name)
	}
	data, err := block.encode(values)
	if err != nil {
		return err
	}
	return d.conn.WriteBytes(d.ID, block.DataAddress(), data, timeout)
}

// clearBlock zeroes a block's mapping registers in one write and drops
// the host-side mirror.
func (d *Device) clearBlock(block *Block, timeout time.Duration) error {
	zeros := make([]byte, 2*block.SlotCount)
	if err := d.conn.WriteBytes(d.ID, slotAddr(block.SlotStart), zeros, timeout); err != nil {
		return err
	}
	for i := block.SlotStart; i < block.SlotStart+block.SlotCount; i++ {
		d.slots[i] = 0
	}
	return nil
}

// ClearReadBlock releases the read block's slots.
func (d *Device) ClearReadBlock(timeout time.Duration) error {
	if d.readBlock == nil {
		return nil
	}
	if err := d.clearBlock(d.readBlock, timeout); err != nil {
		return err
	}
	d.readBlock = nil
	return nil
}

// ClearWriteBlock releases a named write block's slots.
func (d *Device) ClearWriteBlock(name string, timeout time.Duration) error {
	block, ok := d.writeBlocks[name]
	if !ok {
		return nil
	}
	if err := d.clearBlock(block, timeout); err != nil {
		return err
	}
	delete(d.writeBlocks, name)
	return nil
}

// ReadBlock returns the configured read block, if any.
func (d *Device) ReadBlock() *Block {
	return d.readBlock
}

// WriteBlock returns the named write block, if any.
func (d *Device) WriteBlock(name string) (*Block, bool) {
	b, ok := d.writeBlocks[name]
	return b, ok
}

// MappedSlots returns the host-side mirror of the mapping table: slot
// index to source address, live entries only.
func (d *Device) MappedSlots() map[int]uint16 {
	out := make(map[int]uint16)
	for i, src := range d.slots {
		if src != 0 {
			out[i] = src
		}
	}
	return out
}
