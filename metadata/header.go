package metadata

import "encoding/binary"

// Block headers are written into the first HeaderSize bytes of the blocks they
// describe. All raw arena arithmetic in this package lives in this file; the rest of
// the engine manipulates blocks exclusively through these accessors.
//
// Header layout, little-endian:
//
//	offset 0  uint16  tag
//	offset 2  uint16  order
//	offset 8  int64   next (block ref)
//	offset 16 int64   prev (block ref)
const (
	tagFieldOffset   = 0
	orderFieldOffset = 2
	nextFieldOffset  = 8
	prevFieldOffset  = 16
)

// Block status tags.
const (
	blockReserved  uint16 = 0
	blockAvailable uint16 = 1
)

// blockRef names a node in a free list: either the non-negative byte offset of a real
// block within the arena, or an encoded sentinel for one of the per-order list heads.
// Sentinels are not arena-backed; their links live in the metadata struct.
type blockRef int64

func sentinelRef(order int) blockRef {
	return blockRef(-(order + 1))
}

func (r blockRef) isSentinel() bool {
	return r < 0
}

func (r blockRef) sentinelOrder() int {
	return int(-r - 1)
}

func (r blockRef) offset() int {
	return int(r)
}

// listNode holds the links of a per-order sentinel.
type listNode struct {
	next blockRef
	prev blockRef
}

func (m *BuddyBlockMetadata) tagAt(offset int) uint16 {
	return binary.LittleEndian.Uint16(m.arena[offset+tagFieldOffset:])
}

func (m *BuddyBlockMetadata) setTagAt(offset int, tag uint16) {
	binary.LittleEndian.PutUint16(m.arena[offset+tagFieldOffset:], tag)
}

func (m *BuddyBlockMetadata) orderAt(offset int) int {
	return int(binary.LittleEndian.Uint16(m.arena[offset+orderFieldOffset:]))
}

func (m *BuddyBlockMetadata) setOrderAt(offset int, order int) {
	binary.LittleEndian.PutUint16(m.arena[offset+orderFieldOffset:], uint16(order))
}

func (m *BuddyBlockMetadata) nextOf(ref blockRef) blockRef {
	if ref.isSentinel() {
		return m.sentinels[ref.sentinelOrder()].next
	}
	return blockRef(binary.LittleEndian.Uint64(m.arena[ref.offset()+nextFieldOffset:]))
}

func (m *BuddyBlockMetadata) setNextOf(ref, to blockRef) {
	if ref.isSentinel() {
		m.sentinels[ref.sentinelOrder()].next = to
		return
	}
	binary.LittleEndian.PutUint64(m.arena[ref.offset()+nextFieldOffset:], uint64(to))
}

func (m *BuddyBlockMetadata) prevOf(ref blockRef) blockRef {
	if ref.isSentinel() {
		return m.sentinels[ref.sentinelOrder()].prev
	}
	return blockRef(binary.LittleEndian.Uint64(m.arena[ref.offset()+prevFieldOffset:]))
}

func (m *BuddyBlockMetadata) setPrevOf(ref, to blockRef) {
	if ref.isSentinel() {
		m.sentinels[ref.sentinelOrder()].prev = to
		return
	}
	binary.LittleEndian.PutUint64(m.arena[ref.offset()+prevFieldOffset:], uint64(to))
}
