package metadata

import (
	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/buddy/memutils"
)

// BuddyBlockMetadata manages a single power-of-two-sized region of memory with the
// buddy-block algorithm: one circular free list per order, split-on-allocate,
// coalesce-on-free. Every block, free or reserved, begins with a HeaderSize-byte
// header written into the region itself, so no bookkeeping grows with the number of
// allocations.
//
// BuddyBlockMetadata is not synchronized. Operations on a single metadata object
// must be externally serialized.
type BuddyBlockMetadata struct {
	arena    []byte
	maxOrder int

	sentinels  [MaxOrder]listNode
	allocCount int
	freeBlocks int
	freeBytes  int
}

var _ memutils.Validatable = &BuddyBlockMetadata{}

func NewBuddyBlockMetadata() *BuddyBlockMetadata {
	return &BuddyBlockMetadata{}
}

// Init prepares the metadata to manage the provided arena. The arena's length must be
// a power of two between 1<<SmallestOrder and 1<<(MaxOrder-1) inclusive. On success,
// the entire arena is a single available block of the maximum order.
func (m *BuddyBlockMetadata) Init(arena []byte) error {
	err := memutils.CheckPow2(uint(len(arena)), "arena size")
	if err != nil {
		return err
	}

	order := OrderForSize(len(arena))
	if order < SmallestOrder || order >= MaxOrder {
		return errors.Newf("arena order %d is outside the supported range [%d, %d)", order, SmallestOrder, MaxOrder)
	}

	m.arena = arena
	m.maxOrder = order
	m.reset()

	return nil
}

// Clear instantly frees all allocations, returning the metadata to its
// freshly-initialized state.
func (m *BuddyBlockMetadata) Clear() {
	m.reset()
}

func (m *BuddyBlockMetadata) reset() {
	for k := 0; k <= m.maxOrder; k++ {
		m.sentinels[k] = listNode{next: sentinelRef(k), prev: sentinelRef(k)}
	}

	m.allocCount = 0
	m.freeBlocks = 0
	m.freeBytes = len(m.arena)

	m.insertAtHead(0, m.maxOrder)
}

// Size returns the number of bytes under management.
func (m *BuddyBlockMetadata) Size() int { return len(m.arena) }

// MaximumOrder returns the order of the single block the region was carved from at
// Init time.
func (m *BuddyBlockMetadata) MaximumOrder() int { return m.maxOrder }

// AllocationCount returns the number of live allocations.
func (m *BuddyBlockMetadata) AllocationCount() int { return m.allocCount }

// FreeRegionsCount returns the number of distinct available blocks across all orders.
func (m *BuddyBlockMetadata) FreeRegionsCount() int { return m.freeBlocks }

// SumFreeSize returns the number of available bytes, counting each free block's
// full power-of-two footprint.
func (m *BuddyBlockMetadata) SumFreeSize() int { return m.freeBytes }

// IsEmpty returns true if no allocations are live.
func (m *BuddyBlockMetadata) IsEmpty() bool { return m.allocCount == 0 }

func (m *BuddyBlockMetadata) listEmpty(order int) bool {
	return m.sentinels[order].next == sentinelRef(order)
}

// insertAtHead splices the block at the provided offset in immediately after the
// order's sentinel, marking it available.
func (m *BuddyBlockMetadata) insertAtHead(offset, order int) {
	head := sentinelRef(order)
	first := m.nextOf(head)
	ref := blockRef(offset)

	m.setTagAt(offset, blockAvailable)
	m.setOrderAt(offset, order)
	m.setNextOf(ref, first)
	m.setPrevOf(ref, head)
	m.setPrevOf(first, ref)
	m.setNextOf(head, ref)

	m.freeBlocks++
}

// removeBlock excises the block at the provided offset from whatever free list
// currently holds it, using only the block's own links.
func (m *BuddyBlockMetadata) removeBlock(offset int) {
	ref := blockRef(offset)
	next := m.nextOf(ref)
	prev := m.prevOf(ref)

	m.setNextOf(prev, next)
	m.setPrevOf(next, prev)

	m.freeBlocks--
}

// Allocate reserves a block large enough to hold size bytes of payload plus its
// header and returns the offset of the payload. It fails with ErrOutOfMemory,
// leaving the metadata unmodified, when no free block of sufficient order exists.
func (m *BuddyBlockMetadata) Allocate(size int) (int, error) {
	if size <= 0 {
		return 0, errors.Newf("invalid allocation size: %d", size)
	}
	// Checked before adding HeaderSize: the sum overflows for sizes near MaxInt.
	if size > len(m.arena)-HeaderSize {
		return 0, errors.Wrapf(ErrOutOfMemory, "%d bytes plus the block header exceed the %d-byte region", size, len(m.arena))
	}

	memutils.DebugValidate(m)

	reqOrder := OrderForSize(size + HeaderSize)
	if reqOrder < SmallestOrder {
		reqOrder = SmallestOrder
	}

	// Walk upward from the requested order to the first non-empty free list.
	k := reqOrder
	for k <= m.maxOrder && m.listEmpty(k) {
		k++
	}
	if k > m.maxOrder {
		return 0, errors.Wrapf(ErrOutOfMemory, "free lists for orders %d through %d are all empty", reqOrder, m.maxOrder)
	}

	offset := m.nextOf(sentinelRef(k)).offset()
	m.removeBlock(offset)

	// Split down to the requested order. The lower half is kept at every step; the
	// upper half is the buddy and goes back on its order's free list.
	for k > reqOrder {
		k--
		m.insertAtHead(offset+(1<<k), k)
	}

	m.setTagAt(offset, blockReserved)
	m.setOrderAt(offset, reqOrder)
	m.allocCount++
	m.freeBytes -= 1 << reqOrder

	return offset + HeaderSize, nil
}

// Free releases the allocation whose payload begins at the provided offset,
// coalescing with its buddy at each order until the buddy is unavailable, of a
// different order, or the top order is reached.
//
// Freeing an offset that is not currently allocated returns ErrBlockNotAllocated
// without modifying the metadata; freeing an offset outside the region returns
// ErrForeignOffset. Offsets inside the region that were never returned by Allocate
// may recover a garbage header and are a caller contract violation, though the
// header checks below reject most of them.
func (m *BuddyBlockMetadata) Free(userOffset int) error {
	offset := userOffset - HeaderSize
	if offset < 0 || offset+HeaderSize > len(m.arena) {
		return errors.Wrapf(ErrForeignOffset, "offset %d", userOffset)
	}
	if m.tagAt(offset) != blockReserved {
		return errors.Wrapf(ErrBlockNotAllocated, "offset %d", userOffset)
	}

	order := m.orderAt(offset)
	if order < SmallestOrder || order > m.maxOrder || offset&((1<<order)-1) != 0 {
		return errors.Wrapf(ErrBlockNotAllocated, "offset %d does not recover a valid block header", userOffset)
	}

	memutils.DebugValidate(m)

	m.setTagAt(offset, blockAvailable)
	m.allocCount--
	m.freeBytes += 1 << order

	// Coalesce to a fixed point, keeping the lower-addressed half as the merge
	// result at each step.
	for order < m.maxOrder {
		buddy := BuddyOffset(offset, order)
		if m.tagAt(buddy) != blockAvailable || m.orderAt(buddy) != order {
			break
		}

		m.removeBlock(buddy)
		if buddy < offset {
			offset = buddy
		}
		order++
		m.setOrderAt(offset, order)
	}

	m.insertAtHead(offset, order)

	return nil
}

// VisitAllRegions calls the provided callback once for each block in the region, in
// ascending offset order. Sizes include headers. Depending on fragmentation this can
// be slow and should generally only be used for diagnostics.
func (m *BuddyBlockMetadata) VisitAllRegions(handleRegion func(offset, size int, free bool) error) error {
	for offset := 0; offset < len(m.arena); {
		order := m.orderAt(offset)
		if order < SmallestOrder || order > m.maxOrder {
			return errors.Newf("block at offset %d has a corrupt order %d", offset, order)
		}

		err := handleRegion(offset, 1<<order, m.tagAt(offset) == blockAvailable)
		if err != nil {
			return err
		}

		offset += 1 << order
	}

	return nil
}

// Validate performs internal consistency checks covering free-list integrity, the
// no-gaps/no-overlaps tiling of the region, block alignment, and the coalescing
// fixed point. It is expensive and intended for tests and the debug_mem_utils build.
func (m *BuddyBlockMetadata) Validate() error {
	if m.arena == nil {
		return errors.New("metadata has not been initialized")
	}

	maxBlocks := len(m.arena) >> SmallestOrder
	freeByOffset := make(map[int]int, m.freeBlocks)

	// Free list integrity, one order at a time.
	for k := 0; k <= m.maxOrder; k++ {
		head := sentinelRef(k)
		prev := head
		seen := 0

		for ref := m.nextOf(head); ref != head; ref = m.nextOf(ref) {
			if ref.isSentinel() {
				return errors.Newf("free list %d links into the sentinel of list %d", k, ref.sentinelOrder())
			}

			offset := ref.offset()
			if offset < 0 || offset >= len(m.arena) {
				return errors.Newf("free list %d links to offset %d, outside the region", k, offset)
			}
			if m.tagAt(offset) != blockAvailable {
				return errors.Newf("block at offset %d is in free list %d but is not available", offset, k)
			}
			if m.orderAt(offset) != k {
				return errors.Newf("block at offset %d is in free list %d but has order %d", offset, k, m.orderAt(offset))
			}
			if offset&((1<<k)-1) != 0 {
				return errors.Newf("block at offset %d is not aligned to its own size 1<<%d", offset, k)
			}
			if m.prevOf(ref) != prev {
				return errors.Newf("block at offset %d has a broken reverse link in free list %d", offset, k)
			}
			if _, linked := freeByOffset[offset]; linked {
				return errors.Newf("block at offset %d is linked into a free list twice", offset)
			}

			freeByOffset[offset] = k
			prev = ref
			seen++
			if seen > maxBlocks {
				return errors.Newf("free list %d contains a cycle", k)
			}
		}

		if m.prevOf(head) != prev {
			return errors.Newf("sentinel of free list %d has a broken reverse link", k)
		}
	}

	if len(freeByOffset) != m.freeBlocks {
		return errors.Newf("the metadata lists %d free blocks but the free lists hold %d", m.freeBlocks, len(freeByOffset))
	}

	// The set of all blocks must tile [0, size) with no gaps and no overlaps.
	remaining := make(map[int]struct{}, len(freeByOffset))
	for offset := range freeByOffset {
		remaining[offset] = struct{}{}
	}

	var reservedCount, freeBytes int
	for offset := 0; offset < len(m.arena); {
		order := m.orderAt(offset)
		if order > m.maxOrder {
			return errors.Newf("block at offset %d has order %d, above the pool order %d", offset, order, m.maxOrder)
		}
		if offset&((1<<order)-1) != 0 {
			return errors.Newf("block at offset %d of order %d violates power-of-two alignment", offset, order)
		}

		switch m.tagAt(offset) {
		case blockAvailable:
			if _, ok := remaining[offset]; !ok {
				return errors.Newf("block at offset %d is available but absent from its free list", offset)
			}
			delete(remaining, offset)
			freeBytes += 1 << order
		case blockReserved:
			if order < SmallestOrder {
				return errors.Newf("reserved block at offset %d has order %d, below the smallest order %d", offset, order, SmallestOrder)
			}
			reservedCount++
		default:
			return errors.Newf("block at offset %d has an invalid tag %d", offset, m.tagAt(offset))
		}

		offset += 1 << order
	}

	if len(remaining) != 0 {
		return errors.Newf("%d free-listed blocks are not part of the region tiling", len(remaining))
	}
	if reservedCount != m.allocCount {
		return errors.Newf("the metadata lists %d allocations but the region holds %d reserved blocks", m.allocCount, reservedCount)
	}
	if freeBytes != m.freeBytes {
		return errors.Newf("the metadata lists %d free bytes but the free blocks sum to %d", m.freeBytes, freeBytes)
	}

	// Coalescing must have been carried to a fixed point: no two free buddies of
	// equal order may coexist.
	for offset, k := range freeByOffset {
		if k >= m.maxOrder {
			continue
		}
		buddyOrder, ok := freeByOffset[BuddyOffset(offset, k)]
		if ok && buddyOrder == k {
			return errors.Newf("blocks at offsets %d and %d are free buddies of order %d and should have merged", offset, BuddyOffset(offset, k), k)
		}
	}

	return nil
}

// AddStatistics sums this region's usage counters into the provided statistics.
func (m *BuddyBlockMetadata) AddStatistics(stats *memutils.Statistics) {
	stats.BlockCount++
	stats.AllocationCount += m.allocCount
	stats.BlockBytes += m.Size()
	stats.AllocationBytes += m.Size() - m.freeBytes
}

// AddDetailedStatistics walks every region and sums per-region extremes into the
// provided statistics. A corrupt block header aborts the walk and is returned as an
// error, leaving the statistics partially populated.
func (m *BuddyBlockMetadata) AddDetailedStatistics(stats *memutils.DetailedStatistics) error {
	stats.BlockCount++
	stats.BlockBytes += m.Size()

	return m.VisitAllRegions(func(offset, size int, free bool) error {
		if free {
			stats.AddUnusedRange(size)
		} else {
			stats.AddAllocation(size)
		}
		return nil
	})
}

// BlockJsonData populates a json object with summary information about this region.
func (m *BuddyBlockMetadata) BlockJsonData(json jwriter.ObjectState) {
	json.Name("TotalBytes").Int(m.Size())
	json.Name("UnusedBytes").Int(m.freeBytes)
	json.Name("Allocations").Int(m.allocCount)
	json.Name("UnusedRanges").Int(m.freeBlocks)
	json.Name("MaxOrder").Int(m.maxOrder)
}
