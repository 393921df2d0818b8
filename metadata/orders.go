package metadata

import "math/bits"

const (
	// HeaderSize is the number of bytes reserved at the front of every block, free or
	// allocated, for the block header. Pointers handed to consumers point immediately
	// past the header, and the bytes before a consumer pointer must never be touched.
	HeaderSize = 24

	// SmallestOrder is the floor applied to every allocation's order. A block of this
	// order is the smallest that can hold a block header along with at least some payload.
	SmallestOrder = 6

	// DefaultOrder is the pool order used when a pool is created with a requested size
	// of zero. 1<<DefaultOrder is 1GiB.
	DefaultOrder = 30

	// MinOrder is the default lower clamp on a pool's order.
	MinOrder = 20

	// MaxOrder is the exclusive upper bound on a pool's order. No pool may manage
	// 1<<MaxOrder bytes or more.
	MaxOrder = 48
)

// OrderForSize returns the smallest order k such that 1<<k >= size. Sizes of zero and
// one both map to order 0. The result increases monotonically with size.
func OrderForSize(size int) int {
	if size <= 1 {
		return 0
	}

	return bits.Len(uint(size - 1))
}

// BuddyOffset returns the offset of the unique sibling block that, together with the
// block at the provided offset, exactly fills their shared parent block of the next
// order up. The provided offset must be a multiple of 1<<order or the result is
// meaningless.
func BuddyOffset(offset, order int) int {
	return offset ^ (1 << order)
}
