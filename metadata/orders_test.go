package metadata

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOrderForSize(t *testing.T) {
	cases := map[int]int{
		0:             0,
		1:             0,
		2:             1,
		3:             2,
		4:             2,
		5:             3,
		8:             3,
		9:             4,
		16:            4,
		17:            5,
		32:            5,
		33:            6,
		64:            6,
		1024:          10,
		1025:          11,
		1 << 40:       40,
		(1 << 40) + 1: 41,
	}

	for size, order := range cases {
		require.Equal(t, order, OrderForSize(size), "OrderForSize(%d)", size)
	}
}

func TestOrderForSizeBounds(t *testing.T) {
	for size := 2; size <= 4096; size++ {
		k := OrderForSize(size)
		require.GreaterOrEqual(t, 1<<k, size, "1<<OrderForSize(%d) must cover the size", size)
		require.Less(t, 1<<(k-1), size, "OrderForSize(%d) must be the smallest sufficient order", size)
		require.GreaterOrEqual(t, k, OrderForSize(size-1), "OrderForSize must be monotonic at %d", size)
	}
}

func TestBuddyOffsetSymmetry(t *testing.T) {
	for order := SmallestOrder; order < 20; order++ {
		for i := 0; i < 8; i++ {
			offset := i << order
			buddy := BuddyOffset(offset, order)

			require.Equal(t, offset, BuddyOffset(buddy, order))
			require.Equal(t, 1<<order, offset^buddy, "buddies must differ by exactly their size bit")
			require.NotEqual(t, offset, buddy)
		}
	}
}
