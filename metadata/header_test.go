package metadata

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSentinelRefEncoding(t *testing.T) {
	for order := 0; order < MaxOrder; order++ {
		ref := sentinelRef(order)

		require.True(t, ref.isSentinel())
		require.Equal(t, order, ref.sentinelOrder())
	}

	require.False(t, blockRef(0).isSentinel())
	require.False(t, blockRef(1<<20).isSentinel())
	require.Equal(t, 1<<20, blockRef(1<<20).offset())
}

func TestHeaderFieldRoundTrip(t *testing.T) {
	m := NewBuddyBlockMetadata()
	require.NoError(t, m.Init(make([]byte, 1<<10)))

	for _, offset := range []int{0, 64, 512, (1 << 10) - 64} {
		m.setTagAt(offset, blockReserved)
		m.setOrderAt(offset, 6)
		require.Equal(t, blockReserved, m.tagAt(offset))
		require.Equal(t, 6, m.orderAt(offset))

		m.setTagAt(offset, blockAvailable)
		m.setOrderAt(offset, 9)
		require.Equal(t, blockAvailable, m.tagAt(offset))
		require.Equal(t, 9, m.orderAt(offset))
	}
}

func TestHeaderLinkRoundTrip(t *testing.T) {
	m := NewBuddyBlockMetadata()
	require.NoError(t, m.Init(make([]byte, 1<<10)))

	block := blockRef(64)
	m.setNextOf(block, blockRef(128))
	m.setPrevOf(block, sentinelRef(6))

	require.Equal(t, blockRef(128), m.nextOf(block))
	require.Equal(t, sentinelRef(6), m.prevOf(block))

	// Sentinel links live outside the arena.
	m.setNextOf(sentinelRef(7), block)
	m.setPrevOf(sentinelRef(7), block)
	require.Equal(t, block, m.nextOf(sentinelRef(7)))
	require.Equal(t, block, m.prevOf(sentinelRef(7)))
}
