package memutils_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vkngwrapper/buddy/memutils"
)

func TestStatisticsClearAndAdd(t *testing.T) {
	stats := memutils.Statistics{
		BlockCount:      5,
		AllocationCount: 7,
		BlockBytes:      100,
		AllocationBytes: 50,
	}
	stats.Clear()
	require.Equal(t, memutils.Statistics{}, stats)

	stats.AddStatistics(&memutils.Statistics{
		BlockCount:      1,
		AllocationCount: 2,
		BlockBytes:      1024,
		AllocationBytes: 128,
	})
	stats.AddStatistics(&memutils.Statistics{
		BlockCount:      1,
		AllocationCount: 1,
		BlockBytes:      512,
		AllocationBytes: 64,
	})

	require.Equal(t, memutils.Statistics{
		BlockCount:      2,
		AllocationCount: 3,
		BlockBytes:      1536,
		AllocationBytes: 192,
	}, stats)
}

func TestDetailedStatisticsExtremes(t *testing.T) {
	var stats memutils.DetailedStatistics
	stats.Clear()

	require.Equal(t, math.MaxInt, stats.AllocationSizeMin)
	require.Equal(t, math.MaxInt, stats.UnusedRangeSizeMin)

	stats.AddAllocation(64)
	stats.AddAllocation(512)
	stats.AddAllocation(128)
	require.Equal(t, 3, stats.AllocationCount)
	require.Equal(t, 704, stats.AllocationBytes)
	require.Equal(t, 64, stats.AllocationSizeMin)
	require.Equal(t, 512, stats.AllocationSizeMax)

	stats.AddUnusedRange(256)
	stats.AddUnusedRange(32)
	require.Equal(t, 2, stats.UnusedRangeCount)
	require.Equal(t, 32, stats.UnusedRangeSizeMin)
	require.Equal(t, 256, stats.UnusedRangeSizeMax)
}

func TestDetailedStatisticsMerge(t *testing.T) {
	var a, b memutils.DetailedStatistics
	a.Clear()
	b.Clear()

	a.AddAllocation(100)
	a.AddUnusedRange(400)
	b.AddAllocation(50)
	b.AddUnusedRange(800)

	a.AddDetailedStatistics(&b)

	require.Equal(t, 2, a.AllocationCount)
	require.Equal(t, 150, a.AllocationBytes)
	require.Equal(t, 50, a.AllocationSizeMin)
	require.Equal(t, 100, a.AllocationSizeMax)
	require.Equal(t, 2, a.UnusedRangeCount)
	require.Equal(t, 400, a.UnusedRangeSizeMin)
	require.Equal(t, 800, a.UnusedRangeSizeMax)
}
