package memutils_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vkngwrapper/buddy/memutils"
)

func TestCheckPow2(t *testing.T) {
	for _, value := range []int{1, 2, 4, 64, 1 << 20, 1 << 40} {
		require.NoError(t, memutils.CheckPow2(value, "value"))
		require.True(t, memutils.IsPow2(value))
	}

	for _, value := range []int{0, 3, 5, 6, 100, (1 << 20) - 1} {
		err := memutils.CheckPow2(value, "value")
		require.ErrorIs(t, err, memutils.PowerOfTwoError)
		require.False(t, memutils.IsPow2(value))
	}

	require.True(t, memutils.IsPow2(uint(8)))
	require.False(t, memutils.IsPow2(uint(12)))
}

func TestAlignUp(t *testing.T) {
	require.Equal(t, 0, memutils.AlignUp(0, 64))
	require.Equal(t, 64, memutils.AlignUp(1, 64))
	require.Equal(t, 64, memutils.AlignUp(64, 64))
	require.Equal(t, 128, memutils.AlignUp(65, 64))
	require.Equal(t, 4096, memutils.AlignUp(4000, 4096))
}

func TestAlignDown(t *testing.T) {
	require.Equal(t, 0, memutils.AlignDown(0, 64))
	require.Equal(t, 0, memutils.AlignDown(63, 64))
	require.Equal(t, 64, memutils.AlignDown(64, 64))
	require.Equal(t, 64, memutils.AlignDown(127, 64))
	require.Equal(t, 0, memutils.AlignDown(4000, 4096))
}
