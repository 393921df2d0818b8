//go:build unix

package region_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vkngwrapper/buddy/region"
)

func TestMmapProvider(t *testing.T) {
	provider := region.MmapProvider{}

	mem, err := provider.Reserve(1 << 16)
	require.NoError(t, err)
	require.Len(t, mem, 1<<16)

	for _, i := range []int{0, 1 << 12, (1 << 16) - 1} {
		require.Zero(t, mem[i], "byte %d must be zero-initialized", i)
	}

	// The mapping must be writable and readable.
	mem[0] = 0xAB
	mem[(1<<16)-1] = 0xCD
	require.Equal(t, byte(0xAB), mem[0])
	require.Equal(t, byte(0xCD), mem[(1<<16)-1])

	require.NoError(t, provider.Release(mem))
}

func TestMmapProviderExecutable(t *testing.T) {
	provider := region.MmapProvider{Executable: true}

	mem, err := provider.Reserve(1 << 12)
	require.NoError(t, err)
	require.Len(t, mem, 1<<12)
	require.NoError(t, provider.Release(mem))
}

func TestMmapProviderInvalidSize(t *testing.T) {
	provider := region.MmapProvider{}

	_, err := provider.Reserve(-1)
	require.ErrorIs(t, err, region.ErrUnrecoverable)
}
