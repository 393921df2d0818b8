//go:build unix

package region

// Default returns the provider pools use when none is configured: anonymous mmap.
func Default() Provider {
	return MmapProvider{}
}
