//go:build !unix

package region

// Default returns the provider pools use when none is configured. Without mmap
// support the heap provider stands in.
func Default() Provider {
	return HeapProvider{}
}
