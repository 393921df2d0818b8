// Package region supplies and reclaims the raw memory regions that back buddy
// pools. Providers hand out anonymous, zero-initialized memory; they know nothing
// about the allocator that carves the region up.
package region

import "github.com/pkg/errors"

// ErrUnrecoverable marks reserve and release failures. An allocator cannot operate
// without its backing store, so callers should treat errors matching this sentinel
// as fatal to the pool (though not necessarily to the process).
var ErrUnrecoverable error = errors.New("backing region failure")

// Provider reserves and releases the single region backing a pool.
//
// Reserve returns at least size bytes of zero-initialized memory. Release accepts
// exactly the slice a previous Reserve returned; passing anything else is a
// contract violation.
type Provider interface {
	Reserve(size int) ([]byte, error)
	Release(mem []byte) error
}
