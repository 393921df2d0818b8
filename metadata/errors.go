package metadata

import "github.com/pkg/errors"

// ErrOutOfMemory is returned from Allocate when no free block of sufficient order
// exists. The metadata is left unmodified and the caller may retry after freeing.
var ErrOutOfMemory error = errors.New("no free block is large enough to satisfy the allocation")

// ErrBlockNotAllocated is returned from Free when the block named by the provided
// offset is not currently reserved. Freeing the same offset twice without an
// intervening allocation surfaces as this error.
var ErrBlockNotAllocated error = errors.New("the block at the provided offset is not currently allocated")

// ErrForeignOffset is returned from Free when the provided offset cannot name a
// block in the managed region at all.
var ErrForeignOffset error = errors.New("the provided offset does not lie within the managed region")
