package buddy

import (
	"github.com/pkg/errors"

	"github.com/vkngwrapper/buddy/metadata"
)

// ErrPoolDestroyed is returned from any operation on a pool whose Destroy method has
// already completed.
var ErrPoolDestroyed error = errors.New("the pool has been destroyed")

// ErrInvalidSize is returned from Allocate when the requested size is zero or
// negative.
var ErrInvalidSize error = errors.New("allocation size must be positive")

// Engine sentinels re-exported so consumers can match them without importing the
// metadata package.
var (
	ErrOutOfMemory       = metadata.ErrOutOfMemory
	ErrBlockNotAllocated = metadata.ErrBlockNotAllocated
)
