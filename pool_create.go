package buddy

import (
	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"golang.org/x/exp/slog"

	"github.com/vkngwrapper/buddy/metadata"
	"github.com/vkngwrapper/buddy/region"
)

// PoolCreateInfo contains settings for creating a pool. The zero value is valid and
// produces a pool of 1<<metadata.DefaultOrder bytes backed by the platform's default
// region provider.
type PoolCreateInfo struct {
	// RequestedSize is the pool size in bytes. It is rounded up to the next power of
	// two and clamped to [1<<MinOrder, 1<<(MaxOrder-1)]. Zero requests the default
	// size of 1<<metadata.DefaultOrder bytes.
	RequestedSize int

	// MinOrder is the lower clamp on the pool's order. Zero means
	// metadata.MinOrder. Tests and small embedded pools may lower this as far as
	// metadata.SmallestOrder.
	MinOrder int

	// MaxOrder is the exclusive upper clamp on the pool's order. Zero means
	// metadata.MaxOrder.
	MaxOrder int

	// Provider reserves and releases the backing region. Nil means
	// region.Default().
	Provider region.Provider

	// Logger receives debug traces and leak warnings. Nil means slog.Default().
	Logger *slog.Logger
}

// NewPool reserves a backing region and carves it into a single maximal free block.
// A reserve failure is returned wrapping region.ErrUnrecoverable.
func NewPool(info PoolCreateInfo) (*Pool, error) {
	minOrder := info.MinOrder
	if minOrder == 0 {
		minOrder = metadata.MinOrder
	}
	maxOrder := info.MaxOrder
	if maxOrder == 0 {
		maxOrder = metadata.MaxOrder
	}
	if minOrder < metadata.SmallestOrder || maxOrder > metadata.MaxOrder || minOrder >= maxOrder {
		return nil, errors.Newf("invalid pool order bounds [%d, %d): must lie within [%d, %d)",
			minOrder, maxOrder, metadata.SmallestOrder, metadata.MaxOrder)
	}
	if info.RequestedSize < 0 {
		return nil, errors.Newf("invalid requested pool size: %d", info.RequestedSize)
	}

	order := metadata.DefaultOrder
	if info.RequestedSize != 0 {
		order = metadata.OrderForSize(info.RequestedSize)
	}
	if order < minOrder {
		order = minOrder
	}
	if order > maxOrder-1 {
		order = maxOrder - 1
	}

	provider := info.Provider
	if provider == nil {
		provider = region.Default()
	}
	logger := info.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mem, err := provider.Reserve(1 << order)
	if err != nil {
		return nil, errors.Wrapf(err, "reserving a backing region of order %d", order)
	}

	meta := metadata.NewBuddyBlockMetadata()
	err = meta.Init(mem)
	if err != nil {
		releaseErr := provider.Release(mem)
		if releaseErr != nil {
			logger.Error("error releasing backing region after pool creation failure", slog.Any("error", releaseErr))
		}
		return nil, err
	}

	logger.Debug("Pool created", slog.Int("Order", order), slog.Int("TotalBytes", 1<<order))

	return &Pool{
		logger:          logger,
		provider:        provider,
		mem:             mem,
		metadata:        meta,
		liveAllocations: swiss.NewMap[int, int](42),
	}, nil
}
