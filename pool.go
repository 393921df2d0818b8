// Package buddy implements a user-space buddy-block memory allocator over a single
// OS-backed region. A Pool reserves its region from a region.Provider at creation,
// carves it into power-of-two blocks on demand, and coalesces freed blocks with
// their buddies back toward a single maximal block.
//
// Pools perform no internal locking and are not reentrant: every operation on a
// given pool must run to completion before another begins. Callers needing
// concurrent access must serialize externally, and allocations from one pool must
// never be freed through another.
package buddy

import (
	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"golang.org/x/exp/slog"

	"github.com/vkngwrapper/buddy/memutils"
	"github.com/vkngwrapper/buddy/metadata"
	"github.com/vkngwrapper/buddy/region"
)

// Allocation is a live block handed out by a Pool. The zero value is the null
// allocation: freeing it is a no-op and Bytes on it panics.
type Allocation struct {
	pool   *Pool
	offset int
	size   int
}

// Offset returns the allocation's payload offset within the pool's region. It is
// the value FreeOffset accepts.
func (a Allocation) Offset() int { return a.offset }

// Size returns the usable size in bytes that was requested from Allocate. The
// block's full power-of-two footprint may be larger; the extra bytes must not be
// touched.
func (a Allocation) Size() int { return a.size }

// Bytes returns the allocation's payload. The slice aliases the pool's backing
// region and is invalidated by Free and Destroy.
func (a Allocation) Bytes() []byte {
	return a.pool.mem[a.offset : a.offset+a.size]
}

func (a Allocation) isNil() bool { return a.pool == nil }

// Pool owns one backing region and the buddy metadata that manages it.
type Pool struct {
	logger   *slog.Logger
	provider region.Provider
	mem      []byte
	metadata *metadata.BuddyBlockMetadata

	// liveAllocations maps payload offsets to requested sizes for every allocation
	// that has not been freed. It gates Free against foreign offsets and feeds the
	// leak report at Destroy.
	liveAllocations *swiss.Map[int, int]
	destroyed       bool
}

var _ memutils.Validatable = &Pool{}

// Allocate reserves a block with at least size usable bytes. It fails with
// ErrInvalidSize when size is not positive and with ErrOutOfMemory when no free
// block can satisfy the request; in both cases the pool is unmodified.
func (p *Pool) Allocate(size int) (Allocation, error) {
	if p.destroyed {
		return Allocation{}, errors.WithStack(ErrPoolDestroyed)
	}
	if size <= 0 {
		return Allocation{}, errors.Wrapf(ErrInvalidSize, "requested %d bytes", size)
	}

	offset, err := p.metadata.Allocate(size)
	if err != nil {
		return Allocation{}, err
	}

	p.liveAllocations.Put(offset, size)
	p.logger.Debug("Pool::Allocate", slog.Int("Size", size), slog.Int("Offset", offset))

	return Allocation{pool: p, offset: offset, size: size}, nil
}

// Free releases an allocation previously returned by Allocate. Freeing the null
// allocation is a no-op. Freeing an allocation twice returns ErrBlockNotAllocated
// and leaves the pool intact.
func (p *Pool) Free(alloc Allocation) error {
	if alloc.isNil() {
		return nil
	}
	if alloc.pool != p {
		return errors.Wrapf(ErrBlockNotAllocated, "the allocation at offset %d belongs to another pool", alloc.offset)
	}

	return p.FreeOffset(alloc.offset)
}

// FreeOffset releases the allocation whose payload begins at the provided offset.
// A zero offset is the null address and is a no-op. Offsets that do not name a live
// allocation return ErrBlockNotAllocated without modifying the pool.
func (p *Pool) FreeOffset(offset int) error {
	if p.destroyed {
		return errors.WithStack(ErrPoolDestroyed)
	}
	if offset == 0 {
		return nil
	}

	_, live := p.liveAllocations.Get(offset)
	if !live {
		return errors.Wrapf(ErrBlockNotAllocated, "offset %d is not a live allocation of this pool", offset)
	}

	err := p.metadata.Free(offset)
	if err != nil {
		return err
	}

	p.liveAllocations.Delete(offset)
	p.logger.Debug("Pool::Free", slog.Int("Offset", offset))

	return nil
}

// Destroy releases the backing region through the region provider and clears the
// pool state. Live allocations are reported at Warn level before the region goes
// away. A release failure is returned wrapping region.ErrUnrecoverable and leaves
// the pool intact so the call can be retried.
func (p *Pool) Destroy() error {
	if p.destroyed {
		return errors.WithStack(ErrPoolDestroyed)
	}

	if p.liveAllocations.Count() > 0 {
		p.logger.Warn("destroying pool with live allocations", slog.Int("Count", p.liveAllocations.Count()))
		p.DebugLogAllAllocations(p.logger)
	}

	err := p.provider.Release(p.mem)
	if err != nil {
		return errors.Wrapf(err, "releasing the backing region")
	}

	p.destroyed = true
	p.mem = nil
	p.metadata = nil
	p.liveAllocations = nil

	return nil
}

// TotalBytes returns the size of the backing region, or 0 after Destroy.
func (p *Pool) TotalBytes() int {
	if p.destroyed {
		return 0
	}
	return p.metadata.Size()
}

// MaxOrder returns the order of the block the region was carved from, or 0 after
// Destroy.
func (p *Pool) MaxOrder() int {
	if p.destroyed {
		return 0
	}
	return p.metadata.MaximumOrder()
}

// AllocationCount returns the number of live allocations, or 0 after Destroy.
func (p *Pool) AllocationCount() int {
	if p.destroyed {
		return 0
	}
	return p.metadata.AllocationCount()
}

// Statistics gathers basic usage counters for the pool.
func (p *Pool) Statistics() memutils.Statistics {
	var stats memutils.Statistics
	stats.Clear()
	if !p.destroyed {
		p.metadata.AddStatistics(&stats)
	}
	return stats
}

// DetailedStatistics walks every region in the pool to gather per-region extremes.
// A corrupt block header aborts the walk and is returned alongside the statistics
// gathered up to that point.
func (p *Pool) DetailedStatistics() (memutils.DetailedStatistics, error) {
	var stats memutils.DetailedStatistics
	stats.Clear()
	if p.destroyed {
		return stats, nil
	}
	return stats, p.metadata.AddDetailedStatistics(&stats)
}

// Validate performs the metadata's full consistency checks. It is expensive and
// intended for tests and diagnostics.
func (p *Pool) Validate() error {
	if p.destroyed {
		return errors.WithStack(ErrPoolDestroyed)
	}
	return p.metadata.Validate()
}

// BuildStatsString returns a JSON description of the pool: configuration, summary
// counters, and the full region map. It walks every block and should only be used
// for diagnostics.
func (p *Pool) BuildStatsString() string {
	if p.destroyed {
		return "{}"
	}

	writer := jwriter.NewWriter()
	obj := writer.Object()

	configObj := obj.Name("Config").Object()
	configObj.Name("TotalBytes").Int(p.metadata.Size())
	configObj.Name("MaxOrder").Int(p.metadata.MaximumOrder())
	configObj.Name("SmallestOrder").Int(metadata.SmallestOrder)
	configObj.Name("HeaderSize").Int(metadata.HeaderSize)
	configObj.End()

	statsObj := obj.Name("Stats").Object()
	p.metadata.BlockJsonData(statsObj)
	statsObj.End()

	regions := obj.Name("Regions").Array()
	err := p.metadata.VisitAllRegions(func(offset, size int, free bool) error {
		regionObj := regions.Object()
		regionObj.Name("Offset").Int(offset)
		regionObj.Name("Size").Int(size)
		if free {
			regionObj.Name("Type").String("FREE")
		} else {
			regionObj.Name("Type").String("ALLOCATION")
		}
		regionObj.End()
		return nil
	})
	if err != nil {
		p.logger.Error("Pool::BuildStatsString: the region walk failed", slog.Any("error", err))
	}
	regions.End()

	obj.End()

	return string(writer.Bytes())
}

// DebugLogAllAllocations logs every live allocation at Debug level.
func (p *Pool) DebugLogAllAllocations(logger *slog.Logger) {
	if p.destroyed {
		return
	}

	p.liveAllocations.Iter(func(offset int, size int) bool {
		logger.Debug("live allocation", slog.Int("Offset", offset), slog.Int("Size", size))
		return false
	})
}
