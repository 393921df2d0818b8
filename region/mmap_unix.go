//go:build unix

package region

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

// MmapProvider reserves regions with anonymous private mmap, so the memory is
// zero-initialized, page-aligned, and not backed by any file. Released regions go
// back to the OS immediately via munmap.
type MmapProvider struct {
	// Executable requests PROT_EXEC on reserved regions in addition to read/write.
	Executable bool
}

var _ Provider = MmapProvider{}

func (p MmapProvider) Reserve(size int) ([]byte, error) {
	prot := unix.PROT_READ | unix.PROT_WRITE
	if p.Executable {
		prot |= unix.PROT_EXEC
	}

	mem, err := unix.Mmap(-1, 0, size, prot, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, errors.Wrapf(ErrUnrecoverable, "mmap of %d anonymous bytes: %v", size, err)
	}

	return mem, nil
}

func (p MmapProvider) Release(mem []byte) error {
	err := unix.Munmap(mem)
	if err != nil {
		return errors.Wrapf(ErrUnrecoverable, "munmap of %d bytes: %v", len(mem), err)
	}

	return nil
}
