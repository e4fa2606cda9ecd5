// Package buffer implements AlignedBuffer: a block of memory aligned to the
// device alignment unit, sized to the current request size and refilled
// with pseudo-random bytes whenever its size changes.
package buffer

import (
	"math/rand"

	"github.com/alange-rdtest/access-time3/internal/config"
	"golang.org/x/sys/unix"
)

// AlignedBuffer is a direct-I/O compatible scratch buffer backed by an
// anonymous mmap, the same allocation strategy the teacher uses for its
// descriptor/data regions (mmapQueues in internal/queue/runner.go):
// PROT_READ|PROT_WRITE, MAP_PRIVATE|MAP_ANONYMOUS, which on Linux returns
// page-aligned (and therefore AlignmentUnit-aligned) memory.
type AlignedBuffer struct {
	data []byte
	size int
}

// New allocates an AlignedBuffer of the given size and randomizes its
// contents. The backing allocation is rounded up to a multiple of
// config.AlignmentUnit; Size and Bytes report the requested size.
func New(size int) (*AlignedBuffer, error) {
	b := &AlignedBuffer{}
	if err := b.Resize(size); err != nil {
		return nil, err
	}
	return b, nil
}

// roundUp rounds size up to the next multiple of config.AlignmentUnit.
func roundUp(size int) int {
	unit := config.AlignmentUnit
	return (size + unit - 1) / unit * unit
}

// Resize reallocates the buffer if size differs from its current size,
// refilling the new buffer with pseudo-random bytes. A no-op if size is
// unchanged.
func (b *AlignedBuffer) Resize(size int) error {
	if size == b.size && b.data != nil {
		return nil
	}
	aligned := roundUp(size)
	if b.data != nil {
		_ = unix.Munmap(b.data)
		b.data = nil
	}
	data, err := unix.Mmap(-1, 0, aligned, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return err
	}
	b.data = data
	b.size = size
	Randomize(b.data)
	return nil
}

// Randomize fills buf with pseudo-random bytes, grounded on the original
// implementation's per-byte uniform_int_distribution<char> fill.
func Randomize(buf []byte) {
	_, _ = rand.Read(buf)
}

// Bytes returns the buffer's backing slice, sized to the last value passed
// to Resize/New (which may be less than the underlying aligned allocation).
func (b *AlignedBuffer) Bytes() []byte {
	return b.data[:b.size]
}

// Size returns the buffer's logical size in bytes.
func (b *AlignedBuffer) Size() int {
	return b.size
}

// Close releases the buffer's backing memory.
func (b *AlignedBuffer) Close() error {
	if b.data == nil {
		return nil
	}
	err := unix.Munmap(b.data)
	b.data = nil
	return err
}
