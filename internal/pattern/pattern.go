// Package pattern implements PatternGenerator: the component that produces
// the next AccessParams for an engine to issue, enforcing that no two
// in-flight requests ever share an offset.
package pattern

import (
	"math/rand"
	"sync"

	"github.com/alange-rdtest/access-time3/internal/config"
	"github.com/alange-rdtest/access-time3/internal/errs"
	"github.com/alange-rdtest/access-time3/internal/offsetset"
)

// randomScale is the integer scale write_ratio/random_ratio are compared
// against: a draw in [0, randomScale) is rescaled against ratio*randomScale.
const randomScale = 10000

// AccessParams is one resolved request: the block size and byte size in
// effect when it was generated, its byte offset (a multiple of size), and
// whether it is a write and should carry the per-request dsync flag.
type AccessParams struct {
	BlockSizeKiB uint64
	Size         uint64 // bytes; BlockSizeKiB * 1024
	Offset       int64
	Write        bool
	Dsync        bool
}

// Generator produces AccessParams and tracks in-flight offsets. All
// internal state (OffsetSet plus the block-size-derived fields) is guarded
// by a single lock, matching the reference implementation's block_size_lock
// covering both. The lock is injected so the Controller can supply a real
// mutex for multi-threaded engines (VectoredEngine) and a no-op lock for
// single-threaded ones (SyncEngine, AsyncEngine), eliding synchronization
// without a runtime active/inactive toggle.
type Generator struct {
	lock sync.Locker
	rng  *rand.Rand

	fileSizeMiB uint64
	useDsync    bool
	live        *config.Live
	offsets     *offsetset.OffsetSet

	curBlockSizeKiB uint64
	bufferSize      uint64 // bytes
	fileBlocks      uint64
	curBlock        uint64
}

// New constructs a Generator. fileSizeMiB and useDsync are resolved once at
// startup (Static configuration); live supplies the current block_size,
// write_ratio, and random_ratio on every call to Next. lock guards the
// generator's internal state; pass a plain *sync.Mutex for multi-threaded
// engines or a NoopLock for single-threaded ones.
func New(fileSizeMiB uint64, useDsync bool, live *config.Live, lock sync.Locker, seed int64) *Generator {
	return &Generator{
		lock:        lock,
		rng:         rand.New(rand.NewSource(seed)),
		fileSizeMiB: fileSizeMiB,
		useDsync:    useDsync,
		live:        live,
		offsets:     offsetset.New(config.MaxIODepth),
	}
}

// reconfigure recomputes block-size-derived state. Must be called with the
// lock held.
func (g *Generator) reconfigure(blockSizeKiB uint64) {
	g.curBlockSizeKiB = blockSizeKiB
	g.bufferSize = blockSizeKiB * 1024
	g.fileBlocks = (g.fileSizeMiB * 1024) / blockSizeKiB
	// cur_block is set to file_blocks so the first sequential draw wraps to 0.
	g.curBlock = g.fileBlocks
}

// Next produces the next AccessParams, looping on random or sequential
// offset draws until one not already in flight is found.
func (g *Generator) Next() (AccessParams, error) {
	g.lock.Lock()
	defer g.lock.Unlock()

	snap := g.live.Snapshot()
	if g.curBlockSizeKiB != snap.BlockSizeKiB || g.fileBlocks == 0 {
		g.reconfigure(snap.BlockSizeKiB)
	}

	write := g.rng.Intn(randomScale) < int(snap.WriteRatio*randomScale)

	var offset int64
	for {
		random := g.rng.Intn(randomScale) < int(snap.RandomRatio*randomScale)
		if random {
			g.curBlock = uint64(g.rng.Int63n(int64(g.fileBlocks)))
		} else {
			g.curBlock++
			if g.curBlock >= g.fileBlocks {
				g.curBlock = 0
			}
		}
		offset = int64(g.curBlock * g.bufferSize)
		if g.offsets.InsertIfAbsent(offset) {
			break
		}
	}

	if g.offsets.Size() > config.MaxIODepth {
		return AccessParams{}, errs.New("pattern.next", errs.InvariantViolation, "OffsetSet size exceeds max_iodepth")
	}

	return AccessParams{
		BlockSizeKiB: g.curBlockSizeKiB,
		Size:         g.bufferSize,
		Offset:       offset,
		Write:        write,
		Dsync:        g.useDsync,
	}, nil
}

// OffsetReleased removes offset from the in-flight set. Called exactly once
// per successful Next, after the corresponding I/O has drained.
func (g *Generator) OffsetReleased(offset int64) {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.offsets.Remove(offset)
}

// InFlight returns the current number of in-flight offsets, for tests and
// diagnostics.
func (g *Generator) InFlight() int {
	g.lock.Lock()
	defer g.lock.Unlock()
	return g.offsets.Size()
}

// NoopLock is a sync.Locker that does nothing, used to elide synchronization
// for single-threaded engines (SyncEngine, AsyncEngine) the way the
// reference implementation's runtime lock-active toggle did, but resolved
// once at construction instead of checked on every acquisition.
type NoopLock struct{}

func (NoopLock) Lock()   {}
func (NoopLock) Unlock() {}
