// Package stats implements the generator's StatsAccumulator: a small
// counter record (blocks and KiB moved per read/write direction) that
// supports componentwise addition/subtraction and atomic, concurrent
// accumulation with delta ("since the last sample") reporting.
package stats

import "sync/atomic"

// Stats is a point-in-time (or delta) measurement. All fields are
// non-negative in a point-in-time snapshot; a delta may be used purely
// additively since StatsAccumulator only ever grows between samples.
type Stats struct {
	Blocks      uint64
	BlocksRead  uint64
	BlocksWrite uint64
	KiBRead     uint64
	KiBWrite    uint64
}

// Add returns the componentwise sum of s and other.
func (s Stats) Add(other Stats) Stats {
	return Stats{
		Blocks:      s.Blocks + other.Blocks,
		BlocksRead:  s.BlocksRead + other.BlocksRead,
		BlocksWrite: s.BlocksWrite + other.BlocksWrite,
		KiBRead:     s.KiBRead + other.KiBRead,
		KiBWrite:    s.KiBWrite + other.KiBWrite,
	}
}

// Sub returns the componentwise difference s - other. Used to compute the
// delta between two cumulative snapshots; callers are responsible for only
// subtracting an earlier snapshot from a later one.
func (s Stats) Sub(other Stats) Stats {
	return Stats{
		Blocks:      s.Blocks - other.Blocks,
		BlocksRead:  s.BlocksRead - other.BlocksRead,
		BlocksWrite: s.BlocksWrite - other.BlocksWrite,
		KiBRead:     s.KiBRead - other.KiBRead,
		KiBWrite:    s.KiBWrite - other.KiBWrite,
	}
}

// Accumulator is a concurrency-safe, monotonically increasing counter of
// blocks and KiB moved, split by read/write direction. Every engine variant
// (single-threaded, worker-pool, or async) bumps the same accumulator
// instance from whatever goroutine completes a request.
type Accumulator struct {
	blocks      atomic.Uint64
	blocksRead  atomic.Uint64
	blocksWrite atomic.Uint64
	kibRead     atomic.Uint64
	kibWrite    atomic.Uint64
}

// New returns a zeroed Accumulator.
func New() *Accumulator {
	return &Accumulator{}
}

// RecordRead bumps the read counters by one block of the given size.
func (a *Accumulator) RecordRead(blockKiB uint64) {
	a.blocks.Add(1)
	a.blocksRead.Add(1)
	a.kibRead.Add(blockKiB)
}

// RecordWrite bumps the write counters by one block of the given size.
func (a *Accumulator) RecordWrite(blockKiB uint64) {
	a.blocks.Add(1)
	a.blocksWrite.Add(1)
	a.kibWrite.Add(blockKiB)
}

// Snapshot returns the current cumulative totals.
func (a *Accumulator) Snapshot() Stats {
	return Stats{
		Blocks:      a.blocks.Load(),
		BlocksRead:  a.blocksRead.Load(),
		BlocksWrite: a.blocksWrite.Load(),
		KiBRead:     a.kibRead.Load(),
		KiBWrite:    a.kibWrite.Load(),
	}
}

// Delta returns the difference between the current snapshot and prev, and
// the new current snapshot to use as prev on the next call:
//
//	delta, prev = acc.Delta(prev)
func (a *Accumulator) Delta(prev Stats) (delta Stats, next Stats) {
	next = a.Snapshot()
	return next.Sub(prev), next
}
