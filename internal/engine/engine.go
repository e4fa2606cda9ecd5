// Package engine implements the three Engine variants the Controller
// drives: SyncEngine, VectoredEngine, and AsyncEngine. All three pull
// requests from the same PatternGenerator and report into the same
// StatsAccumulator; they differ only in how many concurrent I/Os they keep
// in flight and which syscalls they issue.
package engine

import (
	"github.com/alange-rdtest/access-time3/internal/logging"
	"github.com/alange-rdtest/access-time3/internal/pattern"
	"github.com/alange-rdtest/access-time3/internal/stats"
)

// Engine is the common interface the Controller drives. It collapses the
// reference implementation's abstract-base-class-with-virtual-methods
// shape into three operations, per spec.md's Design Notes: MakeRequests
// issues (or, for the async engine, advances) one round of I/O and returns
// when the engine's own suspension point is reached; IsMultiThreaded
// reports whether the Controller should hand this engine a real mutex or a
// no-op lock when constructing its shared RequestContext; Close drains or
// cancels any in-flight work and releases engine-owned resources.
type Engine interface {
	MakeRequests() error
	IsMultiThreaded() bool
	Close() error
}

// RequestContext aggregates everything an engine needs to pull a request,
// move the data, and account for it: the generator (offset admission +
// AccessParams), the shared stats accumulator, and the open file
// descriptor. Per spec.md's Design Notes §9, this collapses the reference
// implementation's four independent callback parameters (stats increment,
// buffer randomizer, params producer, offset release) into one aggregate
// passed by reference, making the shared-lock discipline explicit: Gen
// already serializes PatternGenerator+OffsetSet access internally, so
// engines never need their own additional locking around it.
type RequestContext struct {
	FD    int
	Gen   *pattern.Generator
	Stats *stats.Accumulator
	Log   *logging.Logger
}

// AccessParams re-exports pattern.AccessParams for callers that only need
// the engine package.
type AccessParams = pattern.AccessParams
