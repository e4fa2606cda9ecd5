// Package config holds the generator's configuration, split the way the
// reference implementation's Args does: a set of values resolved once at
// startup from CLI flags (Static), and a set that can be mutated for the
// life of the run through the command channel or the script scheduler
// (Live).
package config

import (
	"fmt"
	"sync"

	"github.com/alange-rdtest/access-time3/internal/errs"
)

// MaxIODepth is the compile-time cap on in-flight requests.
const MaxIODepth = 128

// AlignmentUnit is the device alignment unit (bytes) direct I/O requires
// every buffer and request size to be a multiple of.
const AlignmentUnit = 512

// Engine selects which Engine variant drives the run.
type Engine string

const (
	EngineSync     Engine = "sync"
	EngineVectored Engine = "vectored"
	EngineAsync    Engine = "async"
)

// Static holds configuration resolved once at startup and never mutated
// for the life of the run.
type Static struct {
	Filename       string
	CreateFile     bool
	DeleteFile     bool
	FileSizeMiB    uint64
	IOEngine       Engine
	UseDirect      bool
	UseDsync       bool
	DurationSec    uint64 // 0 = unbounded
	StatsInterval  uint32 // seconds, > 0
	CommandScript  string
}

// Validate checks the Static configuration against the invariants in the
// error-handling design's ConfigError class, returning a *errs.Error with
// Code == errs.ConfigError on the first violation found.
func (s *Static) Validate() error {
	if s.Filename == "" {
		return errs.New("validate config", errs.ConfigError, "filename is required")
	}
	if s.CreateFile && s.FileSizeMiB < 10 {
		return errs.New("validate config", errs.ConfigError, "filesize must be >= 10 MiB when create_file is set")
	}
	switch s.IOEngine {
	case EngineSync, EngineVectored, EngineAsync:
	default:
		return errs.New("validate config", errs.ConfigError, fmt.Sprintf("unknown io_engine %q", s.IOEngine))
	}
	if s.IOEngine == EngineAsync && !s.UseDirect {
		return errs.New("validate config", errs.ConfigError, "async engine requires o_direct")
	}
	if s.StatsInterval == 0 {
		return errs.New("validate config", errs.ConfigError, "stats_interval must be > 0")
	}
	return nil
}

// Live holds configuration that can change for the life of the run: via
// the command channel, the script scheduler, or (for iodepth) direct
// programmatic mutation through SetIODepth. All access goes through the
// mutex-guarded methods below; Snapshot returns a consistent point-in-time
// copy for the pattern generator and the stats line.
type Live struct {
	mu sync.Mutex

	blockSizeKiB  uint64
	writeRatio    float64
	randomRatio   float64
	flushBlocks   uint64
	wait          bool
	stop          bool
	sleepInterval uint64
	sleepCount    uint64
	ioDepth       int

	// changed is raised whenever write_ratio, random_ratio, or sleep_count
	// is mutated through ApplyCommand, so the Controller's stats loop can
	// skip exactly one sample before resuming.
	changed bool
}

// LiveParams seeds the initial values of a Live configuration, normally
// resolved from CLI flags at startup.
type LiveParams struct {
	BlockSizeKiB  uint64
	WriteRatio    float64
	RandomRatio   float64
	FlushBlocks   uint64
	Wait          bool
	SleepInterval uint64
	SleepCount    uint64
	IODepth       int
}

// NewLive constructs a Live configuration from its initial parameters.
func NewLive(p LiveParams) *Live {
	return &Live{
		blockSizeKiB:  p.BlockSizeKiB,
		writeRatio:    p.WriteRatio,
		randomRatio:   p.RandomRatio,
		flushBlocks:   p.FlushBlocks,
		wait:          p.Wait,
		sleepInterval: p.SleepInterval,
		sleepCount:    p.SleepCount,
		ioDepth:       p.IODepth,
	}
}

// Snapshot is a consistent point-in-time copy of the live configuration.
type Snapshot struct {
	BlockSizeKiB  uint64
	WriteRatio    float64
	RandomRatio   float64
	FlushBlocks   uint64
	Wait          bool
	Stop          bool
	SleepInterval uint64
	SleepCount    uint64
	IODepth       int
}

// Snapshot returns a consistent copy of the current live configuration.
func (l *Live) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Snapshot{
		BlockSizeKiB:  l.blockSizeKiB,
		WriteRatio:    l.writeRatio,
		RandomRatio:   l.randomRatio,
		FlushBlocks:   l.flushBlocks,
		Wait:          l.wait,
		Stop:          l.stop,
		SleepInterval: l.sleepInterval,
		SleepCount:    l.sleepCount,
		IODepth:       l.ioDepth,
	}
}

// Stopped reports whether the run has been asked to stop.
func (l *Live) Stopped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stop
}

// RequestStop sets the stop flag, the same effect the "stop" command and
// SIGINT/SIGTERM teardown have.
func (l *Live) RequestStop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stop = true
}

// Waiting reports whether generation is currently paused.
func (l *Live) Waiting() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.wait
}

// IODepth returns the current live iodepth.
func (l *Live) IODepth() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ioDepth
}

// SetIODepth mutates iodepth directly (not exposed through the text command
// channel in the reference implementation either; used by tests and any
// future control surface driving VectoredEngine/AsyncEngine depth changes).
func (l *Live) SetIODepth(depth int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ioDepth = depth
}

// TakeChanged reads and clears the changed flag in one step, so the
// Controller's stats loop consumes it exactly once.
func (l *Live) TakeChanged() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	c := l.changed
	l.changed = false
	return c
}
