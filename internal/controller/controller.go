// Package controller implements Controller: the component that owns the
// target file descriptor, constructs the chosen Engine variant, drives its
// request loop, emits periodic stats lines, and reacts to commands from the
// command channel and the script scheduler.
package controller

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/alange-rdtest/access-time3/internal/buffer"
	"github.com/alange-rdtest/access-time3/internal/command"
	"github.com/alange-rdtest/access-time3/internal/config"
	"github.com/alange-rdtest/access-time3/internal/engine"
	"github.com/alange-rdtest/access-time3/internal/errs"
	"github.com/alange-rdtest/access-time3/internal/logging"
	"github.com/alange-rdtest/access-time3/internal/pattern"
	"github.com/alange-rdtest/access-time3/internal/stats"
	"golang.org/x/sys/unix"
)

// loopTick is the outer loop's idle/poll granularity, matching the
// reference implementation's 200ms sleep_for in Program::main.
const loopTick = 200 * time.Millisecond

// createChunkSize is the write granularity used while creating the target
// file, matching the reference implementation's 1 MiB write loop.
const createChunkSize = 1024 * 1024

// Controller owns the target file, the constructed Engine, and the loop
// that drives it: applying pending commands, invoking the engine, flushing
// on schedule, and sampling stats.
type Controller struct {
	static *config.Static
	live   *config.Live
	log    *logging.Logger

	file *os.File
	gen  *pattern.Generator
	stat *stats.Accumulator
	eng  engine.Engine

	scheduler *command.ScriptScheduler
	reader    *command.CommandReader

	flushedBlocksWrite uint64
}

// New validates static, creates/opens the target file, and constructs the
// Engine named by static.IOEngine along with its CommandReader and
// ScriptScheduler.
func New(static *config.Static, live *config.Live, log *logging.Logger, input *os.File) (*Controller, error) {
	if err := static.Validate(); err != nil {
		return nil, err
	}
	log = log.WithComponent("controller")

	c := &Controller{static: static, live: live, log: log, stat: stats.New()}

	if static.CreateFile {
		if err := c.createFile(); err != nil {
			return nil, err
		}
	}
	if err := c.openFile(); err != nil {
		return nil, err
	}

	lock := sync.Locker(pattern.NoopLock{})
	multiThreaded := static.IOEngine == config.EngineVectored
	if multiThreaded {
		lock = &sync.Mutex{}
	}
	c.gen = pattern.New(static.FileSizeMiB, static.UseDsync, live, lock, time.Now().UnixNano())

	ctx := &engine.RequestContext{FD: int(c.file.Fd()), Gen: c.gen, Stats: c.stat, Log: log}
	eng, err := buildEngine(static.IOEngine, ctx, live)
	if err != nil {
		return nil, err
	}
	c.eng = eng

	scheduler, err := command.NewScriptScheduler(static.CommandScript, live, log)
	if err != nil {
		return nil, err
	}
	c.scheduler = scheduler
	if input != nil {
		c.reader = command.NewCommandReader(input, live, log)
	}

	return c, nil
}

func buildEngine(name config.Engine, ctx *engine.RequestContext, live *config.Live) (engine.Engine, error) {
	switch name {
	case config.EngineSync:
		return engine.NewSyncEngine(ctx)
	case config.EngineVectored:
		return engine.NewVectoredEngine(ctx, live)
	case config.EngineAsync:
		return engine.NewAsyncEngine(ctx, live)
	default:
		return nil, errs.New("controller.build_engine", errs.ConfigError, fmt.Sprintf("unknown io_engine %q", name))
	}
}

// createFile allocates the target file by writing FileSizeMiB 1 MiB chunks
// of a single reused pseudo-random buffer, matching the reference
// implementation's createFile.
func (c *Controller) createFile() error {
	c.log.Info("creating file", "filename", c.static.Filename, "filesize_mib", c.static.FileSizeMiB)

	f, err := os.OpenFile(c.static.Filename, os.O_CREATE|os.O_RDWR|directFlagIfSet(c.static.UseDirect), 0640)
	if err != nil {
		return errs.WrapSetup("controller.create_file", err)
	}

	// Chunk is mmap-backed rather than a plain make([]byte, ...): O_DIRECT
	// requires a page-aligned buffer, and only an aligned allocation
	// guarantees that (a heap slice doesn't).
	chunk, err := buffer.New(createChunkSize)
	if err != nil {
		f.Close()
		os.Remove(c.static.Filename)
		return errs.WrapSetup("controller.create_file", err)
	}
	defer chunk.Close()

	for i := uint64(0); i < c.static.FileSizeMiB; i++ {
		if _, err := f.Write(chunk.Bytes()); err != nil {
			f.Close()
			os.Remove(c.static.Filename)
			return errs.WrapSetup("controller.create_file", err)
		}
	}
	if err := f.Close(); err != nil {
		os.Remove(c.static.Filename)
		return errs.WrapSetup("controller.create_file", err)
	}
	return nil
}

func directFlagIfSet(useDirect bool) int {
	if useDirect {
		return unix.O_DIRECT
	}
	return 0
}

// openFile stats the existing file (deriving FileSizeMiB when it wasn't
// newly created), checks block_size against the filesystem's own block
// size the way the reference implementation's checkFile does, and opens
// the file with the flag combination the reference implementation's
// openFile computes: O_RDWR always, O_DIRECT when requested, and O_DSYNC
// only for the sync engine (vectored/async carry the dsync flag
// per-request instead).
func (c *Controller) openFile() error {
	var st unix.Stat_t
	if err := unix.Stat(c.static.Filename, &st); err != nil {
		return errs.WrapSetup("controller.open_file", err)
	}

	blockSizeKiB := c.live.Snapshot().BlockSizeKiB
	if (blockSizeKiB*1024)%uint64(st.Blksize) != 0 {
		return errs.New("controller.open_file", errs.ConfigError,
			fmt.Sprintf("block_size must be a multiple of the filesystem's block size (%d bytes)", st.Blksize))
	}

	if !c.static.CreateFile {
		sizeMiB := uint64(st.Size) / 1024 / 1024
		if sizeMiB < 10 {
			return errs.New("controller.open_file", errs.ConfigError, "invalid filesize: existing file is smaller than 10 MiB")
		}
		c.static.FileSizeMiB = sizeMiB
	}

	flags := os.O_RDWR
	if c.static.UseDirect {
		flags |= unix.O_DIRECT
	}
	if c.static.UseDsync && c.static.IOEngine == config.EngineSync {
		flags |= unix.O_DSYNC
	}

	f, err := os.OpenFile(c.static.Filename, flags, 0640)
	if err != nil {
		return errs.WrapSetup("controller.open_file", err)
	}
	c.file = f
	return nil
}

// Run drives the outer loop until stop is requested (via command, script,
// duration, or signal) or the engine reports a fatal error. It returns the
// process exit code: 0 for graceful completion, 1 for a fatal error.
func (c *Controller) Run() int {
	defer c.teardown()

	start := time.Now()
	lastSample := start
	lastStats := stats.Stats{}

	for !c.live.Stopped() {
		elapsed := time.Since(start)

		if c.scheduler.ApplyDue(uint64(elapsed.Seconds())) {
			break
		}
		if c.static.DurationSec > 0 && elapsed.Seconds() > float64(c.static.DurationSec) {
			c.log.Info("duration time exceeded", "seconds", c.static.DurationSec)
			break
		}

		if c.live.Waiting() {
			time.Sleep(loopTick)
			continue
		}

		if err := c.eng.MakeRequests(); err != nil {
			c.log.Error("engine error", "error", err.Error())
			return 1
		}

		c.maybeFlush()

		time.Sleep(loopTick)

		if since := time.Since(lastSample); since > time.Duration(c.static.StatsInterval)*time.Second {
			c.sample(start, since, &lastSample, &lastStats)
		}
	}
	return 0
}

func (c *Controller) maybeFlush() {
	flushBlocks := c.live.Snapshot().FlushBlocks
	if flushBlocks == 0 {
		return
	}
	snap := c.stat.Snapshot()
	if snap.BlocksWrite-c.flushedBlocksWrite >= flushBlocks {
		if err := c.file.Sync(); err != nil {
			c.log.Warn("fdatasync failed", "error", err.Error())
		}
		c.flushedBlocksWrite = snap.BlocksWrite
	}
}

// sample computes and logs one STATS line, or skips exactly one sample if
// the configuration changed since the previous one, matching the reference
// implementation's args->changed skip.
func (c *Controller) sample(start time.Time, elapsed time.Duration, lastSample *time.Time, lastStats *stats.Stats) {
	now := time.Now()
	cur := c.stat.Snapshot()

	if c.live.TakeChanged() {
		*lastSample = now
		*lastStats = cur
		return
	}

	delta := cur.Sub(*lastStats)
	elapsedMs := float64(elapsed.Milliseconds())
	if elapsedMs <= 0 {
		elapsedMs = 1
	}
	snap := c.live.Snapshot()

	line := fmt.Sprintf(
		`STATS: {"time":"%d", "total_MiB/s":"%.2f", "read_MiB/s":"%.2f", "write_MiB/s":"%.2f", "blocks/s":"%.1f", "blocks_read/s":"%.1f", "blocks_write/s":"%.1f", "wait":"%t", "filesize":"%d", "block_size":"%d", "flush_blocks":"%d", "write_ratio":"%v", "random_ratio":"%v", "sleep_interval":"%d", "sleep_count":"%d"}`,
		int64(time.Since(start).Seconds()),
		float64(delta.KiBRead+delta.KiBWrite)*1000/(elapsedMs*1024),
		float64(delta.KiBRead)*1000/(elapsedMs*1024),
		float64(delta.KiBWrite)*1000/(elapsedMs*1024),
		float64(delta.Blocks)*1000/elapsedMs,
		float64(delta.BlocksRead)*1000/elapsedMs,
		float64(delta.BlocksWrite)*1000/elapsedMs,
		snap.Wait, c.static.FileSizeMiB, snap.BlockSizeKiB, snap.FlushBlocks,
		snap.WriteRatio, snap.RandomRatio, snap.SleepInterval, snap.SleepCount,
	)
	c.log.Info(line)

	*lastSample = now
	*lastStats = cur
}

func (c *Controller) teardown() {
	if c.reader != nil {
		c.reader.Stop()
	}
	if err := c.eng.Close(); err != nil {
		c.log.Warn("engine close error", "error", err.Error())
	}
	if c.file != nil {
		c.file.Close()
	}
	if c.static.CreateFile && c.static.DeleteFile {
		c.log.Info("delete file", "filename", c.static.Filename)
		os.Remove(c.static.Filename)
	}
}
