// Command access_time3 drives a synthetic block-I/O workload against a
// single file: a configurable mix of sequential/random, read/write
// requests at a chosen depth and engine, with live reconfiguration through
// stdin commands and an optional pre-scheduled command script.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/alange-rdtest/access-time3/internal/config"
	"github.com/alange-rdtest/access-time3/internal/controller"
	"github.com/alange-rdtest/access-time3/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		filename      = flag.String("filename", "", "target file path (required)")
		createFile    = flag.Bool("create_file", true, "allocate the file before the run")
		deleteFile    = flag.Bool("delete_file", true, "unlink the file at teardown (iff create_file)")
		filesize      = flag.Uint64("filesize", 0, "file size in MiB (>=10 if create_file)")
		blockSize     = flag.Uint64("block_size", 4, "request size in KiB (>=4)")
		flushBlocks   = flag.Uint64("flush_blocks", 1, "fdatasync every N writes (0 disables)")
		writeRatio    = flag.Float64("write_ratio", 0.0, "fraction of requests that are writes, [0,1]")
		randomRatio   = flag.Float64("random_ratio", 0.0, "fraction of requests that are random, [0,1]")
		sleepInterval = flag.Uint64("sleep_interval", 0, "advisory pacing knob, ms")
		sleepCount    = flag.Uint64("sleep_count", 1, "advisory pacing knob, >0")
		statsInterval = flag.Uint64("stats_interval", 5, "seconds between STATS lines")
		wait          = flag.Bool("wait", false, "start paused")
		ioEngine      = flag.String("io_engine", "sync", "sync|vectored|async")
		oDirect       = flag.Bool("o_direct", false, "open with O_DIRECT (required for async)")
		oDsync        = flag.Bool("o_dsync", false, "O_DSYNC (sync) or per-request dsync (vectored/async)")
		iodepth       = flag.Uint64("iodepth", 1, "in-flight requests, 1..max_iodepth")
		duration      = flag.Uint64("duration", 0, "run length in seconds, 0=unbounded")
		commandScript = flag.String("command_script", "", "t[s|m]:cmd=val;... schedule")
		verbose       = flag.Bool("v", false, "debug logging")
		jsonLog       = flag.Bool("json_log", false, "emit logs as JSON")
	)
	flag.Parse()

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	if *jsonLog {
		logConfig.Format = "json"
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	logger.Info("parameters",
		"filename", *filename, "create_file", *createFile, "delete_file", *deleteFile,
		"filesize", *filesize, "block_size", *blockSize, "flush_blocks", *flushBlocks,
		"write_ratio", *writeRatio, "random_ratio", *randomRatio,
		"sleep_interval", *sleepInterval, "sleep_count", *sleepCount,
		"stats_interval", *statsInterval, "wait", *wait, "io_engine", *ioEngine,
		"o_direct", *oDirect, "o_dsync", *oDsync, "iodepth", *iodepth,
		"duration", *duration, "command_script", *commandScript,
	)

	static := &config.Static{
		Filename:      *filename,
		CreateFile:    *createFile,
		DeleteFile:    *deleteFile,
		FileSizeMiB:   *filesize,
		IOEngine:      config.Engine(*ioEngine),
		UseDirect:     *oDirect,
		UseDsync:      *oDsync,
		DurationSec:   *duration,
		StatsInterval: uint32(*statsInterval),
		CommandScript: *commandScript,
	}
	live := config.NewLive(config.LiveParams{
		BlockSizeKiB:  *blockSize,
		WriteRatio:    *writeRatio,
		RandomRatio:   *randomRatio,
		FlushBlocks:   *flushBlocks,
		Wait:          *wait,
		SleepInterval: *sleepInterval,
		SleepCount:    *sleepCount,
		IODepth:       int(*iodepth),
	})

	ctrl, err := controller.New(static, live, logger, os.Stdin)
	if err != nil {
		logger.Error("initializing program access_time3", "error", err.Error())
		return 1
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan int, 1)
	go func() { done <- ctrl.Run() }()

	select {
	case code := <-done:
		return code
	case sig := <-sigCh:
		logger.Warn("received signal", "signal", sig.String())
		live.RequestStop()
		code := <-done // wait for graceful teardown to finish

		signal.Stop(sigCh)
		if s, ok := sig.(syscall.Signal); ok {
			signal.Reset(sig)
			_ = syscall.Kill(os.Getpid(), s)
		}
		return code
	}
}
