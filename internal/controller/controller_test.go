package controller

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/alange-rdtest/access-time3/internal/config"
	"github.com/alange-rdtest/access-time3/internal/errs"
	"github.com/alange-rdtest/access-time3/internal/logging"
	"github.com/stretchr/testify/require"
)

func newTestStatic(t *testing.T, engine config.Engine) *config.Static {
	t.Helper()
	return &config.Static{
		Filename:      filepath.Join(t.TempDir(), "access-time3-test.dat"),
		CreateFile:    true,
		DeleteFile:    true,
		FileSizeMiB:   10,
		IOEngine:      engine,
		UseDirect:     false,
		UseDsync:      false,
		DurationSec:   1,
		StatsInterval: 1,
		CommandScript: "",
	}
}

func TestControllerCreatesFileAndRunsToCompletion(t *testing.T) {
	static := newTestStatic(t, config.EngineSync)
	live := config.NewLive(config.LiveParams{BlockSizeKiB: 4, WriteRatio: 1.0, RandomRatio: 0.0, IODepth: 1})

	c, err := New(static, live, logging.Default(), nil)
	require.NoError(t, err)

	code := c.Run()
	require.Equal(t, 0, code)
}

func TestControllerInvalidStaticConfigReturnsError(t *testing.T) {
	static := newTestStatic(t, config.EngineSync)
	static.Filename = ""
	live := config.NewLive(config.LiveParams{BlockSizeKiB: 4, WriteRatio: 1.0, RandomRatio: 0.0, IODepth: 1})

	_, err := New(static, live, logging.Default(), nil)
	require.Error(t, err)
}

func TestControllerStopCommandEndsRunEarly(t *testing.T) {
	static := newTestStatic(t, config.EngineSync)
	static.DurationSec = 60
	live := config.NewLive(config.LiveParams{BlockSizeKiB: 4, WriteRatio: 1.0, RandomRatio: 0.0, IODepth: 1})

	c, err := New(static, live, logging.Default(), nil)
	require.NoError(t, err)

	go func() {
		time.Sleep(250 * time.Millisecond)
		live.RequestStop()
	}()

	start := time.Now()
	code := c.Run()
	require.Equal(t, 0, code)
	require.Less(t, time.Since(start), 55*time.Second)
}

func TestControllerBlockSizeNotMultipleOfFSBlockSizeIsConfigError(t *testing.T) {
	static := newTestStatic(t, config.EngineSync)
	// tmpfs/ext4 report a 4096-byte block size; 6 KiB isn't a multiple of it.
	live := config.NewLive(config.LiveParams{BlockSizeKiB: 6, WriteRatio: 1.0, RandomRatio: 0.0, IODepth: 1})

	_, err := New(static, live, logging.Default(), nil)
	require.Error(t, err)
	require.True(t, errs.IsCode(err, errs.ConfigError))
}

func TestControllerUnknownEngineIsConfigError(t *testing.T) {
	static := newTestStatic(t, config.Engine("bogus"))
	live := config.NewLive(config.LiveParams{BlockSizeKiB: 4, WriteRatio: 1.0, RandomRatio: 0.0, IODepth: 1})

	_, err := New(static, live, logging.Default(), nil)
	require.Error(t, err)
	require.True(t, errs.IsCode(err, errs.ConfigError))
}
