package engine

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alange-rdtest/access-time3/internal/config"
	"github.com/alange-rdtest/access-time3/internal/logging"
	"github.com/alange-rdtest/access-time3/internal/pattern"
	"github.com/alange-rdtest/access-time3/internal/stats"
	"github.com/stretchr/testify/require"
)

func newVectoredTestEngine(t *testing.T, live *config.Live) (*VectoredEngine, *stats.Accumulator) {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "vectored-engine-test")
	require.NoError(t, err)
	require.NoError(t, f.Truncate(10*1024*1024))

	var mu sync.Mutex
	gen := pattern.New(10, false, live, &mu, 7)
	acc := stats.New()
	ctx := &RequestContext{FD: int(f.Fd()), Gen: gen, Stats: acc, Log: logging.Default()}

	eng, err := NewVectoredEngine(ctx, live)
	require.NoError(t, err)
	t.Cleanup(func() {
		eng.Close()
		f.Close()
	})
	return eng, acc
}

func TestVectoredEngineIsMultiThreaded(t *testing.T) {
	live := config.NewLive(config.LiveParams{BlockSizeKiB: 4, WriteRatio: 1.0, RandomRatio: 0.0, IODepth: 2})
	eng, _ := newVectoredTestEngine(t, live)
	require.True(t, eng.IsMultiThreaded())
}

func TestVectoredEngineWorkersRecordStats(t *testing.T) {
	live := config.NewLive(config.LiveParams{BlockSizeKiB: 4, WriteRatio: 1.0, RandomRatio: 0.0, IODepth: 2})
	_, acc := newVectoredTestEngine(t, live)

	require.Eventually(t, func() bool {
		return acc.Snapshot().Blocks > 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestVectoredEngineStoppedWorkersDoNotAdvance(t *testing.T) {
	live := config.NewLive(config.LiveParams{BlockSizeKiB: 4, WriteRatio: 1.0, RandomRatio: 0.0, IODepth: 1})
	live.RequestStop()
	eng, acc := newVectoredTestEngine(t, live)
	defer eng.Close()

	time.Sleep(50 * time.Millisecond)
	require.Zero(t, acc.Snapshot().Blocks)
}

func TestVectoredEngineCloseDrainsWorkers(t *testing.T) {
	live := config.NewLive(config.LiveParams{BlockSizeKiB: 4, WriteRatio: 1.0, RandomRatio: 0.0, IODepth: 3})
	eng, _ := newVectoredTestEngine(t, live)
	require.NoError(t, eng.Close())
}
