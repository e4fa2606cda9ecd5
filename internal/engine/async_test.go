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
	"github.com/alange-rdtest/access-time3/internal/uring"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// fakeRing is a synchronous, in-process stand-in for a real io_uring:
// Submit resolves immediately into a queued completion with the actual
// number of bytes the request would transfer, so AsyncEngine's completion
// bookkeeping can be exercised without a kernel.
type fakeRing struct {
	mu        sync.Mutex
	completed []uring.Completion
	canceled  map[int]bool
	closed    bool
}

func newFakeRing() *fakeRing { return &fakeRing{canceled: map[int]bool{}} }

func (r *fakeRing) Submit(req uring.Request) error {
	var n int
	var err error
	switch req.Op {
	case uring.OpWrite:
		n, err = unix.Pwrite(req.FD, req.Buf, req.Offset)
	default:
		n, err = unix.Pread(req.FD, req.Buf, req.Offset)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.completed = append(r.completed, uring.Completion{Slot: req.Slot, Res: -1, Err: err})
	} else {
		r.completed = append(r.completed, uring.Completion{Slot: req.Slot, Res: int32(n)})
	}
	return nil
}

func (r *fakeRing) Flush() (int, error) { return 0, nil }

func (r *fakeRing) WaitCompletion(dst []uring.Completion, _ time.Duration) ([]uring.Completion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	dst = append(dst, r.completed...)
	r.completed = nil
	return dst, nil
}

func (r *fakeRing) Cancel(slot int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.canceled[slot] = true
	return nil
}

func (r *fakeRing) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func newAsyncTestEngine(t *testing.T, live *config.Live) (*AsyncEngine, *fakeRing, *stats.Accumulator) {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "async-engine-test")
	require.NoError(t, err)
	require.NoError(t, f.Truncate(10*1024*1024))
	t.Cleanup(func() { f.Close() })

	gen := pattern.New(10, false, live, pattern.NoopLock{}, 7)
	acc := stats.New()
	ctx := &RequestContext{FD: int(f.Fd()), Gen: gen, Stats: acc, Log: logging.Default()}

	ring := newFakeRing()
	eng := &AsyncEngine{ctx: ctx, live: live, ring: ring, slots: make([]asyncSlot, config.MaxIODepth)}
	return eng, ring, acc
}

func TestAsyncEngineNotMultiThreaded(t *testing.T) {
	live := config.NewLive(config.LiveParams{BlockSizeKiB: 4, WriteRatio: 1.0, RandomRatio: 0.0, IODepth: 2})
	eng, _, _ := newAsyncTestEngine(t, live)
	require.False(t, eng.IsMultiThreaded())
}

func TestAsyncEngineMakeRequestsFillsSlotsAndRecordsStats(t *testing.T) {
	live := config.NewLive(config.LiveParams{BlockSizeKiB: 4, WriteRatio: 1.0, RandomRatio: 0.0, IODepth: 4})
	eng, _, acc := newAsyncTestEngine(t, live)

	require.NoError(t, eng.MakeRequests())

	snap := acc.Snapshot()
	require.Equal(t, uint64(4), snap.Blocks)
	require.Equal(t, uint64(4), snap.BlocksWrite)
}

func TestAsyncEngineResubmitsWithinDepth(t *testing.T) {
	live := config.NewLive(config.LiveParams{BlockSizeKiB: 4, WriteRatio: 1.0, RandomRatio: 0.0, IODepth: 2})
	eng, _, acc := newAsyncTestEngine(t, live)

	require.NoError(t, eng.MakeRequests())
	require.NoError(t, eng.MakeRequests())

	snap := acc.Snapshot()
	require.Equal(t, uint64(4), snap.Blocks)
}

func TestAsyncEngineCloseCancelsActiveSlotsAndClosesRing(t *testing.T) {
	live := config.NewLive(config.LiveParams{BlockSizeKiB: 4, WriteRatio: 1.0, RandomRatio: 0.0, IODepth: 1})
	eng, ring, _ := newAsyncTestEngine(t, live)

	eng.slots[0].active = true
	require.NoError(t, eng.Close())
	require.True(t, ring.canceled[0])
	require.True(t, ring.closed)
}
