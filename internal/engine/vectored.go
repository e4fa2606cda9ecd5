package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/alange-rdtest/access-time3/internal/buffer"
	"github.com/alange-rdtest/access-time3/internal/config"
	"github.com/alange-rdtest/access-time3/internal/errs"
	"golang.org/x/sys/unix"
)

const (
	vectoredPausedSleep  = 200 * time.Millisecond
	vectoredDormantSleep = 500 * time.Millisecond
)

// VectoredEngine runs a fixed pool of config.MaxIODepth worker goroutines.
// Only the first live.IODepth() of them actively issue requests; the rest
// idle (dormant) until depth grows back to include them, so depth changes
// take effect without restarting workers.
type VectoredEngine struct {
	ctx  *RequestContext
	live *config.Live

	wg      sync.WaitGroup
	stopCh  chan struct{}
	stopped atomic.Bool

	fatalMu sync.Mutex
	fatal   error
}

// NewVectoredEngine constructs a VectoredEngine and starts its worker pool.
func NewVectoredEngine(ctx *RequestContext, live *config.Live) (*VectoredEngine, error) {
	e := &VectoredEngine{ctx: ctx, live: live, stopCh: make(chan struct{})}
	for i := 0; i < config.MaxIODepth; i++ {
		e.wg.Add(1)
		go e.workerLoop(i)
	}
	return e, nil
}

func (e *VectoredEngine) IsMultiThreaded() bool { return true }

// MakeRequests is a light poll: the actual I/O happens in the worker
// goroutines started at construction. It surfaces the first fatal worker
// error, if any, and otherwise paces the Controller's outer loop.
func (e *VectoredEngine) MakeRequests() error {
	e.fatalMu.Lock()
	err := e.fatal
	e.fatalMu.Unlock()
	if err != nil {
		return err
	}
	if e.live.Stopped() {
		return nil
	}
	time.Sleep(10 * time.Millisecond)
	return nil
}

func (e *VectoredEngine) recordFatal(err error) {
	e.fatalMu.Lock()
	if e.fatal == nil {
		e.fatal = err
	}
	e.fatalMu.Unlock()
}

func (e *VectoredEngine) workerLoop(index int) {
	defer e.wg.Done()

	var buf *buffer.AlignedBuffer
	for {
		select {
		case <-e.stopCh:
			return
		default:
		}
		if e.live.Stopped() {
			return
		}
		if e.live.Waiting() {
			time.Sleep(vectoredPausedSleep)
			continue
		}
		if index >= e.live.IODepth() {
			time.Sleep(vectoredDormantSleep)
			continue
		}

		params, err := e.ctx.Gen.Next()
		if err != nil {
			e.recordFatal(err)
			return
		}

		if buf == nil {
			buf, err = buffer.New(int(params.Size))
			if err != nil {
				e.recordFatal(errs.Wrap("vectored.make_requests", err))
				return
			}
		} else if err := buf.Resize(int(params.Size)); err != nil {
			e.recordFatal(errs.Wrap("vectored.make_requests", err))
			return
		}

		iov := [][]byte{buf.Bytes()}
		var n int
		if params.Write {
			flags := 0
			if params.Dsync {
				flags = unix.RWF_DSYNC
			}
			n, err = unix.Pwritev2(e.ctx.FD, iov, params.Offset, flags)
		} else {
			n, err = unix.Preadv(e.ctx.FD, iov, params.Offset)
		}
		e.ctx.Gen.OffsetReleased(params.Offset)

		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				continue
			}
			e.recordFatal(errs.Wrap("vectored.make_requests", err))
			return
		}
		if n == 0 {
			e.ctx.Log.Warn("zero-byte vectored transfer, skipping", "worker", index, "offset", params.Offset)
			continue
		}

		if params.Write {
			e.ctx.Stats.RecordWrite(params.BlockSizeKiB)
		} else {
			e.ctx.Stats.RecordRead(params.BlockSizeKiB)
		}
	}
}

// Close signals every worker to stop and waits for them to drain.
func (e *VectoredEngine) Close() error {
	if e.stopped.CompareAndSwap(false, true) {
		close(e.stopCh)
	}
	e.wg.Wait()
	return nil
}
