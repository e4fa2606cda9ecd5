package engine

import (
	"time"

	"github.com/alange-rdtest/access-time3/internal/buffer"
	"github.com/alange-rdtest/access-time3/internal/config"
	"github.com/alange-rdtest/access-time3/internal/errs"
	"github.com/alange-rdtest/access-time3/internal/uring"
)

const (
	asyncWaitTimeout     = 200 * time.Millisecond
	asyncDrainTimeout    = 300 * time.Millisecond
	asyncNewRingSlotBuf  = 4
)

// asyncSlot tracks the in-flight request (if any) occupying one ring slot.
type asyncSlot struct {
	active bool
	params AccessParams
	buf    *buffer.AlignedBuffer
}

// AsyncEngine drives up to config.MaxIODepth concurrent kernel-async
// requests through a single internal/uring.Ring. Unlike VectoredEngine it
// has no worker goroutines of its own: MakeRequests is called repeatedly by
// the Controller's own loop and each call submits newly-available slots,
// polls for completions, and resubmits.
type AsyncEngine struct {
	ctx  *RequestContext
	live *config.Live
	ring uring.Ring

	slots []asyncSlot
}

// NewAsyncEngine constructs an AsyncEngine backed by a fresh Ring sized for
// config.MaxIODepth in-flight submissions.
func NewAsyncEngine(ctx *RequestContext, live *config.Live) (*AsyncEngine, error) {
	ring, err := uring.NewRing(config.MaxIODepth)
	if err != nil {
		return nil, errs.Wrap("async.new", err)
	}
	return &AsyncEngine{
		ctx:   ctx,
		live:  live,
		ring:  ring,
		slots: make([]asyncSlot, config.MaxIODepth),
	}, nil
}

func (e *AsyncEngine) IsMultiThreaded() bool { return false }

// MakeRequests fills every slot below the live iodepth that isn't already
// occupied, flushes the batch, polls for completions with a bounded wait,
// commits stats for each successful completion, and resubmits that slot if
// it's still within depth.
func (e *AsyncEngine) MakeRequests() error {
	depth := e.live.IODepth()
	if depth > len(e.slots) {
		depth = len(e.slots)
	}

	for i := 0; i < depth; i++ {
		if e.slots[i].active {
			continue
		}
		if err := e.submit(i); err != nil {
			return err
		}
	}

	if _, err := e.ring.Flush(); err != nil {
		return errs.Wrap("async.make_requests", err)
	}

	completions, err := e.ring.WaitCompletion(make([]uring.Completion, 0, len(e.slots)), asyncWaitTimeout)
	if err != nil {
		return errs.Wrap("async.make_requests", err)
	}

	for _, c := range completions {
		if err := e.complete(c); err != nil {
			return err
		}
	}
	return nil
}

func (e *AsyncEngine) submit(slot int) error {
	params, err := e.ctx.Gen.Next()
	if err != nil {
		return err
	}

	s := &e.slots[slot]
	if s.buf == nil {
		s.buf, err = buffer.New(int(params.Size))
		if err != nil {
			return errs.Wrap("async.submit", err)
		}
	} else if err := s.buf.Resize(int(params.Size)); err != nil {
		return errs.Wrap("async.submit", err)
	}

	op := uring.OpRead
	if params.Write {
		op = uring.OpWrite
	}
	req := uring.Request{
		Slot:   slot,
		Op:     op,
		FD:     e.ctx.FD,
		Buf:    s.buf.Bytes(),
		Offset: params.Offset,
		Dsync:  params.Dsync,
	}
	if err := e.ring.Submit(req); err != nil {
		e.ctx.Gen.OffsetReleased(params.Offset)
		return errs.Wrap("async.submit", err)
	}

	s.active = true
	s.params = params
	return nil
}

func (e *AsyncEngine) complete(c uring.Completion) error {
	if c.Slot < 0 || c.Slot >= len(e.slots) {
		return nil
	}
	s := &e.slots[c.Slot]
	if !s.active {
		return nil
	}

	params := s.params
	s.active = false
	e.ctx.Gen.OffsetReleased(params.Offset)

	if c.Err != nil {
		return errs.Wrap("async.complete", c.Err)
	}
	if c.Res < 0 {
		return errs.Wrap("async.complete", errnoFromRes(c.Res))
	}
	if c.Res == 0 {
		e.ctx.Log.Warn("zero-byte async transfer", "slot", c.Slot, "offset", params.Offset)
	} else if params.Write {
		e.ctx.Stats.RecordWrite(params.BlockSizeKiB)
	} else {
		e.ctx.Stats.RecordRead(params.BlockSizeKiB)
	}

	if c.Slot < e.live.IODepth() && !e.live.Stopped() {
		return e.submit(c.Slot)
	}
	return nil
}

// Close cancels every still-active slot, drains their completions with a
// bounded timeout, and tears down the ring.
func (e *AsyncEngine) Close() error {
	var firstErr error
	for i := range e.slots {
		if e.slots[i].active {
			if err := e.ring.Cancel(i); err != nil {
				e.ctx.Log.Warn("cancel failed", "slot", i, "error", err.Error())
			}
		}
	}

	deadline := time.Now().Add(asyncDrainTimeout)
	for time.Now().Before(deadline) && e.anyActive() {
		completions, err := e.ring.WaitCompletion(make([]uring.Completion, 0, asyncNewRingSlotBuf), 50*time.Millisecond)
		if err != nil {
			break
		}
		for _, c := range completions {
			if c.Slot >= 0 && c.Slot < len(e.slots) {
				e.slots[c.Slot].active = false
			}
		}
	}

	for i := range e.slots {
		if e.slots[i].buf != nil {
			if err := e.slots[i].buf.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}

	if err := e.ring.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (e *AsyncEngine) anyActive() bool {
	for i := range e.slots {
		if e.slots[i].active {
			return true
		}
	}
	return false
}

// errnoSentinel wraps a negative io_uring result code (-errno) as an error
// when the Ring implementation reports it via Res rather than Err.
type errnoSentinel struct{ res int32 }

func (e errnoSentinel) Error() string { return "async request failed" }

func errnoFromRes(res int32) error { return errnoSentinel{res: res} }
