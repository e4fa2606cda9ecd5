//go:build linux

package uring

import (
	"fmt"
	"sync"
	"time"

	"github.com/pawelgaczynski/giouring"
)

// giouringRing is the real kernel-backed Ring, fulfilling the purpose the
// teacher's go.mod declared giouring for but never actually exercised (its
// default build uses a hand-rolled raw-syscall ring restricted to the
// URING_CMD control plane; its giouring path is gated behind a build tag
// that is never turned on and in fact imports a different, undeclared
// library). This module submits plain OpRead/OpWrite SQEs and reaps CQEs
// through giouring directly.
type giouringRing struct {
	mu   sync.Mutex
	ring *giouring.Ring
	// pending records the Requests queued since the last successful Flush.
	// Completions are mapped back to their slot through UserData, not
	// through this list.
	pending []Request
}

// NewRing creates a Ring backed by an io_uring instance sized for up to
// entries in-flight submissions (entries should be >= max_iodepth).
func NewRing(entries uint32) (Ring, error) {
	ring, err := giouring.CreateRing(entries)
	if err != nil {
		return nil, fmt.Errorf("create io_uring: %w", err)
	}
	return &giouringRing{ring: ring}, nil
}

func (r *giouringRing) Submit(req Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sqe := r.ring.GetSQE()
	if sqe == nil {
		return fmt.Errorf("submission queue full")
	}

	switch req.Op {
	case OpRead:
		sqe.PrepareRead(req.FD, uintptr(bufPtr(req.Buf)), uint32(len(req.Buf)), uint64(req.Offset))
	case OpWrite:
		sqe.PrepareWrite(req.FD, uintptr(bufPtr(req.Buf)), uint32(len(req.Buf)), uint64(req.Offset))
		if req.Dsync {
			sqe.RwFlags |= rwfDsync
		}
	default:
		return fmt.Errorf("unknown op %d", req.Op)
	}
	sqe.UserData = uint64(req.Slot)
	r.pending = append(r.pending, req)
	return nil
}

func (r *giouringRing) Flush() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, err := r.ring.Submit()
	if err != nil {
		return int(n), fmt.Errorf("io_uring submit: %w", err)
	}
	r.pending = r.pending[:0]
	return int(n), nil
}

func (r *giouringRing) WaitCompletion(dst []Completion, timeout time.Duration) ([]Completion, error) {
	ts := syscallTimespec(timeout)

	r.mu.Lock()
	cqe, err := r.ring.WaitCQETimeout(ts)
	r.mu.Unlock()

	if err != nil {
		if isTimeout(err) {
			return dst, nil
		}
		return dst, fmt.Errorf("io_uring wait: %w", err)
	}

	dst = append(dst, Completion{
		Slot: int(cqe.UserData),
		Res:  cqe.Res,
	})
	r.mu.Lock()
	r.ring.CQESeen(cqe)

	// Drain any additional completions already queued without blocking
	// again, so one poll reaps everything currently available.
	for {
		more, perr := r.ring.PeekCQE()
		if perr != nil || more == nil {
			break
		}
		dst = append(dst, Completion{Slot: int(more.UserData), Res: more.Res})
		r.ring.CQESeen(more)
	}
	r.mu.Unlock()

	return dst, nil
}

func (r *giouringRing) Cancel(slot int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sqe := r.ring.GetSQE()
	if sqe == nil {
		return fmt.Errorf("submission queue full for cancel")
	}
	sqe.PrepareCancel64(uint64(slot), 0)
	sqe.UserData = cancelUserDataBase + uint64(slot)
	_, err := r.ring.Submit()
	return err
}

func (r *giouringRing) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ring.QueueExit()
	return nil
}

// cancelUserDataBase tags cancel-request completions so they are
// distinguishable from ordinary read/write completions if ever reaped
// through the same WaitCompletion path.
const cancelUserDataBase = uint64(1) << 32

// rwfDsync mirrors RWF_DSYNC (include/uapi/linux/fs.h) for per-request
// synchronous writes on the async path, the equivalent of the vectored
// engine's pwritev2(..., RWF_DSYNC).
const rwfDsync = 1 << 1
