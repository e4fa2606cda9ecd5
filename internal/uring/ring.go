// Package uring provides the kernel-asynchronous submission/completion
// interface AsyncEngine drives: a small Ring abstraction over io_uring for
// plain file reads and writes (not the URING_CMD control-plane commands the
// teacher's own internal/uring package wrapped giouring's declared-but-
// unused dependency for).
package uring

import (
	"syscall"
	"time"
)

// Op identifies the kind of request a slot carries.
type Op int

const (
	OpRead Op = iota
	OpWrite
)

// Request describes one submission: which ring slot it occupies, the file
// descriptor and buffer it targets, its byte offset, and whether a write
// should carry the per-request dsync flag.
type Request struct {
	Slot   int
	Op     Op
	FD     int
	Buf    []byte
	Offset int64
	Dsync  bool
}

// Completion reports the outcome of one previously-submitted Request.
type Completion struct {
	Slot int
	Res  int32 // bytes transferred, or -errno on failure
	Err  error
}

// Ring is the minimal kernel-async interface AsyncEngine needs: submit a
// batch of read/write requests tagged by slot, wait for completions with a
// bounded timeout, and cancel a still-active slot on shutdown.
type Ring interface {
	// Submit enqueues req for submission; the kernel processes it after the
	// next Flush.
	Submit(req Request) error
	// Flush pushes all queued-but-not-yet-submitted requests to the kernel
	// in a single syscall, returning how many were accepted.
	Flush() (int, error)
	// WaitCompletion blocks up to timeout for at least one completion,
	// appending reaped completions to dst and returning the extended slice.
	// A timeout with zero completions is not an error.
	WaitCompletion(dst []Completion, timeout time.Duration) ([]Completion, error)
	// Cancel requests cancellation of an in-flight slot. Errors are
	// logged by the caller, never fatal, matching AsyncEngine's teardown.
	Cancel(slot int) error
	// Close tears down the kernel context.
	Close() error
}

// ErrUnsupported is returned by NewRing on platforms without a real
// io_uring binding (the stub implementation).
var ErrUnsupported = syscall.ENOTSUP
