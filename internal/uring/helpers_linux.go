//go:build linux

package uring

import (
	"errors"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// bufPtr returns the address of buf's backing array for handing to a raw
// SQE preparation call. buf must be a stable, pinned allocation for the
// lifetime of the request (AlignedBuffer's mmap-backed memory satisfies
// this: it is never moved by the Go garbage collector).
func bufPtr(buf []byte) unsafe.Pointer {
	if len(buf) == 0 {
		return nil
	}
	return unsafe.Pointer(&buf[0])
}

func syscallTimespec(d time.Duration) *unix.Timespec {
	ts := unix.NsecToTimespec(d.Nanoseconds())
	return &ts
}

func isTimeout(err error) bool {
	return errors.Is(err, unix.ETIME) || errors.Is(err, unix.EAGAIN)
}
