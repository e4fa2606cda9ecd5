package engine

import (
	"github.com/alange-rdtest/access-time3/internal/buffer"
	"github.com/alange-rdtest/access-time3/internal/errs"
	"golang.org/x/sys/unix"
)

// SyncEngine issues one blocking read or write at a time from the
// controller thread. It is single-threaded: the generator and stats calls
// are the only points touching shared state, so the Controller constructs
// its RequestContext's Generator with a no-op lock.
type SyncEngine struct {
	ctx *RequestContext
	buf *buffer.AlignedBuffer
}

// NewSyncEngine constructs a SyncEngine over ctx.
func NewSyncEngine(ctx *RequestContext) (*SyncEngine, error) {
	return &SyncEngine{ctx: ctx}, nil
}

func (e *SyncEngine) IsMultiThreaded() bool { return false }

// MakeRequests fetches one AccessParams, resizes the buffer if needed, and
// performs a single blocking pread or pwrite. A short read/write is
// treated as success for accounting purposes (data was moved); a hard
// error is fatal. Pread/Pwrite always carry an explicit offset, so unlike
// the reference implementation's read()/write() pair there is never a need
// to seek between requests.
func (e *SyncEngine) MakeRequests() error {
	params, err := e.ctx.Gen.Next()
	if err != nil {
		return err
	}

	if e.buf == nil {
		e.buf, err = buffer.New(int(params.Size))
		if err != nil {
			return errs.Wrap("sync.make_requests", err)
		}
	} else if err := e.buf.Resize(int(params.Size)); err != nil {
		return errs.Wrap("sync.make_requests", err)
	}

	var n int
	if params.Write {
		n, err = unix.Pwrite(e.ctx.FD, e.buf.Bytes(), params.Offset)
	} else {
		n, err = unix.Pread(e.ctx.FD, e.buf.Bytes(), params.Offset)
	}
	e.ctx.Gen.OffsetReleased(params.Offset)

	if err != nil {
		return errs.Wrap("sync.make_requests", err)
	}
	if n == 0 {
		e.ctx.Log.Warn("zero-byte transfer", "offset", params.Offset, "write", params.Write)
		return nil
	}

	if params.Write {
		e.ctx.Stats.RecordWrite(params.BlockSizeKiB)
	} else {
		e.ctx.Stats.RecordRead(params.BlockSizeKiB)
	}
	return nil
}

func (e *SyncEngine) Close() error {
	if e.buf != nil {
		return e.buf.Close()
	}
	return nil
}
