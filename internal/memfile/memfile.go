// Package memfile provides an in-memory, growable fake file with a
// WriteAt/ReadAt shape and an Fdatasync call counter. No other package of
// this module imports it; the Controller and the engines work on real file
// descriptors.
package memfile

import "sync"

// ShardSize is the size of each locked region. Sharded locking lets
// concurrent writers touching disjoint offsets (exactly the access
// pattern the generator's OffsetSet guarantees) proceed without
// contending on a single whole-file mutex.
const ShardSize = 64 * 1024

// Memory is a RAM-backed stand-in for a regular file: fixed-size,
// growable on demand, with sharded locking so it behaves under concurrent
// ReadAt/WriteAt the way a real file does.
type Memory struct {
	mu             sync.Mutex // guards data/shards growth; per-shard locks guard contents
	data           []byte
	shards         []sync.RWMutex
	fdatasyncCount int
}

// New creates a Memory fake file of the given initial size in bytes.
func New(size int64) *Memory {
	m := &Memory{}
	m.growLocked(size)
	return m
}

func (m *Memory) growLocked(size int64) {
	if size <= int64(len(m.data)) {
		return
	}
	grown := make([]byte, size)
	copy(grown, m.data)
	m.data = grown
	numShards := int((size + ShardSize - 1) / ShardSize)
	shards := make([]sync.RWMutex, numShards)
	m.shards = shards
}

func (m *Memory) shardRange(off, length int64) (start, end int) {
	start = int(off / ShardSize)
	end = int((off + length - 1) / ShardSize)
	if end >= len(m.shards) {
		end = len(m.shards) - 1
	}
	return start, end
}

// ReadAt implements io.ReaderAt.
func (m *Memory) ReadAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	size := int64(len(m.data))
	m.mu.Unlock()

	if off >= size {
		return 0, nil
	}
	if int64(len(p)) > size-off {
		p = p[:size-off]
	}

	startShard, endShard := m.shardRange(off, int64(len(p)))
	for i := startShard; i <= endShard; i++ {
		m.shards[i].RLock()
	}
	n := copy(p, m.data[off:off+int64(len(p))])
	for i := startShard; i <= endShard; i++ {
		m.shards[i].RUnlock()
	}
	return n, nil
}

// WriteAt implements io.WriterAt, growing the backing buffer if the write
// extends past the current size (unlike a fixed-capacity device backend,
// since access_time3 creates its file by appending chunks).
func (m *Memory) WriteAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	if off+int64(len(p)) > int64(len(m.data)) {
		m.growLocked(off + int64(len(p)))
	}
	m.mu.Unlock()

	startShard, endShard := m.shardRange(off, int64(len(p)))
	for i := startShard; i <= endShard; i++ {
		m.shards[i].Lock()
	}
	n := copy(m.data[off:off+int64(len(p))], p)
	for i := startShard; i <= endShard; i++ {
		m.shards[i].Unlock()
	}
	return n, nil
}

// Size returns the current backing size in bytes.
func (m *Memory) Size() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.data))
}

// Fdatasync is a no-op: Memory never needs flushing. FdatasyncCount lets
// tests assert on call count.
func (m *Memory) Fdatasync() error {
	m.mu.Lock()
	m.fdatasyncCount++
	m.mu.Unlock()
	return nil
}

// FdatasyncCount returns how many times Fdatasync has been called.
func (m *Memory) FdatasyncCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fdatasyncCount
}

// Close releases the backing memory.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	return nil
}
