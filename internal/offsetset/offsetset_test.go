package offsetset

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInsertIfAbsent(t *testing.T) {
	s := New(4)
	assert.True(t, s.InsertIfAbsent(0))
	assert.False(t, s.InsertIfAbsent(0), "re-inserting the same offset must fail")
	assert.True(t, s.InsertIfAbsent(4096))
	assert.Equal(t, 2, s.Size())
}

func TestRemove(t *testing.T) {
	s := New(4)
	s.InsertIfAbsent(0)
	s.InsertIfAbsent(4096)
	s.InsertIfAbsent(8192)

	assert.True(t, s.Remove(4096))
	assert.False(t, s.Remove(4096), "removing twice must fail the second time")
	assert.Equal(t, 2, s.Size())

	assert.True(t, s.InsertIfAbsent(4096), "offset is free again after removal")
}

func TestRemoveSwapsWithLast(t *testing.T) {
	s := New(4)
	s.InsertIfAbsent(0)
	s.InsertIfAbsent(4096)
	s.InsertIfAbsent(8192)

	// remove the middle entry; size should shrink and the remaining
	// entries should still each be removable exactly once.
	assert.True(t, s.Remove(4096))
	assert.True(t, s.Remove(0))
	assert.True(t, s.Remove(8192))
	assert.Equal(t, 0, s.Size())
}

func TestClear(t *testing.T) {
	s := New(4)
	s.InsertIfAbsent(0)
	s.InsertIfAbsent(4096)
	s.Clear()
	assert.Equal(t, 0, s.Size())
	assert.True(t, s.InsertIfAbsent(0))
}

// TestGuardedConcurrentUse exercises OffsetSet the way it is actually used
// in the engines: serialized behind a single external mutex, never on its
// own. This is the invariant the offset-exclusivity property depends on.
func TestGuardedConcurrentUse(t *testing.T) {
	var mu sync.Mutex
	s := New(8)

	var wg sync.WaitGroup
	successes := make([]bool, 100)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			mu.Lock()
			defer mu.Unlock()
			ok := s.InsertIfAbsent(int64(i % 8))
			successes[i] = ok
			if ok {
				s.Remove(int64(i % 8))
			}
		}(i)
	}
	wg.Wait()

	for i, ok := range successes {
		assert.True(t, ok, "iteration %d: offset was released before the next insert, so it must succeed", i)
	}
	assert.Equal(t, 0, s.Size())
}
