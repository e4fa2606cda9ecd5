package stats

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatsAddSub(t *testing.T) {
	a := Stats{Blocks: 10, BlocksRead: 7, BlocksWrite: 3, KiBRead: 28, KiBWrite: 12}
	b := Stats{Blocks: 2, BlocksRead: 1, BlocksWrite: 1, KiBRead: 4, KiBWrite: 4}

	sum := a.Add(b)
	assert.Equal(t, Stats{Blocks: 12, BlocksRead: 8, BlocksWrite: 4, KiBRead: 32, KiBWrite: 16}, sum)

	diff := sum.Sub(b)
	assert.Equal(t, a, diff)
}

func TestAccumulatorRecordAndSnapshot(t *testing.T) {
	acc := New()
	acc.RecordRead(4)
	acc.RecordRead(4)
	acc.RecordWrite(4)

	snap := acc.Snapshot()
	assert.Equal(t, uint64(3), snap.Blocks)
	assert.Equal(t, uint64(2), snap.BlocksRead)
	assert.Equal(t, uint64(1), snap.BlocksWrite)
	assert.Equal(t, uint64(8), snap.KiBRead)
	assert.Equal(t, uint64(4), snap.KiBWrite)
}

func TestAccumulatorDelta(t *testing.T) {
	acc := New()
	acc.RecordRead(4)

	delta1, prev := acc.Delta(Stats{})
	assert.Equal(t, uint64(1), delta1.BlocksRead)

	acc.RecordWrite(4)
	delta2, _ := acc.Delta(prev)
	assert.Equal(t, uint64(0), delta2.BlocksRead)
	assert.Equal(t, uint64(1), delta2.BlocksWrite)
}

func TestAccumulatorConcurrentRecord(t *testing.T) {
	acc := New()
	var wg sync.WaitGroup
	const n = 1000
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				acc.RecordRead(4)
			} else {
				acc.RecordWrite(4)
			}
		}(i)
	}
	wg.Wait()

	snap := acc.Snapshot()
	assert.Equal(t, uint64(n), snap.Blocks)
	assert.Equal(t, uint64(n/2), snap.BlocksRead)
	assert.Equal(t, uint64(n/2), snap.BlocksWrite)
}
