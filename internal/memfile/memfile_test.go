package memfile

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteThenReadRoundTrip(t *testing.T) {
	m := New(4096)
	data := []byte("hello, access_time3")

	n, err := m.WriteAt(data, 100)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)

	out := make([]byte, len(data))
	n, err = m.ReadAt(out, 100)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
	assert.Equal(t, data, out)
}

func TestWriteAtGrowsBackingStore(t *testing.T) {
	m := New(0)
	data := []byte("grow me")

	_, err := m.WriteAt(data, 1<<20)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, m.Size(), int64(1<<20)+int64(len(data)))
}

func TestReadAtPastEndReturnsZero(t *testing.T) {
	m := New(10)
	out := make([]byte, 10)
	n, err := m.ReadAt(out, 20)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFdatasyncCount(t *testing.T) {
	m := New(4096)
	assert.Zero(t, m.FdatasyncCount())
	require.NoError(t, m.Fdatasync())
	require.NoError(t, m.Fdatasync())
	assert.Equal(t, 2, m.FdatasyncCount())
}

func TestConcurrentDisjointWrites(t *testing.T) {
	m := New(1 << 20)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			buf := make([]byte, 4096)
			for j := range buf {
				buf[j] = byte(i)
			}
			_, err := m.WriteAt(buf, int64(i)*4096)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 16; i++ {
		out := make([]byte, 4096)
		_, err := m.ReadAt(out, int64(i)*4096)
		require.NoError(t, err)
		for _, b := range out {
			assert.Equal(t, byte(i), b)
		}
	}
}
