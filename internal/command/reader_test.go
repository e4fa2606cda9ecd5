package command

import (
	"strings"
	"testing"
	"time"

	"github.com/alange-rdtest/access-time3/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandReaderAppliesLines(t *testing.T) {
	live := newTestLive()
	src := strings.NewReader("write_ratio=0.6\nrandom_ratio=0.4\n")
	r := NewCommandReader(src, live, logging.Default())
	defer r.Stop()

	require.Eventually(t, func() bool {
		return live.Snapshot().WriteRatio == 0.6 && live.Snapshot().RandomRatio == 0.4
	}, time.Second, 10*time.Millisecond)
}

func TestCommandReaderStopCommandRequestsStop(t *testing.T) {
	live := newTestLive()
	src := strings.NewReader("stop\n")
	r := NewCommandReader(src, live, logging.Default())
	defer r.Stop()

	require.Eventually(t, func() bool {
		return live.Stopped()
	}, time.Second, 10*time.Millisecond)
}

func TestCommandReaderStopEqualsFormRequestsStop(t *testing.T) {
	live := newTestLive()
	src := strings.NewReader("stop=\n")
	r := NewCommandReader(src, live, logging.Default())
	defer r.Stop()

	require.Eventually(t, func() bool {
		return live.Stopped()
	}, time.Second, 10*time.Millisecond)
}

func TestCommandReaderIgnoresMalformedCommand(t *testing.T) {
	live := newTestLive()
	src := strings.NewReader("bogus_command\nwrite_ratio=0.3\n")
	r := NewCommandReader(src, live, logging.Default())
	defer r.Stop()

	require.Eventually(t, func() bool {
		return live.Snapshot().WriteRatio == 0.3
	}, time.Second, 10*time.Millisecond)
}

func TestCommandReaderEOFRequestsStop(t *testing.T) {
	live := newTestLive()
	src := strings.NewReader("wait=true\n")
	r := NewCommandReader(src, live, logging.Default())
	defer r.Stop()

	require.Eventually(t, func() bool {
		return live.Stopped()
	}, time.Second, 10*time.Millisecond)
	assert.True(t, live.Waiting())
}
