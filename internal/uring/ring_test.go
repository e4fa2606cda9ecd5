package uring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestAndCompletionShape(t *testing.T) {
	req := Request{Slot: 3, Op: OpWrite, FD: 5, Offset: 4096, Dsync: true}
	assert.Equal(t, OpWrite, req.Op)
	assert.Equal(t, 3, req.Slot)
}
