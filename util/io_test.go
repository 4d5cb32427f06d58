package util

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCopyBufferWithContext(t *testing.T) {
	src := strings.Repeat("hello, world! ", 1000)
	dst := &bytes.Buffer{}

	written, err := CopyBufferWithContext(context.Background(), dst, strings.NewReader(src), make([]byte, 100))
	assert.NoErrorf(t, err, "CopyBufferWithContext() error = %v", err)
	assert.Equal(t, int64(len(src)), written)
	assert.Equal(t, src, dst.String())
}

func TestCopyBufferWithContext_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	written, err := CopyBufferWithContext(ctx, io.Discard, strings.NewReader("hello, world!"), make([]byte, 5))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(5), written)
}
