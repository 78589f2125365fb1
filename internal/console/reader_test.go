package console

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReader_Lines(t *testing.T) {
	r := NewReader(strings.NewReader("one\ntwo"))
	ctx := context.Background()

	text, err := r.ReadLine(ctx)
	require.NoError(t, err)
	assert.Equal(t, "one\n", text)

	text, err = r.ReadLine(ctx)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "two", text)

	_, err = r.ReadLine(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_CancelledReadKeepsLineForNextCall(t *testing.T) {
	in, w := io.Pipe()
	defer w.Close()
	r := NewReader(in)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.ReadLine(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	go w.Write([]byte("pressed\n"))

	text, err := r.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pressed\n", text)
}
