package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScratchOutput(t *testing.T) {
	scratch := NewScratchOutput()
	assert.Empty(t, scratch.Result())

	scratch.Output([]byte{1, 2, 3})

	scratch.Output([]byte{4, 5})
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, scratch.Result())
}

func TestScratchOutputDropsOverflow(t *testing.T) {
	scratch := NewScratchOutput()
	scratch.Output(make([]byte, MessageMax-1))
	scratch.Output([]byte{7, 8, 9})
	require.Len(t, scratch.Result(), MessageMax)
	assert.Equal(t, byte(7), scratch.Result()[MessageMax-1])
}

func TestFifoBuffer(t *testing.T) {
	fifo := NewFifoBuffer(10)
	assert.True(t, fifo.IsEmpty())
	assert.Equal(t, 9, fifo.Free())

	assert.Equal(t, 5, fifo.Write([]byte{1, 2, 3, 4, 5}))
	assert.Equal(t, 5, fifo.Available())

	out := make([]byte, 3)
	assert.Equal(t, 3, fifo.Read(out))
	assert.Equal(t, []byte{1, 2, 3}, out)
	assert.Equal(t, []byte{4, 5}, fifo.Data())

	fifo.Pop(1)
	assert.Equal(t, 1, fifo.Available())

	// one slot stays free
	fifo.Reset()
	assert.Equal(t, 9, fifo.Write(make([]byte, 12)))
	assert.Equal(t, 0, fifo.Free())
}

func TestFifoBufferWrapAround(t *testing.T) {
	fifo := NewFifoBuffer(6)
	fifo.Write([]byte{1, 2, 3, 4})
	fifo.Pop(3)
	assert.Equal(t, 3, fifo.Write([]byte{5, 6, 7}))

	assert.Equal(t, []byte{4, 5, 6, 7}, fifo.Data())
	assert.Equal(t, 1, fifo.Free())

	out := make([]byte, 8)
	assert.Equal(t, 4, fifo.Read(out))
	assert.Equal(t, []byte{4, 5, 6, 7}, out[:4])

	fifo.Write([]byte{8})
	fifo.Pop(10)
	assert.True(t, fifo.IsEmpty())
}
