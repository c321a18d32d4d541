package protocol

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	payload := []byte{0x05, 0x01, 0x7E, 0x00}
	frame, err := EncodeFrame(0x13, payload)
	require.NoError(t, err)

	assert.Equal(t, uint8(len(frame)), frame[MessagePositionLen])
	assert.Equal(t, byte(MessageValueSync), frame[len(frame)-1])

	msg, n, err := DecodeFrame(append(frame, 0xAA))
	require.NoError(t, err)
	assert.Equal(t, len(frame), n)
	assert.Equal(t, uint8(0x13), msg.Sequence)
	assert.Equal(t, payload, msg.Payload)
	assert.False(t, msg.IsAck())
}

func TestDecodeFrameErrors(t *testing.T) {
	good, err := EncodeFrame(MessageDest, []byte{1, 2})
	require.NoError(t, err)

	corrupt := append([]byte(nil), good...)
	corrupt[2] ^= 0xFF

	noSync := append([]byte(nil), good...)
	noSync[len(noSync)-1] = 0

	badSeq, err := EncodeFrame(0x01, nil)
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"short", good[:3], ErrFrameShort},
		{"partial", good[:len(good)-1], ErrFrameShort},
		{"crc", corrupt, ErrFrameCRC},
		{"sync", noSync, ErrFrameSync},
		{"length", []byte{0x02, 0x10, 0, 0, 0x7E}, ErrFrameLength},
		{"sequence", badSeq, ErrFrameSequence},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, _, err := DecodeFrame(test.data)
			assert.True(t, errors.Is(err, test.want), "got %v", err)
		})
	}
}

func TestEncodeFrameTooLong(t *testing.T) {
	_, err := EncodeFrame(MessageDest, make([]byte, MessageLengthMax))
	assert.ErrorIs(t, err, ErrFrameTooLong)
}

func TestNextSequenceWraps(t *testing.T) {
	assert.Equal(t, uint8(0x11), NextSequence(0x10))
	assert.Equal(t, uint8(0x10), NextSequence(0x1F))
}
