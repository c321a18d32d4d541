// Package protocol implements the Klipper serial framing used to drive
// digital outputs on a microcontroller: VLQ argument encoding, CRC16 and
// the sequenced, acknowledged message blocks.
package protocol

import (
	"errors"
	"fmt"
)

// Frame layout: len, seq, payload..., crc_hi, crc_lo, sync
const (
	MessageMax         = 512
	MessageHeaderSize  = 2
	MessageTrailerSize = 3
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageTrailerCRC  = 3
	MessageTrailerSync = 1
	MessageValueSync   = 0x7E
	MessageDest        = 0x10

	MessageSeqMask = 0x0F
)

var (
	ErrFrameTooLong  = errors.New("frame exceeds maximum length")
	ErrFrameShort    = errors.New("incomplete frame")
	ErrFrameLength   = errors.New("invalid frame length")
	ErrFrameSync     = errors.New("missing sync byte")
	ErrFrameCRC      = errors.New("crc mismatch")
	ErrFrameSequence = errors.New("sequence byte without destination bit")
)

// Message is one decoded frame
type Message struct {
	Length   uint8
	Sequence uint8
	Payload  []byte
	CRC      uint16
}

// IsAck reports whether the message carries no payload
func (m *Message) IsAck() bool {
	return len(m.Payload) == 0
}

// NextSequence returns the sequence byte that follows seq
func NextSequence(seq uint8) uint8 {
	return ((seq + 1) & MessageSeqMask) | MessageDest
}

// EncodeFrame wraps payload in a frame with sequence byte seq
func EncodeFrame(seq uint8, payload []byte) ([]byte, error) {
	n := MessageHeaderSize + len(payload) + MessageTrailerSize
	if n > MessageLengthMax {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrFrameTooLong, n, MessageLengthMax)
	}

	frame := make([]byte, 0, n)
	frame = append(frame, uint8(n), seq)
	frame = append(frame, payload...)
	crc := CRC16(frame)
	frame = append(frame, uint8(crc>>8), uint8(crc), MessageValueSync)
	return frame, nil
}

// DecodeFrame parses the frame at the start of data and returns it with
// the number of bytes it occupies. ErrFrameShort means more input is
// needed; any other error means data[0] does not start a valid frame.
func DecodeFrame(data []byte) (*Message, int, error) {
	if len(data) < MessageLengthMin {
		return nil, 0, ErrFrameShort
	}
	n := int(data[MessagePositionLen])
	if n < MessageLengthMin || n > MessageLengthMax {
		return nil, 0, fmt.Errorf("%w: %d", ErrFrameLength, n)
	}
	if len(data) < n {
		return nil, 0, ErrFrameShort
	}
	if data[n-MessageTrailerSync] != MessageValueSync {
		return nil, 0, ErrFrameSync
	}

	crc := uint16(data[n-MessageTrailerCRC])<<8 | uint16(data[n-MessageTrailerCRC+1])
	if crc != CRC16(data[:n-MessageTrailerSize]) {
		return nil, 0, ErrFrameCRC
	}
	seq := data[MessagePositionSeq]
	if seq&^MessageSeqMask != MessageDest {
		return nil, 0, fmt.Errorf("%w: 0x%02x", ErrFrameSequence, seq)
	}

	payload := make([]byte, n-MessageHeaderSize-MessageTrailerSize)
	copy(payload, data[MessageHeaderSize:n-MessageTrailerSize])
	return &Message{
		Length:   uint8(n),
		Sequence: seq,
		Payload:  payload,
		CRC:      crc,
	}, n, nil
}
