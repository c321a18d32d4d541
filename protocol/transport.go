package protocol

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// DefaultAckTimeout bounds the wait for an acknowledgement
const DefaultAckTimeout = 2 * time.Second

// ErrTransportClosed is returned by calls made after Close
var ErrTransportClosed = errors.New("transport closed")

// HostTransport is the host end of a Klipper link. Send blocks until the
// microcontroller acknowledges the frame; responses are queued for Receive.
type HostTransport struct {
	port   io.ReadWriteCloser
	logger *slog.Logger

	// AckTimeout applies when the caller's context has no earlier deadline
	AckTimeout time.Duration
	// Retries is how many times a frame is resent after a NAK
	Retries int

	sendMu sync.Mutex
	seq    uint8

	input     *FifoBuffer
	acks      chan *Message
	responses chan *Message

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewHostTransport starts reading from port
func NewHostTransport(port io.ReadWriteCloser, logger *slog.Logger) *HostTransport {
	if logger == nil {
		logger = slog.Default()
	}
	t := &HostTransport{
		port:       port,
		logger:     logger.With("component", "transport"),
		AckTimeout: DefaultAckTimeout,
		Retries:    2,
		seq:        MessageDest,
		input:      NewFifoBuffer(MessageMax),
		acks:       make(chan *Message, 1),
		responses:  make(chan *Message, 16),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	go t.readLoop()
	return t
}

// Send frames cmdID and its arguments and waits for the acknowledgement.
// A NAK (an ack naming a different sequence) resynchronizes and resends.
func (t *HostTransport) Send(ctx context.Context, cmdID uint16, args func(OutputBuffer)) error {
	scratch := NewScratchOutput()
	EncodeVLQUint(scratch, uint32(cmdID))
	if args != nil {
		args(scratch)
	}
	payload := scratch.Result()

	t.sendMu.Lock()
	defer t.sendMu.Unlock()

	for attempt := 0; ; attempt++ {
		frame, err := EncodeFrame(t.seq, payload)
		if err != nil {
			return fmt.Errorf("command %d: %w", cmdID, err)
		}
		if err := t.write(frame); err != nil {
			return fmt.Errorf("command %d: %w", cmdID, err)
		}

		ack, err := t.waitAck(ctx)
		if err != nil {
			return fmt.Errorf("command %d: %w", cmdID, err)
		}

		want := NextSequence(t.seq)
		t.seq = ack.Sequence
		if ack.Sequence == want {
			return nil
		}
		if attempt >= t.Retries {
			return fmt.Errorf("command %d: sequence mismatch: want 0x%02x, got 0x%02x", cmdID, want, ack.Sequence)
		}
		t.logger.Debug("nak, resending", "cmd", cmdID, "want", want, "got", ack.Sequence)
	}
}

func (t *HostTransport) write(frame []byte) error {
	n, err := t.port.Write(frame)
	if err != nil {
		return err
	}
	if n != len(frame) {
		return fmt.Errorf("short write: %d/%d bytes", n, len(frame))
	}
	return nil
}

func (t *HostTransport) waitAck(ctx context.Context) (*Message, error) {
	timer := time.NewTimer(t.AckTimeout)
	defer timer.Stop()

	select {
	case ack := <-t.acks:
		return ack, nil
	case <-timer.C:
		return nil, fmt.Errorf("no ack after %v", t.AckTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.stop:
		return nil, ErrTransportClosed
	}
}

// Receive returns the next queued response
func (t *HostTransport) Receive(ctx context.Context) (*Message, error) {
	select {
	case msg := <-t.responses:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.stop:
		return nil, ErrTransportClosed
	}
}

// Sequence returns the sequence byte the next frame will carry
func (t *HostTransport) Sequence() uint8 {
	t.sendMu.Lock()
	defer t.sendMu.Unlock()
	return t.seq
}

func (t *HostTransport) readLoop() {
	defer close(t.done)

	buf := make([]byte, 256)
	synced := true
	for {
		n, err := t.port.Read(buf)
		if n > 0 {
			t.input.Write(buf[:n])
			synced = t.parse(synced)
		}
		if err != nil {
			select {
			case <-t.stop:
				return
			default:
			}
			if !errors.Is(err, io.EOF) {
				t.logger.Warn("serial read", "err", err)
			}
			// native ports report a read timeout as EOF
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// parse consumes every complete frame in the input ring. Garbage is
// skipped up to the next sync byte.
func (t *HostTransport) parse(synced bool) bool {
	data := t.input.Data()
	start := len(data)

	for len(data) > 0 {
		if !synced {
			i := 0
			for i < len(data) && data[i] != MessageValueSync {
				i++
			}
			if i == len(data) {
				data = nil
				break
			}
			data = data[i+1:]
			synced = true
			continue
		}
		if data[0] == MessageValueSync {
			data = data[1:]
			continue
		}

		msg, n, err := DecodeFrame(data)
		if errors.Is(err, ErrFrameShort) {
			break
		}
		if err != nil {
			t.logger.Debug("dropping bad frame", "err", err)
			synced = false
			continue
		}
		data = data[n:]
		t.dispatch(msg)
	}

	t.input.Pop(start - len(data))
	return synced
}

func (t *HostTransport) dispatch(msg *Message) {
	if msg.IsAck() {
		offer(t.acks, msg)
		return
	}
	offer(t.responses, msg)
}

// offer queues msg, dropping the oldest entry when the queue is full
func offer(ch chan *Message, msg *Message) {
	for {
		select {
		case ch <- msg:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Close stops the read loop and closes the port
func (t *HostTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.stop)
		err = t.port.Close()
		<-t.done
	})
	return err
}
