// Package mcu talks to a Klipper-protocol microcontroller: it retrieves the
// command dictionary and exposes the board's digital outputs as a
// core.GPIODriver.
package mcu

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"penplot/protocol"
)

// Fixed by the protocol: identify is always command 1 and its response 0
const (
	identifyID         = 1
	identifyResponseID = 0
	identifyChunk      = 40
)

// Dictionary represents the parsed MCU dictionary
type Dictionary struct {
	Version       string                    `json:"version"`
	BuildVersions string                    `json:"build_versions"`
	Config        map[string]any            `json:"config"`
	Commands      map[string]int            `json:"commands"`
	Responses     map[string]int            `json:"responses"`
	Enumerations  map[string]map[string]any `json:"enumerations,omitempty"`
}

// Command looks up a command ID by name. Dictionary keys carry the
// argument format ("update_digital_out oid=%c value=%c"); name matches
// the part before the first space.
func (d *Dictionary) Command(name string) (uint16, bool) {
	for key, id := range d.Commands {
		if key == name || strings.HasPrefix(key, name+" ") {
			return uint16(id), true
		}
	}
	return 0, false
}

// MCU is a connected microcontroller
type MCU struct {
	transport  *protocol.HostTransport
	dictionary *Dictionary
	logger     *slog.Logger
}

// Connect starts the transport on port and retrieves the dictionary
func Connect(ctx context.Context, port io.ReadWriteCloser, logger *slog.Logger) (*MCU, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m := &MCU{
		transport: protocol.NewHostTransport(port, logger),
		logger:    logger.With("component", "mcu"),
	}
	if err := m.retrieveDictionary(ctx); err != nil {
		m.transport.Close()
		return nil, err
	}
	return m, nil
}

func (m *MCU) retrieveDictionary(ctx context.Context) error {
	var buf bytes.Buffer
	for offset := uint32(0); ; {
		chunk, err := m.identify(ctx, offset)
		if err != nil {
			return fmt.Errorf("retrieve dictionary at offset %d: %w", offset, err)
		}
		buf.Write(chunk)
		offset += uint32(len(chunk))
		if len(chunk) < identifyChunk {
			break
		}
	}

	raw, err := inflate(buf.Bytes())
	if err != nil {
		return fmt.Errorf("decompress dictionary: %w", err)
	}

	dict := &Dictionary{}
	if err := json.Unmarshal(raw, dict); err != nil {
		return fmt.Errorf("parse dictionary: %w", err)
	}
	m.dictionary = dict

	m.logger.Info("dictionary retrieved",
		"version", dict.Version,
		"bytes", len(raw),
		"commands", len(dict.Commands))
	return nil
}

func (m *MCU) identify(ctx context.Context, offset uint32) ([]byte, error) {
	err := m.transport.Send(ctx, identifyID, func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, offset)
		protocol.EncodeVLQUint(out, identifyChunk)
	})
	if err != nil {
		return nil, err
	}

	for {
		resp, err := m.transport.Receive(ctx)
		if err != nil {
			return nil, err
		}

		payload := resp.Payload
		id, err := protocol.DecodeVLQUint(&payload)
		if err != nil || id != identifyResponseID {
			continue
		}
		got, err := protocol.DecodeVLQUint(&payload)
		if err != nil {
			return nil, err
		}
		if got != offset {
			return nil, fmt.Errorf("identify response for offset %d, want %d", got, offset)
		}
		return protocol.DecodeVLQBytes(&payload)
	}
}

// inflate undoes the zlib compression Klipper firmware applies to its
// dictionary; plain JSON passes through
func inflate(data []byte) ([]byte, error) {
	if len(data) < 2 || data[0] != 0x78 {
		return data, nil
	}
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Dictionary returns the parsed dictionary
func (m *MCU) Dictionary() *Dictionary {
	return m.dictionary
}

// SendCommand sends a command by name
func (m *MCU) SendCommand(ctx context.Context, name string, args func(protocol.OutputBuffer)) error {
	id, ok := m.dictionary.Command(name)
	if !ok {
		return fmt.Errorf("mcu does not support %s", name)
	}
	if err := m.transport.Send(ctx, id, args); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Supports reports whether the dictionary lists name
func (m *MCU) Supports(name string) bool {
	_, ok := m.dictionary.Command(name)
	return ok
}

// Close closes the transport and the port
func (m *MCU) Close() error {
	return m.transport.Close()
}
