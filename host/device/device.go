// Package device talks to a cropper board over its diagnostics link
package device

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"retrocrop/host/serial"
	"retrocrop/protocol"
)

// Bootstrap message IDs, fixed so identify works before the dictionary is
// known
const (
	identifyResponseID = 0
	identifyID         = 1
)

// identifyChunk is the dictionary chunk size requested per identify
const identifyChunk = 40

var (
	ErrNotIdentified   = errors.New("dictionary not loaded")
	ErrUnknownCommand  = errors.New("unknown command")
	ErrMissingResponse = errors.New("device sent no response")
)

type rawResponse struct {
	id   int
	data []byte
}

// Device is a connection to one board. Exchanges are serialized; each one
// sends a command and collects the responses sent before its ACK.
type Device struct {
	transport *protocol.HostTransport

	// Timeout bounds the wait for each ACK
	Timeout time.Duration

	exchangeMu sync.Mutex
	dict       *Dictionary
	raw        []byte

	collectMu  sync.Mutex
	collecting bool
	pending    []rawResponse
}

// Open connects to the board described by cfg
func Open(cfg *serial.Config) (*Device, error) {
	port, err := serial.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	return New(port), nil
}

// New runs the host end of the link on an open port
func New(port io.ReadWriteCloser) *Device {
	d := &Device{
		transport: protocol.NewHostTransport(port),
		Timeout:   2 * time.Second,
	}
	d.transport.SetResponseHandler(d.onResponse)
	return d
}

// Close stops the link and closes the port
func (d *Device) Close() error {
	return d.transport.Close()
}

// onResponse runs on the reader goroutine, before the ACK of the command
// that caused the response is dispatched
func (d *Device) onResponse(cmdID uint16, data *[]byte) error {
	d.collectMu.Lock()
	defer d.collectMu.Unlock()
	if d.collecting {
		d.pending = append(d.pending, rawResponse{id: int(cmdID), data: append([]byte(nil), *data...)})
	}
	return nil
}

// exchange sends one message and returns the responses it produced
func (d *Device) exchange(cmdID int, args func(output protocol.OutputBuffer)) ([]rawResponse, error) {
	d.collectMu.Lock()
	d.collecting = true
	d.pending = nil
	d.collectMu.Unlock()

	err := d.transport.SendCommandWithTimeout(uint16(cmdID), args, d.Timeout)

	d.collectMu.Lock()
	d.collecting = false
	pending := d.pending
	d.pending = nil
	d.collectMu.Unlock()

	// Responses are taken through the handler; the channel copies are stale
	d.transport.DrainResponses()
	return pending, err
}

// Identify downloads and parses the dictionary
func (d *Device) Identify() error {
	d.exchangeMu.Lock()
	defer d.exchangeMu.Unlock()

	var raw []byte
	for offset := uint32(0); ; {
		chunk, err := d.identifyChunk(offset)
		if err != nil {
			return fmt.Errorf("failed to retrieve dictionary chunk at offset %d: %w", offset, err)
		}
		if len(chunk) == 0 {
			break
		}
		raw = append(raw, chunk...)
		offset += uint32(len(chunk))
	}

	dict, err := ParseDictionary(raw)
	if err != nil {
		return fmt.Errorf("failed to parse dictionary: %w", err)
	}
	d.dict = dict
	d.raw = raw
	return nil
}

func (d *Device) identifyChunk(offset uint32) ([]byte, error) {
	responses, err := d.exchange(identifyID, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, offset)
		protocol.EncodeVLQUint(output, identifyChunk)
	})
	if err != nil {
		return nil, err
	}

	for _, r := range responses {
		if r.id != identifyResponseID {
			continue
		}
		payload := r.data
		respOffset, err := protocol.DecodeVLQUint(&payload)
		if err != nil {
			return nil, err
		}
		if respOffset != offset {
			return nil, fmt.Errorf("offset mismatch: expected %d, got %d", offset, respOffset)
		}
		data, err := protocol.DecodeVLQBytes(&payload)
		if err != nil {
			return nil, err
		}
		return append([]byte(nil), data...), nil
	}
	return nil, fmt.Errorf("identify: %w", ErrMissingResponse)
}

// Dictionary returns the parsed dictionary, nil before Identify
func (d *Device) Dictionary() *Dictionary {
	d.exchangeMu.Lock()
	defer d.exchangeMu.Unlock()
	return d.dict
}

// RawDictionary returns the dictionary as downloaded
func (d *Device) RawDictionary() []byte {
	d.exchangeMu.Lock()
	defer d.exchangeMu.Unlock()
	return d.raw
}

// Call sends a named command and decodes every response it produced
func (d *Device) Call(name string, args ...int64) ([]*Response, error) {
	d.exchangeMu.Lock()
	defer d.exchangeMu.Unlock()

	if d.dict == nil {
		return nil, ErrNotIdentified
	}
	cmd, ok := d.dict.Command(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}

	encoded := protocol.NewScratchOutput()
	if err := cmd.Encode(encoded, args...); err != nil {
		return nil, err
	}
	raw, err := d.exchange(cmd.ID, func(output protocol.OutputBuffer) {
		output.Output(encoded.Result())
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	responses := make([]*Response, 0, len(raw))
	for _, r := range raw {
		msg, ok := d.dict.Response(r.id)
		if !ok {
			return nil, fmt.Errorf("%s: unknown response id %d", name, r.id)
		}
		resp, err := msg.Decode(r.data)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

// Query sends a command and returns its one response called response
func (d *Device) Query(name, response string, args ...int64) (*Response, error) {
	responses, err := d.Call(name, args...)
	if err != nil {
		return nil, err
	}
	for _, r := range responses {
		if r.Name == response {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%s: %w %s", name, ErrMissingResponse, response)
}
