package device

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zlib"

	"retrocrop/protocol"
)

// Dictionary is the parsed identify data of a board
type Dictionary struct {
	Version       string                    `json:"version"`
	BuildVersions string                    `json:"build_versions"`
	Config        map[string]string         `json:"config"`
	Commands      map[string]int            `json:"commands"`
	Responses     map[string]int            `json:"responses"`
	Enumerations  map[string]map[string]int `json:"enumerations,omitempty"`

	commandsByName  map[string]*Message
	responsesByID   map[int]*Message
	responsesByName map[string]*Message
}

// Param is one argument of a message format
type Param struct {
	Name string
	Type string // %u, %c, %hu, %i, %hi or %*s
}

// Message is a command or response signature with its ID
type Message struct {
	ID     int
	Name   string
	Params []Param
}

var (
	ErrBadSignature = errors.New("malformed message signature")
	ErrArgCount     = errors.New("wrong number of arguments")
)

// ParseMessage parses a "name arg=%type ..." signature
func ParseMessage(id int, signature string) (*Message, error) {
	fields := strings.Fields(signature)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrBadSignature)
	}

	msg := &Message{ID: id, Name: fields[0]}
	for _, field := range fields[1:] {
		name, typ, ok := strings.Cut(field, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %q", ErrBadSignature, signature)
		}
		switch typ {
		case "%u", "%c", "%hu", "%i", "%hi", "%*s":
		default:
			return nil, fmt.Errorf("%w: unknown type %s in %q", ErrBadSignature, typ, signature)
		}
		msg.Params = append(msg.Params, Param{Name: name, Type: typ})
	}
	return msg, nil
}

// Encode writes the arguments of a command in parameter order
func (m *Message) Encode(output protocol.OutputBuffer, args ...int64) error {
	if len(args) != len(m.Params) {
		return fmt.Errorf("%s: %w: got %d, want %d", m.Name, ErrArgCount, len(args), len(m.Params))
	}
	for i, p := range m.Params {
		switch p.Type {
		case "%i", "%hi":
			protocol.EncodeVLQInt(output, int32(args[i]))
		case "%*s":
			return fmt.Errorf("%s: byte string arguments are not supported", m.Name)
		default:
			protocol.EncodeVLQUint(output, uint32(args[i]))
		}
	}
	return nil
}

// Response is a decoded response message
type Response struct {
	Name   string
	Values map[string]int64
	Data   []byte // The byte string argument, if the format has one
}

// Decode reads the arguments of a response. data starts after the ID.
func (m *Message) Decode(data []byte) (*Response, error) {
	resp := &Response{Name: m.Name, Values: make(map[string]int64, len(m.Params))}
	for _, p := range m.Params {
		if p.Type == "%*s" {
			b, err := protocol.DecodeVLQBytes(&data)
			if err != nil {
				return nil, fmt.Errorf("%s %s: %w", m.Name, p.Name, err)
			}
			resp.Data = append([]byte(nil), b...)
			continue
		}

		v, err := protocol.DecodeVLQInt(&data)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", m.Name, p.Name, err)
		}
		switch p.Type {
		case "%u":
			resp.Values[p.Name] = int64(uint32(v))
		case "%hu":
			resp.Values[p.Name] = int64(uint16(v))
		case "%c":
			resp.Values[p.Name] = int64(uint8(v))
		case "%hi":
			resp.Values[p.Name] = int64(int16(v))
		default:
			resp.Values[p.Name] = int64(v)
		}
	}
	return resp, nil
}

// ParseDictionary decodes identify data. A zlib stream is inflated first.
func ParseDictionary(data []byte) (*Dictionary, error) {
	if len(data) >= 2 && data[0] == 0x78 {
		zr, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("inflate dictionary: %w", err)
		}
		inflated, err := io.ReadAll(zr)
		zr.Close()
		if err != nil {
			return nil, fmt.Errorf("inflate dictionary: %w", err)
		}
		data = inflated
	}

	dict := &Dictionary{}
	if err := json.Unmarshal(data, dict); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	if err := dict.index(); err != nil {
		return nil, err
	}
	return dict, nil
}

func (d *Dictionary) index() error {
	d.commandsByName = make(map[string]*Message, len(d.Commands))
	for sig, id := range d.Commands {
		msg, err := ParseMessage(id, sig)
		if err != nil {
			return err
		}
		d.commandsByName[msg.Name] = msg
	}

	d.responsesByID = make(map[int]*Message, len(d.Responses))
	d.responsesByName = make(map[string]*Message, len(d.Responses))
	for sig, id := range d.Responses {
		msg, err := ParseMessage(id, sig)
		if err != nil {
			return err
		}
		d.responsesByID[id] = msg
		d.responsesByName[msg.Name] = msg
	}
	return nil
}

// Command looks a command up by name
func (d *Dictionary) Command(name string) (*Message, bool) {
	msg, ok := d.commandsByName[name]
	return msg, ok
}

// Response looks a response up by ID
func (d *Dictionary) Response(id int) (*Message, bool) {
	msg, ok := d.responsesByID[id]
	return msg, ok
}

// ResponseByName looks a response up by name
func (d *Dictionary) ResponseByName(name string) (*Message, bool) {
	msg, ok := d.responsesByName[name]
	return msg, ok
}

// ConfigInt returns a numeric constant
func (d *Dictionary) ConfigInt(name string) (int64, error) {
	s, ok := d.Config[name]
	if !ok {
		return 0, fmt.Errorf("constant %s not in dictionary", name)
	}
	return strconv.ParseInt(s, 10, 64)
}

// EnumName returns the symbolic name of value in an enumeration, or the
// number when it has none
func (d *Dictionary) EnumName(enum string, value int64) string {
	for name, v := range d.Enumerations[enum] {
		if int64(v) == value {
			return name
		}
	}
	return strconv.FormatInt(value, 10)
}
