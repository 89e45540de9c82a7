package core

import (
	"sort"
	"sync"

	"retrocrop/tinycompress"
)

// Version is reported in the identify dictionary
const Version = "retrocrop-0.3.0"

// Constant is a named value exposed to the host
type Constant struct {
	Name  string
	Value interface{}
}

// Enumeration maps symbolic names to argument values
type Enumeration struct {
	Name   string
	Values []string
}

// Dictionary describes the firmware to the host: its messages with their
// IDs and formats, plus constants and enumerations. The host downloads it
// with the identify command as a zlib stream.
type Dictionary struct {
	mu            sync.RWMutex
	constants     map[string]*Constant
	enumerations  map[string]*Enumeration
	commandReg    *CommandRegistry
	version       string
	buildVersions string
	cachedDict    []byte
}

var globalDictionary = NewDictionary(globalRegistry)

func NewDictionary(cmdReg *CommandRegistry) *Dictionary {
	return &Dictionary{
		constants:     make(map[string]*Constant),
		enumerations:  make(map[string]*Enumeration),
		commandReg:    cmdReg,
		version:       Version,
		buildVersions: "go-tinygo",
	}
}

// RegisterConstant adds a constant to the global dictionary
func RegisterConstant(name string, value interface{}) {
	globalDictionary.AddConstant(name, value)
}

// RegisterEnumeration adds an enumeration to the global dictionary
func RegisterEnumeration(name string, values []string) {
	globalDictionary.AddEnumeration(name, values)
}

func (d *Dictionary) AddConstant(name string, value interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.constants[name] = &Constant{Name: name, Value: value}
	d.cachedDict = nil
}

func (d *Dictionary) AddEnumeration(name string, values []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enumerations[name] = &Enumeration{
		Name:   name,
		Values: append([]string(nil), values...),
	}
	d.cachedDict = nil
}

func (d *Dictionary) SetBuildVersions(versions string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buildVersions = versions
	d.cachedDict = nil
}

// BuildDictionary compresses and caches the dictionary. Call it once all
// messages are registered.
func (d *Dictionary) BuildDictionary() {
	commands, responses := d.commandReg.Messages()

	d.mu.Lock()
	defer d.mu.Unlock()

	jsonData := d.buildJSONLocked(commands, responses)
	d.cachedDict = tinycompress.Compress(jsonData)
	DebugPrintln("[DICT] " + itoa(len(jsonData)) + " bytes, " +
		itoa(len(d.cachedDict)) + " compressed")
}

// Generate returns the compressed dictionary, building it if needed
func (d *Dictionary) Generate() []byte {
	d.mu.RLock()
	cached := d.cachedDict
	d.mu.RUnlock()
	if cached == nil {
		d.BuildDictionary()
		d.mu.RLock()
		cached = d.cachedDict
		d.mu.RUnlock()
	}
	return cached
}

// JSON returns the uncompressed dictionary
func (d *Dictionary) JSON() []byte {
	commands, responses := d.commandReg.Messages()
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.buildJSONLocked(commands, responses)
}

// buildJSONLocked writes the dictionary by hand; encoding/json is too large
// for the small targets. Caller holds d.mu.
func (d *Dictionary) buildJSONLocked(commands, responses []*Command) []byte {
	result := make([]byte, 0, 1024)

	result = append(result, `{"version":"`...)
	result = append(result, d.version...)
	result = append(result, `","build_versions":"`...)
	result = append(result, d.buildVersions...)
	result = append(result, `","config":{`...)

	names := make([]string, 0, len(d.constants))
	for name := range d.constants {
		names = append(names, name)
	}
	sort.Strings(names)
	for i, name := range names {
		if i > 0 {
			result = append(result, ',')
		}
		result = appendQuoted(result, name)
		result = append(result, ':')
		result = appendQuoted(result, valueToString(d.constants[name].Value))
	}

	result = append(result, `},"commands":`...)
	result = appendMessages(result, commands)
	result = append(result, `,"responses":`...)
	result = appendMessages(result, responses)

	if len(d.enumerations) > 0 {
		result = append(result, `,"enumerations":{`...)

		names = names[:0]
		for name := range d.enumerations {
			names = append(names, name)
		}
		sort.Strings(names)
		for i, name := range names {
			if i > 0 {
				result = append(result, ',')
			}
			result = appendQuoted(result, name)
			result = append(result, ":{"...)
			first := true
			for idx, value := range d.enumerations[name].Values {
				if value == "" {
					continue
				}
				if !first {
					result = append(result, ',')
				}
				result = appendQuoted(result, value)
				result = append(result, ':')
				result = append(result, itoa(idx)...)
				first = false
			}
			result = append(result, '}')
		}
		result = append(result, '}')
	}

	return append(result, '}')
}

// appendMessages writes {"signature":id,...} in ID order
func appendMessages(result []byte, msgs []*Command) []byte {
	result = append(result, '{')
	for i, cmd := range msgs {
		if i > 0 {
			result = append(result, ',')
		}
		result = appendQuoted(result, cmd.Signature())
		result = append(result, ':')
		result = append(result, itoa(int(cmd.ID))...)
	}
	return append(result, '}')
}

// appendQuoted writes s as a JSON string. Only quotes and backslashes can
// appear in registered names, so nothing else is escaped.
func appendQuoted(result []byte, s string) []byte {
	result = append(result, '"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			result = append(result, '\\')
		}
		result = append(result, s[i])
	}
	return append(result, '"')
}

// GetChunk returns a copy of count bytes of the compressed dictionary
// starting at offset. Past the end it returns an empty chunk, which tells
// the host the download is complete.
func (d *Dictionary) GetChunk(offset uint32, count uint8) []byte {
	data := d.Generate()
	if offset >= uint32(len(data)) {
		return []byte{}
	}
	end := offset + uint32(count)
	if end > uint32(len(data)) {
		end = uint32(len(data))
	}
	chunk := make([]byte, end-offset)
	copy(chunk, data[offset:end])
	return chunk
}

func GetGlobalDictionary() *Dictionary {
	return globalDictionary
}
