package core

import (
	"errors"
	"sync"
)

// CommandHandler runs a received command. It decodes its own arguments
// from data.
type CommandHandler func(data *[]byte) error

// Command is one message of the diagnostics link. Commands travel host to
// device and have a handler; responses travel back and have none.
type Command struct {
	ID      uint16
	Name    string
	Format  string // Argument format, e.g. "index=%c"
	Handler CommandHandler
}

// Signature is the "name args" key the host looks the message up by
func (c *Command) Signature() string {
	if c.Format == "" {
		return c.Name
	}
	return c.Name + " " + c.Format
}

// IsResponse reports whether the message is sent by the device
func (c *Command) IsResponse() bool {
	return c.Handler == nil
}

// CommandRegistry assigns IDs in registration order
type CommandRegistry struct {
	mu       sync.RWMutex
	commands []*Command // Indexed by ID
	nameToID map[string]uint16
}

var globalRegistry = NewCommandRegistry()

func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		nameToID: make(map[string]uint16),
	}
}

// RegisterCommand adds a command to the global registry
func RegisterCommand(name string, format string, handler CommandHandler) uint16 {
	return globalRegistry.Register(name, format, handler)
}

// RegisterResponse adds a response to the global registry
func RegisterResponse(name string, format string) uint16 {
	return globalRegistry.Register(name, format, nil)
}

// Register adds a message and returns its ID. Registering a name twice
// returns the first ID.
func (r *CommandRegistry) Register(name string, format string, handler CommandHandler) uint16 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, exists := r.nameToID[name]; exists {
		return id
	}

	id := uint16(len(r.commands))
	r.commands = append(r.commands, &Command{
		ID:      id,
		Name:    name,
		Format:  format,
		Handler: handler,
	})
	r.nameToID[name] = id
	return id
}

// GetCommand looks a message up by ID
func (r *CommandRegistry) GetCommand(id uint16) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id) >= len(r.commands) {
		return nil, false
	}
	return r.commands[id], true
}

// GetCommandByName looks a message up by name
func (r *CommandRegistry) GetCommandByName(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.nameToID[name]
	if !ok {
		return nil, false
	}
	return r.commands[id], true
}

func (r *CommandRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Messages returns commands and responses, each in ID order
func (r *CommandRegistry) Messages() (commands, responses []*Command) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, cmd := range r.commands {
		if cmd.IsResponse() {
			responses = append(responses, cmd)
		} else {
			commands = append(commands, cmd)
		}
	}
	return commands, responses
}

// Dispatch runs the handler of a received command
func (r *CommandRegistry) Dispatch(cmdID uint16, data *[]byte) error {
	cmd, ok := r.GetCommand(cmdID)
	if !ok || cmd.IsResponse() {
		return errors.New("unknown command ID: " + itoa(int(cmdID)))
	}
	return cmd.Handler(data)
}

// DispatchCommand dispatches through the global registry
func DispatchCommand(cmdID uint16, data *[]byte) error {
	return globalRegistry.Dispatch(cmdID, data)
}

func GetGlobalRegistry() *CommandRegistry {
	return globalRegistry
}
