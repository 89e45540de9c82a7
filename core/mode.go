package core

import (
	"errors"
	"sync/atomic"
)

var ErrUnknownMode = errors.New("mode is outside the crop table")

// ModeStore owns the active mode. Active may be called from any context;
// Advance and Set belong to the main loop.
type ModeStore struct {
	active atomic.Uint32
	count  uint8
	nvm    NVMDriver
}

// NewModeStore loads the persisted mode, reduced modulo count. Without a
// persisted value the fallback is used.
func NewModeStore(nvm NVMDriver, count uint8, fallback uint8) (*ModeStore, error) {
	if count == 0 {
		return nil, ErrEmptyTable
	}
	if fallback >= count {
		return nil, ErrUnknownMode
	}
	m := &ModeStore{count: count, nvm: nvm}
	mode := fallback
	if nvm != nil {
		mode = ReadPersisted(nvm, fallback) % count
	}
	m.active.Store(uint32(mode))
	return m, nil
}

// Active returns the current mode
func (m *ModeStore) Active() uint8 {
	return uint8(m.active.Load())
}

// Count returns the number of modes
func (m *ModeStore) Count() uint8 {
	return m.count
}

// Advance cycles to the next mode and persists it. The new mode is active
// even if persisting fails; the error is returned so the caller can report it.
func (m *ModeStore) Advance() (uint8, error) {
	next := (m.Active() + 1) % m.count
	return next, m.Set(next)
}

// Set activates a mode and persists it
func (m *ModeStore) Set(mode uint8) error {
	if mode >= m.count {
		return ErrUnknownMode
	}
	old := m.Active()
	m.active.Store(uint32(mode))
	RecordEvent(EvtModeChange, uint32(old), uint32(mode))

	if m.nvm == nil {
		return nil
	}
	if err := WritePersisted(m.nvm, mode); err != nil {
		RecordEvent(EvtNVMError, uint32(mode), 0)
		return err
	}
	return nil
}
