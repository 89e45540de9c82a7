package core

// NVMDriver is the byte-addressed non-volatile memory that holds the
// persisted mode. Writes may take milliseconds and are only issued from the
// main loop.
type NVMDriver interface {
	ReadByte(addr uint16) (uint8, error)
	WriteByte(addr uint16, value uint8) error
}

// Persisted value layout
const (
	NVMCookie     = 0xAB // Marks a programmed value
	NVMCookieAddr = 0
	NVMValueAddr  = 1
)

// ReadPersisted returns the stored byte, or fallback when the cookie is
// missing or the memory cannot be read
func ReadPersisted(nvm NVMDriver, fallback uint8) uint8 {
	cookie, err := nvm.ReadByte(NVMCookieAddr)
	if err != nil || cookie != NVMCookie {
		return fallback
	}
	value, err := nvm.ReadByte(NVMValueAddr)
	if err != nil {
		return fallback
	}
	return value
}

// WritePersisted stores a byte. The cookie is written only if it is not
// already there, to spare the memory a write cycle.
func WritePersisted(nvm NVMDriver, value uint8) error {
	cookie, err := nvm.ReadByte(NVMCookieAddr)
	if err != nil || cookie != NVMCookie {
		if err := nvm.WriteByte(NVMCookieAddr, NVMCookie); err != nil {
			return err
		}
	}
	return nvm.WriteByte(NVMValueAddr, value)
}
