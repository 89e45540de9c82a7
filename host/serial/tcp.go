package serial

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// TCPPrefix selects a board reached over TCP, such as retrocrop-sim
// serving its diagnostics link
const TCPPrefix = "tcp://"

// TCPPort is a diagnostics link carried over TCP
type TCPPort struct {
	net.Conn
}

// Flush has nothing to discard; TCP delivers every byte
func (p *TCPPort) Flush() error {
	return nil
}

func isTCP(device string) bool {
	return strings.HasPrefix(device, TCPPrefix)
}

func dialTCP(cfg *Config) (Port, error) {
	addr := strings.TrimPrefix(cfg.Device, TCPPrefix)
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	return &TCPPort{Conn: conn}, nil
}
