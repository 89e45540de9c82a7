package sim

import (
	"errors"
	"io"
	"net"

	"retrocrop/core"
	"retrocrop/protocol"
)

// Link serves the firmware diagnostics commands of a Sim over a byte
// stream, the way a target serves them over its UART or USB port. The
// command registry is process-wide, so only one Link may be active.
type Link struct {
	sim    *Sim
	conn   io.ReadWriter
	input  *protocol.FifoBuffer
	output *protocol.ScratchOutput
	tr     *protocol.Transport
	err    error
}

// NewLink registers the diagnostics commands for s and binds them to conn
func (s *Sim) NewLink(conn io.ReadWriter) *Link {
	l := &Link{
		sim:    s,
		conn:   conn,
		input:  protocol.NewFifoBuffer(protocol.ScratchSize),
		output: protocol.NewScratchOutput(),
	}

	s.mu.Lock()
	core.InitDiagnosticCommands(s.Firmware)
	s.mu.Unlock()
	core.RegisterConstant("MCU", "sim")
	core.RegisterConstant("CLOCK_FREQ", uint32(core.LoopClockFreq))
	core.RegisterConstant("STANDARD", s.Standard.Name)

	l.tr = protocol.NewTransport(l.output, core.DispatchCommand)
	l.tr.SetFlushCallback(l.flush)
	core.SetGlobalTransport(l.tr)

	// The link stays up across a reset, as a UART would
	core.SetResetHandler(func() {
		if err := s.boot(); err != nil {
			core.DebugPrintln("[SIM] reboot failed: " + err.Error())
			return
		}
		core.InitDiagnosticCommands(s.Firmware)
	})
	return l
}

// Serve answers commands until the stream ends. A closed stream is not an
// error.
func (l *Link) Serve() error {
	buf := make([]byte, 64)
	for {
		n, err := l.conn.Read(buf)
		if n > 0 {
			l.input.Write(buf[:n])
			l.receive()
			if l.err != nil {
				return l.err
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
	}
}

func (l *Link) receive() {
	l.sim.mu.Lock()
	defer l.sim.mu.Unlock()

	l.tr.Receive(l.input)
	core.CheckPendingReset()
	l.flush()
}

func (l *Link) flush() {
	out := l.output.Result()
	if len(out) == 0 || l.err != nil {
		l.output.Reset()
		return
	}
	_, l.err = l.conn.Write(out)
	l.output.Reset()
}
