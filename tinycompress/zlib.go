// Package tinycompress writes zlib streams made of stored (uncompressed)
// deflate blocks. Any zlib reader can inflate them, and the writer needs no
// tables or window, which keeps it within a small microcontroller's RAM.
package tinycompress

import (
	"errors"
	"hash"
	"hash/adler32"
	"io"
)

// maxStored is the largest payload of one stored deflate block
const maxStored = 0xFFFF

var ErrClosed = errors.New("tinycompress: write after close")

// Writer is an io.WriteCloser producing a zlib stream. Input is buffered
// and emitted one stored block at a time; Close emits the final block and
// the Adler-32 trailer.
type Writer struct {
	output     io.Writer
	pending    []byte
	blockSize  int
	adler      hash.Hash32
	headerDone bool
	closed     bool
}

// NewWriter returns a Writer with the largest block size
func NewWriter(w io.Writer) *Writer {
	return NewWriterSize(w, maxStored)
}

// NewWriterSize returns a Writer that emits blocks of at most size bytes,
// bounding the memory it holds
func NewWriterSize(w io.Writer, size int) *Writer {
	if size <= 0 || size > maxStored {
		size = maxStored
	}
	return &Writer{
		output:    w,
		blockSize: size,
		adler:     adler32.New(),
	}
}

// Write buffers p, emitting full blocks as they fill
func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrClosed
	}
	w.adler.Write(p)

	n := len(p)
	for len(p) > 0 {
		room := w.blockSize - len(w.pending)
		if room > len(p) {
			room = len(p)
		}
		w.pending = append(w.pending, p[:room]...)
		p = p[room:]

		// A full block is only written once more input shows it isn't
		// the final one
		if len(w.pending) == w.blockSize && len(p) > 0 {
			if err := w.writeBlock(false); err != nil {
				return n - len(p), err
			}
		}
	}
	return n, nil
}

// Close writes the final block and the checksum. It does not close the
// underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.writeBlock(true); err != nil {
		return err
	}
	sum := w.adler.Sum32()
	_, err := w.output.Write([]byte{byte(sum >> 24), byte(sum >> 16), byte(sum >> 8), byte(sum)})
	return err
}

func (w *Writer) writeBlock(final bool) error {
	if !w.headerDone {
		// CM=8 (deflate), 32K window, default level, FCHECK so the header
		// is a multiple of 31
		if _, err := w.output.Write([]byte{0x78, 0x9C}); err != nil {
			return err
		}
		w.headerDone = true
	}

	var flag byte
	if final {
		flag = 0x01
	}
	length := uint16(len(w.pending))
	nlength := ^length
	header := []byte{flag, byte(length), byte(length >> 8), byte(nlength), byte(nlength >> 8)}
	if _, err := w.output.Write(header); err != nil {
		return err
	}
	if _, err := w.output.Write(w.pending); err != nil {
		return err
	}
	w.pending = w.pending[:0]
	return nil
}

// Compress returns data wrapped in a zlib stream
func Compress(data []byte) []byte {
	var out sliceWriter
	out.buf = make([]byte, 0, len(data)+len(data)/maxStored*5+11)
	w := NewWriter(&out)
	w.Write(data)
	w.Close()
	return out.buf
}

type sliceWriter struct {
	buf []byte
}

func (s *sliceWriter) Write(p []byte) (int, error) {
	s.buf = append(s.buf, p...)
	return len(p), nil
}
