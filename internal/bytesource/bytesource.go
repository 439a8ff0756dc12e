// Package bytesource provides uniform sequential byte access over files,
// zip archive entries, and in-memory buffers. Every Source
// returned by the Open* constructors must be closed by the caller on all
// exit paths; Source itself never outlives the scope it was opened in.
package bytesource

import (
	"archive/zip"
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"os"

	"github.com/corescan/jscan/internal/diagnostic"
)

// Source is a sequential big-endian byte reader with a known length and a
// one-byte lookahead, closed via Close.
type Source struct {
	label  string
	length int64
	read   int64
	r      *bufio.Reader
	closer io.Closer
}

// Label identifies the source for diagnostics (a file path, "jar:entry", or
// an in-memory buffer's caller-supplied name).
func (s *Source) Label() string { return s.label }

// Length returns the total byte length of the source.
func (s *Source) Length() int64 { return s.length }

// Close releases any underlying OS resources. Safe to call on a buffer
// source (a no-op) and safe to call more than once.
func (s *Source) Close() error {
	if s.closer == nil {
		return nil
	}
	c := s.closer
	s.closer = nil
	return c.Close()
}

// OpenFile opens a regular file on disk as a Source.
func OpenFile(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &diagnostic.IoError{Source: path, Err: err}
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &diagnostic.IoError{Source: path, Err: err}
	}
	return &Source{
		label:  path,
		length: info.Size(),
		r:      bufio.NewReader(f),
		closer: f,
	}, nil
}

// OpenZipEntry opens one entry of an already-open zip archive as a Source.
// The label is "archivePath:entryName" for diagnostics.
func OpenZipEntry(archivePath string, entry *zip.File) (*Source, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, &diagnostic.IoError{Source: archivePath + ":" + entry.Name, Err: err}
	}
	return &Source{
		label:  archivePath + ":" + entry.Name,
		length: int64(entry.UncompressedSize64),
		r:      bufio.NewReader(rc),
		closer: rc,
	}, nil
}

// OpenBuffer wraps an in-memory byte slice (a Root.Buffer) as a Source.
// Closing it is a no-op.
func OpenBuffer(label string, data []byte) *Source {
	return &Source{
		label:  label,
		length: int64(len(data)),
		r:      bufio.NewReader(bytes.NewReader(data)),
	}
}

func (s *Source) fail(reason string) error {
	return &diagnostic.FormatError{Source: s.label, Reason: reason}
}

func (s *Source) ioFail(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return s.fail("unexpected end of stream")
	}
	return &diagnostic.IoError{Source: s.label, Err: err}
}

// ReadN reads exactly n bytes. Running out of data fails with a
// FormatError ("unexpected end of stream"); any other read failure is an
// IoError.
func (s *Source) ReadN(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(s.r, buf); err != nil {
		return nil, s.ioFail(err)
	}
	s.read += int64(n)
	return buf, nil
}

// Skip advances n bytes without retaining them.
func (s *Source) Skip(n int64) error {
	if n <= 0 {
		return nil
	}
	if _, err := io.CopyN(io.Discard, s.r, n); err != nil {
		return s.ioFail(err)
	}
	s.read += n
	return nil
}

// U8 reads one unsigned byte.
func (s *Source) U8() (uint8, error) {
	b, err := s.r.ReadByte()
	if err != nil {
		return 0, s.ioFail(err)
	}
	s.read++
	return b, nil
}

// U16 reads a big-endian unsigned 16-bit value.
func (s *Source) U16() (uint16, error) {
	buf, err := s.ReadN(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf), nil
}

// U32 reads a big-endian unsigned 32-bit value.
func (s *Source) U32() (uint32, error) {
	buf, err := s.ReadN(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf), nil
}

// PeekByte returns the next byte without consuming it. The second return
// value is false at end of stream.
func (s *Source) PeekByte() (byte, bool) {
	b, err := s.r.Peek(1)
	if err != nil {
		return 0, false
	}
	return b[0], true
}
