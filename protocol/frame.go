// Package protocol implements the newline-delimited JSON wire format spoken
// between chat clients and the server: framing, encoding and the closed set
// of commands a client may send.
package protocol

import (
	"bytes"
	"chat-rooms/errors"
	"fmt"
	"io"
	"iter"
)

const (
	Delimiter       = '\n'
	DefaultMaxFrame = 64 * 1024
	readChunkSize   = 4096
)

// ProtocolError reports a single unusable frame. The stream itself stays usable.
type ProtocolError struct {
	Err   error
	Frame []byte
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %v", e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

func newProtocolError(err error, frame []byte) *ProtocolError {
	return &ProtocolError{Err: err, Frame: frame}
}

// Splitter cuts an arbitrary byte stream into frames.
// Bytes after the last delimiter are kept until the next Feed.
// A frame longer than maxFrame is skipped up to its delimiter and reported once.
type Splitter struct {
	buf        []byte
	maxFrame   int
	discarding bool
}

func NewSplitter(maxFrame int) *Splitter {
	return &Splitter{maxFrame: maxFrame}
}

func (s *Splitter) Feed(p []byte) {
	s.buf = append(s.buf, p...)
}

// Buffered returns the number of bytes waiting for a delimiter.
func (s *Splitter) Buffered() int {
	return len(s.buf)
}

// Next pops the next complete frame. ok is false when more bytes are needed.
// Blank lines are skipped and surrounding whitespace is trimmed.
func (s *Splitter) Next() (frame []byte, ok bool, err error) {
	for {
		i := bytes.IndexByte(s.buf, Delimiter)
		if s.discarding {
			if i < 0 {
				s.buf = s.buf[:0]
				return nil, false, nil
			}
			s.consume(i + 1)
			s.discarding = false
			continue
		}
		if i < 0 {
			if s.maxFrame > 0 && len(s.buf) > s.maxFrame {
				s.buf = s.buf[:0]
				s.discarding = true
				return nil, true, newProtocolError(errors.ErrFrameTooLarge, nil)
			}
			return nil, false, nil
		}
		line := bytes.TrimSpace(s.buf[:i])
		frame = append([]byte(nil), line...)
		s.consume(i + 1)
		if s.maxFrame > 0 && len(frame) > s.maxFrame {
			return nil, true, newProtocolError(errors.ErrFrameTooLarge, nil)
		}
		if len(frame) == 0 {
			continue
		}
		return frame, true, nil
	}
}

// Frames yields every complete frame currently buffered. Ranging over it again
// after another Feed resumes where the previous range stopped.
func (s *Splitter) Frames() iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for {
			frame, ok, err := s.Next()
			if !ok || !yield(frame, err) {
				return
			}
		}
	}
}

func (s *Splitter) consume(n int) {
	s.buf = s.buf[n:]
	if len(s.buf) == 0 {
		s.buf = nil
	}
}

// Decoder reads frames from a blocking reader.
type Decoder struct {
	r        io.Reader
	splitter *Splitter
	chunk    []byte
}

func NewDecoder(r io.Reader, maxFrame int) *Decoder {
	return &Decoder{r: r, splitter: NewSplitter(maxFrame), chunk: make([]byte, readChunkSize)}
}

// ReadFrame returns the next frame, reading from the underlying reader only when
// no complete frame is buffered. An incomplete frame at end of stream is dropped.
func (d *Decoder) ReadFrame() ([]byte, error) {
	for {
		frame, ok, err := d.splitter.Next()
		if ok {
			return frame, err
		}
		n, err := d.r.Read(d.chunk)
		if n > 0 {
			d.splitter.Feed(d.chunk[:n])
		}
		if err != nil {
			if n > 0 && err == io.EOF {
				// drain what this last read completed before reporting the end
				if frame, ok, ferr := d.splitter.Next(); ok {
					return frame, ferr
				}
			}
			return nil, err
		}
	}
}
