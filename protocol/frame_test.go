package protocol

import (
	"chat-rooms/errors"
	stderrors "errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func collect(s *Splitter) ([]string, []error) {
	var frames []string
	var errs []error
	for frame, err := range s.Frames() {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		frames = append(frames, string(frame))
	}
	return frames, errs
}

func TestSplitter_Keeps_Partial_Frame_Between_Feeds(t *testing.T) {
	req := require.New(t)
	s := NewSplitter(DefaultMaxFrame)

	// Given a frame split across two reads
	s.Feed([]byte(`{"command":"he`))

	// When ranging before the delimiter arrives
	frames, errs := collect(s)

	// Then nothing is yielded and the bytes stay buffered
	req.Empty(frames)
	req.Empty(errs)
	req.Equal(14, s.Buffered())

	// When the rest arrives with the start of another frame
	s.Feed([]byte("lp\"}\n{\"command\":"))
	frames, errs = collect(s)

	// Then the completed frame is yielded once and the tail is kept
	req.Equal([]string{`{"command":"help"}`}, frames)
	req.Empty(errs)
	req.Equal(len(`{"command":`), s.Buffered())
}

func TestSplitter_Skips_Blank_Lines_And_Trims(t *testing.T) {
	req := require.New(t)
	s := NewSplitter(DefaultMaxFrame)

	s.Feed([]byte("\n  \r\n {\"a\":1}\r\n\n{\"b\":2}\n"))
	frames, errs := collect(s)

	req.Empty(errs)
	req.Equal([]string{`{"a":1}`, `{"b":2}`}, frames)
	req.Zero(s.Buffered())
}

func TestSplitter_Oversized_Frame_Is_Reported_Once_And_Skipped(t *testing.T) {
	req := require.New(t)
	s := NewSplitter(8)

	// Given a frame longer than the limit without its delimiter yet
	s.Feed([]byte("0123456789"))
	frames, errs := collect(s)
	req.Empty(frames)
	req.Len(errs, 1)
	req.True(stderrors.Is(errs[0], errors.ErrFrameTooLarge))

	// When the rest of that frame and a valid one arrive
	s.Feed([]byte("abcdef\n{\"x\":1}\n"))
	frames, errs = collect(s)

	// Then the oversized remainder is discarded and the next frame survives
	req.Empty(errs)
	req.Equal([]string{`{"x":1}`}, frames)
}

func TestSplitter_Oversized_Complete_Frame(t *testing.T) {
	req := require.New(t)
	s := NewSplitter(4)

	s.Feed([]byte("123456\nok\n"))
	frames, errs := collect(s)

	req.Len(errs, 1)
	var protoErr *ProtocolError
	req.True(stderrors.As(errs[0], &protoErr))
	req.Equal([]string{"ok"}, frames)
}

func TestSplitter_Frames_Is_Restartable(t *testing.T) {
	req := require.New(t)
	s := NewSplitter(DefaultMaxFrame)
	s.Feed([]byte("a\nb\nc\n"))

	// When the first range stops early
	for frame := range s.Frames() {
		req.Equal("a", string(frame))
		break
	}

	// Then a second range resumes after it
	frames, _ := collect(s)
	req.Equal([]string{"b", "c"}, frames)
}

type chunkedReader struct {
	chunks []string
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	if r.chunks[0] == "" {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func TestDecoder_ReadFrame(t *testing.T) {
	req := require.New(t)
	dec := NewDecoder(&chunkedReader{chunks: []string{"{\"a\"", ":1}\n{\"b\":2}\n{\"c\"", ":3}\n", "tail"}}, DefaultMaxFrame)

	frame, err := dec.ReadFrame()
	req.NoError(err)
	req.Equal(`{"a":1}`, string(frame))

	frame, err = dec.ReadFrame()
	req.NoError(err)
	req.Equal(`{"b":2}`, string(frame))

	frame, err = dec.ReadFrame()
	req.NoError(err)
	req.Equal(`{"c":3}`, string(frame))

	// Then the unterminated tail is dropped at end of stream
	_, err = dec.ReadFrame()
	req.ErrorIs(err, io.EOF)
}

func TestDecoder_Last_Read_With_EOF(t *testing.T) {
	req := require.New(t)
	dec := NewDecoder(strings.NewReader("{\"a\":1}\n"), DefaultMaxFrame)

	frame, err := dec.ReadFrame()
	req.NoError(err)
	req.Equal(`{"a":1}`, string(frame))

	_, err = dec.ReadFrame()
	req.ErrorIs(err, io.EOF)
}
