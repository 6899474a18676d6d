package server

import (
	"bytes"
	"chat-rooms/protocol"
	"io"
	"net"
	"time"

	"github.com/gorilla/websocket"
)

// ConnOptions bounds every client connection, whatever its transport.
// A zero timeout disables the matching deadline.
type ConnOptions struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxFrame     int
}

func (o ConnOptions) maxFrame() int {
	if o.MaxFrame <= 0 {
		return protocol.DefaultMaxFrame
	}
	return o.MaxFrame
}

func deadline(timeout time.Duration) time.Time {
	if timeout <= 0 {
		return time.Time{}
	}
	return time.Now().Add(timeout)
}

// NetConn speaks the line protocol over a stream connection (TCP or net.Pipe).
type NetConn struct {
	conn    net.Conn
	decoder *protocol.Decoder
	opts    ConnOptions
}

func NewNetConn(conn net.Conn, opts ConnOptions) *NetConn {
	c := &NetConn{conn: conn, opts: opts}
	c.decoder = protocol.NewDecoder(idleReader{c}, opts.maxFrame())
	return c
}

// idleReader re-arms the read deadline before every read, so the timeout
// measures silence from the peer rather than the length of the session.
type idleReader struct{ c *NetConn }

func (r idleReader) Read(p []byte) (int, error) {
	if err := r.c.conn.SetReadDeadline(deadline(r.c.opts.ReadTimeout)); err != nil {
		return 0, err
	}
	return r.c.conn.Read(p)
}

func (c *NetConn) ReadFrame() ([]byte, error) {
	return c.decoder.ReadFrame()
}

func (c *NetConn) WriteFrame(frame []byte) error {
	if err := c.conn.SetWriteDeadline(deadline(c.opts.WriteTimeout)); err != nil {
		return err
	}
	_, err := c.conn.Write(frame)
	return err
}

func (c *NetConn) Close() error {
	return c.conn.Close()
}

func (c *NetConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// WebSocketConn carries one frame per text message. A message may also hold
// several newline separated frames; they are split like a stream.
//
// Messages are streamed through the splitter chunk by chunk, so a message above
// MaxFrame is reported as a ProtocolError and skipped, never buffered whole.
type WebSocketConn struct {
	ws       *websocket.Conn
	splitter *protocol.Splitter
	opts     ConnOptions
	message  io.Reader
	last     byte
	chunk    []byte
}

func NewWebSocketConn(ws *websocket.Conn, opts ConnOptions) *WebSocketConn {
	return &WebSocketConn{
		ws:       ws,
		splitter: protocol.NewSplitter(opts.maxFrame()),
		opts:     opts,
		chunk:    make([]byte, wsChunkSize),
	}
}

const wsChunkSize = 4096

func (c *WebSocketConn) ReadFrame() ([]byte, error) {
	for {
		if frame, ok, err := c.splitter.Next(); ok {
			return frame, err
		}
		if err := c.ws.SetReadDeadline(deadline(c.opts.ReadTimeout)); err != nil {
			return nil, err
		}
		if c.message == nil {
			_, r, err := c.ws.NextReader()
			if err != nil {
				return nil, err
			}
			c.message, c.last = r, 0
		}
		n, err := c.message.Read(c.chunk)
		if n > 0 {
			c.splitter.Feed(c.chunk[:n])
			c.last = c.chunk[n-1]
		}
		switch {
		case err == io.EOF:
			// the end of a message ends its last frame
			c.message = nil
			if c.last != protocol.Delimiter {
				c.splitter.Feed([]byte{protocol.Delimiter})
			}
		case err != nil:
			return nil, err
		}
	}
}

func (c *WebSocketConn) WriteFrame(frame []byte) error {
	if err := c.ws.SetWriteDeadline(deadline(c.opts.WriteTimeout)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, bytes.TrimSuffix(frame, []byte{protocol.Delimiter}))
}

func (c *WebSocketConn) Close() error {
	return c.ws.Close()
}

func (c *WebSocketConn) RemoteAddr() string {
	return c.ws.RemoteAddr().String()
}
