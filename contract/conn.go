package contract

// Conn abstracts a framed, bidirectional client connection so the
// connection handler is the same for TCP and WebSocket peers.
type Conn interface {
	// ReadFrame blocks until one complete frame is available.
	// A *protocol.ProtocolError leaves the connection usable; any other error is fatal.
	ReadFrame() ([]byte, error)
	// WriteFrame sends one encoded frame. It is not safe for concurrent use.
	WriteFrame(frame []byte) error
	Close() error
	RemoteAddr() string
}
