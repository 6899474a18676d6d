package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"
)

// keepAlive probes silent peers so a half-open connection, which would hold its
// user's single session until READ_TIMEOUT, is detected within about a minute.
var keepAlive = net.KeepAliveConfig{Enable: true, Idle: 30 * time.Second, Interval: 10 * time.Second, Count: 3}

// TCPListener accepts line protocol clients, one goroutine per connection.
type TCPListener struct {
	listener net.Listener
	handler  *Handler
	opts     ConnOptions
	log      *slog.Logger
	wg       sync.WaitGroup
}

func NewTCPListener(listener net.Listener, handler *Handler, opts ConnOptions, log *slog.Logger) *TCPListener {
	return &TCPListener{listener: listener, handler: handler, opts: opts, log: log.With("listener", "tcp")}
}

func (l *TCPListener) Addr() net.Addr {
	return l.listener.Addr()
}

// Run accepts until ctx is cancelled, then waits for every connection to finish
// its cleanup. Cancelling ctx also closes the live connections.
func (l *TCPListener) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = l.listener.Close() })
	defer stop()
	defer l.wg.Wait()

	l.log.Info("Accepting connections", "address", l.listener.Addr().String())
	for {
		conn, err := l.listener.Accept()
		if err != nil {
			if ctx.Err() != nil || stderrors.Is(err, net.ErrClosed) {
				l.log.Info("Listener closed")
				return nil
			}
			return fmt.Errorf("accept failed: %w", err)
		}
		if err := enableKeepAlive(conn); err != nil {
			l.log.Warn("Keepalive not enabled", "remote", conn.RemoteAddr().String(), "error", err)
		}
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			l.handler.Serve(ctx, NewNetConn(conn, l.opts))
		}()
	}
}

func enableKeepAlive(conn net.Conn) error {
	tcp, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}
	return tcp.SetKeepAliveConfig(keepAlive)
}
