package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	WebSocketPath   = "/ws"
	shutdownTimeout = 5 * time.Second
)

// WebSocketListener serves the same protocol to browser clients, one frame per
// text message.
type WebSocketListener struct {
	listener net.Listener
	handler  *Handler
	opts     ConnOptions
	log      *slog.Logger
	upgrader websocket.Upgrader

	// mu orders wg.Add against the wait in Run: no upgrade starts once closing is set
	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
}

func NewWebSocketListener(listener net.Listener, handler *Handler, opts ConnOptions, log *slog.Logger) *WebSocketListener {
	return &WebSocketListener{
		listener: listener,
		handler:  handler,
		opts:     opts,
		log:      log.With("listener", "websocket"),
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
	}
}

func (l *WebSocketListener) Addr() net.Addr {
	return l.listener.Addr()
}

func (l *WebSocketListener) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc(WebSocketPath, func(w http.ResponseWriter, r *http.Request) {
		l.serveWebSocket(ctx, w, r)
	})
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errChan := make(chan error, 1)
	go func() {
		l.log.Info("Accepting connections", "address", l.listener.Addr().String(), "path", WebSocketPath)
		if err := srv.Serve(l.listener); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("websocket server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errChan:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	// hijacked connections are not tracked by Shutdown
	l.mu.Lock()
	l.closing = true
	l.mu.Unlock()
	l.wg.Wait()
	l.log.Info("Listener closed")
	return err
}

func (l *WebSocketListener) serveWebSocket(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}
	if !l.track() {
		http.Error(w, "Server is shutting down.", http.StatusServiceUnavailable)
		return
	}
	defer l.wg.Done()
	ws, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.log.Warn("WebSocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	l.handler.Serve(ctx, NewWebSocketConn(ws, l.opts))
}

// track registers one more connection unless the listener is closing.
func (l *WebSocketListener) track() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closing {
		return false
	}
	l.wg.Add(1)
	return true
}
