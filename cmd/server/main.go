package main

import (
	"chat-rooms/auth"
	"chat-rooms/contract"
	"chat-rooms/internal"
	"chat-rooms/moderation"
	"chat-rooms/protocol"
	"chat-rooms/repositories"
	"chat-rooms/repositories/postgres"
	"chat-rooms/runtime"
	"chat-rooms/runtime/workers"
	"chat-rooms/search"
	"chat-rooms/server"
	"chat-rooms/services"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const shutdownNotice = "Server is shutting down. Goodbye!"

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Chat server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// listener is anything cmd/server runs until shutdown.
type listener interface {
	Run(ctx context.Context) error
}

// run wires every component and blocks until a signal or a listener failure.
// Deferred closers run in reverse order of opening before the exit code is returned.
func run() (int, error) {
	// 1. Configuration & Logger
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	censorChar, err := internal.CharacterRune(config.CensorCharacter)
	if err != nil {
		return exitConfig, err
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	// 2. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Persistence
	store, closeStore, err := openStore(ctx, config, logger)
	if err != nil {
		return exitRuntime, err
	}
	defer closeStore()

	// 4. Search & moderation
	index, err := search.Open(config.BlugeFilepath, logger)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open search index: %w", err)
	}
	defer func() {
		logger.Info("Closing Bluge...")
		_ = index.Close()
	}()

	var moderator contract.IModerator
	if config.EnableModeration {
		censored, err := moderation.DefaultLoader().LoadAll("censored")
		if err != nil {
			return exitRuntime, fmt.Errorf("failed to load censored words: %w", err)
		}
		m, err := moderation.NewModerator(censored.Words, censorChar, logger)
		if err != nil {
			return exitRuntime, fmt.Errorf("failed to build moderator: %w", err)
		}
		logger.Info("Moderation enabled", "languages", censored.Languages, "words", len(censored.Words))
		moderator = m
	}

	// 5. Chat engine
	sessions := runtime.NewSessionRegistry()
	rooms := runtime.NewRoomRegistry(store, sessions, runtime.NewBroadcaster(logger), logger, config.HistoryLimit)
	if err := rooms.Hydrate(ctx); err != nil {
		return exitRuntime, fmt.Errorf("room hydration failed: %w", err)
	}
	authService := services.NewAuthService(store, auth.NewPasswordHasher(auth.DefaultParams),
		auth.NewTokenIssuer(config.AuthTokenSecret, config.AuthTokenDuration), sessions, logger)
	chatService := services.NewChatService(rooms, store, moderator, index, logger,
		config.LeaderboardLimit, config.SearchLimit)
	handler := server.NewHandler(authService, chatService, logger)

	// 6. Supervision
	sup := workers.NewSupervisor(logger, config.RestartInterval)
	sup.Add(workers.NewTelemetryWorker(logger, config.MetricInterval, sessions, rooms))
	supervisorDone := make(chan struct{})
	go func() {
		defer close(supervisorDone)
		sup.Run(ctx)
	}()

	// 7. Listeners
	opts := server.ConnOptions{
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		MaxFrame:     config.MaxFrameBytes,
	}
	listeners, err := openListeners(config, handler, opts, logger)
	if err != nil {
		return exitRuntime, err
	}

	// Every listener reports its terminal error, nil included, exactly once
	listenCtx, cancelListeners := context.WithCancel(ctx)
	defer cancelListeners()
	errChan := make(chan error, len(listeners))
	for _, l := range listeners {
		go func() { errChan <- l.Run(listenCtx) }()
	}

	// 8. Wait for Stop or Error
	code, runErr := exitOK, error(nil)
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		code, runErr = exitRuntime, err
		if runErr == nil {
			runErr = fmt.Errorf("listener stopped unexpectedly")
		}
		logger.Error("Listener failed", "error", runErr)
	}

	// 9. Final Cleanup (Graceful Shutdown)
	logger.Info("Shutting down gracefully...")
	cancelListeners()
	remaining := len(listeners)
	if runErr != nil {
		remaining--
	}
	for range remaining {
		if err := <-errChan; err != nil {
			logger.Warn("Listener stopped with error", "error", err)
		}
	}
	for _, room := range rooms.ListRooms() {
		if err := rooms.Broadcast(room.ID, protocol.ServerSender, shutdownNotice, nil); err != nil {
			logger.Warn("Shutdown notice not sent", "room_id", room.ID, "error", err)
		}
	}
	for _, session := range sessions.All() {
		chatService.Disconnect(session)
		_ = session.Close()
	}
	sup.Stop()
	<-supervisorDone
	logger.Info("Program stopped cleanly")
	return code, runErr
}

// openStore returns the configured persistence and the function releasing it.
func openStore(ctx context.Context, config internal.Config, logger *slog.Logger) (contract.IStore, func(), error) {
	if config.StoreDriver == internal.StorePostgres {
		store, err := postgres.Open(ctx, config.PostgresURL, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres opening failed: %w", err)
		}
		return store, func() {
			logger.Info("Closing Postgres pool...")
			_ = store.Close()
		}, nil
	}

	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return nil, nil, fmt.Errorf("database opening failed: %w", err)
	}
	store, err := repositories.NewStore(db, logger)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("store init failed: %w", err)
	}
	return store, func() {
		// Defer ensures the database lock is released and buffers are flushed before the function returns.
		logger.Info("Closing BadgerDB...")
		_ = store.Close()
		_ = db.Close()
	}, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)
	if logger.Enabled(ctx, slog.LevelDebug) {
		return options.WithLoggingLevel(badger.DEBUG)
	}
	return options.WithLoggingLevel(badger.WARNING)
}

// openListeners binds every enabled port before anything is served, so a port
// conflict fails the start instead of a running server.
func openListeners(config internal.Config, handler *server.Handler, opts server.ConnOptions, logger *slog.Logger) ([]listener, error) {
	var bound []io.Closer
	fail := func(err error) ([]listener, error) {
		for _, c := range bound {
			_ = c.Close()
		}
		return nil, err
	}
	listen := func(port int) (net.Listener, error) {
		address := fmt.Sprintf("%s:%d", config.Host, port)
		ln, err := net.Listen("tcp", address)
		if err != nil {
			return nil, fmt.Errorf("failed to listen on %s: %w", address, err)
		}
		bound = append(bound, ln)
		return ln, nil
	}

	ln, err := listen(config.Port)
	if err != nil {
		return fail(err)
	}
	listeners := []listener{server.NewTCPListener(ln, handler, opts, logger)}

	if config.WSPort > 0 {
		ln, err := listen(config.WSPort)
		if err != nil {
			return fail(err)
		}
		listeners = append(listeners, server.NewWebSocketListener(ln, handler, opts, logger))
	}
	if config.HealthPort > 0 {
		ln, err := listen(config.HealthPort)
		if err != nil {
			return fail(err)
		}
		listeners = append(listeners, server.NewHealthServer(ln, logger))
	}
	return listeners, nil
}
