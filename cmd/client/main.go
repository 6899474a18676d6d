package main

import (
	"bufio"
	"chat-rooms/protocol"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress string `envconfig:"CHAT_SERVER_ADDR" default:"localhost:12345"`
	// CHAT_COLOURS enables colorized output
	Colours bool `envconfig:"CHAT_COLOURS" default:"true"`
}

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run connects to the server, prints every frame it receives and sends one
// command per typed line until exit, logout or disconnection.
func run() (int, error) {
	// 1. Load configuration, an optional .env first
	_ = godotenv.Load()
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	// 2. Setup context to handle termination signals (Ctrl+C).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Connect
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", config.ServerAddress)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not connect to server at %s: %w", config.ServerAddress, err)
	}
	defer conn.Close()
	context.AfterFunc(ctx, func() { _ = conn.Close() })

	renderer := NewRenderer(os.Stdout, config.Colours)
	renderer.Println(fmt.Sprintf("Connected to server at %s", config.ServerAddress))

	// 4. Reception loop
	serverGone := make(chan error, 1)
	go func() {
		decoder := protocol.NewDecoder(conn, 0)
		for {
			raw, err := decoder.ReadFrame()
			if err != nil {
				serverGone <- err
				return
			}
			frame, err := protocol.DecodeFrame(raw)
			if err != nil {
				renderer.Println(fmt.Sprintf("Received malformed frame: %s", raw))
				continue
			}
			renderer.Render(frame)
		}
	}()

	// 5. Input loop
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			renderer.Println("Exiting chat client.")
			return exitOK, nil
		case err := <-serverGone:
			if stderrors.Is(err, io.EOF) || ctx.Err() != nil {
				renderer.Println("Disconnected from server.")
				return exitOK, nil
			}
			return exitRuntime, fmt.Errorf("connection lost: %w", err)
		case line, ok := <-lines:
			if !ok {
				return exitOK, nil
			}
			cmd, err := ParseInput(line)
			if stderrors.Is(err, errExit) {
				renderer.Println("Exiting chat client.")
				return exitOK, nil
			}
			if err != nil {
				renderer.Println(err.Error())
				renderer.Prompt()
				continue
			}
			if cmd == nil {
				renderer.Prompt()
				continue
			}
			frame, err := protocol.EncodeCommand(cmd)
			if err != nil {
				renderer.Println(err.Error())
				continue
			}
			if _, err := conn.Write(frame); err != nil {
				return exitRuntime, fmt.Errorf("send failed: %w", err)
			}
		}
	}
}
