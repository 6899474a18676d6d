package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"

	grpc2 "github.com/mama165/sdk-go/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthServiceName is the service reported next to the server-wide "" entry.
const HealthServiceName = "chat-rooms"

// HealthServer exposes the standard gRPC health service. It reports SERVING
// while Run is active and NOT_SERVING once shutdown begins.
type HealthServer struct {
	listener net.Listener
	server   *grpc.Server
	health   *health.Server
	log      *slog.Logger
}

func NewHealthServer(listener net.Listener, log *slog.Logger) *HealthServer {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(grpc2.UnaryLoggingInterceptor(log)))
	h := health.NewServer()
	healthpb.RegisterHealthServer(s, h)
	return &HealthServer{listener: listener, server: s, health: h, log: log.With("listener", "health")}
}

func (s *HealthServer) Addr() net.Addr {
	return s.listener.Addr()
}

func (s *HealthServer) Run(ctx context.Context) error {
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(HealthServiceName, healthpb.HealthCheckResponse_SERVING)

	errChan := make(chan error, 1)
	go func() {
		s.log.Info("Starting gRPC health server", "address", s.listener.Addr().String())
		if err := s.server.Serve(s.listener); err != nil && !stderrors.Is(err, grpc.ErrServerStopped) {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errChan:
		return err
	}
	s.health.Shutdown()
	s.server.GracefulStop()
	s.log.Info("Health server stopped")
	return nil
}
