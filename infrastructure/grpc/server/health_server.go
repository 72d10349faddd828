package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"presence-chat/contract"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
)

// SweeperService is the health entry tracking the presence sweeper.
const SweeperService = "presence.sweeper"

var (
	_ contract.Worker        = (*HealthServer)(nil)
	_ contract.SweepObserver = (*HealthServer)(nil)
)

// HealthServer exposes the standard gRPC health protocol.
// The overall service is SERVING while the process runs, the sweeper entry
// follows the outcome of the latest sweep.
type HealthServer struct {
	log     *slog.Logger
	address string
	health  *health.Server
}

func NewHealthServer(log *slog.Logger, address string) *HealthServer {
	healthServer := health.NewServer()
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(SweeperService, grpc_health_v1.HealthCheckResponse_SERVING)
	return &HealthServer{log: log, address: address, health: healthServer}
}

// Run listens on the configured address until ctx is canceled.
func (s *HealthServer) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.address, err)
	}
	return s.Serve(ctx, listener)
}

// Serve answers health checks on listener until ctx is canceled.
func (s *HealthServer) Serve(ctx context.Context, listener net.Listener) error {
	grpcServer := grpc.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, s.health)

	errChan := make(chan error, 1)
	go func() {
		s.log.Info("Starting gRPC health server", "address", listener.Addr().String())
		errChan <- grpcServer.Serve(listener)
	}()

	select {
	case <-ctx.Done():
		s.log.Debug("Context done, stopping gRPC health server")
		grpcServer.GracefulStop()
		return nil
	case err := <-errChan:
		if err != nil && err != grpc.ErrServerStopped {
			return fmt.Errorf("gRPC health server error: %w", err)
		}
		return nil
	}
}

// ObserveSweep flips the sweeper entry according to report.
func (s *HealthServer) ObserveSweep(report contract.SweepReport) {
	status := grpc_health_v1.HealthCheckResponse_SERVING
	if !report.Healthy() {
		status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus(SweeperService, status)
}

// Shutdown marks every entry NOT_SERVING ahead of process exit.
func (s *HealthServer) Shutdown() {
	s.health.Shutdown()
}
