package gameserver

import (
	"context"
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// CoordinatorService is the health service name reported for the session coordinator.
const CoordinatorService = "roomsync.SessionCoordinator"

// AdminServer exposes gRPC health checking and reflection on a private port.
type AdminServer struct {
	grpc   *grpc.Server
	health *health.Server
	logger *zap.Logger
}

// NewAdminServer creates an AdminServer with the coordinator marked NOT_SERVING.
//
// Precondition: logger must be non-nil.
func NewAdminServer(logger *zap.Logger) *AdminServer {
	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)
	hs.SetServingStatus(CoordinatorService, healthpb.HealthCheckResponse_NOT_SERVING)
	return &AdminServer{grpc: srv, health: hs, logger: logger}
}

// SetServing flips the coordinator and overall status.
func (a *AdminServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	a.health.SetServingStatus("", status)
	a.health.SetServingStatus(CoordinatorService, status)
}

// Serve marks the coordinator serving and blocks serving on lis.
//
// Postcondition: Returns nil after Stop, or the listener error otherwise.
func (a *AdminServer) Serve(lis net.Listener) error {
	a.SetServing(true)
	a.logger.Info("admin gRPC server listening", zap.String("addr", lis.Addr().String()))
	if err := a.grpc.Serve(lis); err != nil {
		return fmt.Errorf("serving admin gRPC: %w", err)
	}
	return nil
}

// ListenAndServe listens on addr and serves until Stop.
func (a *AdminServer) ListenAndServe(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return a.Serve(lis)
}

// Stop marks every service NOT_SERVING and drains in-flight RPCs until ctx is done.
func (a *AdminServer) Stop(ctx context.Context) error {
	a.health.Shutdown()
	done := make(chan struct{})
	go func() {
		a.grpc.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		a.grpc.Stop()
		return ctx.Err()
	}
}
