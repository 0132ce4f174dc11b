package health

import (
	"context"
	"net"

	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"submission_service/pkg/logging"
	"submission_service/pkg/metadata"
)

const ServiceName = "submission.SubmissionService"

// Server exposes the standard gRPC health protocol so orchestrators can
// probe the service alongside the HTTP API.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	logger *logging.Logger
}

func NewServer(logger *logging.Logger) *Server {
	interceptor := grpc_middleware.ChainUnaryServer(
		metadata.NewMetadataUnaryInterceptor(),
		logging.NewUnaryLoggingInterceptor(logger),
	)

	srv := grpc.NewServer(grpc.UnaryInterceptor(interceptor))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	return &Server{grpc: srv, health: hs, logger: logger}
}

func (s *Server) Serve(lis net.Listener) error {
	s.SetServing(true)
	s.logger.Info(context.Background(), "Starting gRPC health server", zap.String("address", lis.Addr().String()))
	return s.grpc.Serve(lis)
}

func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Stop reports NOT_SERVING to watchers before draining connections.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
