// Package server поднимает gRPC-сервер со стандартным health-сервисом,
// через который оркестратор проверяет воркер регистрации.
package server

import (
	"log/slog"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// RegistrationWorkerService - имя сервиса в health-ответах воркера.
const RegistrationWorkerService = "taskflow.RegistrationWorker"

// HealthServer обслуживает grpc.health.v1.Health.
type HealthServer struct {
	grpcServer *grpc.Server
	health     *health.Server
	listener   net.Listener
	log        *slog.Logger
}

// NewHealthServer создает сервер на переданном listener. Пока не вызван
// SetServing, все сервисы отвечают NOT_SERVING.
func NewHealthServer(lis net.Listener, logger *slog.Logger) *HealthServer {
	grpcServer := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)

	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(RegistrationWorkerService, healthpb.HealthCheckResponse_NOT_SERVING)

	return &HealthServer{
		grpcServer: grpcServer,
		health:     hs,
		listener:   lis,
		log:        logger,
	}
}

// SetServing переключает статус воркера и общего сервиса.
func (s *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(RegistrationWorkerService, status)
	s.log.Debug("health status changed", slog.String("status", status.String()))
}

// Serve блокируется до остановки сервера.
func (s *HealthServer) Serve() error {
	s.log.Info("gRPC health service listening on", slog.String("address", s.listener.Addr().String()))
	return s.grpcServer.Serve(s.listener)
}

// Stop переводит сервисы в NOT_SERVING и мягко останавливает сервер.
func (s *HealthServer) Stop() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}
