// Package grpc hosts the gRPC listener: the standard health service plus
// server reflection, behind the bearer token interceptor.
package grpc

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"rental-order-backend/internal/api/grpc/interceptor"
	"rental-order-backend/internal/security"
)

// ServiceName is the health key reported for the order backend
const ServiceName = "rental.OrderService"

func NewServer(tm security.TokenManager) (*grpc.Server, *health.Server) {
	auth := interceptor.NewAuthInterceptor(tm)
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(interceptor.Logging(), auth.Unary()),
		grpc.ChainStreamInterceptor(auth.Stream()),
	)

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	return srv, hs
}
