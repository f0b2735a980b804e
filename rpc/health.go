// rpc/health.go
package rpc

import (
	"net"

	"github.com/wfunc/phrasegame/logger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported for the game server.
const ServiceName = "phrasegame"

// HealthServer serves grpc.health.v1 for load balancers and orchestrators.
type HealthServer struct {
	listener net.Listener
	server   *grpc.Server
	health   *health.Server
}

func NewHealthServer(addr string) (*HealthServer, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	server := grpc.NewServer()
	healthpb.RegisterHealthServer(server, hs)
	return &HealthServer{listener: listener, server: server, health: hs}, nil
}

func (h *HealthServer) Addr() string {
	return h.listener.Addr().String()
}

// Start 阻塞直到 Stop 被调用
func (h *HealthServer) Start() error {
	logger.Log.Infof("gRPC health server listening on %s", h.Addr())
	return h.server.Serve(h.listener)
}

// SetServing flips the reported status of the game service.
func (h *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus(ServiceName, status)
}

// Stop marks every service NOT_SERVING and drains in-flight calls.
func (h *HealthServer) Stop() {
	logger.Log.Info("Stopping gRPC health server.")
	h.health.Shutdown()
	h.server.GracefulStop()
}
