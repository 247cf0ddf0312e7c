package infrastructure

import (
	"fmt"
	"net"
	"sync"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// RaffleHealthService is the overall service name reported by the health server
const RaffleHealthService = "raffle"

// HealthServer exposes the standard gRPC health protocol. The overall service is
// NOT_SERVING while any raffle round is stuck; each raffle also has its own entry.
type HealthServer struct {
	addr   string
	server *grpc.Server
	health *health.Server
	mu     sync.Mutex
	stuck  map[int64]bool
}

// NewHealthServer creates a health server listening on addr once started
func NewHealthServer(addr string) *HealthServer {
	hs := health.NewServer()
	hs.SetServingStatus(RaffleHealthService, healthpb.HealthCheckResponse_SERVING)

	server := grpc.NewServer()
	healthpb.RegisterHealthServer(server, hs)

	return &HealthServer{
		addr:   addr,
		server: server,
		health: hs,
		stuck:  make(map[int64]bool),
	}
}

// RaffleServiceName is the health entry of a single raffle
func RaffleServiceName(raffleID int64) string {
	return fmt.Sprintf("%s.%d", RaffleHealthService, raffleID)
}

// SetStuck records the watchdog verdict for a raffle
func (h *HealthServer) SetStuck(raffleID int64, stuck bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if stuck {
		h.stuck[raffleID] = true
	} else {
		delete(h.stuck, raffleID)
	}

	h.health.SetServingStatus(RaffleServiceName(raffleID), servingStatus(!stuck))
	h.health.SetServingStatus(RaffleHealthService, servingStatus(len(h.stuck) == 0))
}

// Start listens and serves in the background
func (h *HealthServer) Start() error {
	lis, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", h.addr, err)
	}

	go func() {
		if err := h.server.Serve(lis); err != nil {
			log.WithError(err).Error("Health server stopped")
		}
	}()

	log.WithField("addr", lis.Addr().String()).Info("gRPC health server started")
	return nil
}

// Stop marks everything NOT_SERVING and stops the server
func (h *HealthServer) Stop() {
	h.health.Shutdown()
	h.server.GracefulStop()
}

func servingStatus(ok bool) healthpb.HealthCheckResponse_ServingStatus {
	if ok {
		return healthpb.HealthCheckResponse_SERVING
	}
	return healthpb.HealthCheckResponse_NOT_SERVING
}
