package handler

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// CartServiceName is the service name reported over grpc.health.v1.
const CartServiceName = "rocketshoes.cart.v1.CartStore"

type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthReporter keeps the gRPC health status in line with the
// persistent store's reachability.
type HealthReporter struct {
	health   *health.Server
	pinger   Pinger
	interval time.Duration
	log      logrus.FieldLogger
	serving  bool
}

func NewHealthReporter(srv *health.Server, pinger Pinger, interval time.Duration, log logrus.FieldLogger) *HealthReporter {
	return &HealthReporter{
		health:   srv,
		pinger:   pinger,
		interval: interval,
		log:      log,
	}
}

// Run pings the store until ctx is done, then marks every service NOT_SERVING.
func (h *HealthReporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			h.health.Shutdown()
			return nil
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}

func (h *HealthReporter) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	pingCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := h.pinger.Ping(pingCtx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		if h.serving {
			h.log.WithError(err).Warn("persistent store unreachable")
		}
	} else if !h.serving {
		h.log.Info("persistent store reachable")
	}
	h.serving = status == healthpb.HealthCheckResponse_SERVING

	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(CartServiceName, status)
	return status
}
