// Package kds provides the kitchen display system gateway adapter.
package kds

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	logger "github.com/shortlink-org/go-sdk/logger"

	"github.com/shortlink-org/kiosk-oms/internal/domain/ports"
)

type Config struct {
	SuccessProbability float64
	ProcessingDelay    time.Duration
}

type Mockup struct {
	cfg Config
	log logger.Logger
}

func NewMockup(cfg Config, log logger.Logger) *Mockup {
	return &Mockup{cfg: cfg, log: log}
}

func (m *Mockup) Call(ctx context.Context, req ports.KDSRequest) (ports.KDSResponse, error) {
	select {
	case <-time.After(m.cfg.ProcessingDelay):
	case <-ctx.Done():
		return ports.KDSResponse{Status: ports.GatewayStatusTimeout}, nil
	}

	if rand.Float64() >= m.cfg.SuccessProbability {
		m.log.Warn("kds mockup no response", slog.String("order_id", req.OrderID))

		return ports.KDSResponse{Status: ports.GatewayStatusNotOK, ErrorCode: "KDS_DOWN", ErrorMessage: "kitchen display unreachable"}, nil
	}

	m.log.Info("kds mockup confirmed", slog.String("order_id", req.OrderID))

	return ports.KDSResponse{Status: ports.GatewayStatusOK, KDSTicketID: uuid.NewString(), ReceivedAt: time.Now()}, nil
}

var _ ports.KDSGateway = (*Mockup)(nil)
