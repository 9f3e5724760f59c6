// Package fiscal provides the fiscal-device gateway adapter. Mockup is the
// only variant implemented here — a real certified-device driver is
// provider-specific; Mockup exists so the saga handler has something to
// call end to end.
package fiscal

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	logger "github.com/shortlink-org/go-sdk/logger"

	"github.com/shortlink-org/kiosk-oms/internal/domain/ports"
)

// Config drives the mockup's behavior; all fields are environment-driven.
type Config struct {
	SuccessProbability float64       // 0..1
	ProcessingDelay    time.Duration // synthetic device latency
}

// Mockup is a pure client: no retries, no state beyond the synthetic delay
// and local logging. Retry policy belongs to the saga handler, not here.
type Mockup struct {
	cfg Config
	log logger.Logger
}

func NewMockup(cfg Config, log logger.Logger) *Mockup {
	return &Mockup{cfg: cfg, log: log}
}

// Call blocks for the configured synthetic delay, then returns OK or
// NOT_OK according to SuccessProbability. If ctx is done first, it returns
// ctx.Err() instead.
func (m *Mockup) Call(ctx context.Context, req ports.FiscalRequest) (ports.FiscalResponse, error) {
	select {
	case <-time.After(m.cfg.ProcessingDelay):
	case <-ctx.Done():
		return ports.FiscalResponse{}, ctx.Err()
	}

	if rand.Float64() >= m.cfg.SuccessProbability {
		m.log.Warn("fiscal mockup declined", slog.String("order_id", req.OrderID))

		return ports.FiscalResponse{
			Status:       ports.GatewayStatusNotOK,
			ErrorCode:    "03",
			ErrorMessage: "fiscal device rejected the request",
		}, nil
	}

	receipt := &ports.FiscalReceiptPayload{
		OFDRegNumber:      fmt.Sprintf("OFD-%s", req.OrderID),
		FiscalDocumentNum: fmt.Sprintf("FD-%s", req.OrderID),
		FNNumber:          "FN-0000000001",
		OrderID:           req.OrderID,
		IssuedAt:          time.Now(),
		Items:             req.Items,
		TotalNet:          req.TotalNet,
		TotalVAT:          req.TotalVAT,
		TotalGross:        req.TotalGross,
		Message:           "OK",
	}

	m.log.Info("fiscal mockup succeeded", slog.String("order_id", req.OrderID))

	return ports.FiscalResponse{Status: ports.GatewayStatusOK, Receipt: receipt}, nil
}

var _ ports.FiscalGateway = (*Mockup)(nil)
