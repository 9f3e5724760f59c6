// Package payment provides the card-payment terminal gateway adapter.
package payment

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
	TerminalID         string
	MerchantID         string
}

type Mockup struct {
	cfg Config
	log logger.Logger
}

func NewMockup(cfg Config, log logger.Logger) *Mockup {
	return &Mockup{cfg: cfg, log: log}
}

func (m *Mockup) Call(ctx context.Context, req ports.PaymentRequest) (ports.PaymentResponse, error) {
	select {
	case <-time.After(m.cfg.ProcessingDelay):
	case <-ctx.Done():
		return ports.PaymentResponse{Status: ports.PaymentTimeout}, nil
	}

	now := time.Now()
	base := ports.PaymentResponse{
		OrderID:      req.OrderID,
		TerminalID:   m.cfg.TerminalID,
		MerchantID:   m.cfg.MerchantID,
		Amount:       req.Sum,
		CurrencyCode: "EUR",
		PaymentDate:  now,
		CompletedAt:  now,
	}

	if rand.Float64() >= m.cfg.SuccessProbability {
		m.log.Warn("payment mockup declined", slog.String("order_id", req.OrderID))

		base.Status = ports.PaymentDeclined
		base.ResponseCode = "05"
		base.ResponseMessage = "do not honor"

		return base, nil
	}

	base.Status = ports.PaymentSuccess
	base.PaymentID = uuid.NewString()
	base.TransactionID = uuid.NewString()
	base.AuthCode = "000000"
	base.RRN = uuid.NewString()
	base.ResponseCode = "00"
	base.ResponseMessage = "approved"
	base.ReceiptAvailable = true

	m.log.Info("payment mockup succeeded", slog.String("order_id", req.OrderID))

	return base, nil
}

var _ ports.PaymentGateway = (*Mockup)(nil)
