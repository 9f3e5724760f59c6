// Package printer provides the receipt-printer gateway adapter. Alongside
// the probabilistic Mockup, FileWriter is a second, file-based variant that
// writes the receipt to disk instead of simulating a physical device.
package printer

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

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

func (m *Mockup) Call(ctx context.Context, req ports.PrinterRequest) (ports.PrinterResponse, error) {
	select {
	case <-time.After(m.cfg.ProcessingDelay):
	case <-ctx.Done():
		return ports.PrinterResponse{Status: ports.PrinterTimeout}, nil
	}

	if rand.Float64() >= m.cfg.SuccessProbability {
		m.log.Warn("printer mockup failed", slog.String("order_id", req.OrderID))

		return ports.PrinterResponse{Status: ports.PrinterFailed, ErrorCode: "JAM", ErrorMessage: "paper jam"}, nil
	}

	m.log.Info("printer mockup succeeded", slog.String("order_id", req.OrderID))

	return ports.PrinterResponse{Status: ports.PrinterSuccess, ReceiptFilePath: fmt.Sprintf("mockup://%s", req.OrderID)}, nil
}

var _ ports.PrinterGateway = (*Mockup)(nil)

// FileWriter writes each receipt to ReceiptsFolder instead of talking to a
// physical printer. It reports success, or ERROR with the write error's
// message when the file cannot be written; there is no random failure,
// for staging environments that want a durable artifact without
// mockup-grade randomness.
type FileWriter struct {
	ReceiptsFolder string
	log            logger.Logger
}

func NewFileWriter(receiptsFolder string, log logger.Logger) *FileWriter {
	return &FileWriter{ReceiptsFolder: receiptsFolder, log: log}
}

func (f *FileWriter) Call(ctx context.Context, req ports.PrinterRequest) (ports.PrinterResponse, error) {
	path := filepath.Join(f.ReceiptsFolder, fmt.Sprintf("%s-%s.receipt", req.OrderID, req.ReceiptType))

	if err := os.WriteFile(path, req.PaymentData, 0o644); err != nil {
		f.log.Error("printer file-writer failed", slog.String("order_id", req.OrderID), slog.String("error", err.Error()))

		return ports.PrinterResponse{Status: ports.PrinterError, ErrorMessage: err.Error()}, nil
	}

	return ports.PrinterResponse{Status: ports.PrinterSuccess, ReceiptFilePath: path}, nil
}

var _ ports.PrinterGateway = (*FileWriter)(nil)
