package kiosk_di

import (
	config "github.com/shortlink-org/go-sdk/config"
	"github.com/shortlink-org/go-sdk/db"
	logger "github.com/shortlink-org/go-sdk/logger"
	"github.com/shortlink-org/go-sdk/observability/metrics"
	profiling "github.com/shortlink-org/go-sdk/observability/profiling"
	"go.opentelemetry.io/otel/trace"

	"github.com/shortlink-org/kiosk-oms/internal/domain/ports"
	httpboundary "github.com/shortlink-org/kiosk-oms/internal/infrastructure/http"
	"github.com/shortlink-org/kiosk-oms/internal/usecases/recovery"
)

// KioskOMSService is the fully wired application, handed to cmd/main.go.
// Declared outside both wire.go and wire_gen.go so it compiles under either
// the wireinject tag (used by `wire` to analyze the provider graph) or the
// normal build (which compiles wire_gen.go).
type KioskOMSService struct {
	Log    logger.Logger
	Config *config.Config

	Tracer        trace.TracerProvider
	Monitoring    *metrics.Monitoring
	PprofEndpoint profiling.PprofEndpoint

	DB  db.DB
	UoW ports.UnitOfWork

	Recovery *recovery.Recovery

	OrderHandler *httpboundary.OrderHandler
	SSEHandler   *httpboundary.SSEHandler
}
