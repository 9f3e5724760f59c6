//go:generate wire
//go:build wireinject

// The build tag makes sure the stub is not built in the final build.

/*
kiosk-oms DI package
*/
package kiosk_di

import (
	"context"

	"github.com/google/wire"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/rueidis"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"

	config "github.com/shortlink-org/go-sdk/config"
	sdkctx "github.com/shortlink-org/go-sdk/context"
	"github.com/shortlink-org/go-sdk/db"
	logger "github.com/shortlink-org/go-sdk/logger"
	"github.com/shortlink-org/go-sdk/observability/metrics"
	profiling "github.com/shortlink-org/go-sdk/observability/profiling"
	"github.com/shortlink-org/go-sdk/observability/tracing"

	"github.com/shortlink-org/kiosk-oms/internal/domain/ports"
	httpboundary "github.com/shortlink-org/kiosk-oms/internal/infrastructure/http"
	"github.com/shortlink-org/kiosk-oms/internal/infrastructure/bus"
	"github.com/shortlink-org/kiosk-oms/internal/infrastructure/catalog"
	fiscalgw "github.com/shortlink-org/kiosk-oms/internal/infrastructure/gateways/fiscal"
	kdsgw "github.com/shortlink-org/kiosk-oms/internal/infrastructure/gateways/kds"
	paymentgw "github.com/shortlink-org/kiosk-oms/internal/infrastructure/gateways/payment"
	printergw "github.com/shortlink-org/kiosk-oms/internal/infrastructure/gateways/printer"
	kafkaoutbox "github.com/shortlink-org/kiosk-oms/internal/infrastructure/kafka"
	inventoryrepo "github.com/shortlink-org/kiosk-oms/internal/infrastructure/repository/postgres/inventory"
	lifecyclerepo "github.com/shortlink-org/kiosk-oms/internal/infrastructure/repository/postgres/lifecycle"
	orderrepo "github.com/shortlink-org/kiosk-oms/internal/infrastructure/repository/postgres/order"
	runtimerepo "github.com/shortlink-org/kiosk-oms/internal/infrastructure/repository/postgres/runtime"
	"github.com/shortlink-org/kiosk-oms/internal/infrastructure/repository/postgres/uow"
	inventoryuc "github.com/shortlink-org/kiosk-oms/internal/usecases/inventory"
	orderuc "github.com/shortlink-org/kiosk-oms/internal/usecases/order"
	"github.com/shortlink-org/kiosk-oms/internal/usecases/orchestrator"
	"github.com/shortlink-org/kiosk-oms/internal/usecases/recovery"
	"github.com/shortlink-org/kiosk-oms/internal/usecases/saga"
)

var CustomDefaultSet = wire.NewSet(
	sdkctx.New,
	newGoSDKProfiling,
)

var KioskOMSSet = wire.NewSet(
	CustomDefaultSet,

	newGoSDKConfig,
	newGoSDKLogger,
	newGoSDKTracer,
	newGoSDKMonitoring,

	newDatabase,
	wire.FieldsOf(new(*metrics.Monitoring), "Metrics"),

	newRedisClient,
	newUnitOfWork,
	wire.Bind(new(ports.UnitOfWork), new(*uow.PostgresUoW)),

	newOrderRepository,
	newInventoryRepository,
	newRuntimeRepository,
	newLifecycleRepository,
	wire.Bind(new(ports.OrderRepository), new(*orderrepo.Store)),
	wire.Bind(new(ports.InventoryRepository), new(*inventoryrepo.Store)),
	wire.Bind(new(ports.RuntimeRepository), new(*runtimerepo.Store)),

	newCatalogStore,
	newKafkaPublisher,
	newAuditLifecycleRepository,
	wire.Bind(new(ports.LifecycleLogRepository), new(*kafkaoutbox.AuditRepository)),

	bus.New,
	wire.Bind(new(ports.EventPublisher), new(*bus.Bus)),
	wire.Bind(new(ports.EventSubscriber), new(*bus.Bus)),

	newFiscalGateway,
	newPaymentGateway,
	newPrinterGateway,
	newKDSGateway,

	inventoryuc.New,
	newOrchestratorAndSaga,

	orderuc.New,
	recovery.New,

	httpboundary.NewOrderHandler,
	httpboundary.NewSSEHandler,

	NewKioskOMSService,
)

func newGoSDKConfig() (*config.Config, error) {
	return config.New()
}

func newGoSDKLogger(ctx context.Context, cfg *config.Config) (logger.Logger, func(), error) {
	return logger.NewDefault(ctx, cfg)
}

func newGoSDKTracer(ctx context.Context, log logger.Logger, cfg *config.Config) (trace.TracerProvider, func(), error) {
	return tracing.New(ctx, log, cfg)
}

func newGoSDKMonitoring(ctx context.Context, log logger.Logger, tracer trace.TracerProvider, cfg *config.Config) (*metrics.Monitoring, func(), error) {
	return metrics.New(ctx, log, tracer, cfg)
}

func newGoSDKProfiling(ctx context.Context, log logger.Logger, tracer trace.TracerProvider, cfg *config.Config) (profiling.PprofEndpoint, error) {
	return profiling.New(ctx, log, tracer, cfg)
}

func newDatabase(ctx context.Context, log logger.Logger, tracer trace.TracerProvider, meterProvider *sdkmetric.MeterProvider, cfg *config.Config) (db.DB, error) {
	return db.New(ctx, log, tracer, meterProvider, cfg)
}

func newUnitOfWork(store db.DB) (*uow.PostgresUoW, error) {
	pool, ok := store.GetConn().(*pgxpool.Pool)
	if !ok {
		return nil, db.ErrGetConnection
	}

	return uow.New(pool), nil
}

func newOrderRepository(ctx context.Context, store db.DB) (*orderrepo.Store, error) {
	return orderrepo.New(ctx, store)
}

func newInventoryRepository(ctx context.Context, store db.DB) (*inventoryrepo.Store, error) {
	return inventoryrepo.New(ctx, store)
}

func newRuntimeRepository(ctx context.Context, store db.DB) (*runtimerepo.Store, error) {
	return runtimerepo.New(ctx, store)
}

func newLifecycleRepository(ctx context.Context, store db.DB) (*lifecyclerepo.Store, error) {
	return lifecyclerepo.New(ctx, store)
}

func newRedisClient(cfg *config.Config) (rueidis.Client, func(), error) {
	redisURI := cfg.GetString("STORE_REDIS_URI")
	if redisURI == "" {
		redisURI = "localhost:6379"
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{InitAddress: []string{redisURI}})
	if err != nil {
		return nil, nil, err
	}

	return client, client.Close, nil
}

func newCatalogStore(repo *inventoryrepo.Store, client rueidis.Client, log logger.Logger) (*catalog.Store, error) {
	return catalog.New(repo, client, log)
}

func newKafkaPublisher(log logger.Logger, cfg *config.Config) (*kafkaoutbox.LifecyclePublisher, func()) {
	panic("wireinject stub")
}

func newAuditLifecycleRepository(inner *lifecyclerepo.Store, pub *kafkaoutbox.LifecyclePublisher, log logger.Logger) *kafkaoutbox.AuditRepository {
	return kafkaoutbox.NewAuditRepository(inner, pub, log)
}

func newFiscalGateway(cfg *config.Config, log logger.Logger) ports.FiscalGateway {
	return fiscalgw.NewMockup(fiscalgw.Config{}, log)
}

func newPaymentGateway(cfg *config.Config, log logger.Logger) ports.PaymentGateway {
	return paymentgw.NewMockup(paymentgw.Config{}, log)
}

func newPrinterGateway(cfg *config.Config, log logger.Logger) ports.PrinterGateway {
	return printergw.NewMockup(printergw.Config{}, log)
}

func newKDSGateway(cfg *config.Config, log logger.Logger) ports.KDSGateway {
	return kdsgw.NewMockup(kdsgw.Config{}, log)
}

// newOrchestratorAndSaga resolves the two-way Orchestrator/Saga dependency
// (the orchestrator dispatches into the saga's entry handlers; the saga
// submits events back into the orchestrator) as one opaque provider: wire
// cannot express a constructor cycle, so this function does the breaking
// indirection itself (see wire_gen.go's dispatcherProxy) and hands back
// both fully-wired values.
func newOrchestratorAndSaga(
	orders ports.OrderRepository,
	runtimes ports.RuntimeRepository,
	lifecycle ports.LifecycleLogRepository,
	u ports.UnitOfWork,
	publisher ports.EventPublisher,
	stock *inventoryuc.Ledger,
	fiscal ports.FiscalGateway,
	payment ports.PaymentGateway,
	printer ports.PrinterGateway,
	kds ports.KDSGateway,
	log logger.Logger,
) (*orchestrator.Orchestrator, *saga.Saga) {
	panic("wireinject stub")
}

func NewKioskOMSService(
	log logger.Logger,
	cfg *config.Config,
	tracer trace.TracerProvider,
	monitoring *metrics.Monitoring,
	pprofHTTP profiling.PprofEndpoint,
	database db.DB,
	unitOfWork ports.UnitOfWork,
	rec *recovery.Recovery,
	orderHandler *httpboundary.OrderHandler,
	sseHandler *httpboundary.SSEHandler,
) (*KioskOMSService, error) {
	return &KioskOMSService{
		Log:           log,
		Config:        cfg,
		Tracer:        tracer,
		Monitoring:    monitoring,
		PprofEndpoint: pprofHTTP,
		DB:            database,
		UoW:           unitOfWork,
		Recovery:      rec,
		OrderHandler:  orderHandler,
		SSEHandler:    sseHandler,
	}, nil
}

func InitializeKioskOMSService() (*KioskOMSService, func(), error) {
	panic(wire.Build(KioskOMSSet))
}
