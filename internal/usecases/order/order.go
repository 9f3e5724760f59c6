// Package order implements the order store: create_order, get_order, the
// status listing queries, and the pickup-identifier sampler. This is the
// entry point that creates an Order, its FSMRuntime, and kicks off the
// orchestrator; everything downstream (saga, orchestrator) already exists
// and is reached only through Initializer.
package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	logger "github.com/shortlink-org/go-sdk/logger"
	"github.com/shortlink-org/go-sdk/specification"

	"github.com/shortlink-org/kiosk-oms/internal/domain"
	domaininventory "github.com/shortlink-org/kiosk-oms/internal/domain/inventory"
	"github.com/shortlink-org/kiosk-oms/internal/domain/order"
	"github.com/shortlink-org/kiosk-oms/internal/domain/ports"
)

var (
	ErrItemNotFound    = errors.New("order: catalog item not found")
	ErrItemInactive    = errors.New("order: catalog item is not active")
	ErrInsufficientQty = errors.New("order: requested quantity exceeds available stock")
)

// pickupSampleAttempts bounds the rejection-sampling loop for pickup
// number/pin code generation before falling back to a time-derived value.
const pickupSampleAttempts = 100

// CatalogReader is the order store's narrow view of the catalog: just
// enough to validate a requested line and snapshot its price. Declared
// here, not in domain/ports, so this package never needs the rest of
// InventoryRepository's write surface.
type CatalogReader interface {
	LoadItem(ctx context.Context, itemID uuid.UUID) (domaininventory.ItemLive, error)
	LoadAvailability(ctx context.Context, itemID uuid.UUID) (domaininventory.Availability, error)
}

// Initializer is the order store's narrow view of the orchestrator: only
// the call that starts the FSM for a freshly created order.
type Initializer interface {
	Initialize(ctx context.Context, orderID int64, kioskChannel string) error
}

// RequestedLine is one line of a create-order request, as received from
// the kiosk before catalog resolution.
type RequestedLine struct {
	ItemID   uuid.UUID
	Quantity int32
	Wishes   string
}

// CreateRequest is the input to Store.Create.
type CreateRequest struct {
	Lines      []RequestedLine
	Currency   string
	CustomerID *uuid.UUID
	SessionID  *string
	Kiosk      string
}

// CreateResult mirrors the fields the kiosk API returns on successful
// order creation.
type CreateResult struct {
	OrderID      int64
	Status       order.Status
	PickupNumber string
	PinCode      string
	TotalGross   string
	Currency     string
}

// Store is the order store usecase.
type Store struct {
	orders   ports.OrderRepository
	catalog  CatalogReader
	uow      ports.UnitOfWork
	orch     Initializer
	log      logger.Logger
	lineSpec specification.Specification[lineCheck]
}

func New(orders ports.OrderRepository, catalog CatalogReader, u ports.UnitOfWork, orch Initializer, log logger.Logger) *Store {
	return &Store{orders: orders, catalog: catalog, uow: u, orch: orch, log: log, lineSpec: newLineSpecification()}
}

// Create resolves every requested line against the catalog, computes
// totals, samples pickup identifiers, and persists Order+Items in one
// transaction. Orchestrator.Initialize is invoked only after that
// transaction commits and creates the FSMRuntime row in a transaction of
// its own, so the two writes are not atomic: when Initialize fails, the
// order stays committed without an FSMRuntime row.
func (s *Store) Create(ctx context.Context, req CreateRequest) (CreateResult, error) {
	if len(req.Lines) == 0 {
		return CreateResult{}, order.ErrItemsEmpty
	}

	txCtx, err := s.uow.Begin(ctx)
	if err != nil {
		return CreateResult{}, domain.WrapUnavailable("order.create: begin", err)
	}

	defer func() { _ = s.uow.Rollback(txCtx) }()

	items := make([]order.NewItemRequest, 0, len(req.Lines))

	for i, line := range req.Lines {
		item, err := s.catalog.LoadItem(txCtx, line.ItemID)
		if err != nil {
			if errors.Is(err, ports.ErrNotFound) {
				return CreateResult{}, fmt.Errorf("line %d: %w", i, ErrItemNotFound)
			}

			return CreateResult{}, domain.MapInfraErr("order.create: load item", err)
		}

		availability, err := s.catalog.LoadAvailability(txCtx, line.ItemID)
		if err != nil {
			return CreateResult{}, domain.MapInfraErr("order.create: load availability", err)
		}

		check := lineCheck{item: item, availability: availability, quantity: int64(line.Quantity)}
		if err := s.lineSpec.IsSatisfiedBy(&check); err != nil {
			return CreateResult{}, fmt.Errorf("line %d: %w", i, err)
		}

		items = append(items, order.NewItemRequest{
			CatalogItemID:  line.ItemID,
			NameEN:         item.NameEN,
			NameLocal:      item.NameLocal,
			UnitOfMeasure:  item.UnitOfMeasure,
			UnitPriceNet:   item.PriceNet,
			UnitPriceVAT:   item.PriceVAT,
			UnitPriceGross: item.PriceGross,
			VATRate:        item.VATRate,
			Quantity:       line.Quantity,
			Wishes:         line.Wishes,
		})
	}

	o, err := order.NewOrder(req.Currency, req.Kiosk, req.CustomerID, req.SessionID, items)
	if err != nil {
		return CreateResult{}, err
	}

	now := time.Now().UTC()
	orderDate := now.Truncate(24 * time.Hour)

	pickupNumber, pinCode, err := s.samplePickupIdentifiers(txCtx, orderDate, now)
	if err != nil {
		return CreateResult{}, err
	}

	o.SetPickupIdentifiers(orderDate, pickupNumber, pinCode)

	orderID, err := s.orders.Save(txCtx, o)
	if err != nil {
		return CreateResult{}, domain.MapInfraErr("order.create: save order", err)
	}

	o.ID = orderID

	if err := s.uow.Commit(txCtx); err != nil {
		return CreateResult{}, domain.WrapUnavailable("order.create: commit", err)
	}

	if err := s.orch.Initialize(ctx, orderID, req.Kiosk); err != nil {
		s.log.Error("order.create: orchestrator initialize failed", slog.Int64("order_id", orderID), slog.String("error", err.Error()))
	}

	return CreateResult{
		OrderID:      orderID,
		Status:       o.Status,
		PickupNumber: o.PickupNumber,
		PinCode:      o.PinCode,
		TotalGross:   o.Totals.Gross.StringFixed(2),
		Currency:     o.Currency,
	}, nil
}

// samplePickupIdentifiers draws a random 3-digit pickup number and 4-digit
// pin code and checks PickupIdentifiersTaken for orderDate, retrying up to
// pickupSampleAttempts times. After that many collisions it falls back to
// a value derived from the current time, which is not guaranteed unique
// but collides with vanishing probability in practice.
func (s *Store) samplePickupIdentifiers(ctx context.Context, orderDate, now time.Time) (string, string, error) {
	for attempt := 0; attempt < pickupSampleAttempts; attempt++ {
		pickupNumber := fmt.Sprintf("%03d", rand.Intn(1000))
		pinCode := fmt.Sprintf("%04d", rand.Intn(10000))

		taken, err := s.orders.PickupIdentifiersTaken(ctx, orderDate, pickupNumber, pinCode)
		if err != nil {
			return "", "", domain.MapInfraErr("order.create: check pickup identifiers", err)
		}

		if !taken {
			return pickupNumber, pinCode, nil
		}
	}

	nanos := now.UnixNano()

	return fmt.Sprintf("%03d", nanos%1000), fmt.Sprintf("%04d", (nanos/1000)%10000), nil
}
