package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	domaininventory "github.com/shortlink-org/kiosk-oms/internal/domain/inventory"
	"github.com/shortlink-org/kiosk-oms/internal/domain/order"
	"github.com/shortlink-org/kiosk-oms/internal/domain/ports"
)

type fakeOrderRepo struct {
	mu     sync.Mutex
	nextID int64
	saved  map[int64]*order.Order
	taken  map[string]bool
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{saved: map[int64]*order.Order{}, taken: map[string]bool{}}
}

func (f *fakeOrderRepo) Save(_ context.Context, o *order.Order) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if o.ID == 0 {
		f.nextID++
		o.ID = f.nextID
	}

	cp := *o
	f.saved[o.ID] = &cp
	f.taken[o.PickupNumber+"|"+o.PinCode] = true

	return o.ID, nil
}

func (f *fakeOrderRepo) Load(_ context.Context, id int64) (*order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	o, ok := f.saved[id]
	if !ok {
		return nil, ports.ErrNotFound
	}

	cp := *o

	return &cp, nil
}

func (f *fakeOrderRepo) ListByStatus(context.Context, order.Status, int, int) ([]*order.Order, error) {
	return nil, nil
}

func (f *fakeOrderRepo) CountByStatus(context.Context, order.Status) (int64, error) { return 0, nil }

func (f *fakeOrderRepo) PickupIdentifiersTaken(_ context.Context, _ time.Time, pickupNumber, pinCode string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.taken[pickupNumber+"|"+pinCode], nil
}

type fakeCatalog struct {
	items        map[uuid.UUID]domaininventory.ItemLive
	availability map[uuid.UUID]domaininventory.Availability
}

func (f *fakeCatalog) LoadItem(_ context.Context, itemID uuid.UUID) (domaininventory.ItemLive, error) {
	item, ok := f.items[itemID]
	if !ok {
		return domaininventory.ItemLive{}, ports.ErrNotFound
	}

	return item, nil
}

func (f *fakeCatalog) LoadAvailability(_ context.Context, itemID uuid.UUID) (domaininventory.Availability, error) {
	return f.availability[itemID], nil
}

type fakeUoW struct{}

func (fakeUoW) Begin(ctx context.Context) (context.Context, error) { return ctx, nil }
func (fakeUoW) Commit(context.Context) error                       { return nil }
func (fakeUoW) Rollback(context.Context) error                     { return nil }

type fakeInitializer struct {
	mu    sync.Mutex
	calls []int64
}

func (f *fakeInitializer) Initialize(_ context.Context, orderID int64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, orderID)

	return nil
}

func TestCreateComputesTotalsAndInitializesOrchestrator(t *testing.T) {
	itemID := uuid.New()
	catalog := &fakeCatalog{
		items: map[uuid.UUID]domaininventory.ItemLive{
			itemID: {
				ID: itemID, NameEN: "Burger", NameLocal: "Бургер", UnitOfMeasure: "pcs",
				PriceNet: decimal.NewFromFloat(2.50), PriceVAT: decimal.NewFromFloat(0.50),
				PriceGross: decimal.NewFromFloat(3.00), VATRate: decimal.NewFromFloat(0.20),
				IsActive: true,
			},
		},
		availability: map[uuid.UUID]domaininventory.Availability{
			itemID: {ItemID: itemID, StockQuantity: 10},
		},
	}
	orders := newFakeOrderRepo()
	init := &fakeInitializer{}

	s := New(orders, catalog, fakeUoW{}, init, nil)

	result, err := s.Create(context.Background(), CreateRequest{
		Lines:    []RequestedLine{{ItemID: itemID, Quantity: 2}},
		Currency: "EUR",
		Kiosk:    "kiosk-1",
	})
	require.NoError(t, err)
	require.NotZero(t, result.OrderID)
	require.Equal(t, "6.00", result.TotalGross)
	require.Len(t, result.PickupNumber, 3)
	require.Len(t, result.PinCode, 4)
	require.Equal(t, order.StatusPending, result.Status)

	require.Equal(t, []int64{result.OrderID}, init.calls)

	saved, err := orders.Load(context.Background(), result.OrderID)
	require.NoError(t, err)
	require.True(t, saved.Totals.Gross.Equal(decimal.NewFromFloat(6.00)))
}

func TestCreateRejectsMissingItem(t *testing.T) {
	catalog := &fakeCatalog{items: map[uuid.UUID]domaininventory.ItemLive{}, availability: map[uuid.UUID]domaininventory.Availability{}}
	s := New(newFakeOrderRepo(), catalog, fakeUoW{}, &fakeInitializer{}, nil)

	_, err := s.Create(context.Background(), CreateRequest{
		Lines:    []RequestedLine{{ItemID: uuid.New(), Quantity: 1}},
		Currency: "EUR",
		Kiosk:    "kiosk-1",
	})
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestCreateRejectsInactiveItem(t *testing.T) {
	itemID := uuid.New()
	catalog := &fakeCatalog{
		items:        map[uuid.UUID]domaininventory.ItemLive{itemID: {ID: itemID, IsActive: false}},
		availability: map[uuid.UUID]domaininventory.Availability{itemID: {ItemID: itemID, StockQuantity: 10}},
	}
	s := New(newFakeOrderRepo(), catalog, fakeUoW{}, &fakeInitializer{}, nil)

	_, err := s.Create(context.Background(), CreateRequest{
		Lines:    []RequestedLine{{ItemID: itemID, Quantity: 1}},
		Currency: "EUR",
		Kiosk:    "kiosk-1",
	})
	require.ErrorIs(t, err, ErrItemInactive)
}

func TestCreateRejectsInsufficientStock(t *testing.T) {
	itemID := uuid.New()
	catalog := &fakeCatalog{
		items:        map[uuid.UUID]domaininventory.ItemLive{itemID: {ID: itemID, IsActive: true}},
		availability: map[uuid.UUID]domaininventory.Availability{itemID: {ItemID: itemID, StockQuantity: 1}},
	}
	s := New(newFakeOrderRepo(), catalog, fakeUoW{}, &fakeInitializer{}, nil)

	_, err := s.Create(context.Background(), CreateRequest{
		Lines:    []RequestedLine{{ItemID: itemID, Quantity: 5}},
		Currency: "EUR",
		Kiosk:    "kiosk-1",
	})
	require.ErrorIs(t, err, ErrInsufficientQty)
}

func TestCreateRejectsEmptyRequest(t *testing.T) {
	s := New(newFakeOrderRepo(), &fakeCatalog{}, fakeUoW{}, &fakeInitializer{}, nil)

	_, err := s.Create(context.Background(), CreateRequest{Currency: "EUR", Kiosk: "kiosk-1"})
	require.ErrorIs(t, err, order.ErrItemsEmpty)
}

func TestCreatePickupIdentifiersAreUniquePerDay(t *testing.T) {
	itemID := uuid.New()
	catalog := &fakeCatalog{
		items:        map[uuid.UUID]domaininventory.ItemLive{itemID: {ID: itemID, IsActive: true, PriceNet: decimal.Zero, PriceVAT: decimal.Zero, PriceGross: decimal.Zero, VATRate: decimal.Zero}},
		availability: map[uuid.UUID]domaininventory.Availability{itemID: {ItemID: itemID, StockQuantity: 1000}},
	}
	orders := newFakeOrderRepo()
	s := New(orders, catalog, fakeUoW{}, &fakeInitializer{}, nil)

	seen := map[string]bool{}

	for i := 0; i < 20; i++ {
		result, err := s.Create(context.Background(), CreateRequest{
			Lines:    []RequestedLine{{ItemID: itemID, Quantity: 1}},
			Currency: "EUR",
			Kiosk:    "kiosk-1",
		})
		require.NoError(t, err)

		key := result.PickupNumber + "|" + result.PinCode
		require.False(t, seen[key], "pickup identifier pair reused: %s", key)
		seen[key] = true
	}
}
