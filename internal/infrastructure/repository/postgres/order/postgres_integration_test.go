//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shortlink-org/kiosk-oms/internal/domain"
	"github.com/shortlink-org/kiosk-oms/internal/domain/order"
	orderrepo "github.com/shortlink-org/kiosk-oms/internal/infrastructure/repository/postgres/order"
	"github.com/shortlink-org/kiosk-oms/internal/infrastructure/repository/postgres/testhelpers"
	"github.com/shortlink-org/kiosk-oms/internal/infrastructure/repository/postgres/uow"
)

func setupOrderTest(t *testing.T) (*orderrepo.Store, *uow.PostgresUoW) {
	t.Helper()

	pc := testhelpers.SetupPostgresContainer(t)

	store, err := orderrepo.New(context.Background(), pc.DB())
	require.NoError(t, err)

	return store, uow.New(pc.Pool)
}

func newTestOrder(t *testing.T, pickupNumber, pinCode string) *order.Order {
	t.Helper()

	itemID := uuid.New()

	o, err := order.NewOrder("EUR", "kiosk-01", nil, nil, []order.NewItemRequest{
		{
			CatalogItemID:  itemID,
			NameEN:         "Espresso",
			NameLocal:      "Espresso",
			UnitOfMeasure:  "cup",
			UnitPriceNet:   decimal.NewFromFloat(4.42),
			UnitPriceVAT:   decimal.NewFromFloat(0.58),
			UnitPriceGross: decimal.NewFromFloat(5.00),
			VATRate:        decimal.NewFromFloat(0.13),
			Quantity:       1,
		},
	})
	require.NoError(t, err)

	o.PickupNumber = pickupNumber
	o.PinCode = pinCode

	return o
}

func TestOrder_SaveAndLoad(t *testing.T) {
	store, u := setupOrderTest(t)
	ctx := context.Background()

	o := newTestOrder(t, "12", "4821")

	txCtx, err := u.Begin(ctx)
	require.NoError(t, err)

	id, err := store.Save(txCtx, o)
	require.NoError(t, err)
	require.NoError(t, u.Commit(txCtx))

	loaded, err := store.Load(ctx, id)
	require.NoError(t, err)

	assert.Equal(t, order.StatusPending, loaded.Status)
	assert.Equal(t, "kiosk-01", loaded.KioskUsername)
	assert.Equal(t, 0, loaded.Version)
	require.Len(t, loaded.Items, 1)
	assert.Equal(t, "Espresso", loaded.Items[0].NameEN)
	assert.True(t, loaded.Totals.Gross.Equal(decimal.NewFromFloat(5.00)))
}

func TestOrder_OptimisticConcurrency(t *testing.T) {
	store, u := setupOrderTest(t)
	ctx := context.Background()

	o := newTestOrder(t, "13", "1111")

	txCtx, err := u.Begin(ctx)
	require.NoError(t, err)
	id, err := store.Save(txCtx, o)
	require.NoError(t, err)
	require.NoError(t, u.Commit(txCtx))

	first, err := store.Load(ctx, id)
	require.NoError(t, err)
	second, err := store.Load(ctx, id)
	require.NoError(t, err)

	first.Status = order.StatusCompleted

	txCtx1, err := u.Begin(ctx)
	require.NoError(t, err)
	_, err = store.Save(txCtx1, first)
	require.NoError(t, err)
	require.NoError(t, u.Commit(txCtx1))

	second.Status = order.StatusCancelled

	txCtx2, err := u.Begin(ctx)
	require.NoError(t, err)
	_, err = store.Save(txCtx2, second)

	assert.True(t, errors.Is(err, domain.ErrVersionConflict))
	_ = u.Rollback(txCtx2)
}

func TestOrder_LoadNotFound(t *testing.T) {
	store, _ := setupOrderTest(t)

	_, err := store.Load(context.Background(), 999999)

	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestOrder_PickupIdentifiersTakenEnforcesUniqueness(t *testing.T) {
	store, u := setupOrderTest(t)
	ctx := context.Background()

	o := newTestOrder(t, "42", "9090")

	txCtx, err := u.Begin(ctx)
	require.NoError(t, err)
	_, err = store.Save(txCtx, o)
	require.NoError(t, err)
	require.NoError(t, u.Commit(txCtx))

	taken, err := store.PickupIdentifiersTaken(ctx, o.OrderDate, "42", "9090")
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = store.PickupIdentifiersTaken(ctx, o.OrderDate, "42", "0000")
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestOrder_ListAndCountByStatus(t *testing.T) {
	store, u := setupOrderTest(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		o := newTestOrder(t, string(rune('A'+i)), string(rune('0'+i)))

		txCtx, err := u.Begin(ctx)
		require.NoError(t, err)
		_, err = store.Save(txCtx, o)
		require.NoError(t, err)
		require.NoError(t, u.Commit(txCtx))
	}

	count, err := store.CountByStatus(ctx, order.StatusPending)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	orders, err := store.ListByStatus(ctx, order.StatusPending, 10, 0)
	require.NoError(t, err)
	assert.Len(t, orders, 3)
}
