package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	sdklogger "github.com/shortlink-org/go-sdk/logger"
	"github.com/stretchr/testify/require"

	"github.com/shortlink-org/kiosk-oms/internal/domain/inventory"
	"github.com/shortlink-org/kiosk-oms/internal/domain/ports"
)

type fakeRepo struct {
	items map[uuid.UUID]inventory.ItemLive
	calls int
}

func (f *fakeRepo) LoadItem(_ context.Context, id uuid.UUID) (inventory.ItemLive, error) {
	f.calls++

	item, ok := f.items[id]
	if !ok {
		return inventory.ItemLive{}, ports.ErrNotFound
	}

	return item, nil
}

func (f *fakeRepo) LoadAvailability(context.Context, uuid.UUID) (inventory.Availability, error) {
	return inventory.Availability{}, nil
}

func (f *fakeRepo) SaveAvailability(context.Context, inventory.Availability) error { return nil }

func (f *fakeRepo) AppendAdjustment(context.Context, inventory.Adjustment) error { return nil }

func newTestLogger(t *testing.T) sdklogger.Logger {
	t.Helper()

	log, err := sdklogger.New(sdklogger.Default())
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	return log
}

func TestLoadItemCachesAfterFirstLoad(t *testing.T) {
	itemID := uuid.New()
	repo := &fakeRepo{items: map[uuid.UUID]inventory.ItemLive{
		itemID: {ID: itemID, NameEN: "Burger", PriceGross: decimal.NewFromFloat(3.0), IsActive: true},
	}}

	store, err := New(repo, nil, newTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(store.Close)

	first, err := store.LoadItem(context.Background(), itemID)
	require.NoError(t, err)
	require.Equal(t, "Burger", first.NameEN)
	require.Equal(t, 1, repo.calls)

	store.l1.Wait()

	second, err := store.LoadItem(context.Background(), itemID)
	require.NoError(t, err)
	require.Equal(t, "Burger", second.NameEN)
	require.Equal(t, 1, repo.calls, "second load should be served from L1, not the repository")
}

func TestLoadAvailabilityBypassesCache(t *testing.T) {
	repo := &fakeRepo{items: map[uuid.UUID]inventory.ItemLive{}}
	store, err := New(repo, nil, newTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(store.Close)

	_, err = store.LoadAvailability(context.Background(), uuid.New())
	require.NoError(t, err)
}
