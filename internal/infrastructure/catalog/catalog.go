// Package catalog is a read-through cache in front of the inventory
// repository for the one thing order creation reads on every request but
// that almost never changes: the menu item itself (name, unit, price).
// Availability is deliberately never cached here — order creation reads
// it inside the same transaction it later writes stock from, and serving
// a stale quantity out of a cache would reopen the overselling window the
// transaction exists to close.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/google/uuid"
	"github.com/redis/rueidis"

	logger "github.com/shortlink-org/go-sdk/logger"

	"github.com/shortlink-org/kiosk-oms/internal/domain/inventory"
	"github.com/shortlink-org/kiosk-oms/internal/domain/ports"
)

const (
	cacheNumCounters = 100_000
	cacheMaxCost     = 10_000_000
	cacheBufferItems = 64

	l1TTL = 30 * time.Second
	l2TTL = 5 * time.Minute

	keyPrefix = "oms:catalog:item"
)

// Store wraps a ports.InventoryRepository with an L1 (in-process
// ristretto) and L2 (shared rueidis) cache for LoadItem. Every other
// method passes straight through.
type Store struct {
	repo ports.InventoryRepository
	l1   *ristretto.Cache[string, inventory.ItemLive]
	l2   rueidis.Client
	log  logger.Logger
}

func New(repo ports.InventoryRepository, l2 rueidis.Client, log logger.Logger) (*Store, error) {
	l1, err := ristretto.NewCache(&ristretto.Config[string, inventory.ItemLive]{
		NumCounters: cacheNumCounters,
		MaxCost:     cacheMaxCost,
		BufferItems: cacheBufferItems,
	})
	if err != nil {
		return nil, fmt.Errorf("catalog: create L1 cache: %w", err)
	}

	return &Store{repo: repo, l1: l1, l2: l2, log: log}, nil
}

func (s *Store) Close() {
	if s.l1 != nil {
		s.l1.Close()
	}
}

func itemKey(id uuid.UUID) string {
	return fmt.Sprintf("%s:%s", keyPrefix, id.String())
}

// LoadItem checks L1, then L2, then falls back to the repository,
// populating both caches on the way back up.
func (s *Store) LoadItem(ctx context.Context, itemID uuid.UUID) (inventory.ItemLive, error) {
	if item, ok := s.l1.Get(itemID.String()); ok {
		return item, nil
	}

	if item, ok := s.loadFromL2(ctx, itemID); ok {
		s.l1.SetWithTTL(itemID.String(), item, 1, l1TTL)
		return item, nil
	}

	item, err := s.repo.LoadItem(ctx, itemID)
	if err != nil {
		return inventory.ItemLive{}, err
	}

	s.l1.SetWithTTL(itemID.String(), item, 1, l1TTL)
	s.storeToL2(ctx, itemID, item)

	return item, nil
}

func (s *Store) loadFromL2(ctx context.Context, itemID uuid.UUID) (inventory.ItemLive, bool) {
	if s.l2 == nil {
		return inventory.ItemLive{}, false
	}

	resp := s.l2.Do(ctx, s.l2.B().Get().Key(itemKey(itemID)).Build())

	raw, err := resp.AsBytes()
	if err != nil {
		return inventory.ItemLive{}, false
	}

	var item inventory.ItemLive
	if err := json.Unmarshal(raw, &item); err != nil {
		return inventory.ItemLive{}, false
	}

	return item, true
}

func (s *Store) storeToL2(ctx context.Context, itemID uuid.UUID, item inventory.ItemLive) {
	if s.l2 == nil {
		return
	}

	raw, err := json.Marshal(item)
	if err != nil {
		return
	}

	cmd := s.l2.B().Set().Key(itemKey(itemID)).Value(string(raw)).Ex(l2TTL).Build()
	if err := s.l2.Do(ctx, cmd).Error(); err != nil {
		s.log.Warn("catalog: L2 cache write failed", slog.String("item_id", itemID.String()), slog.String("error", err.Error()))
	}
}

// LoadAvailability never touches the cache; see the package doc comment.
func (s *Store) LoadAvailability(ctx context.Context, itemID uuid.UUID) (inventory.Availability, error) {
	return s.repo.LoadAvailability(ctx, itemID)
}

func (s *Store) SaveAvailability(ctx context.Context, a inventory.Availability) error {
	return s.repo.SaveAvailability(ctx, a)
}

func (s *Store) AppendAdjustment(ctx context.Context, rec inventory.Adjustment) error {
	return s.repo.AppendAdjustment(ctx, rec)
}

var _ ports.InventoryRepository = (*Store)(nil)
