package order

import (
	"context"

	"github.com/shortlink-org/kiosk-oms/internal/domain/order"
)

// Get returns the order aggregate for orderID. Deep-read fields (runtime,
// lifecycle log) live on separate repositories and are assembled by the
// HTTP layer, not here; Store only owns the Order aggregate itself.
func (s *Store) Get(ctx context.Context, orderID int64) (*order.Order, error) {
	return s.orders.Load(ctx, orderID)
}

// ListByStatus is a paginated listing for the admin/kiosk-status views.
func (s *Store) ListByStatus(ctx context.Context, status order.Status, limit, offset int) ([]*order.Order, error) {
	return s.orders.ListByStatus(ctx, status, limit, offset)
}

func (s *Store) CountByStatus(ctx context.Context, status order.Status) (int64, error) {
	return s.orders.CountByStatus(ctx, status)
}
