package postgres

import (
	"context"
	"time"

	"github.com/shortlink-org/kiosk-oms/internal/domain"
)

// PickupIdentifiersTaken backs the order-creation usecase's rejection
// sampling loop: true if (orderDate, pickupNumber, pinCode) is already in
// use, enforced unconditionally by oms_order_pickup_pin_per_day.
func (s *Store) PickupIdentifiersTaken(ctx context.Context, orderDate time.Time, pickupNumber, pinCode string) (bool, error) {
	q := s.conn(ctx)

	var exists bool

	err := q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM oms_order
			WHERE order_date = $1 AND pickup_number = $2 AND pin_code = $3
		)`, orderDate, pickupNumber, pinCode).Scan(&exists)
	if err != nil {
		return false, domain.MapInfraErr("order.pickup_identifiers_taken", err)
	}

	return exists, nil
}
