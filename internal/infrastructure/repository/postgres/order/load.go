package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/shortlink-org/kiosk-oms/internal/domain"
	"github.com/shortlink-org/kiosk-oms/internal/domain/order"
	"github.com/shortlink-org/kiosk-oms/internal/infrastructure/repository/postgres/tx"
)

// conn returns the transaction stashed in ctx if present, falling back to
// the pool for read-only calls made outside a UnitOfWork (the order-read
// HTTP endpoint, the status-listing queries).
func (s *Store) conn(ctx context.Context) querier {
	if pgxTx := tx.FromContext(ctx); pgxTx != nil {
		return pgxTx
	}

	return s.pool
}

func (s *Store) Load(ctx context.Context, id int64) (*order.Order, error) {
	q := s.conn(ctx)

	row := q.QueryRow(ctx, `
		SELECT order_id, order_date, customer_id, session_id, kiosk_username, currency, status,
		       total_net, total_vat, total_gross, pickup_number, pin_code, version
		FROM oms_order WHERE order_id = $1`, id)

	o := &order.Order{}
	var status string

	err := row.Scan(&o.ID, &o.OrderDate, &o.CustomerID, &o.SessionID, &o.KioskUsername, &o.Currency, &status,
		&o.Totals.Net, &o.Totals.VAT, &o.Totals.Gross, &o.PickupNumber, &o.PinCode, &o.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}

		return nil, domain.MapInfraErr("order.load", err)
	}

	o.Status = order.Status(status)

	items, err := s.loadItems(ctx, q, id)
	if err != nil {
		return nil, err
	}

	o.Items = items

	return o, nil
}

func (s *Store) loadItems(ctx context.Context, q querier, orderID int64) ([]order.Item, error) {
	rows, err := q.Query(ctx, `
		SELECT item_id, catalog_item_id, name_en, name_local, description_en, description_local,
		       unit_of_measure, unit_price_net, unit_price_vat, unit_price_gross, vat_rate, quantity, wishes,
		       line_total_net, line_total_vat, line_total_gross
		FROM oms_order_item WHERE order_id = $1 ORDER BY item_id`, orderID)
	if err != nil {
		return nil, domain.MapInfraErr("order.load_items", err)
	}

	defer rows.Close()

	items := make([]order.Item, 0)

	for rows.Next() {
		var item order.Item

		var catalogItemID uuid.UUID

		if err := rows.Scan(&item.ID, &catalogItemID, &item.NameEN, &item.NameLocal,
			&item.DescriptionEN, &item.DescriptionLocal, &item.UnitOfMeasure,
			&item.UnitPrice.Net, &item.UnitPrice.VAT, &item.UnitPrice.Gross, &item.VATRate,
			&item.Quantity, &item.Wishes, &item.LineTotal.Net, &item.LineTotal.VAT, &item.LineTotal.Gross); err != nil {
			return nil, domain.MapInfraErr("order.scan_item", err)
		}

		item.CatalogItemID = catalogItemID
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, domain.MapInfraErr("order.load_items", err)
	}

	return items, nil
}

func (s *Store) ListByStatus(ctx context.Context, status order.Status, limit, offset int) ([]*order.Order, error) {
	q := s.conn(ctx)

	rows, err := q.Query(ctx, `
		SELECT order_id FROM oms_order
		WHERE status = $1
		ORDER BY order_id
		LIMIT $2 OFFSET $3`, string(status), limit, offset)
	if err != nil {
		return nil, domain.MapInfraErr("order.list_by_status", err)
	}

	var ids []int64

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, domain.MapInfraErr("order.list_by_status", err)
		}

		ids = append(ids, id)
	}

	rows.Close()

	if err := rows.Err(); err != nil {
		return nil, domain.MapInfraErr("order.list_by_status", err)
	}

	orders := make([]*order.Order, 0, len(ids))

	for _, id := range ids {
		o, err := s.Load(ctx, id)
		if err != nil {
			return nil, err
		}

		orders = append(orders, o)
	}

	return orders, nil
}

func (s *Store) CountByStatus(ctx context.Context, status order.Status) (int64, error) {
	q := s.conn(ctx)

	var count int64

	err := q.QueryRow(ctx, `SELECT count(*) FROM oms_order WHERE status = $1`, string(status)).Scan(&count)
	if err != nil {
		return 0, domain.MapInfraErr("order.count_by_status", err)
	}

	return count, nil
}
