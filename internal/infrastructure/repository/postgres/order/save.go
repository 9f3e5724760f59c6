package postgres

import (
	"context"

	"github.com/shortlink-org/kiosk-oms/internal/domain"
	"github.com/shortlink-org/kiosk-oms/internal/domain/order"
	"github.com/shortlink-org/kiosk-oms/internal/infrastructure/repository/postgres/tx"
)

// Save requires a transaction in context (via UnitOfWork.Begin()) and
// never silently falls back to an ambient pool connection: order creation
// writes Order and its items in one commit. The FSMRuntime row is not part
// of that commit; Orchestrator.Initialize writes it in its own transaction.
func (s *Store) Save(ctx context.Context, o *order.Order) (int64, error) {
	pgxTx := tx.FromContext(ctx)
	if pgxTx == nil {
		return 0, ErrTransactionRequired
	}

	if o.ID == 0 {
		return s.insert(ctx, pgxTx, o)
	}

	return o.ID, s.update(ctx, pgxTx, o)
}

func (s *Store) insert(ctx context.Context, q querier, o *order.Order) (int64, error) {
	row := q.QueryRow(ctx, `
		INSERT INTO oms_order
			(order_date, customer_id, session_id, kiosk_username, currency, status,
			 total_net, total_vat, total_gross, pickup_number, pin_code, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 0)
		RETURNING order_id`,
		o.OrderDate, o.CustomerID, o.SessionID, o.KioskUsername, o.Currency, string(o.Status),
		o.Totals.Net, o.Totals.VAT, o.Totals.Gross, o.PickupNumber, o.PinCode,
	)

	if err := row.Scan(&o.ID); err != nil {
		return 0, domain.MapInfraErr("order.insert", err)
	}

	o.Version = 0

	for _, item := range o.Items {
		if err := insertItem(ctx, q, o.ID, item); err != nil {
			return 0, domain.MapInfraErr("order.insert_item", err)
		}
	}

	return o.ID, nil
}

func (s *Store) update(ctx context.Context, q querier, o *order.Order) error {
	tag, err := q.Exec(ctx, `
		UPDATE oms_order
		SET status = $1, version = version + 1
		WHERE order_id = $2 AND version = $3`,
		string(o.Status), o.ID, o.Version,
	)
	if err != nil {
		return domain.MapInfraErr("order.update", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrVersionConflict
	}

	o.Version++

	return nil
}

func insertItem(ctx context.Context, q querier, orderID int64, item order.Item) error {
	_, err := q.Exec(ctx, `
		INSERT INTO oms_order_item
			(item_id, order_id, catalog_item_id, name_en, name_local, description_en, description_local,
			 unit_of_measure, unit_price_net, unit_price_vat, unit_price_gross, vat_rate, quantity, wishes,
			 line_total_net, line_total_vat, line_total_gross)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		item.ID, orderID, item.CatalogItemID, item.NameEN, item.NameLocal, item.DescriptionEN, item.DescriptionLocal,
		item.UnitOfMeasure, item.UnitPrice.Net, item.UnitPrice.VAT, item.UnitPrice.Gross, item.VATRate,
		item.Quantity, item.Wishes, item.LineTotal.Net, item.LineTotal.VAT, item.LineTotal.Gross,
	)

	return err
}
