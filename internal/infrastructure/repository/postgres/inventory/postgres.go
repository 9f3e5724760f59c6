// Package postgres implements ports.InventoryRepository over a pgxpool.Pool.
package postgres

import (
	"context"
	"embed"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shortlink-org/go-sdk/db"
	"github.com/shortlink-org/go-sdk/db/drivers/postgres/migrate"

	"github.com/shortlink-org/kiosk-oms/internal/domain"
	"github.com/shortlink-org/kiosk-oms/internal/domain/inventory"
	"github.com/shortlink-org/kiosk-oms/internal/domain/ports"
	"github.com/shortlink-org/kiosk-oms/internal/infrastructure/repository/postgres/tx"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store implements ports.InventoryRepository.
type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, store db.DB) (*Store, error) {
	pool, ok := store.GetConn().(*pgxpool.Pool)
	if !ok {
		return nil, db.ErrGetConnection
	}

	if err := migrate.Migration(ctx, store, migrations, "repository_inventory"); err != nil {
		return nil, err
	}

	return &Store{pool: pool}, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgx.CommandTag, error)
}

func (s *Store) conn(ctx context.Context) querier {
	if pgxTx := tx.FromContext(ctx); pgxTx != nil {
		return pgxTx
	}

	return s.pool
}

func (s *Store) LoadItem(ctx context.Context, itemID uuid.UUID) (inventory.ItemLive, error) {
	row := s.conn(ctx).QueryRow(ctx, `
		SELECT item_id, name_en, name_local, unit_of_measure, price_net, price_vat, price_gross, vat_rate, is_active
		FROM oms_catalog_item WHERE item_id = $1`, itemID)

	var item inventory.ItemLive

	err := row.Scan(&item.ID, &item.NameEN, &item.NameLocal, &item.UnitOfMeasure,
		&item.PriceNet, &item.PriceVAT, &item.PriceGross, &item.VATRate, &item.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return inventory.ItemLive{}, domain.ErrNotFound
		}

		return inventory.ItemLive{}, domain.MapInfraErr("inventory.load_item", err)
	}

	return item, nil
}

func (s *Store) LoadAvailability(ctx context.Context, itemID uuid.UUID) (inventory.Availability, error) {
	row := s.conn(ctx).QueryRow(ctx, `
		SELECT item_id, stock_quantity, reserved_quantity
		FROM oms_item_availability WHERE item_id = $1`, itemID)

	var a inventory.Availability

	err := row.Scan(&a.ItemID, &a.StockQuantity, &a.ReservedQuantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return inventory.Availability{}, domain.ErrNotFound
		}

		return inventory.Availability{}, domain.MapInfraErr("inventory.load_availability", err)
	}

	return a, nil
}

// SaveAvailability requires a transaction: Adjust always writes the new
// quantity and its ledger row together.
func (s *Store) SaveAvailability(ctx context.Context, a inventory.Availability) error {
	pgxTx := tx.FromContext(ctx)
	if pgxTx == nil {
		return ErrTransactionRequired
	}

	_, err := pgxTx.Exec(ctx, `
		UPDATE oms_item_availability
		SET stock_quantity = $1, reserved_quantity = $2
		WHERE item_id = $3`, a.StockQuantity, a.ReservedQuantity, a.ItemID)
	if err != nil {
		return domain.MapInfraErr("inventory.save_availability", err)
	}

	return nil
}

func (s *Store) AppendAdjustment(ctx context.Context, rec inventory.Adjustment) error {
	pgxTx := tx.FromContext(ctx)
	if pgxTx == nil {
		return ErrTransactionRequired
	}

	_, err := pgxTx.Exec(ctx, `
		INSERT INTO oms_stock_adjustment
			(item_id, name_snapshot, unit_snapshot, change_quantity, applied_quantity, changed_at, changed_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ItemID, rec.NameSnapshot, rec.UnitSnapshot, rec.ChangeQuantity, rec.AppliedQuantity,
		rec.ChangedAt.UTC(), rec.ChangedBy,
	)
	if err != nil {
		return domain.MapInfraErr("inventory.append_adjustment", err)
	}

	return nil
}

var ErrTransactionRequired = errors.New("inventory: transaction required, use UnitOfWork.Begin()")

var _ ports.InventoryRepository = (*Store)(nil)
