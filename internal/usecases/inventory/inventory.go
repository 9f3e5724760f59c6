// Package inventory implements the stock ledger's single write operation:
// load current availability, apply the non-negativity-clamped delta, write
// the new quantity and the audit record in one transaction.
package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/shortlink-org/kiosk-oms/internal/domain"
	domaininventory "github.com/shortlink-org/kiosk-oms/internal/domain/inventory"
	"github.com/shortlink-org/kiosk-oms/internal/domain/ports"
)

// Ledger wraps InventoryRepository with the adjust operation; it is the
// only path through which StockQuantity changes.
type Ledger struct {
	repo ports.InventoryRepository
	uow  ports.UnitOfWork
}

func New(repo ports.InventoryRepository, u ports.UnitOfWork) *Ledger {
	return &Ledger{repo: repo, uow: u}
}

// Adjust loads current availability for itemID, applies delta through
// domaininventory.Adjust, and persists both the new quantity and the
// ledger record in one transaction. Returns the resulting stock quantity.
func (l *Ledger) Adjust(ctx context.Context, itemID uuid.UUID, delta int64, actorIdentity string) (int64, error) {
	txCtx, err := l.uow.Begin(ctx)
	if err != nil {
		return 0, domain.WrapUnavailable("inventory.adjust: begin", err)
	}

	defer func() { _ = l.uow.Rollback(txCtx) }()

	item, err := l.repo.LoadItem(txCtx, itemID)
	if err != nil {
		return 0, domain.MapInfraErr("inventory.adjust: load item", err)
	}

	current, err := l.repo.LoadAvailability(txCtx, itemID)
	if err != nil {
		return 0, domain.MapInfraErr("inventory.adjust: load availability", err)
	}

	next, record := domaininventory.Adjust(current, delta, item.NameEN, item.UnitOfMeasure, actorIdentity, time.Now())

	if err := l.repo.SaveAvailability(txCtx, next); err != nil {
		return 0, domain.MapInfraErr("inventory.adjust: save availability", err)
	}

	if err := l.repo.AppendAdjustment(txCtx, record); err != nil {
		return 0, domain.MapInfraErr("inventory.adjust: append adjustment", err)
	}

	if err := l.uow.Commit(txCtx); err != nil {
		return 0, domain.WrapUnavailable("inventory.adjust: commit", err)
	}

	return next.StockQuantity, nil
}
