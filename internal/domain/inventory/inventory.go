// Package inventory models the stock ledger: ItemLive/ItemAvailability
// catalog state and the append-only StockAdjustment record produced by
// every ledger write.
package inventory

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrInsufficientStock = errors.New("insufficient stock for requested quantity")

// ItemLive is a catalog entry, mutated only through catalog admin paths;
// an order item references it by id-snapshot, never by live pointer. The
// order store snapshots PriceNet/PriceVAT/PriceGross/VATRate onto the
// order line at creation time so later price changes never retroactively
// affect a placed order.
type ItemLive struct {
	ID            uuid.UUID
	NameEN        string
	NameLocal     string
	UnitOfMeasure string
	PriceNet      decimal.Decimal
	PriceVAT      decimal.Decimal
	PriceGross    decimal.Decimal
	VATRate       decimal.Decimal
	IsActive      bool
}

// Availability is one-to-one with ItemLive. StockQuantity must never go
// negative; ReservedQuantity is tracked separately and is not decremented
// by Adjust.
type Availability struct {
	ItemID           uuid.UUID
	StockQuantity    int64
	ReservedQuantity int64
}

// HasSufficientStock reports whether quantity units of this item can be
// fulfilled right now. Consulted by order creation before accepting a line,
// never trusted from the client.
func (a Availability) HasSufficientStock(quantity int64) bool {
	return a.StockQuantity >= quantity
}

// Adjustment is the append-only ledger record. ChangeQuantity is the
// requested, signed delta as asked by the caller; AppliedQuantity is what
// actually landed on StockQuantity after the non-negativity clamp. The two
// differ only when a negative delta was clamped to -current.
type Adjustment struct {
	ItemID          uuid.UUID
	NameSnapshot    string
	UnitSnapshot    string
	ChangeQuantity  int64
	AppliedQuantity int64
	ChangedAt       time.Time
	ChangedBy       string
}

// ActorKioskAutoDeduction and ActorSystem are the two actor-identity
// defaults for automated ledger writes.
const (
	ActorKioskAutoDeduction = "KIOSK_AUTO_DEDUCTION"
	ActorSystem             = "SYSTEM"
)

// Adjust computes the new stock quantity and the ledger record for a
// requested delta against current availability. It does not touch
// persistence; the caller (the inventory usecase) loads current, calls
// Adjust, then writes both the new quantity and the ledger row in one
// transaction.
//
// When delta is negative and larger in magnitude than the current
// quantity, the applied delta is clamped to -current so stock never goes
// negative; the originally requested delta is still recorded for audit.
func Adjust(current Availability, delta int64, itemName, unitSnapshot, actorIdentity string, now time.Time) (Availability, Adjustment) {
	applied := delta

	if applied < 0 && -applied > current.StockQuantity {
		applied = -current.StockQuantity
	}

	next := current
	next.StockQuantity = current.StockQuantity + applied

	record := Adjustment{
		ItemID:          current.ItemID,
		NameSnapshot:    itemName,
		UnitSnapshot:    unitSnapshot,
		ChangeQuantity:  delta,
		AppliedQuantity: applied,
		ChangedAt:       now,
		ChangedBy:       actorIdentity,
	}

	return next, record
}
