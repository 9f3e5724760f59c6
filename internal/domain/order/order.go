// Package order models the kiosk order aggregate: an Order with its line
// items, each item carrying a price snapshot taken at order time so later
// catalog edits never retroactively change a placed order. It holds no FSM
// knowledge — internal/domain/fsm and internal/usecases/orchestrator own
// lifecycle transitions; this package only guards totals and item
// invariants.
package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the coarse business status surfaced to the kiosk UI and
// persisted on Order, distinct from the finer-grained internal FSM state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
)

var (
	ErrItemsEmpty          = errors.New("order must have at least one item")
	ErrItemQuantityZero    = errors.New("order item quantity must be greater than zero")
	ErrItemPriceNegative   = errors.New("order item price cannot be negative")
	ErrTotalsMismatch      = errors.New("order totals do not match the sum of item totals")
	ErrOrderTerminal       = errors.New("order is in a terminal status and cannot be modified")
)

// Totals is the fixed-point net/VAT/gross triple carried at both order and
// line-item level. Amounts are catalog unit prices multiplied by integer
// quantities and summed, so they keep the prices' 2 fractional digits;
// nothing here rounds.
type Totals struct {
	Net   decimal.Decimal
	VAT   decimal.Decimal
	Gross decimal.Decimal
}

func (t Totals) add(o Totals) Totals {
	return Totals{
		Net:   t.Net.Add(o.Net),
		VAT:   t.VAT.Add(o.VAT),
		Gross: t.Gross.Add(o.Gross),
	}
}

// Item is an order line, owned exclusively by one Order, carrying snapshots
// of the menu item at order time.
type Item struct {
	ID               uuid.UUID
	CatalogItemID    uuid.UUID
	NameEN           string
	NameLocal        string
	DescriptionEN    string
	DescriptionLocal string
	UnitOfMeasure    string
	UnitPrice        Totals // per-unit price_net/vat_amount/price_gross snapshot
	VATRate          decimal.Decimal
	Quantity         int32
	Wishes           string

	// LineTotal is computed: UnitPrice * Quantity. Kept as a field (not a
	// method) so it round-trips through persistence without recomputation
	// drifting from what was charged.
	LineTotal Totals
}

func newItem(catalogItemID uuid.UUID, nameEN, nameLocal, descEN, descLocal, uom string, unitPrice Totals, vatRate decimal.Decimal, quantity int32, wishes string) (Item, error) {
	if quantity <= 0 {
		return Item{}, ErrItemQuantityZero
	}

	if unitPrice.Gross.IsNegative() || unitPrice.Net.IsNegative() {
		return Item{}, ErrItemPriceNegative
	}

	q := decimal.NewFromInt32(quantity)

	return Item{
		ID:               uuid.New(),
		CatalogItemID:    catalogItemID,
		NameEN:           nameEN,
		NameLocal:        nameLocal,
		DescriptionEN:    descEN,
		DescriptionLocal: descLocal,
		UnitOfMeasure:    uom,
		UnitPrice:        unitPrice,
		VATRate:          vatRate,
		Quantity:         quantity,
		Wishes:           wishes,
		LineTotal: Totals{
			Net:   unitPrice.Net.Mul(q),
			VAT:   unitPrice.VAT.Mul(q),
			Gross: unitPrice.Gross.Mul(q),
		},
	}, nil
}

// NewItemRequest is the input to NewOrder for a single requested line,
// resolved from the catalog by the caller (the Order Store usecase) before
// construction — the domain package never reaches into infrastructure to
// look up a catalog item itself.
type NewItemRequest struct {
	CatalogItemID    uuid.UUID
	NameEN           string
	NameLocal        string
	DescriptionEN    string
	DescriptionLocal string
	UnitOfMeasure    string
	UnitPriceNet     decimal.Decimal
	UnitPriceVAT     decimal.Decimal
	UnitPriceGross   decimal.Decimal
	VATRate          decimal.Decimal
	Quantity         int32
	Wishes           string
}

// Order is the aggregate root. order_id is a monotonic integer per the data
// model; it is assigned by the repository on persist (ID is zero for a
// not-yet-persisted Order).
type Order struct {
	ID             int64
	OrderDate      time.Time
	CustomerID     *uuid.UUID
	SessionID      *string
	KioskUsername  string
	Currency       string
	Status         Status
	Items          []Item
	Totals         Totals
	PickupNumber   string
	PinCode        string
	Version        int
}

// NewOrder builds an Order in StatusPending from requested lines, computing
// and validating totals. Pricing is always derived here, never trusted from
// the client — callers pass catalog-resolved unit prices, not client-supplied
// totals. kioskUsername is the event-bus routing key ("channel").
func NewOrder(currency, kioskUsername string, customerID *uuid.UUID, sessionID *string, requests []NewItemRequest) (*Order, error) {
	if len(requests) == 0 {
		return nil, ErrItemsEmpty
	}

	items := make([]Item, 0, len(requests))
	var total Totals

	for i, req := range requests {
		unitPrice := Totals{Net: req.UnitPriceNet, VAT: req.UnitPriceVAT, Gross: req.UnitPriceGross}

		item, err := newItem(req.CatalogItemID, req.NameEN, req.NameLocal, req.DescriptionEN, req.DescriptionLocal,
			req.UnitOfMeasure, unitPrice, req.VATRate, req.Quantity, req.Wishes)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}

		items = append(items, item)
		total = total.add(item.LineTotal)
	}

	return &Order{
		CustomerID:    customerID,
		SessionID:     sessionID,
		KioskUsername: kioskUsername,
		Currency:      currency,
		Status:        StatusPending,
		Items:         items,
		Totals:        total,
		Version:    0,
	}, nil
}

// ValidateTotals confirms the order-level totals equal the sum of its line
// totals; used by tests and by the repository layer as a defense before
// persisting.
func (o *Order) ValidateTotals() error {
	var sum Totals
	for _, it := range o.Items {
		sum = sum.add(it.LineTotal)
	}

	if !sum.Net.Equal(o.Totals.Net) || !sum.VAT.Equal(o.Totals.VAT) || !sum.Gross.Equal(o.Totals.Gross) {
		return ErrTotalsMismatch
	}

	return nil
}

// IsTerminal reports whether the order's business status is frozen.
func (o *Order) IsTerminal() bool {
	return o.Status == StatusCompleted || o.Status == StatusFailed || o.Status == StatusCancelled
}

// SetPickupIdentifiers assigns the pickup number and pin code computed by
// the Order Store usecase's day-scoped uniqueness sampler, and the order
// date they were sampled against.
func (o *Order) SetPickupIdentifiers(orderDate time.Time, pickupNumber, pinCode string) {
	o.OrderDate = orderDate
	o.PickupNumber = pickupNumber
	o.PinCode = pinCode
}

// Complete, Fail, and Cancel set the terminal business status. They reject
// a second transition once an order is already terminal — SENT_TO_KDS,
// failure, and cancellation are each committed exactly once by the saga
// handler.
func (o *Order) Complete() error {
	if o.IsTerminal() {
		return ErrOrderTerminal
	}

	o.Status = StatusCompleted

	return nil
}

func (o *Order) Fail() error {
	if o.IsTerminal() {
		return ErrOrderTerminal
	}

	o.Status = StatusFailed

	return nil
}

func (o *Order) Cancel() error {
	if o.IsTerminal() {
		return ErrOrderTerminal
	}

	o.Status = StatusCancelled

	return nil
}
