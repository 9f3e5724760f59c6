package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/shortlink-org/kiosk-oms/internal/domain/inventory"
	"github.com/shortlink-org/kiosk-oms/internal/domain/order"
	"github.com/shortlink-org/kiosk-oms/internal/domain/runtime"
)

// OrderRepository is a storage adapter, not a usecase: only Load and Save.
// Business operations (Complete/Fail/Cancel) live on the order.Order
// aggregate; the usecase orchestrates Load -> domain method -> Save.
type OrderRepository interface {
	// Save persists o. A zero o.ID means insert; Save assigns the
	// monotonic order_id and returns it. A non-zero o.ID means update
	// under optimistic concurrency keyed on o.Version; returns
	// ErrVersionConflict on mismatch.
	Save(ctx context.Context, o *order.Order) (int64, error)
	// Load returns ErrNotFound if id does not exist.
	Load(ctx context.Context, id int64) (*order.Order, error)
	// ListByStatus supports pagination for the admin listing endpoint.
	ListByStatus(ctx context.Context, status order.Status, limit, offset int) ([]*order.Order, error)
	CountByStatus(ctx context.Context, status order.Status) (int64, error)
	// PickupIdentifiersTaken reports whether the candidate pickup/pin pair
	// is already used for orderDate; the order-creation usecase calls it in
	// its rejection-sampling loop.
	PickupIdentifiersTaken(ctx context.Context, orderDate time.Time, pickupNumber, pinCode string) (bool, error)
}

// InventoryRepository is a storage adapter over ItemLive/Availability/
// StockAdjustment. SaveAvailability and AppendAdjustment are the
// ledger-mutating operations and require a transaction supplied via
// context (UnitOfWork.Begin).
type InventoryRepository interface {
	LoadItem(ctx context.Context, itemID uuid.UUID) (inventory.ItemLive, error)
	LoadAvailability(ctx context.Context, itemID uuid.UUID) (inventory.Availability, error)
	SaveAvailability(ctx context.Context, a inventory.Availability) error
	AppendAdjustment(ctx context.Context, rec inventory.Adjustment) error
}

// RuntimeRepository persists FSMRuntime rows. LoadForUpdate takes the
// row-level lock the orchestrator relies on to serialize concurrent
// Submit calls for the same order_id.
type RuntimeRepository interface {
	Create(ctx context.Context, r *runtime.FSMRuntime) (int64, error)
	// Load is a plain, non-locking read for callers that only need the
	// current state for display or to build a command payload — it does
	// not require a transaction.
	Load(ctx context.Context, orderID int64) (*runtime.FSMRuntime, error)
	LoadForUpdate(ctx context.Context, orderID int64) (*runtime.FSMRuntime, error)
	Save(ctx context.Context, r *runtime.FSMRuntime) error
	// ListNonTerminal is consulted by the recovery usecase at startup.
	ListNonTerminal(ctx context.Context) ([]*runtime.FSMRuntime, error)
}

// LifecycleLogRepository appends to and reads the per-order transition
// chain.
type LifecycleLogRepository interface {
	Append(ctx context.Context, entry runtime.LifecycleLog) error
	ListByOrder(ctx context.Context, orderID int64) ([]runtime.LifecycleLog, error)
}
