package saga

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	sdklogger "github.com/shortlink-org/go-sdk/logger"
	"github.com/stretchr/testify/require"

	domainfsm "github.com/shortlink-org/kiosk-oms/internal/domain/fsm"
	"github.com/shortlink-org/kiosk-oms/internal/domain/inventory"
	"github.com/shortlink-org/kiosk-oms/internal/domain/order"
	"github.com/shortlink-org/kiosk-oms/internal/domain/ports"
	"github.com/shortlink-org/kiosk-oms/internal/domain/runtime"
)

type fakeOrderRepo struct {
	mu   sync.Mutex
	byID map[int64]*order.Order
}

func newFakeOrderRepo(o *order.Order) *fakeOrderRepo {
	return &fakeOrderRepo{byID: map[int64]*order.Order{o.ID: o}}
}

func (f *fakeOrderRepo) Save(_ context.Context, o *order.Order) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cp := *o
	f.byID[o.ID] = &cp

	return o.ID, nil
}

func (f *fakeOrderRepo) Load(_ context.Context, id int64) (*order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	o, ok := f.byID[id]
	if !ok {
		return nil, ports.ErrNotFound
	}

	cp := *o

	return &cp, nil
}

func (f *fakeOrderRepo) ListByStatus(context.Context, order.Status, int, int) ([]*order.Order, error) {
	return nil, nil
}

func (f *fakeOrderRepo) CountByStatus(context.Context, order.Status) (int64, error) { return 0, nil }

func (f *fakeOrderRepo) PickupIdentifiersTaken(context.Context, time.Time, string, string) (bool, error) {
	return false, nil
}

// fakeStockLedger stands in for the inventory usecase's Ledger, recording
// the resulting quantity and actor for each Adjust call without needing a
// real repository or transaction.
type fakeStockLedger struct {
	mu          sync.Mutex
	quantity    map[uuid.UUID]int64
	lastActor   map[uuid.UUID]string
	adjustCalls int
}

func newFakeStockLedger(quantities map[uuid.UUID]int64) *fakeStockLedger {
	return &fakeStockLedger{quantity: quantities, lastActor: map[uuid.UUID]string{}}
}

func (f *fakeStockLedger) Adjust(_ context.Context, itemID uuid.UUID, delta int64, actorIdentity string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	next := f.quantity[itemID] + delta
	if next < 0 {
		next = 0
	}

	f.quantity[itemID] = next
	f.lastActor[itemID] = actorIdentity
	f.adjustCalls++

	return next, nil
}

type fakeUoW struct{}

func (fakeUoW) Begin(ctx context.Context) (context.Context, error) { return ctx, nil }
func (fakeUoW) Commit(context.Context) error                       { return nil }
func (fakeUoW) Rollback(context.Context) error                     { return nil }

type fakeFiscal struct{ resp ports.FiscalResponse }

func (f fakeFiscal) Call(context.Context, ports.FiscalRequest) (ports.FiscalResponse, error) {
	return f.resp, nil
}

type fakePayment struct{ resp ports.PaymentResponse }

func (f fakePayment) Call(context.Context, ports.PaymentRequest) (ports.PaymentResponse, error) {
	return f.resp, nil
}

type fakePrinter struct{ resp ports.PrinterResponse }

func (f fakePrinter) Call(context.Context, ports.PrinterRequest) (ports.PrinterResponse, error) {
	return f.resp, nil
}

type fakeKDS struct{ resp ports.KDSResponse }

func (f fakeKDS) Call(context.Context, ports.KDSRequest) (ports.KDSResponse, error) {
	return f.resp, nil
}

type recordedSubmit struct {
	orderID int64
	event   domainfsm.Event
	actor   runtime.ActorType
}

type fakeSubmitter struct {
	mu    sync.Mutex
	calls []recordedSubmit
	done  chan struct{}
}

func newFakeSubmitter() *fakeSubmitter {
	return &fakeSubmitter{done: make(chan struct{}, 16)}
}

func (f *fakeSubmitter) Submit(_ context.Context, orderID int64, event domainfsm.Event, actor runtime.ActorType, _, _ string, _ *runtime.GatewayContext, _ string) (bool, error) {
	f.mu.Lock()
	f.calls = append(f.calls, recordedSubmit{orderID, event, actor})
	f.mu.Unlock()
	f.done <- struct{}{}

	return true, nil
}

func (f *fakeSubmitter) waitForCall(t *testing.T) recordedSubmit {
	t.Helper()

	select {
	case <-f.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for saga to submit an event")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls[len(f.calls)-1]
}

func testOrder(t *testing.T) *order.Order {
	t.Helper()

	o, err := order.NewOrder("EUR", "kiosk-1", nil, nil, []order.NewItemRequest{{
		CatalogItemID:  uuid.New(),
		NameEN:         "Burger",
		NameLocal:      "Бургер",
		UnitOfMeasure:  "pcs",
		UnitPriceNet:   decimal.NewFromFloat(2.50),
		UnitPriceVAT:   decimal.NewFromFloat(0.50),
		UnitPriceGross: decimal.NewFromFloat(3.00),
		VATRate:        decimal.NewFromFloat(0.20),
		Quantity:       2,
	}})
	require.NoError(t, err)
	o.ID = 1

	return o
}

func newTestLogger(t *testing.T) sdklogger.Logger {
	t.Helper()

	log, err := sdklogger.New(sdklogger.Default())
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	return log
}

func TestEnterFiscalSuccess(t *testing.T) {
	o := testOrder(t)
	orders := newFakeOrderRepo(o)
	sub := newFakeSubmitter()

	s := New(orders, newFakeStockLedger(map[uuid.UUID]int64{}), fakeUoW{},
		fakeFiscal{resp: ports.FiscalResponse{Status: ports.GatewayStatusOK, Receipt: &ports.FiscalReceiptPayload{FiscalDocumentNum: "FD-1"}}},
		fakePayment{}, fakePrinter{}, fakeKDS{}, sub, newTestLogger(t))

	s.Dispatch(o.ID, domainfsm.StateInit)

	call := sub.waitForCall(t)
	require.Equal(t, domainfsm.EventFiscalizationSucceeded, call.event)
}

func TestEnterFiscalFailure(t *testing.T) {
	o := testOrder(t)
	orders := newFakeOrderRepo(o)
	sub := newFakeSubmitter()

	s := New(orders, newFakeStockLedger(map[uuid.UUID]int64{}), fakeUoW{},
		fakeFiscal{resp: ports.FiscalResponse{Status: ports.GatewayStatusNotOK, ErrorCode: "03"}},
		fakePayment{}, fakePrinter{}, fakeKDS{}, sub, newTestLogger(t))

	s.Dispatch(o.ID, domainfsm.StateInit)

	call := sub.waitForCall(t)
	require.Equal(t, domainfsm.EventFiscalizationFailed, call.event)
}

func TestEnterPaymentDeclined(t *testing.T) {
	o := testOrder(t)
	orders := newFakeOrderRepo(o)
	sub := newFakeSubmitter()

	s := New(orders, newFakeStockLedger(map[uuid.UUID]int64{}), fakeUoW{},
		fakeFiscal{}, fakePayment{resp: ports.PaymentResponse{Status: ports.PaymentDeclined, ResponseCode: "05"}},
		fakePrinter{}, fakeKDS{}, sub, newTestLogger(t))

	s.Dispatch(o.ID, domainfsm.StateAwaitingPayment)

	call := sub.waitForCall(t)
	require.Equal(t, domainfsm.EventPaymentFailed, call.event)
}

func TestEnterPaymentTimeoutOutcome(t *testing.T) {
	o := testOrder(t)
	orders := newFakeOrderRepo(o)
	sub := newFakeSubmitter()

	s := New(orders, newFakeStockLedger(map[uuid.UUID]int64{}), fakeUoW{},
		fakeFiscal{}, fakePayment{resp: ports.PaymentResponse{Status: ports.PaymentTimeout}},
		fakePrinter{}, fakeKDS{}, sub, newTestLogger(t))

	s.Dispatch(o.ID, domainfsm.StateAwaitingPayment)

	call := sub.waitForCall(t)
	require.Equal(t, domainfsm.EventInactivityTimeout, call.event)
	require.Equal(t, runtime.ActorSystem, call.actor)
}

func TestCompleteOrderDeductsStockForEveryLine(t *testing.T) {
	o := testOrder(t)
	o.Status = order.StatusPending
	orders := newFakeOrderRepo(o)

	itemID := o.Items[0].CatalogItemID
	stock := newFakeStockLedger(map[uuid.UUID]int64{itemID: 5})

	sub := newFakeSubmitter()
	s := New(orders, stock, fakeUoW{}, fakeFiscal{}, fakePayment{}, fakePrinter{}, fakeKDS{}, sub, newTestLogger(t))

	s.completeOrder(context.Background(), o)

	require.Equal(t, int64(3), stock.quantity[itemID])
	require.Equal(t, 1, stock.adjustCalls)
	require.Equal(t, inventory.ActorKioskAutoDeduction, stock.lastActor[itemID])

	saved, err := orders.Load(context.Background(), o.ID)
	require.NoError(t, err)
	require.Equal(t, order.StatusCompleted, saved.Status)
}

func TestHandleCommandRetryPayment(t *testing.T) {
	sub := newFakeSubmitter()
	s := New(nil, nil, fakeUoW{}, fakeFiscal{}, fakePayment{}, fakePrinter{}, fakeKDS{}, sub, newTestLogger(t))

	ok, err := s.HandleCommand(context.Background(), OrderView{OrderID: 1, CurrentState: domainfsm.StateUnsuccessfulPayment, KioskChannel: "kiosk-1"}, CommandRetryPayment, "customer-1")
	require.NoError(t, err)
	require.True(t, ok)

	call := sub.waitForCall(t)
	require.Equal(t, domainfsm.EventPaymentRetry, call.event)
}

func TestHandleCommandAlternativeReceiptIsRecognizedButNotActionable(t *testing.T) {
	sub := newFakeSubmitter()
	s := New(nil, nil, fakeUoW{}, fakeFiscal{}, fakePayment{}, fakePrinter{}, fakeKDS{}, sub, newTestLogger(t))

	ok, err := s.HandleCommand(context.Background(), OrderView{OrderID: 1}, CommandAcceptAlternativeReceipt, "customer-1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHandleCommandUnrecognized(t *testing.T) {
	sub := newFakeSubmitter()
	s := New(nil, nil, fakeUoW{}, fakeFiscal{}, fakePayment{}, fakePrinter{}, fakeKDS{}, sub, newTestLogger(t))

	_, err := s.HandleCommand(context.Background(), OrderView{OrderID: 1}, "NOT_A_COMMAND", "customer-1")
	require.ErrorIs(t, err, ErrCommandNotRecognized)
}
