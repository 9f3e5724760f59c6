// Package saga implements the per-state entry handlers that call the four
// gateways (fiscal, payment, printer, KDS) and feed the result back into
// the orchestrator. It implements orchestrator.EntryDispatcher so the
// orchestrator can hand off control the moment an order lands on a new
// state, without importing this package.
package saga

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	logger "github.com/shortlink-org/go-sdk/logger"

	"github.com/shortlink-org/kiosk-oms/internal/domain"
	domainfsm "github.com/shortlink-org/kiosk-oms/internal/domain/fsm"
	"github.com/shortlink-org/kiosk-oms/internal/domain/inventory"
	"github.com/shortlink-org/kiosk-oms/internal/domain/order"
	"github.com/shortlink-org/kiosk-oms/internal/domain/ports"
	"github.com/shortlink-org/kiosk-oms/internal/domain/runtime"
	"github.com/shortlink-org/kiosk-oms/internal/usecases/orchestrator"
)

// StockLedger is the subset of the inventory usecase's Ledger this package
// drives, narrowed at the consumer for the same reason as Submitter.
type StockLedger interface {
	Adjust(ctx context.Context, itemID uuid.UUID, delta int64, actorIdentity string) (int64, error)
}

// Per-state gateway step deadlines.
const (
	fiscalDeadline   = 30 * time.Second
	paymentDeadline  = 180 * time.Second
	printingDeadline = 60 * time.Second
	kdsDeadline      = 20 * time.Second
)

// Submitter is the subset of *orchestrator.Orchestrator this package
// drives. Declared here, at the consumer, so tests can substitute a fake
// without depending on the orchestrator package's concrete type.
type Submitter interface {
	Submit(ctx context.Context, orderID int64, event domainfsm.Event, actor runtime.ActorType, actorID, comment string, eventData *runtime.GatewayContext, kioskChannel string) (bool, error)
}

// Saga wires the four gateways and the order/inventory repositories behind
// orchestrator.EntryDispatcher. One Saga is constructed per process and
// shared by every order.
type Saga struct {
	orders  ports.OrderRepository
	stock   StockLedger
	uow     ports.UnitOfWork
	fiscal  ports.FiscalGateway
	payment ports.PaymentGateway
	printer ports.PrinterGateway
	kds     ports.KDSGateway
	orch    Submitter
	log     logger.Logger
}

func New(orders ports.OrderRepository, stock StockLedger, u ports.UnitOfWork, fiscal ports.FiscalGateway, payment ports.PaymentGateway, printer ports.PrinterGateway, kds ports.KDSGateway, orch Submitter, log logger.Logger) *Saga {
	return &Saga{
		orders:  orders,
		stock:   stock,
		uow:     u,
		fiscal:  fiscal,
		payment: payment,
		printer: printer,
		kds:     kds,
		orch:    orch,
		log:     log,
	}
}

var _ orchestrator.EntryDispatcher = (*Saga)(nil)

// Dispatch runs the entry handler for state on its own goroutine with a
// background context, so a slow gateway call never blocks the caller that
// just landed the order on state (Submit's own transaction has already
// committed by the time Dispatch runs).
func (s *Saga) Dispatch(orderID int64, state domainfsm.State) {
	go s.enter(orderID, state)
}

func (s *Saga) enter(orderID int64, state domainfsm.State) {
	ctx := context.Background()

	o, err := s.orders.Load(ctx, orderID)
	if err != nil {
		s.log.Error("saga: failed to load order for entry handler",
			slog.Int64("order_id", orderID), slog.String("state", string(state)), slog.String("error", err.Error()))

		return
	}

	switch state {
	case domainfsm.StateInit:
		s.enterFiscal(ctx, o)
	case domainfsm.StateAwaitingPayment:
		s.enterPayment(ctx, o)
	case domainfsm.StateAwaitingPrinting:
		s.enterPrinting(ctx, o)
	case domainfsm.StateAwaitingKDS:
		s.enterKDS(ctx, o)
	case domainfsm.StateSentToKDS:
		s.completeOrder(ctx, o)
	case domainfsm.StateSentToKDSFailed, domainfsm.StateUnsuccessfulFiscalization,
		domainfsm.StateUnsuccessfulPayment, domainfsm.StatePrintingFailed:
		s.failOrder(ctx, o)
	case domainfsm.StateCanceledByUser, domainfsm.StateCanceledByTimeout:
		s.cancelOrder(ctx, o)
	}
}

func kopecks(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func (s *Saga) submit(ctx context.Context, o *order.Order, event domainfsm.Event, actor runtime.ActorType, comment string, data *runtime.GatewayContext) {
	_, err := s.orch.Submit(ctx, o.ID, event, actor, "", comment, data, o.KioskUsername)
	if err != nil {
		s.log.Error("saga: submit failed", slog.Int64("order_id", o.ID), slog.String("event", string(event)), slog.String("error", err.Error()))
	}
}

// enterFiscal runs the INIT entry handler: produce the fiscal receipt
// before payment is attempted.
func (s *Saga) enterFiscal(ctx context.Context, o *order.Order) {
	stepCtx, cancel := context.WithTimeout(ctx, fiscalDeadline)
	defer cancel()

	req := ports.FiscalRequest{
		OrderID:       strconv.FormatInt(o.ID, 10),
		KioskID:       o.KioskUsername,
		Items:         fiscalItems(o),
		TotalNet:      kopecks(o.Totals.Net),
		TotalVAT:      kopecks(o.Totals.VAT),
		TotalGross:    kopecks(o.Totals.Gross),
		PaymentMethod: "CARD",
	}

	started := time.Now()

	resp, err := s.fiscal.Call(stepCtx, req)
	if err != nil || resp.Status != ports.GatewayStatusOK {
		code := resp.ErrorCode
		if err != nil {
			code = "TIMEOUT"
		}

		s.submit(ctx, o, domainfsm.EventFiscalizationFailed, runtime.ActorFiscalDevice,
			fmt.Sprintf("fiscal gateway: %s", code), &runtime.GatewayContext{
				StartedAt: started, ResponseAt: time.Now(), ResultCode: code, ResultDescription: resp.ErrorMessage,
			})

		return
	}

	s.submit(ctx, o, domainfsm.EventFiscalizationSucceeded, runtime.ActorFiscalDevice, "", &runtime.GatewayContext{
		StartedAt:     started,
		ResponseAt:    time.Now(),
		ResultCode:    "OK",
		TransactionID: resp.Receipt.FiscalDocumentNum,
	})
}

func fiscalItems(o *order.Order) []ports.FiscalRequestItem {
	items := make([]ports.FiscalRequestItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, ports.FiscalRequestItem{
			ItemID:          it.CatalogItemID.String(),
			ItemDescription: it.NameEN,
			ItemPriceNet:    kopecks(it.UnitPrice.Net),
			ItemPriceGross:  kopecks(it.UnitPrice.Gross),
			ItemVATValue:    kopecks(it.UnitPrice.VAT),
			Quantity:        it.Quantity,
		})
	}

	return items
}

// enterPayment runs the AWAITING_PAYMENT entry handler. A deadline exceeded
// without a gateway response is treated as customer inaction, not a
// declined payment.
func (s *Saga) enterPayment(ctx context.Context, o *order.Order) {
	stepCtx, cancel := context.WithTimeout(ctx, paymentDeadline)
	defer cancel()

	req := ports.PaymentRequest{
		KioskID: o.KioskUsername,
		OrderID: strconv.FormatInt(o.ID, 10),
		Sum:     kopecks(o.Totals.Gross),
	}

	started := time.Now()

	resp, err := s.payment.Call(stepCtx, req)
	if err != nil {
		s.submit(ctx, o, domainfsm.EventInactivityTimeout, runtime.ActorSystem, "payment gateway deadline exceeded",
			&runtime.GatewayContext{StartedAt: started, ResponseAt: time.Now(), ResultCode: "TIMEOUT"})

		return
	}

	gwCtx := &runtime.GatewayContext{
		StartedAt:     started,
		ResponseAt:    time.Now(),
		ResultCode:    resp.ResponseCode,
		TransactionID: resp.TransactionID,
		SessionID:     resp.SessionID,
	}

	switch resp.Status {
	case ports.PaymentSuccess:
		s.submit(ctx, o, domainfsm.EventPaymentSucceeded, runtime.ActorPOSTerminal, "", gwCtx)
	case ports.PaymentTimeout:
		s.submit(ctx, o, domainfsm.EventInactivityTimeout, runtime.ActorSystem, "payment terminal did not respond", gwCtx)
	default: // DECLINED, ERROR
		s.submit(ctx, o, domainfsm.EventPaymentFailed, runtime.ActorPOSTerminal, resp.ResponseMessage, gwCtx)
	}
}

// enterPrinting runs the AWAITING_PRINTING entry handler.
func (s *Saga) enterPrinting(ctx context.Context, o *order.Order) {
	stepCtx, cancel := context.WithTimeout(ctx, printingDeadline)
	defer cancel()

	req := ports.PrinterRequest{
		OrderID:     strconv.FormatInt(o.ID, 10),
		KioskID:     o.KioskUsername,
		ReceiptType: ports.ReceiptTypeCustomer,
	}

	started := time.Now()

	resp, err := s.printer.Call(stepCtx, req)
	if err != nil || resp.Status != ports.PrinterSuccess {
		code := resp.ErrorCode
		if err != nil {
			code = "TIMEOUT"
		}

		s.submit(ctx, o, domainfsm.EventPrintingFailedOrTimeout, runtime.ActorPrinter, code,
			&runtime.GatewayContext{StartedAt: started, ResponseAt: time.Now(), ResultCode: code, ResultDescription: resp.ErrorMessage})

		return
	}

	s.submit(ctx, o, domainfsm.EventPrintingSucceeded, runtime.ActorPrinter, "", &runtime.GatewayContext{
		StartedAt: started, ResponseAt: time.Now(), ResultCode: "OK", ResultDescription: resp.ReceiptFilePath,
	})
}

// enterKDS runs the AWAITING_KDS entry handler.
func (s *Saga) enterKDS(ctx context.Context, o *order.Order) {
	stepCtx, cancel := context.WithTimeout(ctx, kdsDeadline)
	defer cancel()

	req := ports.KDSRequest{
		OrderID: strconv.FormatInt(o.ID, 10),
		KioskID: o.KioskUsername,
		Items:   kdsItems(o),
	}

	started := time.Now()

	resp, err := s.kds.Call(stepCtx, req)
	if err != nil || resp.Status != ports.GatewayStatusOK {
		code := resp.ErrorCode
		if err != nil {
			code = "TIMEOUT"
		}

		s.submit(ctx, o, domainfsm.EventKDSErrorOrNoResponse, runtime.ActorKitchen, code,
			&runtime.GatewayContext{StartedAt: started, ResponseAt: time.Now(), ResultCode: code, ResultDescription: resp.ErrorMessage})

		return
	}

	s.submit(ctx, o, domainfsm.EventKDSConfirmation, runtime.ActorKitchen, "", &runtime.GatewayContext{
		StartedAt: started, ResponseAt: time.Now(), ResultCode: "OK", TransactionID: resp.KDSTicketID,
	})
}

func kdsItems(o *order.Order) []ports.KDSRequestItem {
	items := make([]ports.KDSRequestItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, ports.KDSRequestItem{
			ItemID:      it.CatalogItemID.String(),
			Description: it.NameEN,
			Quantity:    it.Quantity,
		})
	}

	return items
}

// completeOrder runs SENT_TO_KDS's terminal side effect: mark the order
// COMPLETED and decrement stock for every line. A per-line deduction
// failure is logged and does not revert the order's completed status.
func (s *Saga) completeOrder(ctx context.Context, o *order.Order) {
	if err := o.Complete(); err != nil {
		s.log.Error("saga: order.Complete failed", slog.Int64("order_id", o.ID), slog.String("error", err.Error()))
		return
	}

	if err := s.saveOrder(ctx, o); err != nil {
		s.log.Error("saga: save completed order failed", slog.Int64("order_id", o.ID), slog.String("error", err.Error()))
		return
	}

	for _, it := range o.Items {
		if err := s.deductStock(ctx, it); err != nil {
			s.log.Error("saga: stock deduction failed for line",
				slog.Int64("order_id", o.ID), slog.String("item_id", it.CatalogItemID.String()), slog.String("error", err.Error()))
		}
	}
}

func (s *Saga) deductStock(ctx context.Context, it order.Item) error {
	_, err := s.stock.Adjust(ctx, it.CatalogItemID, -int64(it.Quantity), inventory.ActorKioskAutoDeduction)
	return err
}

// failOrder runs the terminal side effect shared by every failure state:
// SENT_TO_KDS_FAILED, UNSUCCESSFUL_FISCALIZATION, UNSUCCESSFUL_PAYMENT,
// PRINTING_FAILED. No inventory deduction happens on any of these.
func (s *Saga) failOrder(ctx context.Context, o *order.Order) {
	if err := o.Fail(); err != nil {
		s.log.Error("saga: order.Fail failed", slog.Int64("order_id", o.ID), slog.String("error", err.Error()))
		return
	}

	if err := s.saveOrder(ctx, o); err != nil {
		s.log.Error("saga: save failed order failed", slog.Int64("order_id", o.ID), slog.String("error", err.Error()))
	}
}

// cancelOrder runs the terminal side effect for CANCELED_BY_USER and
// CANCELED_BY_TIMEOUT.
func (s *Saga) cancelOrder(ctx context.Context, o *order.Order) {
	if err := o.Cancel(); err != nil {
		s.log.Error("saga: order.Cancel failed", slog.Int64("order_id", o.ID), slog.String("error", err.Error()))
		return
	}

	if err := s.saveOrder(ctx, o); err != nil {
		s.log.Error("saga: save cancelled order failed", slog.Int64("order_id", o.ID), slog.String("error", err.Error()))
	}
}

func (s *Saga) saveOrder(ctx context.Context, o *order.Order) error {
	txCtx, err := s.uow.Begin(ctx)
	if err != nil {
		return domain.WrapUnavailable("saga.saveOrder: begin", err)
	}

	defer func() { _ = s.uow.Rollback(txCtx) }()

	if _, err := s.orders.Save(txCtx, o); err != nil {
		return domain.MapInfraErr("saga.saveOrder: save", err)
	}

	return domain.WrapUnavailable("saga.saveOrder: commit", s.uow.Commit(txCtx))
}
