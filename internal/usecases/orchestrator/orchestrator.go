// Package orchestrator implements the FSM orchestrator: the only
// component allowed to mutate FSMRuntime.current_state. It validates
// transitions against internal/domain/fsm's table, persists them, appends
// the lifecycle log, arms/cancels the per-state advisory timer, publishes
// STATE_CHANGED to the bus, and dispatches the saga's entry handler for the
// landed state outside its own transaction.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	logger "github.com/shortlink-org/go-sdk/logger"

	"github.com/shortlink-org/kiosk-oms/internal/domain"
	domainfsm "github.com/shortlink-org/kiosk-oms/internal/domain/fsm"
	"github.com/shortlink-org/kiosk-oms/internal/domain/ports"
	"github.com/shortlink-org/kiosk-oms/internal/domain/runtime"
)

// EntryDispatcher runs the saga's entry handler for an order landing on
// state. Dispatch must not block Submit/Initialize's caller: implementers
// run the handler on its own goroutine with a fresh, transaction-free
// context.
type EntryDispatcher interface {
	Dispatch(orderID int64, state domainfsm.State)
}

// Orchestrator is constructed once per process and injected wherever the
// order and saga usecases need to drive the FSM; it is not itself a global
// singleton.
type Orchestrator struct {
	runtimes  ports.RuntimeRepository
	lifecycle ports.LifecycleLogRepository
	uow       ports.UnitOfWork
	publisher ports.EventPublisher
	dispatch  EntryDispatcher
	log       logger.Logger

	locks  *keyedMutex
	timers *timerTable
}

func New(runtimes ports.RuntimeRepository, lifecycle ports.LifecycleLogRepository, u ports.UnitOfWork, publisher ports.EventPublisher, dispatch EntryDispatcher, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		runtimes:  runtimes,
		lifecycle: lifecycle,
		uow:       u,
		publisher: publisher,
		dispatch:  dispatch,
		log:       log,
		locks:     newKeyedMutex(),
		timers:    newTimerTable(),
	}
}

// contextBucket classifies an event into the FSMRuntime context field it
// should populate.
func contextBucket(event domainfsm.Event) string {
	switch event {
	case domainfsm.EventFiscalizationSucceeded, domainfsm.EventFiscalizationFailed:
		return "fiscal"
	case domainfsm.EventPaymentSucceeded, domainfsm.EventPaymentFailed,
		domainfsm.EventUserCanceled, domainfsm.EventInactivityTimeout, domainfsm.EventPaymentRetry:
		return "payment"
	case domainfsm.EventPrintingSucceeded, domainfsm.EventPrintingFailedOrTimeout:
		return "printing"
	default:
		return ""
	}
}

func foldContext(r *runtime.FSMRuntime, event domainfsm.Event, data *runtime.GatewayContext) {
	if data == nil {
		return
	}

	switch contextBucket(event) {
	case "fiscal":
		r.FiscalContext = data
	case "payment":
		r.PaymentContext = data
	case "printing":
		r.PrintingContext = data
	}
}

// Initialize creates the FSMRuntime row for a freshly persisted order,
// records the ∅->INIT lifecycle entry, publishes STATE_CHANGED, commits,
// then dispatches INIT's entry handler asynchronously.
func (o *Orchestrator) Initialize(ctx context.Context, orderID int64, kioskChannel string) error {
	release := o.locks.Lock(orderID)
	defer release()

	txCtx, err := o.uow.Begin(ctx)
	if err != nil {
		return domain.WrapUnavailable("orchestrator.initialize: begin", err)
	}

	defer func() { _ = o.uow.Rollback(txCtx) }()

	r := &runtime.FSMRuntime{OrderID: orderID, CurrentState: domainfsm.StateInit}

	runtimeID, err := o.runtimes.Create(txCtx, r)
	if err != nil {
		return domain.MapInfraErr("orchestrator.initialize: create runtime", err)
	}

	r.ID = runtimeID

	if err := o.lifecycle.Append(txCtx, runtime.LifecycleLog{
		OrderID:        orderID,
		FSMRuntimeID:   runtimeID,
		FromState:      "",
		ToState:        domainfsm.StateInit,
		ActorType:      runtime.ActorSystem,
		EventCreatedAt: time.Now(),
	}); err != nil {
		return domain.MapInfraErr("orchestrator.initialize: append log", err)
	}

	if err := o.publisher.Publish(txCtx, kioskChannel, newStateChanged(orderID, "", domainfsm.StateInit, "", nil)); err != nil {
		o.log.Warn("orchestrator: publish failed", slog.Int64("order_id", orderID), slog.String("error", err.Error()))
	}

	if err := o.uow.Commit(txCtx); err != nil {
		return domain.WrapUnavailable("orchestrator.initialize: commit", err)
	}

	o.dispatch.Dispatch(orderID, domainfsm.StateInit)

	return nil
}

// Submit validates and applies (current, event) for orderID. Returns
// (true, nil) on a landed transition, (false, nil) when the pair is
// invalid (logged, no state change, no publish), and a non-nil error only
// for infrastructure failure.
func (o *Orchestrator) Submit(ctx context.Context, orderID int64, event domainfsm.Event, actor runtime.ActorType, actorID, comment string, eventData *runtime.GatewayContext, kioskChannel string) (bool, error) {
	release := o.locks.Lock(orderID)
	defer release()

	txCtx, err := o.uow.Begin(ctx)
	if err != nil {
		return false, domain.WrapUnavailable("orchestrator.submit: begin", err)
	}

	defer func() { _ = o.uow.Rollback(txCtx) }()

	r, err := o.runtimes.LoadForUpdate(txCtx, orderID)
	if err != nil {
		return false, domain.MapInfraErr("orchestrator.submit: load runtime", err)
	}

	current := r.CurrentState

	machine := domainfsm.NewMachine(current)
	if err := machine.Trigger(txCtx, event); err != nil {
		if err := o.lifecycle.Append(txCtx, runtime.LifecycleLog{
			OrderID:        orderID,
			FSMRuntimeID:   r.ID,
			FromState:      current,
			ToState:        current,
			TriggerEvent:   &event,
			ActorType:      actor,
			ActorID:        actorID,
			Comment:        comment,
			EventCreatedAt: time.Now(),
		}); err != nil {
			return false, domain.MapInfraErr("orchestrator.submit: append invalid-transition log", err)
		}

		if err := o.uow.Commit(txCtx); err != nil {
			return false, domain.WrapUnavailable("orchestrator.submit: commit invalid-transition log", err)
		}

		o.log.Info("orchestrator: rejected invalid transition",
			slog.Int64("order_id", orderID), slog.String("state", string(current)), slog.String("event", string(event)))

		return false, nil
	}

	to := machine.Current()

	r.CurrentState = to
	foldContext(r, event, eventData)

	if err := o.runtimes.Save(txCtx, r); err != nil {
		return false, domain.MapInfraErr("orchestrator.submit: save runtime", err)
	}

	if err := o.lifecycle.Append(txCtx, runtime.LifecycleLog{
		OrderID:        orderID,
		FSMRuntimeID:   r.ID,
		FromState:      current,
		ToState:        to,
		TriggerEvent:   &event,
		ActorType:      actor,
		ActorID:        actorID,
		Comment:        comment,
		EventCreatedAt: time.Now(),
	}); err != nil {
		return false, domain.MapInfraErr("orchestrator.submit: append log", err)
	}

	o.timers.Cancel(orderID)

	if d, hasTimeout := domainfsm.TimeoutSeconds(to); hasTimeout {
		o.armTimer(orderID, to, d, kioskChannel)
	}

	if err := o.publisher.Publish(txCtx, kioskChannel, newStateChanged(orderID, current, to, event, eventData)); err != nil {
		o.log.Warn("orchestrator: publish failed", slog.Int64("order_id", orderID), slog.String("error", err.Error()))
	}

	if err := o.uow.Commit(txCtx); err != nil {
		return false, domain.WrapUnavailable("orchestrator.submit: commit", err)
	}

	o.dispatch.Dispatch(orderID, to)

	return true, nil
}

// armTimer schedules the advisory timer for state. The fired event is
// submitted with a transaction-free background context, as any suspension
// point outside an active transaction requires.
func (o *Orchestrator) armTimer(orderID int64, state domainfsm.State, seconds int, kioskChannel string) {
	event, ok := timerFireEvent[state]
	if !ok {
		return
	}

	o.timers.Arm(orderID, time.Duration(seconds)*time.Second, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		ok, err := o.Submit(ctx, orderID, event, runtime.ActorSystem, "", fmt.Sprintf("timer fired for %s", state), nil, kioskChannel)
		if err != nil {
			o.log.Error("orchestrator: timer submit failed", slog.Int64("order_id", orderID), slog.String("error", err.Error()))

			return
		}

		if !ok {
			o.log.Info("orchestrator: timer fire was a no-op, order already left the armed state",
				slog.Int64("order_id", orderID), slog.String("armed_state", string(state)))
		}
	})
}
