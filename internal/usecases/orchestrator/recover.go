package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/shortlink-org/kiosk-oms/internal/domain"
	domainfsm "github.com/shortlink-org/kiosk-oms/internal/domain/fsm"
	"github.com/shortlink-org/kiosk-oms/internal/domain/ports"
	"github.com/shortlink-org/kiosk-oms/internal/domain/runtime"
)

// Recover runs the startup recovery procedure: every FSMRuntime row not in
// a terminal state gets a `from==to, comment="recovery"` lifecycle entry,
// its advisory timer re-armed, and its entry handler re-dispatched. This
// may cause a duplicate gateway call for whichever state the order was in
// when the process stopped; gateway adapters are expected to be
// idempotent by order_id where the provider allows it. A failure on one
// order is logged and does not stop recovery of the rest.
func (o *Orchestrator) Recover(ctx context.Context, orders ports.OrderRepository) error {
	runtimes, err := o.runtimes.ListNonTerminal(ctx)
	if err != nil {
		return domain.MapInfraErr("orchestrator.recover: list non-terminal", err)
	}

	for _, r := range runtimes {
		if err := o.recoverOne(ctx, orders, r); err != nil {
			o.log.Error("orchestrator: recovery failed for order",
				slog.Int64("order_id", r.OrderID), slog.String("state", string(r.CurrentState)), slog.String("error", err.Error()))
		}
	}

	return nil
}

func (o *Orchestrator) recoverOne(ctx context.Context, orders ports.OrderRepository, r *runtime.FSMRuntime) error {
	release := o.locks.Lock(r.OrderID)
	defer release()

	ord, err := orders.Load(ctx, r.OrderID)
	if err != nil {
		return domain.MapInfraErr("orchestrator.recover: load order", err)
	}

	txCtx, err := o.uow.Begin(ctx)
	if err != nil {
		return domain.WrapUnavailable("orchestrator.recover: begin", err)
	}

	defer func() { _ = o.uow.Rollback(txCtx) }()

	if _, err := o.runtimes.LoadForUpdate(txCtx, r.OrderID); err != nil {
		return domain.MapInfraErr("orchestrator.recover: lock runtime", err)
	}

	if err := o.lifecycle.Append(txCtx, runtime.LifecycleLog{
		OrderID:        r.OrderID,
		FSMRuntimeID:   r.ID,
		FromState:      r.CurrentState,
		ToState:        r.CurrentState,
		ActorType:      runtime.ActorSystem,
		Comment:        "recovery",
		EventCreatedAt: time.Now(),
	}); err != nil {
		return domain.MapInfraErr("orchestrator.recover: append log", err)
	}

	if err := o.uow.Commit(txCtx); err != nil {
		return domain.WrapUnavailable("orchestrator.recover: commit", err)
	}

	if d, hasTimeout := domainfsm.TimeoutSeconds(r.CurrentState); hasTimeout {
		o.armTimer(r.OrderID, r.CurrentState, d, ord.KioskUsername)
	}

	o.dispatch.Dispatch(r.OrderID, r.CurrentState)

	return nil
}
