// Package recovery runs once at process startup: it resumes every
// in-flight order whose FSM was not in a terminal state when the process
// last stopped. The actual re-arm/re-dispatch mechanics live on
// Orchestrator, since they need its locks, timer table, and dispatcher;
// this package is the startup entry point that calls it.
package recovery

import (
	"context"

	"github.com/shortlink-org/kiosk-oms/internal/domain/ports"
)

// Resumer is the recovery usecase's narrow view of the orchestrator.
type Resumer interface {
	Recover(ctx context.Context, orders ports.OrderRepository) error
}

type Recovery struct {
	orch   Resumer
	orders ports.OrderRepository
}

func New(orch Resumer, orders ports.OrderRepository) *Recovery {
	return &Recovery{orch: orch, orders: orders}
}

// Run executes the recovery scan. Call once, after the orchestrator and
// saga are fully wired but before the HTTP/SSE layer starts accepting
// traffic.
func (r *Recovery) Run(ctx context.Context) error {
	return r.orch.Recover(ctx, r.orders)
}
