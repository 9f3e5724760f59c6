package ports

import "context"

// UnitOfWork manages transaction lifecycle. It does not know about
// repositories — repositories detect a transaction stashed in context (see
// pkg/uow) and participate automatically.
type UnitOfWork interface {
	// Begin starts a transaction and returns a context carrying it.
	Begin(ctx context.Context) (context.Context, error)
	// Commit commits the transaction held in ctx.
	Commit(ctx context.Context) error
	// Rollback rolls back the transaction held in ctx. Safe to call after
	// a successful Commit (no-op).
	Rollback(ctx context.Context) error
}
