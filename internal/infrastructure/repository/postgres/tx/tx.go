// Package tx stashes a pgx.Tx in context so every postgres repository
// under this UnitOfWork participates in the same transaction without
// being handed one explicitly.
package tx

import (
	"context"

	"github.com/jackc/pgx/v5"
)

type ctxKey struct{}

// FromContext extracts the pgx.Tx stashed in ctx, or nil if none.
func FromContext(ctx context.Context) pgx.Tx {
	t, _ := ctx.Value(ctxKey{}).(pgx.Tx)
	return t
}

// WithTx returns a context carrying tx.
func WithTx(ctx context.Context, t pgx.Tx) context.Context {
	return context.WithValue(ctx, ctxKey{}, t)
}
