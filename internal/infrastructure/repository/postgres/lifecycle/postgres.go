// Package postgres implements ports.LifecycleLogRepository over a
// pgxpool.Pool. Entries are append-only: no update or delete path exists,
// matching the audit-trail contract on runtime.LifecycleLog.
package postgres

import (
	"context"
	"embed"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shortlink-org/go-sdk/db"
	"github.com/shortlink-org/go-sdk/db/drivers/postgres/migrate"

	"github.com/shortlink-org/kiosk-oms/internal/domain"
	domainfsm "github.com/shortlink-org/kiosk-oms/internal/domain/fsm"
	"github.com/shortlink-org/kiosk-oms/internal/domain/ports"
	"github.com/shortlink-org/kiosk-oms/internal/domain/runtime"
	"github.com/shortlink-org/kiosk-oms/internal/infrastructure/repository/postgres/tx"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, store db.DB) (*Store, error) {
	pool, ok := store.GetConn().(*pgxpool.Pool)
	if !ok {
		return nil, db.ErrGetConnection
	}

	if err := migrate.Migration(ctx, store, migrations, "repository_lifecycle"); err != nil {
		return nil, err
	}

	return &Store{pool: pool}, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgx.CommandTag, error)
}

func (s *Store) conn(ctx context.Context) querier {
	if pgxTx := tx.FromContext(ctx); pgxTx != nil {
		return pgxTx
	}

	return s.pool
}

// Append writes inside the caller's transaction when one is present, so a
// lifecycle entry lands atomically with the FSMRuntime row it describes;
// outside a transaction it falls back to the pool.
func (s *Store) Append(ctx context.Context, entry runtime.LifecycleLog) error {
	_, err := s.conn(ctx).Exec(ctx, insertLifecycleLogSQL,
		entry.OrderID, entry.FSMRuntimeID, string(entry.FromState), string(entry.ToState),
		triggerEventColumn(entry), string(entry.ActorType), entry.ActorID, entry.Comment, entry.EventCreatedAt,
	)
	if err != nil {
		return domain.MapInfraErr("lifecycle.append", err)
	}

	return nil
}

const insertLifecycleLogSQL = `
	INSERT INTO oms_lifecycle_log
		(order_id, fsm_runtime_id, from_state, to_state, trigger_event, actor_type, actor_id, comment, event_created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

func triggerEventColumn(entry runtime.LifecycleLog) *string {
	if entry.TriggerEvent == nil {
		return nil
	}

	v := string(*entry.TriggerEvent)

	return &v
}

func (s *Store) ListByOrder(ctx context.Context, orderID int64) ([]runtime.LifecycleLog, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT lifecycle_log_id, order_id, fsm_runtime_id, from_state, to_state, trigger_event,
		       actor_type, actor_id, comment, event_created_at
		FROM oms_lifecycle_log WHERE order_id = $1 ORDER BY event_created_at`, orderID)
	if err != nil {
		return nil, domain.MapInfraErr("lifecycle.list_by_order", err)
	}

	defer rows.Close()

	entries := make([]runtime.LifecycleLog, 0)

	for rows.Next() {
		var (
			entry         runtime.LifecycleLog
			fromState     string
			toState       string
			triggerEvent  *string
			actorType     string
		)

		if err := rows.Scan(&entry.ID, &entry.OrderID, &entry.FSMRuntimeID, &fromState, &toState, &triggerEvent,
			&actorType, &entry.ActorID, &entry.Comment, &entry.EventCreatedAt); err != nil {
			return nil, domain.MapInfraErr("lifecycle.scan", err)
		}

		entry.FromState = domainfsm.State(fromState)
		entry.ToState = domainfsm.State(toState)
		entry.ActorType = runtime.ActorType(actorType)

		if triggerEvent != nil {
			event := domainfsm.Event(*triggerEvent)
			entry.TriggerEvent = &event
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, domain.MapInfraErr("lifecycle.list_by_order", err)
	}

	return entries, nil
}

var _ ports.LifecycleLogRepository = (*Store)(nil)
