// Package postgres implements ports.RuntimeRepository over a pgxpool.Pool.
// LoadForUpdate takes a row-level SELECT ... FOR UPDATE lock so concurrent
// Submit calls for the same order serialize at the database, backing up
// the orchestrator's in-process keyed lock for any deployment running more
// than one instance.
package postgres

import (
	"context"
	"embed"
	"encoding/json"
	"errors"

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

var ErrTransactionRequired = errors.New("runtime: transaction required, use UnitOfWork.Begin()")

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, store db.DB) (*Store, error) {
	pool, ok := store.GetConn().(*pgxpool.Pool)
	if !ok {
		return nil, db.ErrGetConnection
	}

	if err := migrate.Migration(ctx, store, migrations, "repository_runtime"); err != nil {
		return nil, err
	}

	return &Store{pool: pool}, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgx.CommandTag, error)
}

func (s *Store) conn(ctx context.Context) querier {
	if pgxTx := tx.FromContext(ctx); pgxTx != nil {
		return pgxTx
	}

	return s.pool
}

func (s *Store) Create(ctx context.Context, r *runtime.FSMRuntime) (int64, error) {
	pgxTx := tx.FromContext(ctx)
	if pgxTx == nil {
		return 0, ErrTransactionRequired
	}

	payment, err := marshalContext(r.PaymentContext)
	if err != nil {
		return 0, err
	}

	fiscal, err := marshalContext(r.FiscalContext)
	if err != nil {
		return 0, err
	}

	printing, err := marshalContext(r.PrintingContext)
	if err != nil {
		return 0, err
	}

	row := pgxTx.QueryRow(ctx, `
		INSERT INTO oms_fsm_runtime
			(order_id, current_state, payment_context, fiscal_context, printing_context, pickup_number, pin_code, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0)
		RETURNING fsm_runtime_id`,
		r.OrderID, string(r.CurrentState), payment, fiscal, printing, r.PickupNumber, r.PinCode,
	)

	if err := row.Scan(&r.ID); err != nil {
		return 0, domain.MapInfraErr("runtime.create", err)
	}

	r.Version = 0

	return r.ID, nil
}

// Load reads the current row without locking it, using the caller's
// transaction if one is stashed in ctx and falling back to the pool
// otherwise. Used by call sites that only need the state for a read,
// not the row lock LoadForUpdate takes.
func (s *Store) Load(ctx context.Context, orderID int64) (*runtime.FSMRuntime, error) {
	return scanRuntime(s.conn(ctx).QueryRow(ctx, `
		SELECT fsm_runtime_id, order_id, current_state, payment_context, fiscal_context, printing_context,
		       pickup_number, pin_code, version
		FROM oms_fsm_runtime WHERE order_id = $1`, orderID))
}

// LoadForUpdate takes the row lock and must run inside a transaction.
func (s *Store) LoadForUpdate(ctx context.Context, orderID int64) (*runtime.FSMRuntime, error) {
	pgxTx := tx.FromContext(ctx)
	if pgxTx == nil {
		return nil, ErrTransactionRequired
	}

	return scanRuntime(pgxTx.QueryRow(ctx, `
		SELECT fsm_runtime_id, order_id, current_state, payment_context, fiscal_context, printing_context,
		       pickup_number, pin_code, version
		FROM oms_fsm_runtime WHERE order_id = $1 FOR UPDATE`, orderID))
}

func (s *Store) Save(ctx context.Context, r *runtime.FSMRuntime) error {
	pgxTx := tx.FromContext(ctx)
	if pgxTx == nil {
		return ErrTransactionRequired
	}

	payment, err := marshalContext(r.PaymentContext)
	if err != nil {
		return err
	}

	fiscal, err := marshalContext(r.FiscalContext)
	if err != nil {
		return err
	}

	printing, err := marshalContext(r.PrintingContext)
	if err != nil {
		return err
	}

	tag, err := pgxTx.Exec(ctx, `
		UPDATE oms_fsm_runtime
		SET current_state = $1, payment_context = $2, fiscal_context = $3, printing_context = $4,
		    pickup_number = $5, pin_code = $6, version = version + 1
		WHERE fsm_runtime_id = $7 AND version = $8`,
		string(r.CurrentState), payment, fiscal, printing, r.PickupNumber, r.PinCode, r.ID, r.Version,
	)
	if err != nil {
		return domain.MapInfraErr("runtime.save", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrVersionConflict
	}

	r.Version++

	return nil
}

// ListNonTerminal loads every FSMRuntime whose state is not terminal, read
// with the pool (no lock held) since recovery re-acquires the row lock
// per-order through LoadForUpdate before touching anything.
func (s *Store) ListNonTerminal(ctx context.Context) ([]*runtime.FSMRuntime, error) {
	rows, err := s.conn(ctx).Query(ctx, `
		SELECT fsm_runtime_id, order_id, current_state, payment_context, fiscal_context, printing_context,
		       pickup_number, pin_code, version
		FROM oms_fsm_runtime`)
	if err != nil {
		return nil, domain.MapInfraErr("runtime.list_non_terminal", err)
	}

	defer rows.Close()

	var result []*runtime.FSMRuntime

	for rows.Next() {
		r, err := scanRuntimeRow(rows)
		if err != nil {
			return nil, err
		}

		if !domainfsm.IsTerminal(r.CurrentState) {
			result = append(result, r)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, domain.MapInfraErr("runtime.list_non_terminal", err)
	}

	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRuntime(row rowScanner) (*runtime.FSMRuntime, error) {
	r, err := scanRuntimeRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}

		return nil, domain.MapInfraErr("runtime.load", err)
	}

	return r, nil
}

func scanRuntimeRow(row rowScanner) (*runtime.FSMRuntime, error) {
	var (
		state                            string
		paymentRaw, fiscalRaw, printRaw []byte
	)

	fr := &runtime.FSMRuntime{}

	if err := row.Scan(&fr.ID, &fr.OrderID, &state, &paymentRaw, &fiscalRaw, &printRaw,
		&fr.PickupNumber, &fr.PinCode, &fr.Version); err != nil {
		return nil, err
	}

	fr.CurrentState = domainfsm.State(state)

	var err error

	fr.PaymentContext, err = unmarshalContext(paymentRaw)
	if err != nil {
		return nil, err
	}

	fr.FiscalContext, err = unmarshalContext(fiscalRaw)
	if err != nil {
		return nil, err
	}

	fr.PrintingContext, err = unmarshalContext(printRaw)
	if err != nil {
		return nil, err
	}

	return fr, nil
}

func marshalContext(c *runtime.GatewayContext) ([]byte, error) {
	if c == nil {
		return nil, nil
	}

	raw, err := json.Marshal(c)
	if err != nil {
		return nil, domain.WrapUnavailable("runtime.marshal_context", err)
	}

	return raw, nil
}

func unmarshalContext(raw []byte) (*runtime.GatewayContext, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var c runtime.GatewayContext
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, domain.WrapUnavailable("runtime.unmarshal_context", err)
	}

	return &c, nil
}

var _ ports.RuntimeRepository = (*Store)(nil)
