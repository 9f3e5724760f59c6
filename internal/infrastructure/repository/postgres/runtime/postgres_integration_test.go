//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shortlink-org/kiosk-oms/internal/domain"
	domainfsm "github.com/shortlink-org/kiosk-oms/internal/domain/fsm"
	"github.com/shortlink-org/kiosk-oms/internal/domain/runtime"
	runtimerepo "github.com/shortlink-org/kiosk-oms/internal/infrastructure/repository/postgres/runtime"
	"github.com/shortlink-org/kiosk-oms/internal/infrastructure/repository/postgres/testhelpers"
	"github.com/shortlink-org/kiosk-oms/internal/infrastructure/repository/postgres/uow"
)

func setupRuntimeTest(t *testing.T) (*runtimerepo.Store, *uow.PostgresUoW) {
	t.Helper()

	pc := testhelpers.SetupPostgresContainer(t)

	store, err := runtimerepo.New(context.Background(), pc.DB())
	require.NoError(t, err)

	return store, uow.New(pc.Pool)
}

func TestRuntime_CreateAndLoadForUpdate(t *testing.T) {
	store, u := setupRuntimeTest(t)
	ctx := context.Background()

	r := &runtime.FSMRuntime{
		OrderID:      1001,
		CurrentState: domainfsm.StateInit,
		PickupNumber: "7",
		PinCode:      "1234",
	}

	txCtx, err := u.Begin(ctx)
	require.NoError(t, err)

	id, err := store.Create(txCtx, r)
	require.NoError(t, err)
	require.NoError(t, u.Commit(txCtx))
	assert.NotZero(t, id)

	txCtx2, err := u.Begin(ctx)
	require.NoError(t, err)
	defer u.Rollback(txCtx2)

	loaded, err := store.LoadForUpdate(txCtx2, 1001)
	require.NoError(t, err)
	assert.Equal(t, domainfsm.StateInit, loaded.CurrentState)
	assert.Equal(t, "7", loaded.PickupNumber)
	assert.Equal(t, 0, loaded.Version)
}

func TestRuntime_LoadForUpdateRequiresTransaction(t *testing.T) {
	store, _ := setupRuntimeTest(t)

	_, err := store.LoadForUpdate(context.Background(), 1)

	assert.True(t, errors.Is(err, runtimerepo.ErrTransactionRequired))
}

func TestRuntime_SaveTransitionsAndContext(t *testing.T) {
	store, u := setupRuntimeTest(t)
	ctx := context.Background()

	r := &runtime.FSMRuntime{OrderID: 1002, CurrentState: domainfsm.StateInit}

	txCtx, err := u.Begin(ctx)
	require.NoError(t, err)
	_, err = store.Create(txCtx, r)
	require.NoError(t, err)
	require.NoError(t, u.Commit(txCtx))

	txCtx2, err := u.Begin(ctx)
	require.NoError(t, err)

	loaded, err := store.LoadForUpdate(txCtx2, 1002)
	require.NoError(t, err)

	loaded.CurrentState = domainfsm.StateAwaitingPayment
	loaded.PaymentContext = &runtime.GatewayContext{SessionID: "sess-1", TransactionID: "tx-1"}

	require.NoError(t, store.Save(txCtx2, loaded))
	require.NoError(t, u.Commit(txCtx2))

	txCtx3, err := u.Begin(ctx)
	require.NoError(t, err)
	defer u.Rollback(txCtx3)

	final, err := store.LoadForUpdate(txCtx3, 1002)
	require.NoError(t, err)
	assert.Equal(t, domainfsm.StateAwaitingPayment, final.CurrentState)
	require.NotNil(t, final.PaymentContext)
	assert.Equal(t, "tx-1", final.PaymentContext.TransactionID)
	assert.Equal(t, 1, final.Version)
}

func TestRuntime_SaveVersionConflict(t *testing.T) {
	store, u := setupRuntimeTest(t)
	ctx := context.Background()

	r := &runtime.FSMRuntime{OrderID: 1003, CurrentState: domainfsm.StateInit}

	txCtx, err := u.Begin(ctx)
	require.NoError(t, err)
	_, err = store.Create(txCtx, r)
	require.NoError(t, err)
	require.NoError(t, u.Commit(txCtx))

	stale := &runtime.FSMRuntime{ID: r.ID, OrderID: 1003, CurrentState: domainfsm.StateCanceledByUser, Version: 5}

	txCtx2, err := u.Begin(ctx)
	require.NoError(t, err)
	err = store.Save(txCtx2, stale)

	assert.True(t, errors.Is(err, domain.ErrVersionConflict))
	_ = u.Rollback(txCtx2)
}

func TestRuntime_ListNonTerminalExcludesTerminalStates(t *testing.T) {
	store, u := setupRuntimeTest(t)
	ctx := context.Background()

	open := &runtime.FSMRuntime{OrderID: 2001, CurrentState: domainfsm.StateAwaitingKDS}
	closed := &runtime.FSMRuntime{OrderID: 2002, CurrentState: domainfsm.StateCanceledByUser}

	txCtx, err := u.Begin(ctx)
	require.NoError(t, err)
	_, err = store.Create(txCtx, open)
	require.NoError(t, err)
	_, err = store.Create(txCtx, closed)
	require.NoError(t, err)
	require.NoError(t, u.Commit(txCtx))

	nonTerminal, err := store.ListNonTerminal(ctx)
	require.NoError(t, err)

	var orderIDs []int64
	for _, r := range nonTerminal {
		orderIDs = append(orderIDs, r.OrderID)
	}

	assert.Contains(t, orderIDs, int64(2001))
	assert.NotContains(t, orderIDs, int64(2002))
}
