package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainfsm "github.com/shortlink-org/kiosk-oms/internal/domain/fsm"
	"github.com/shortlink-org/kiosk-oms/internal/domain/order"
	"github.com/shortlink-org/kiosk-oms/internal/domain/ports"
	"github.com/shortlink-org/kiosk-oms/internal/domain/runtime"
)

type fakeOrderRepo struct {
	orders map[int64]*order.Order
}

func (f *fakeOrderRepo) Save(_ context.Context, o *order.Order) (int64, error) { return o.ID, nil }

func (f *fakeOrderRepo) Load(_ context.Context, id int64) (*order.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}

	return o, nil
}

func (f *fakeOrderRepo) ListByStatus(context.Context, order.Status, int, int) ([]*order.Order, error) {
	return nil, nil
}

func (f *fakeOrderRepo) CountByStatus(context.Context, order.Status) (int64, error) { return 0, nil }

func (f *fakeOrderRepo) PickupIdentifiersTaken(context.Context, time.Time, string, string) (bool, error) {
	return false, nil
}

func TestRecoverResumesNonTerminalOrders(t *testing.T) {
	o, runtimes, lifecycle, _, dispatch := newTestOrchestrator(t)

	require.NoError(t, o.Initialize(context.Background(), 1, "kiosk-1"))
	require.NoError(t, o.Initialize(context.Background(), 2, "kiosk-1"))

	orders := &fakeOrderRepo{orders: map[int64]*order.Order{
		1: {ID: 1, KioskUsername: "kiosk-1"},
		2: {ID: 2, KioskUsername: "kiosk-1"},
	}}

	dispatch.seen = nil

	require.NoError(t, o.Recover(context.Background(), orders))

	require.Len(t, dispatch.seen, 2)

	r1, err := runtimes.LoadForUpdate(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, domainfsm.StateInit, r1.CurrentState)

	entries := lifecycle.entries
	var recoveryEntries int
	for _, e := range entries {
		if e.Comment == "recovery" {
			recoveryEntries++
			require.Equal(t, e.FromState, e.ToState)
		}
	}
	require.Equal(t, 2, recoveryEntries)
}

func TestRecoverSkipsTerminalOrders(t *testing.T) {
	o, _, _, _, dispatch := newTestOrchestrator(t)

	require.NoError(t, o.Initialize(context.Background(), 1, "kiosk-1"))
	require.NoError(t, o.Initialize(context.Background(), 2, "kiosk-1"))

	ok, err := o.Submit(context.Background(), 2, domainfsm.EventFiscalizationFailed, runtime.ActorFiscalDevice, "", "", nil, "kiosk-1")
	require.NoError(t, err)
	require.True(t, ok)

	orders := &fakeOrderRepo{orders: map[int64]*order.Order{
		1: {ID: 1, KioskUsername: "kiosk-1"},
		2: {ID: 2, KioskUsername: "kiosk-1"},
	}}

	dispatch.seen = nil

	require.NoError(t, o.Recover(context.Background(), orders))
	require.Len(t, dispatch.seen, 1, "only the non-terminal order 1 is resumed")
	require.Equal(t, domainfsm.StateInit, dispatch.seen[0])
}
