package orchestrator

import (
	"context"
	"sync"
	"testing"

	sdklogger "github.com/shortlink-org/go-sdk/logger"
	"github.com/stretchr/testify/require"

	domainfsm "github.com/shortlink-org/kiosk-oms/internal/domain/fsm"
	"github.com/shortlink-org/kiosk-oms/internal/domain/ports"
	"github.com/shortlink-org/kiosk-oms/internal/domain/runtime"
)

// fakeUoW is a no-op unit of work: tests exercise orchestrator logic
// against in-memory repositories, so there is no real transaction to
// thread through context.
type fakeUoW struct{}

func (fakeUoW) Begin(ctx context.Context) (context.Context, error) { return ctx, nil }
func (fakeUoW) Commit(ctx context.Context) error                   { return nil }
func (fakeUoW) Rollback(ctx context.Context) error                 { return nil }

type fakeRuntimeRepo struct {
	mu   sync.Mutex
	rows map[int64]*runtime.FSMRuntime
	next int64
}

func newFakeRuntimeRepo() *fakeRuntimeRepo {
	return &fakeRuntimeRepo{rows: make(map[int64]*runtime.FSMRuntime)}
}

func (f *fakeRuntimeRepo) Create(_ context.Context, r *runtime.FSMRuntime) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.next++
	cp := *r
	cp.ID = f.next
	f.rows[r.OrderID] = &cp

	return f.next, nil
}

func (f *fakeRuntimeRepo) Load(_ context.Context, orderID int64) (*runtime.FSMRuntime, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.rows[orderID]
	if !ok {
		return nil, ports.ErrNotFound
	}

	cp := *r

	return &cp, nil
}

func (f *fakeRuntimeRepo) LoadForUpdate(_ context.Context, orderID int64) (*runtime.FSMRuntime, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.rows[orderID]
	if !ok {
		return nil, ports.ErrNotFound
	}

	cp := *r

	return &cp, nil
}

func (f *fakeRuntimeRepo) Save(_ context.Context, r *runtime.FSMRuntime) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	cp := *r
	f.rows[r.OrderID] = &cp

	return nil
}

func (f *fakeRuntimeRepo) ListNonTerminal(context.Context) ([]*runtime.FSMRuntime, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*runtime.FSMRuntime
	for _, r := range f.rows {
		if !domainfsm.IsTerminal(r.CurrentState) {
			cp := *r
			out = append(out, &cp)
		}
	}

	return out, nil
}

type fakeLifecycleRepo struct {
	mu      sync.Mutex
	entries []runtime.LifecycleLog
}

func (f *fakeLifecycleRepo) Append(_ context.Context, e runtime.LifecycleLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.entries = append(f.entries, e)

	return nil
}

func (f *fakeLifecycleRepo) ListByOrder(_ context.Context, orderID int64) ([]runtime.LifecycleLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []runtime.LifecycleLog
	for _, e := range f.entries {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}

	return out, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []ports.Event
}

func (f *fakePublisher) Publish(_ context.Context, _ string, event ports.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.events = append(f.events, event)

	return nil
}

type fakeDispatcher struct {
	mu   sync.Mutex
	seen []domainfsm.State
}

func (f *fakeDispatcher) Dispatch(_ int64, state domainfsm.State) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seen = append(f.seen, state)
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *fakeRuntimeRepo, *fakeLifecycleRepo, *fakePublisher, *fakeDispatcher) {
	t.Helper()

	log, err := sdklogger.New(sdklogger.Default())
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	runtimes := newFakeRuntimeRepo()
	lifecycle := &fakeLifecycleRepo{}
	pub := &fakePublisher{}
	dispatch := &fakeDispatcher{}

	o := New(runtimes, lifecycle, fakeUoW{}, pub, dispatch, log)

	return o, runtimes, lifecycle, pub, dispatch
}

func TestInitialize(t *testing.T) {
	o, runtimes, lifecycle, pub, dispatch := newTestOrchestrator(t)

	err := o.Initialize(context.Background(), 1, "kiosk-1")
	require.NoError(t, err)

	r, err := runtimes.LoadForUpdate(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, domainfsm.StateInit, r.CurrentState)

	require.Len(t, lifecycle.entries, 1)
	require.Equal(t, domainfsm.State(""), lifecycle.entries[0].FromState)

	require.Len(t, pub.events, 1)
	require.Len(t, dispatch.seen, 1)
	require.Equal(t, domainfsm.StateInit, dispatch.seen[0])
}

func TestSubmitValidTransition(t *testing.T) {
	o, runtimes, _, pub, dispatch := newTestOrchestrator(t)

	require.NoError(t, o.Initialize(context.Background(), 1, "kiosk-1"))

	ok, err := o.Submit(context.Background(), 1, domainfsm.EventFiscalizationSucceeded, runtime.ActorFiscalDevice, "", "", nil, "kiosk-1")
	require.NoError(t, err)
	require.True(t, ok)

	r, err := runtimes.LoadForUpdate(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, domainfsm.StateAwaitingPayment, r.CurrentState)

	require.Len(t, pub.events, 2, "one STATE_CHANGED for INIT, one for AWAITING_PAYMENT")
	require.Len(t, dispatch.seen, 2)
	require.Equal(t, domainfsm.StateAwaitingPayment, dispatch.seen[1])
}

func TestSubmitInvalidTransitionIsRejectedWithoutStateChange(t *testing.T) {
	o, runtimes, lifecycle, pub, _ := newTestOrchestrator(t)

	require.NoError(t, o.Initialize(context.Background(), 1, "kiosk-1"))

	ok, err := o.Submit(context.Background(), 1, domainfsm.EventPaymentSucceeded, runtime.ActorCustomer, "", "", nil, "kiosk-1")
	require.NoError(t, err)
	require.False(t, ok)

	r, err := runtimes.LoadForUpdate(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, domainfsm.StateInit, r.CurrentState, "state must not change on an invalid transition")

	require.Len(t, pub.events, 1, "no STATE_CHANGED is published for a rejected transition")

	last := lifecycle.entries[len(lifecycle.entries)-1]
	require.True(t, last.IsRejection())
	require.Equal(t, domainfsm.StateInit, last.FromState)
	require.Equal(t, domainfsm.StateInit, last.ToState)
}

func TestSubmitMissingRuntimeFails(t *testing.T) {
	o, _, _, _, _ := newTestOrchestrator(t)

	_, err := o.Submit(context.Background(), 999, domainfsm.EventFiscalizationSucceeded, runtime.ActorSystem, "", "", nil, "kiosk-1")
	require.Error(t, err)
}
