package fsm

import (
	"context"
	"fmt"

	sdkfsm "github.com/shortlink-org/go-sdk/fsm"
)

// EnterHook is invoked by the underlying go-sdk/fsm on every successful
// transition. It carries no side effects itself; the orchestrator wires its
// own hook to persist and publish.
type EnterHook func(ctx context.Context, from, to State, event Event)

// Machine wraps a single order's go-sdk/fsm instance, scoped to the
// canonical state/event vocabulary above. It holds no persistence or
// gateway knowledge; the orchestrator owns those concerns.
type Machine struct {
	f *sdkfsm.FSM
}

// NewMachine builds a Machine seeded at current, with the full transition
// table registered. current must already be a canonical state (normalize
// before calling).
func NewMachine(current State) *Machine {
	f := sdkfsm.New(sdkState(current))

	for key, to := range transitions {
		f.AddTransitionRule(sdkState(key.from), sdkEvent(key.event), sdkState(to))
	}

	return &Machine{f: f}
}

// OnEnter registers the callback fired after a transition lands on its
// target state.
func (m *Machine) OnEnter(hook EnterHook) {
	m.f.SetOnEnterState(func(ctx context.Context, from, to sdkfsm.State, event sdkfsm.Event) {
		hook(ctx, State(from), State(to), Event(event))
	})
}

// OnExit registers the callback fired before a transition leaves its source
// state.
func (m *Machine) OnExit(hook EnterHook) {
	m.f.SetOnExitState(func(ctx context.Context, from, to sdkfsm.State, event sdkfsm.Event) {
		hook(ctx, State(from), State(to), Event(event))
	})
}

// Current returns the machine's present state.
func (m *Machine) Current() State {
	return State(m.f.GetCurrentState())
}

// Trigger attempts (current, event) against the transition table. On
// success the machine's state advances and registered hooks run inline.
// The caller (the orchestrator, under the per-order lock) is expected to
// treat a non-nil error as ErrInvalidTransition without changing any
// persisted state.
func (m *Machine) Trigger(ctx context.Context, event Event) error {
	if err := m.f.TriggerEvent(ctx, sdkEvent(event)); err != nil {
		return fmt.Errorf("fsm: trigger %s from %s: %w", event, m.Current(), err)
	}

	return nil
}
