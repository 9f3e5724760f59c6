package fsm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMachineTrigger(t *testing.T) {
	m := NewMachine(StateInit)

	var entered []State
	m.OnEnter(func(_ context.Context, from, to State, event Event) {
		entered = append(entered, to)
	})

	require.Equal(t, StateInit, m.Current())

	err := m.Trigger(context.Background(), EventFiscalizationSucceeded)
	require.NoError(t, err)
	require.Equal(t, StateAwaitingPayment, m.Current())
	require.Equal(t, []State{StateAwaitingPayment}, entered)

	err = m.Trigger(context.Background(), EventPaymentSucceeded)
	require.NoError(t, err)
	require.Equal(t, StateAwaitingPrinting, m.Current())
}

func TestMachineInvalidTransition(t *testing.T) {
	m := NewMachine(StateInit)

	err := m.Trigger(context.Background(), EventPaymentSucceeded)
	require.Error(t, err)
	require.Equal(t, StateInit, m.Current(), "state must not change on an invalid transition")
}
