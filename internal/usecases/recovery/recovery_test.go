package recovery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shortlink-org/kiosk-oms/internal/domain/ports"
)

type fakeResumer struct {
	calls int
	err   error
}

func (f *fakeResumer) Recover(context.Context, ports.OrderRepository) error {
	f.calls++

	return f.err
}

func TestRunDelegatesToOrchestrator(t *testing.T) {
	resumer := &fakeResumer{}
	r := New(resumer, nil)

	require.NoError(t, r.Run(context.Background()))
	require.Equal(t, 1, resumer.calls)
}

func TestRunPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	resumer := &fakeResumer{err: boom}
	r := New(resumer, nil)

	err := r.Run(context.Background())
	require.ErrorIs(t, err, boom)
}
