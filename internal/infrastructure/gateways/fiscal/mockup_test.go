package fiscal

import (
	"context"
	"testing"
	"time"

	sdklogger "github.com/shortlink-org/go-sdk/logger"
	"github.com/stretchr/testify/require"

	"github.com/shortlink-org/kiosk-oms/internal/domain/ports"
)

func newTestLogger(t *testing.T) sdklogger.Logger {
	t.Helper()

	log, err := sdklogger.New(sdklogger.Default())
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })

	return log
}

func TestMockupAlwaysSucceeds(t *testing.T) {
	m := NewMockup(Config{SuccessProbability: 1, ProcessingDelay: time.Millisecond}, newTestLogger(t))

	resp, err := m.Call(context.Background(), ports.FiscalRequest{OrderID: "1"})
	require.NoError(t, err)
	require.Equal(t, ports.GatewayStatusOK, resp.Status)
	require.NotNil(t, resp.Receipt)
}

func TestMockupAlwaysDeclines(t *testing.T) {
	m := NewMockup(Config{SuccessProbability: 0, ProcessingDelay: time.Millisecond}, newTestLogger(t))

	resp, err := m.Call(context.Background(), ports.FiscalRequest{OrderID: "1"})
	require.NoError(t, err)
	require.Equal(t, ports.GatewayStatusNotOK, resp.Status)
	require.NotEmpty(t, resp.ErrorCode)
}

func TestMockupRespectsContextDeadline(t *testing.T) {
	m := NewMockup(Config{SuccessProbability: 1, ProcessingDelay: time.Hour}, newTestLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := m.Call(ctx, ports.FiscalRequest{OrderID: "1"})
	require.Error(t, err)
}
