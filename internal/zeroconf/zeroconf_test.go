package zeroconf_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/micro-nova/ampctl/internal/zeroconf"
)

func TestTXT(t *testing.T) {
	require.Equal(t,
		[]string{"version=1.2.0", "device=d4np2", "mock=true", "api=/api"},
		zeroconf.TXT("1.2.0", true))
}

func TestStart_InvalidPort(t *testing.T) {
	svc := zeroconf.New("ampctl-test", 0, "test", true)
	require.Error(t, svc.Start(context.Background()))
}

// Start may fail where multicast is unavailable; it must still return once
// the context is cancelled.
func TestStart_Cancel(t *testing.T) {
	svc := zeroconf.New("ampctl-test", 18080, "test", true)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Logf("Start returned error (may be expected in CI): %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Start did not return within 3 seconds after context cancellation")
	}
}
