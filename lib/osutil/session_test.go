//go:build unix

package osutil

import (
	"context"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignalContextCancel(t *testing.T) {
	ctx, cancel := SignalContext(context.Background())
	require.NoError(t, ctx.Err())
	cancel()
	require.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestSignalContextInterrupt(t *testing.T) {
	parent, stop := context.WithCancel(context.Background())
	defer stop()

	ctx, cancel := SignalContext(parent)
	defer cancel()

	require.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGINT))

	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context was not cancelled by SIGINT")
	}
}
