package osutil

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// SignalContext returns a context that is cancelled on the first Ctrl+C
// (or SIGTERM) so a harvest or crawl can stop between steps, a second one
// exits right away.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigs:
			slog.Warn("stopping, send again to exit immediately", "signal", sig.String())
			cancel()
		case <-ctx.Done():
			signal.Stop(sigs)
			return
		}
		select {
		case <-sigs:
			os.Exit(130)
		case <-parent.Done():
		}
		signal.Stop(sigs)
	}()

	return ctx, cancel
}
