package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"vicharvest/cmd/vic-cli/commands"
	"vicharvest/lib/osutil"
	"vicharvest/lib/telemetry"

	"github.com/subosito/gotenv"
)

func main() {
	err := gotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "err", err)
	}

	telemetry.InitSlog(os.Getenv("VIC_VERBOSE") != "")
	tel, err := telemetry.SetupFromEnv(context.Background(), "vic-cli")
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to setup telemetry", "err", err)
	}
	defer tel.Shutdown(context.Background())

	ctx, cancel := osutil.SignalContext(context.Background())
	defer cancel()
	commands.ExecuteContext(ctx)
}
