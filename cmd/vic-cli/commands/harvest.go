package commands

import (
	"log/slog"
	"time"
	"vicharvest/lib/serviceutil"
	"vicharvest/lib/snapshots"
	"vicharvest/lib/telemetry"
	"vicharvest/lib/timezone"
	"vicharvest/services/harvester"

	"github.com/spf13/cobra"
)

var harvestStart *string
var harvestIterations *int

func init() {
	harvestStart = harvestCmd.Flags().String("start", "", "The listing date to start from (MM/DD/YYYY), defaults to today on the site.")
	harvestIterations = harvestCmd.Flags().Int("iterations", 100, "The maximum amount of times to load more ideas.")
	rootCmd.AddCommand(harvestCmd)
}

var harvestCmd = &cobra.Command{
	Use:   "harvest [--start <MM/DD/YYYY>] [--iterations <n>]",
	Short: "Collects idea links from the listing into a snapshot file.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		start := timezone.Today()
		if *harvestStart != "" {
			var err error
			start, err = time.ParseInLocation(snapshots.InputDateLayout, *harvestStart, timezone.Location)
			if err != nil {
				serviceutil.Fatal("invalid start date", err)
			}
		}

		tel := telemetry.SlogAPI{}
		telemetry.InstrumentPerfStats(cmd.Context(), tel)

		client := cfg.client(tel)
		h := harvester.New(
			cfg.harvesterConfig(),
			harvester.ClientListing(client),
			cfg.rotator(tel),
			tel,
		)
		h.OnRotate = client.ResetState

		result, err := h.Harvest(cmd.Context(), start, *harvestIterations)
		if err != nil {
			serviceutil.Fatal("harvest failed", err)
		}

		slog.Info(
			"harvest finished",
			"session", result.SessionID,
			"links", len(result.Links),
			"file", result.File,
			"iterations", result.Iterations,
			"rotations", result.Rotations,
			"exhausted", result.Exhausted,
		)
	},
}
