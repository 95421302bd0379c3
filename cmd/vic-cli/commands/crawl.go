package commands

import (
	"log/slog"
	"os"
	"path/filepath"
	"vicharvest/lib/serviceutil"
	"vicharvest/lib/snapshots"
	"vicharvest/lib/sqliteutil"
	"vicharvest/lib/telemetry"
	"vicharvest/services/crawl"
	"vicharvest/services/normalize"
	"vicharvest/services/normalize/db"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var crawlLinks *string
var crawlOffset *int

func init() {
	crawlLinks = crawlCmd.Flags().String("links", "", "The link file to crawl (defaults to the canonical file in snapshot_dir).")
	crawlOffset = crawlCmd.Flags().Int("offset", 0, "The amount of links to skip, used to resume a crawl.")
	rootCmd.AddCommand(crawlCmd)
}

var crawlCmd = &cobra.Command{
	Use:   "crawl [--links <file>] [--offset <n>]",
	Short: "Fetches, parses and stores every idea in a link file.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		linksFile := *crawlLinks
		if linksFile == "" {
			linksFile = filepath.Join(cfg.SnapshotDir, snapshots.CanonicalName)
		}
		links, err := snapshots.Read(linksFile)
		if err != nil {
			serviceutil.Fatal("failed to read links", err)
		}

		database, err := sqliteutil.OpenDB(db.Schema, cfg.Database)
		if err != nil {
			serviceutil.Fatal("failed to open db", err)
		}
		defer database.Close()

		tel := telemetry.SlogAPI{}
		telemetry.InstrumentPerfStats(cmd.Context(), tel)

		client := cfg.client(tel)
		pipeline := normalize.NewPipeline(database, normalize.Options{
			UniqueLinks: cfg.Crawl.UniqueLinks,
		}, tel)
		crawler := crawl.NewCrawler(crawl.Config{
			RotateEvery: cfg.Crawl.RotateEvery,
			Offset:      *crawlOffset,
		}, client, pipeline, cfg.rotator(tel), tel)
		crawler.OnRotate = client.ResetState

		stats, crawlErr := crawler.Crawl(cmd.Context(), links)

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Total", "Skipped", "Ingested", "Fetch failed", "Bad date", "Conflicts", "Duplicates", "Failed", "Rotations"})
		t.AppendRow(table.Row{
			stats.Total,
			stats.Skipped,
			stats.Ingested,
			stats.FetchFailed,
			stats.BadDate,
			stats.Conflicts,
			stats.Duplicates,
			stats.Failed,
			stats.Rotations,
		})
		t.Render()

		if crawlErr != nil {
			slog.Info("resume with --offset", "offset", stats.Processed())
			serviceutil.Fatal("crawl stopped", crawlErr)
		}
	},
}
