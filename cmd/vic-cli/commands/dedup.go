package commands

import (
	"os"
	"path/filepath"
	"vicharvest/lib/serviceutil"
	"vicharvest/lib/snapshots"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var dedupDir *string

func init() {
	dedupDir = dedupCmd.Flags().String("dir", "", "The directory holding snapshot files (defaults to snapshot_dir).")
	rootCmd.AddCommand(dedupCmd)
}

var dedupCmd = &cobra.Command{
	Use:   "dedup [--dir <snapshot dir>]",
	Short: "Merges every snapshot file into the canonical link file.",
	Run: func(cmd *cobra.Command, args []string) {
		dir := *dedupDir
		if dir == "" {
			dir = loadConfig().SnapshotDir
		}

		set, counts, err := snapshots.DeduplicateDir(dir)
		if err != nil {
			serviceutil.Fatal("failed to deduplicate snapshots", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"File", "Lines", "Unique"})
		lines := 0
		for _, c := range counts {
			t.AppendRow(table.Row{filepath.Base(c.File), c.Lines, c.Unique})
			lines += c.Lines
		}
		t.AppendFooter(table.Row{snapshots.CanonicalName, lines, len(set)})
		t.Render()
	},
}
