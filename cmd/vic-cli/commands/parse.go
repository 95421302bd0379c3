package commands

import (
	"context"
	"os"
	"vicharvest/lib/scrapers/vic"
	"vicharvest/lib/serviceutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var parseLink *string

func init() {
	parseLink = parseCmd.Flags().String("link", "", "The link the page was fetched from.")
	rootCmd.AddCommand(parseCmd)
}

var parseCmd = &cobra.Command{
	Use:   "parse <page.html> [--link <url>]",
	Short: "Parses a saved idea page and prints the result.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		f, err := os.Open(args[0])
		if err != nil {
			serviceutil.Fatal("failed to open page", err)
		}
		defer f.Close()

		doc, err := goquery.NewDocumentFromReader(f)
		if err != nil {
			serviceutil.Fatal("failed to parse page", err)
		}

		idea := vic.ParseIdea(context.Background(), doc, *parseLink)

		date := "<invalid>"
		parsed, err := vic.ParseDate(idea.Date)
		if err == nil {
			date = parsed.Format("2006-01-02 15:04")
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetColumnConfigs([]table.ColumnConfig{
			{Number: 2, WidthMax: 100, WidthMaxEnforcer: text.WrapSoft},
		})
		t.AppendRows([]table.Row{
			{"Link", idea.Link},
			{"Ticker", idea.Ticker},
			{"Company", idea.CompanyName},
			{"User", idea.Username},
			{"User link", idea.UserLink},
			{"Date", idea.Date},
			{"Parsed date", date},
			{"Short", idea.IsShort},
			{"Contest winner", idea.IsContestWinner},
			{"Description", idea.Description},
			{"Catalysts", idea.Catalysts},
		})
		t.Render()
	},
}
