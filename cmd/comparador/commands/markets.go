package commands

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/comparador/backend/internal/app"
)

func init() {
	rootCmd.AddCommand(marketsCmd)
}

var marketsCmd = &cobra.Command{
	Use:   "markets",
	Short: "Lists the markets that can be searched.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withServices(func(services *app.Services) error {
			writeMarketsTable(cmd.OutOrStdout(), services.Aggregator.ListMarkets())
			return nil
		})
	},
}

func writeMarketsTable(w io.Writer, markets []string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Market"})

	for _, m := range markets {
		t.AppendRow(table.Row{m})
	}

	t.SetStyle(table.StyleRounded)
	t.Render()
}
