package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/comparador/backend/internal/app"
	httpDelivery "github.com/comparador/backend/internal/delivery/http"
	"github.com/comparador/backend/internal/domain"
)

var (
	searchMarket string
	searchJSON   bool
)

func init() {
	searchCmd.Flags().StringVarP(&searchMarket, "market", "m", "", "Only search this market.")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Print results as JSON.")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <term> [--market <name>] [--json]",
	Short: "Searches every market (or one) for a product.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		term := strings.TrimSpace(strings.Join(args, " "))
		if term == "" {
			return fmt.Errorf("%w: search term is required", domain.ErrInvalidRequest)
		}

		return withServices(func(services *app.Services) error {
			var products []domain.Product
			if searchMarket != "" {
				products = services.Aggregator.SearchByMarket(cmd.Context(), term, searchMarket)
			} else {
				products = services.Aggregator.SearchAll(cmd.Context(), term)
			}

			if searchJSON {
				return writeProductsJSON(cmd.OutOrStdout(), products)
			}
			writeProductsTable(cmd.OutOrStdout(), products)
			return nil
		})
	},
}

func writeProductsJSON(w io.Writer, products []domain.Product) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(httpDelivery.ToProductResponses(products))
}

func writeProductsTable(w io.Writer, products []domain.Product) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Market", "Product", "Price", "List price"})

	for _, p := range products {
		listPrice := "-"
		if p.OriginalPrice.Valid {
			listPrice = "R$ " + p.OriginalPrice.Decimal.StringFixed(2)
		}
		t.AppendRow(table.Row{p.Market, p.Name, "R$ " + p.Price.StringFixed(2), listPrice})
	}

	t.AppendFooter(table.Row{"", fmt.Sprintf("%d products", len(products)), "", ""})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	t.SetStyle(table.StyleRounded)
	t.Render()
}
