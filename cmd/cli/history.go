package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kosarica/price-archive/internal/database"
	"github.com/kosarica/price-archive/internal/query"
)

var (
	historyBarcode string
	historyName    string
	historyCity    string
	historyChain   string
	historyDays    int
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show per-chain price history for a product",
	Long: `Show minimum and average price per chain across recent archive dates for a
product selected by barcode or name. Barcode takes precedence when both are
given.`,
	Example: `  price-archive history --barcode 3850102304707
  price-archive history --name mlijeko --days 14 --city Zagreb
  price-archive history --barcode 3850102304707 --chain konzum`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVar(&historyBarcode, "barcode", "", "Exact product barcode")
	historyCmd.Flags().StringVar(&historyName, "name", "", "Product name substring")
	historyCmd.Flags().StringVar(&historyCity, "city", "", "Only include stores in this city")
	historyCmd.Flags().StringVar(&historyChain, "chain", "", "Only include this chain")
	historyCmd.Flags().IntVar(&historyDays, "days", 7, "Number of recent dates to cover")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	defer database.Close()

	svc := newQueryService()
	entries, err := svc.History(ctx, query.HistoryParams{
		Barcode: historyBarcode,
		Name:    historyName,
		City:    historyCity,
		Chain:   historyChain,
		Days:    historyDays,
	})
	if err != nil {
		return fmt.Errorf("history failed: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println("No price history found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "DATE\tCHAIN\tMIN\tAVG")
	for _, e := range entries {
		for _, p := range e.Prices {
			fmt.Fprintf(w, "%s\t%s\t%.2f\t%.2f\n", e.Date, p.Chain, p.MinPrice, p.AvgPrice)
		}
	}
	return w.Flush()
}
