package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kosarica/price-archive/internal/database"
	"github.com/kosarica/price-archive/internal/dates"
	"github.com/kosarica/price-archive/internal/query"
)

var (
	searchDate string
	searchCity string
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search products by name, brand, or barcode",
	Long: `Search the price catalog for products matching a name or brand substring,
or an exact barcode. Falls back to reading the remote archive directly when the
date has not been ingested yet.`,
	Example: `  price-archive search mlijeko
  price-archive search 3850102304707
  price-archive search "coca cola" --city Zagreb --date 2026-01-19`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVar(&searchDate, "date", "", "Snapshot date to search (format: YYYY-MM-DD, defaults to today)")
	searchCmd.Flags().StringVar(&searchCity, "city", "", "Only include stores in this city")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	defer database.Close()

	date := searchDate
	if date == "" {
		date = dates.Today()
	}
	if !dates.IsValid(date) {
		return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
	}

	svc := newQueryService()
	result, err := svc.Search(ctx, date, args[0], searchCity)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	fmt.Printf("Date %s (source: %s), %d products\n\n", result.ActualDate, result.Source, len(result.Products))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "NAME\tBRAND\tBARCODE\tCHAINS\tPRICES\tMIN\tMAX")
	for _, p := range result.Products {
		min, max := priceRange(p.Prices)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%.2f\t%.2f\n",
			p.Name, p.Brand, p.Barcode, strings.Join(p.Chains, ","), len(p.Prices), min, max)
	}
	return w.Flush()
}

func priceRange(prices []query.PriceObservation) (float64, float64) {
	if len(prices) == 0 {
		return 0, 0
	}
	min, max := prices[0].Price, prices[0].Price
	for _, p := range prices[1:] {
		if p.Price < min {
			min = p.Price
		}
		if p.Price > max {
			max = p.Price
		}
	}
	return min, max
}
