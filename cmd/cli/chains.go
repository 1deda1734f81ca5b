package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kosarica/price-archive/internal/chains"
	"github.com/kosarica/price-archive/internal/dates"
)

var chainsDate string

// chainsCmd represents the chains command
var chainsCmd = &cobra.Command{
	Use:   "chains",
	Short: "List retail chains present in an archive",
	Long: `List the chain directories found in the archive for a date, marking which
ones are known chain codes. Without --date the most recent archive is used.`,
	Example: `  price-archive chains
  price-archive chains --date 2026-01-19`,
	Args: cobra.NoArgs,
	RunE: runChains,
}

func init() {
	rootCmd.AddCommand(chainsCmd)

	chainsCmd.Flags().StringVar(&chainsDate, "date", "", "Archive date to inspect (format: YYYY-MM-DD, defaults to latest)")
}

func runChains(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	arc := newArchiveClient()

	date := chainsDate
	if date == "" {
		date = dates.Today()
	} else if !dates.IsValid(date) {
		return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
	}

	resolved, err := arc.ResolveDate(ctx, date)
	if err != nil {
		return fmt.Errorf("resolve archive date: %w", err)
	}

	present, err := arc.Chains(ctx, resolved)
	if err != nil {
		return fmt.Errorf("list chains for %s: %w", resolved, err)
	}

	fmt.Printf("Archive %s, %d chains\n\n", resolved, len(present))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "CHAIN\tKNOWN")
	for _, code := range present {
		known := "no"
		if chains.IsKnown(code) {
			known = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\n", code, known)
	}
	return w.Flush()
}
