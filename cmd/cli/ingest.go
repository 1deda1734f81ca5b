package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kosarica/price-archive/internal/database"
	"github.com/kosarica/price-archive/internal/dates"
	"github.com/kosarica/price-archive/internal/ingest"
)

var (
	ingestDate  string
	ingestForce bool
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest one archive date into the catalog",
	Long: `Download the price archive for a date, decode its per-chain CSV files,
and replace that date's rows in the catalog. Without --date the most recent
published archive is used. An already ingested date is skipped unless --force
is given.`,
	Example: `  price-archive ingest
  price-archive ingest --date 2026-01-19
  price-archive ingest --date 2026-01-19 --force`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestDate, "date", "", "Archive date to ingest (format: YYYY-MM-DD, defaults to latest)")
	ingestCmd.Flags().BoolVar(&ingestForce, "force", false, "Re-ingest even if the date was already ingested")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	defer database.Close()

	arc := newArchiveClient()

	date := ingestDate
	if date == "" {
		date = defaultIngestDate(ctx, arc, *logger)
	} else if !dates.IsValid(date) {
		return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
	}

	catalog := database.NewCatalog(database.Pool(), *logger)
	driver := ingest.New(catalog, arc, *logger)

	logger.Info().Str("date", date).Bool("force", ingestForce).Msg("Starting ingestion")

	result, err := driver.Run(ctx, date, ingestForce)
	if err != nil {
		return fmt.Errorf("ingestion failed for %s: %w", date, err)
	}

	displayIngestResult(result)
	return nil
}

type dateResolver interface {
	ResolveDate(ctx context.Context, date string) (string, error)
}

// defaultIngestDate picks the date to ingest when --date is omitted: the
// most recent published archive, or today when the list is unavailable.
// The ingestion itself still fails cleanly if today's archive is missing.
func defaultIngestDate(ctx context.Context, arc dateResolver, log zerolog.Logger) string {
	today := dates.Today()
	resolved, err := arc.ResolveDate(ctx, today)
	if err != nil {
		log.Warn().Err(err).Msg("Archive list unavailable, defaulting to today")
		return today
	}
	return resolved
}

func displayIngestResult(result *ingest.Result) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "DATE\tSTATUS\tSTORES\tPRODUCTS\tPRICES\tCHAIN ERRORS")

	status := "ingested"
	if result.Skipped {
		status = "skipped"
	}
	fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\n",
		result.Date, status, result.StoreCount, result.ProductCount, result.PriceCount, len(result.ChainErrors))
	w.Flush()

	for _, msg := range result.ChainErrors {
		fmt.Fprintf(os.Stderr, "chain error: %s\n", msg)
	}
}
