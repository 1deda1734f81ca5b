// Package ingest loads one archive-day into the catalog: enumerate chains,
// fetch and decode the three CSVs per chain with bounded concurrency, then
// hand the accumulated rows to the catalog's atomic per-date replace.
package ingest

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/kosarica/price-archive/internal/archive"
	"github.com/kosarica/price-archive/internal/database"
	"github.com/kosarica/price-archive/internal/metrics"
	"github.com/kosarica/price-archive/internal/parsers/csv"
)

// maxChainFetches bounds per-ingest chain tasks in flight. A bound, not a
// knob: it keeps upstream load predictable.
const maxChainFetches = 5

// Catalog is the write side of the catalog the driver needs.
type Catalog interface {
	IsDateIngested(ctx context.Context, date string) (bool, error)
	ReplaceDate(ctx context.Context, date string, snap database.Snapshot) error
	RecordFailure(ctx context.Context, date, message string) error
}

// Archive is the slice of the archive client the driver needs.
type Archive interface {
	Chains(ctx context.Context, date string) ([]string, error)
	ReadCSV(ctx context.Context, date, chain, file string) (string, error)
}

// Result summarizes one ingest run.
type Result struct {
	Date         string
	Skipped      bool
	StoreCount   int
	ProductCount int
	PriceCount   int
	ChainErrors  []string
}

// Driver runs idempotent per-date ingests.
type Driver struct {
	catalog Catalog
	archive Archive
	log     zerolog.Logger

	// Concurrent ingests of the same date serialize; different dates are
	// independent.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New creates a driver.
func New(catalog Catalog, arc Archive, logger zerolog.Logger) *Driver {
	return &Driver{
		catalog: catalog,
		archive: arc,
		log:     logger,
		locks:   make(map[string]*sync.Mutex),
	}
}

func (d *Driver) dateLock(date string) *sync.Mutex {
	d.locksMu.Lock()
	defer d.locksMu.Unlock()
	mu, ok := d.locks[date]
	if !ok {
		mu = &sync.Mutex{}
		d.locks[date] = mu
	}
	return mu
}

// Run ingests one date. Without force, a prior success short-circuits to a
// no-op. Individual chain failures are logged and swallowed; failures to
// reach the archive at all abort and are recorded as status error.
func (d *Driver) Run(ctx context.Context, date string, force bool) (*Result, error) {
	mu := d.dateLock(date)
	mu.Lock()
	defer mu.Unlock()

	if !force {
		done, err := d.catalog.IsDateIngested(ctx, date)
		if err != nil {
			return nil, fmt.Errorf("check ingestion log for %s: %w", date, err)
		}
		if done {
			d.log.Info().Str("date", date).Msg("date already ingested, skipping")
			metrics.IngestRuns.WithLabelValues("noop").Inc()
			return &Result{Date: date, Skipped: true}, nil
		}
	}

	chains, err := d.archive.Chains(ctx, date)
	if err != nil {
		// Fatal path: no directory, no ingest.
		if rerr := d.catalog.RecordFailure(ctx, date, err.Error()); rerr != nil {
			d.log.Error().Str("date", date).Err(rerr).Msg("failed to record ingest failure")
		}
		metrics.IngestRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("enumerate chains for %s: %w", date, err)
	}
	d.log.Info().Str("date", date).Int("chains", len(chains)).Msg("starting ingest")

	snap, chainErrs := d.fetchChains(ctx, date, chains)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := d.catalog.ReplaceDate(ctx, date, snap); err != nil {
		metrics.IngestRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("replace catalog rows for %s: %w", date, err)
	}

	res := &Result{
		Date:         date,
		StoreCount:   len(snap.Stores),
		ProductCount: len(snap.Products),
		PriceCount:   len(snap.Prices),
		ChainErrors:  chainErrs,
	}
	d.log.Info().
		Str("date", date).
		Int("stores", res.StoreCount).
		Int("products", res.ProductCount).
		Int("prices", res.PriceCount).
		Int("chain_errors", len(chainErrs)).
		Msg("ingest complete")
	metrics.IngestRuns.WithLabelValues("success").Inc()
	return res, nil
}

// fetchChains runs one task per chain with bounded concurrency, collecting
// decoded rows. Per-chain errors land in the returned slice instead of
// aborting the run; partial ingest beats none.
func (d *Driver) fetchChains(ctx context.Context, date string, chains []string) (database.Snapshot, []string) {
	var (
		mu        sync.Mutex
		snap      database.Snapshot
		chainErrs []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxChainFetches)
	for _, chain := range chains {
		g.Go(func() error {
			part, err := d.fetchChain(gctx, date, chain)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				d.log.Warn().Str("date", date).Str("chain", chain).Err(err).Msg("chain ingest failed")
				chainErrs = append(chainErrs, fmt.Sprintf("%s: %v", chain, err))
				return nil
			}
			snap.Stores = append(snap.Stores, part.Stores...)
			snap.Products = append(snap.Products, part.Products...)
			snap.Prices = append(snap.Prices, part.Prices...)
			return nil
		})
	}
	g.Wait()
	return snap, chainErrs
}

// fetchChain reads and decodes the three member files of one chain. The
// chain and date columns are stamped from context, never read from the CSV.
func (d *Driver) fetchChain(ctx context.Context, date, chain string) (database.Snapshot, error) {
	var snap database.Snapshot

	storesText, err := d.archive.ReadCSV(ctx, date, chain, archive.FileStores)
	if err != nil {
		return snap, fmt.Errorf("read stores.csv: %w", err)
	}
	for rec := range csv.Records(storesText) {
		snap.Stores = append(snap.Stores, MapStore(rec, chain, date))
	}

	productsText, err := d.archive.ReadCSV(ctx, date, chain, archive.FileProducts)
	if err != nil {
		return snap, fmt.Errorf("read products.csv: %w", err)
	}
	for rec := range csv.Records(productsText) {
		snap.Products = append(snap.Products, MapProduct(rec, chain, date))
	}

	pricesText, err := d.archive.ReadCSV(ctx, date, chain, archive.FilePrices)
	if err != nil {
		return snap, fmt.Errorf("read prices.csv: %w", err)
	}
	for rec := range csv.Records(pricesText) {
		snap.Prices = append(snap.Prices, MapPrice(rec, chain, date))
	}

	return snap, nil
}
