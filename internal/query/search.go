package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kosarica/price-archive/internal/archive"
	"github.com/kosarica/price-archive/internal/database"
	"github.com/kosarica/price-archive/internal/ingest"
	"github.com/kosarica/price-archive/internal/parsers/csv"
)

// Search answers "what are the prices for products matching q in this city
// on this date". Resolution order: the requested date from the catalog, the
// latest ingested date from the catalog, then on-demand range extraction
// from the upstream archive.
func (s *Service) Search(ctx context.Context, date, q, city string) (*SearchResult, error) {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		// Nothing to match; answered without touching catalog or upstream.
		return &SearchResult{Products: []ProductGroup{}, ActualDate: date}, nil
	}

	ingested, err := s.catalog.IsDateIngested(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", date, err)
	}
	actual := date
	if !ingested {
		latest, err := s.catalog.LatestIngestedDate(ctx)
		if err != nil {
			return nil, fmt.Errorf("search %s: %w", date, err)
		}
		if latest != "" {
			actual = latest
			ingested = true
		}
	}

	if ingested {
		groups, err := s.searchCatalog(ctx, actual, q, city)
		if err != nil {
			return nil, err
		}
		return &SearchResult{Products: groups, ActualDate: actual, Source: SourceCatalog}, nil
	}
	return s.searchArchive(ctx, date, q, city)
}

func (s *Service) searchCatalog(ctx context.Context, date, q, city string) ([]ProductGroup, error) {
	products, err := s.catalog.ProductsMatching(ctx, date, q)
	if err != nil {
		return nil, fmt.Errorf("search products %s: %w", date, err)
	}
	if len(products) == 0 {
		return []ProductGroup{}, nil
	}

	chainSet := make(map[string]bool)
	var chains []string
	ids := make([]string, 0, len(products))
	for _, p := range products {
		if !chainSet[p.Chain] {
			chainSet[p.Chain] = true
			chains = append(chains, p.Chain)
		}
		ids = append(ids, p.ProductID)
	}

	stores, err := s.catalog.StoresForChains(ctx, date, chains, city)
	if err != nil {
		return nil, fmt.Errorf("search stores %s: %w", date, err)
	}
	prices, err := s.catalog.PricesForProducts(ctx, date, chains, ids)
	if err != nil {
		return nil, fmt.Errorf("search prices %s: %w", date, err)
	}
	return mergeGroups(products, stores, prices), nil
}

// searchArchive is the two-phase remote path: products.csv from every chain
// first, then stores and prices only for chains that matched. A miss costs
// O(chains) small range requests instead of the whole archive.
func (s *Service) searchArchive(ctx context.Context, date, q, city string) (*SearchResult, error) {
	actual, err := s.archive.ResolveDate(ctx, date)
	if errors.Is(err, archive.ErrNoArchives) {
		// Nothing upstream and nothing local: empty, best-effort date.
		return &SearchResult{Products: []ProductGroup{}, ActualDate: date, Source: SourceArchive}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve date %s: %w", date, err)
	}

	match := func(p database.Product) bool {
		return strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Brand), q) ||
			p.Barcode == q
	}
	products, stores, prices, err := s.remoteFetch(ctx, actual, match, city, "")
	if err != nil {
		return nil, err
	}
	return &SearchResult{
		Products:   mergeGroups(products, stores, prices),
		ActualDate: actual,
		Source:     SourceArchive,
	}, nil
}

// remoteFetch runs the two phases against one archive date. onlyChain
// restricts phase A to a single chain when non-empty. Per-chain read
// failures are logged and swallowed; the caller sees partial results with
// the archive source marker.
func (s *Service) remoteFetch(ctx context.Context, date string, match func(database.Product) bool, city, onlyChain string) ([]database.Product, []database.Store, []database.Price, error) {
	chains, err := s.archive.Chains(ctx, date)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("enumerate chains %s: %w", date, err)
	}
	if onlyChain != "" {
		if !contains(chains, onlyChain) {
			return nil, nil, nil, nil
		}
		chains = []string{onlyChain}
	}

	// Phase A: products only.
	var (
		mu       sync.Mutex
		products []database.Product
	)
	matchedIDs := make(map[string][]string) // chain -> product ids

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(remoteFetchLimit)
	for _, chain := range chains {
		g.Go(func() error {
			text, err := s.archive.ReadCSV(gctx, date, chain, archive.FileProducts)
			if err != nil {
				s.log.Warn().Str("date", date).Str("chain", chain).Err(err).Msg("products fetch failed")
				return nil
			}
			for rec := range csv.Records(text) {
				p := ingest.MapProduct(rec, chain, date)
				if !match(p) {
					continue
				}
				mu.Lock()
				products = append(products, p)
				matchedIDs[chain] = append(matchedIDs[chain], p.ProductID)
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, nil, nil, err
	}
	if len(products) == 0 {
		return nil, nil, nil, nil
	}

	// Phase B: stores and prices for matching chains only.
	var (
		stores []database.Store
		prices []database.Price
	)
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(remoteFetchLimit)
	for chain, ids := range matchedIDs {
		idSet := make(map[string]bool, len(ids))
		for _, id := range ids {
			idSet[id] = true
		}
		g.Go(func() error {
			text, err := s.archive.ReadCSV(gctx, date, chain, archive.FileStores)
			if err != nil {
				s.log.Warn().Str("date", date).Str("chain", chain).Err(err).Msg("stores fetch failed")
				return nil
			}
			for rec := range csv.Records(text) {
				st := ingest.MapStore(rec, chain, date)
				if city != "" && !strings.Contains(strings.ToLower(st.City), strings.ToLower(city)) {
					continue
				}
				mu.Lock()
				stores = append(stores, st)
				mu.Unlock()
			}
			return nil
		})
		g.Go(func() error {
			text, err := s.archive.ReadCSV(gctx, date, chain, archive.FilePrices)
			if err != nil {
				s.log.Warn().Str("date", date).Str("chain", chain).Err(err).Msg("prices fetch failed")
				return nil
			}
			for rec := range csv.Records(text) {
				if !idSet[rec["product_id"]] {
					continue
				}
				pr := ingest.MapPrice(rec, chain, date)
				mu.Lock()
				prices = append(prices, pr)
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, nil, nil, err
	}
	return products, stores, prices, nil
}
