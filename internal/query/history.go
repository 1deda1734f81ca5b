package query

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kosarica/price-archive/internal/database"
	"github.com/kosarica/price-archive/internal/dates"
)

// History answers "how have the prices for this product evolved over the
// last days". At least one of barcode and name is required; barcode wins
// when both are given. Output is sorted strictly ascending by date, one
// entry per date, dates without matches omitted.
func (s *Service) History(ctx context.Context, p HistoryParams) ([]HistoryEntry, error) {
	if p.Barcode == "" && strings.TrimSpace(p.Name) == "" {
		return nil, ErrBadRequest
	}
	if p.Barcode != "" {
		p.Name = ""
	}
	if p.Days <= 0 {
		return []HistoryEntry{}, nil
	}

	catalogDates, err := s.catalog.SuccessDates(ctx, p.Days)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	if len(catalogDates) > 0 {
		return s.historyCatalog(ctx, p, catalogDates)
	}
	return s.historyArchive(ctx, p)
}

func (s *Service) historyCatalog(ctx context.Context, p HistoryParams, ds []string) ([]HistoryEntry, error) {
	dates.SortAsc(ds)
	entries := make([]HistoryEntry, 0, len(ds))
	for _, date := range ds {
		stats, err := s.catalog.HistoryPoints(ctx, date, p.Barcode, p.Name, p.City, p.Chain)
		if err != nil {
			return nil, fmt.Errorf("history %s: %w", date, err)
		}
		if len(stats) == 0 {
			continue
		}
		entries = append(entries, HistoryEntry{Date: date, Prices: stats})
	}
	return entries, nil
}

// historyArchive aggregates straight from the upstream archives, batching
// remoteHistoryBatch dates in parallel.
func (s *Service) historyArchive(ctx context.Context, p HistoryParams) ([]HistoryEntry, error) {
	archives, err := s.archive.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	if len(archives) > p.Days {
		archives = archives[:p.Days]
	}

	name := strings.ToLower(strings.TrimSpace(p.Name))
	match := func(pr database.Product) bool {
		if p.Barcode != "" {
			return pr.Barcode == p.Barcode
		}
		return strings.Contains(strings.ToLower(pr.Name), name)
	}

	var (
		mu      sync.Mutex
		entries []HistoryEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(remoteHistoryBatch)
	for _, a := range archives {
		g.Go(func() error {
			products, stores, prices, err := s.remoteFetch(gctx, a.Date, match, p.City, p.Chain)
			if err != nil {
				s.log.Warn().Str("date", a.Date).Err(err).Msg("remote history date failed")
				return nil
			}
			stats := aggregate(products, stores, prices)
			if len(stats) == 0 {
				return nil
			}
			mu.Lock()
			entries = append(entries, HistoryEntry{Date: a.Date, Prices: stats})
			mu.Unlock()
			return nil
		})
	}
	g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sortEntriesAsc(entries)
	return entries, nil
}

// aggregate folds observations into per-chain min and arithmetic mean,
// one observation per store, unweighted.
func aggregate(products []database.Product, stores []database.Store, prices []database.Price) []database.ChainStat {
	groups := mergeGroups(products, stores, prices)

	type acc struct {
		min   float64
		sum   float64
		count int
	}
	byChain := make(map[string]*acc)
	var chainOrder []string
	for _, g := range groups {
		for _, obs := range g.Prices {
			a, ok := byChain[obs.Chain]
			if !ok {
				a = &acc{min: obs.Price}
				byChain[obs.Chain] = a
				chainOrder = append(chainOrder, obs.Chain)
			}
			if obs.Price < a.min {
				a.min = obs.Price
			}
			a.sum += obs.Price
			a.count++
		}
	}

	sort.Strings(chainOrder)
	stats := make([]database.ChainStat, 0, len(chainOrder))
	for _, chain := range chainOrder {
		a := byChain[chain]
		stats = append(stats, database.ChainStat{
			Chain:    chain,
			MinPrice: a.min,
			AvgPrice: a.sum / float64(a.count),
		})
	}
	return stats
}

func sortEntriesAsc(entries []HistoryEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Date < entries[j].Date
	})
}
