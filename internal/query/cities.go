package query

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/kosarica/price-archive/internal/archive"
	"github.com/kosarica/price-archive/internal/dates"
	"github.com/kosarica/price-archive/internal/parsers/csv"
)

// majorCities is the floor list served when neither the catalog nor the
// upstream yields any city.
var majorCities = []string{
	"Zagreb", "Split", "Rijeka", "Osijek", "Zadar",
	"Pula", "Slavonski Brod", "Karlovac", "Varaždin", "Šibenik",
	"Dubrovnik", "Sisak", "Velika Gorica", "Vinkovci", "Vukovar",
}

// Cities returns the known store cities, locale-sorted for Croatian.
// Catalog first, latest archive second, fixed floor last.
func (s *Service) Cities(ctx context.Context) ([]string, error) {
	cities, err := s.catalog.Cities(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("catalog cities failed, trying archive")
		cities = nil
	}
	if len(cities) == 0 {
		cities = s.archiveCities(ctx)
	}
	if len(cities) == 0 {
		cities = append([]string(nil), majorCities...)
	}

	collate.New(language.Croatian).SortStrings(cities)
	return cities, nil
}

// archiveCities unions stores.csv cities across the latest archive's chains.
func (s *Service) archiveCities(ctx context.Context) []string {
	date, err := s.archive.ResolveDate(ctx, dates.Today())
	if err != nil {
		s.log.Warn().Err(err).Msg("archive cities: no archive date")
		return nil
	}
	chains, err := s.archive.Chains(ctx, date)
	if err != nil {
		s.log.Warn().Str("date", date).Err(err).Msg("archive cities: chains failed")
		return nil
	}

	var mu sync.Mutex
	seen := make(map[string]bool)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(remoteFetchLimit)
	for _, chain := range chains {
		g.Go(func() error {
			text, err := s.archive.ReadCSV(gctx, date, chain, archive.FileStores)
			if err != nil {
				return nil
			}
			for rec := range csv.Records(text) {
				if city := rec["city"]; city != "" {
					mu.Lock()
					seen[city] = true
					mu.Unlock()
				}
			}
			return nil
		})
	}
	g.Wait()

	cities := make([]string, 0, len(seen))
	for city := range seen {
		cities = append(cities, city)
	}
	return cities
}
