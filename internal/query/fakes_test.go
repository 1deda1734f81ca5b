package query

import (
	"context"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/kosarica/price-archive/internal/archive"
	"github.com/kosarica/price-archive/internal/database"
	"github.com/kosarica/price-archive/internal/dates"
)

// fakeCatalog is an in-memory Catalog. Matching mimics the SQL layer:
// substring on lowered name/brand, exact barcode.
type fakeCatalog struct {
	ingested []string
	products map[string][]database.Product // date -> rows
	stores   map[string][]database.Store
	prices   map[string][]database.Price
	history  map[string][]database.ChainStat // date -> stats
	cities   []string

	citiesErr error

	// last HistoryPoints arguments, for precedence assertions
	lastBarcode string
	lastName    string

	calls atomic.Int64
}

func (f *fakeCatalog) IsDateIngested(ctx context.Context, date string) (bool, error) {
	f.calls.Add(1)
	for _, d := range f.ingested {
		if d == date {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCatalog) LatestIngestedDate(ctx context.Context) (string, error) {
	f.calls.Add(1)
	latest := ""
	for _, d := range f.ingested {
		if dates.Compare(d, latest) > 0 {
			latest = d
		}
	}
	return latest, nil
}

func (f *fakeCatalog) SuccessDates(ctx context.Context, limit int) ([]string, error) {
	f.calls.Add(1)
	ds := append([]string(nil), f.ingested...)
	sort.Sort(sort.Reverse(sort.StringSlice(ds)))
	if len(ds) > limit {
		ds = ds[:limit]
	}
	return ds, nil
}

func (f *fakeCatalog) ProductsMatching(ctx context.Context, date, q string) ([]database.Product, error) {
	f.calls.Add(1)
	var out []database.Product
	for _, p := range f.products[date] {
		if containsFold(p.Name, q) || containsFold(p.Brand, q) || p.Barcode == q {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeCatalog) StoresForChains(ctx context.Context, date string, chains []string, city string) ([]database.Store, error) {
	f.calls.Add(1)
	var out []database.Store
	for _, s := range f.stores[date] {
		if !contains(chains, s.Chain) {
			continue
		}
		if city != "" && !containsFold(s.City, city) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeCatalog) PricesForProducts(ctx context.Context, date string, chains, productIDs []string) ([]database.Price, error) {
	f.calls.Add(1)
	var out []database.Price
	for _, p := range f.prices[date] {
		if contains(chains, p.Chain) && contains(productIDs, p.ProductID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeCatalog) HistoryPoints(ctx context.Context, date, barcode, name, city, chain string) ([]database.ChainStat, error) {
	f.calls.Add(1)
	f.lastBarcode = barcode
	f.lastName = name
	return f.history[date], nil
}

func (f *fakeCatalog) Cities(ctx context.Context) ([]string, error) {
	f.calls.Add(1)
	if f.citiesErr != nil {
		return nil, f.citiesErr
	}
	return append([]string(nil), f.cities...), nil
}

// fakeArchive serves archives from a nested map: date -> chain -> file.
type fakeArchive struct {
	files map[string]map[string]map[string]string

	readCalls atomic.Int64
}

func (f *fakeArchive) List(ctx context.Context) ([]archive.Info, error) {
	var ds []string
	for d := range f.files {
		ds = append(ds, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ds)))
	infos := make([]archive.Info, 0, len(ds))
	for _, d := range ds {
		infos = append(infos, archive.Info{Date: d, URL: "http://archive.test/v0/archive/" + d + ".zip"})
	}
	return infos, nil
}

func (f *fakeArchive) ResolveDate(ctx context.Context, date string) (string, error) {
	infos, _ := f.List(ctx)
	if len(infos) == 0 {
		return "", archive.ErrNoArchives
	}
	for _, a := range infos {
		if a.Date == date {
			return date, nil
		}
	}
	return infos[0].Date, nil
}

func (f *fakeArchive) Chains(ctx context.Context, date string) ([]string, error) {
	var out []string
	for chain := range f.files[date] {
		out = append(out, chain)
	}
	return out, nil
}

func (f *fakeArchive) ReadCSV(ctx context.Context, date, chain, file string) (string, error) {
	f.readCalls.Add(1)
	return f.files[date][chain][file], nil
}

func containsFold(haystack, needle string) bool {
	return needle != "" && strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
