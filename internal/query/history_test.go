package query

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kosarica/price-archive/internal/database"
)

func TestHistoryRequiresSelector(t *testing.T) {
	svc := New(&fakeCatalog{}, &fakeArchive{}, zerolog.Nop())

	_, err := svc.History(context.Background(), HistoryParams{Days: 7})
	assert.ErrorIs(t, err, ErrBadRequest)

	_, err = svc.History(context.Background(), HistoryParams{Name: "   ", Days: 7})
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestHistoryZeroDays(t *testing.T) {
	svc := New(&fakeCatalog{}, &fakeArchive{}, zerolog.Nop())

	entries, err := svc.History(context.Background(), HistoryParams{Barcode: "385001", Days: 0})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHistoryCatalogAscending(t *testing.T) {
	catalog := &fakeCatalog{
		ingested: []string{"2026-01-17", "2026-01-19", "2026-01-18"},
		history: map[string][]database.ChainStat{
			"2026-01-19": {{Chain: "konzum", MinPrice: 1.09, AvgPrice: 1.19}},
			"2026-01-18": {{Chain: "konzum", MinPrice: 1.05, AvgPrice: 1.15}},
			"2026-01-17": {}, // no matches that day
		},
	}
	svc := New(catalog, &fakeArchive{}, zerolog.Nop())

	entries, err := svc.History(context.Background(), HistoryParams{Barcode: "385001", Days: 7})
	require.NoError(t, err)

	// Dates without matches are omitted; the rest come back ascending
	require.Len(t, entries, 2)
	assert.Equal(t, "2026-01-18", entries[0].Date)
	assert.Equal(t, "2026-01-19", entries[1].Date)
	assert.Equal(t, 1.05, entries[0].Prices[0].MinPrice)
}

func TestHistoryBarcodeWinsOverName(t *testing.T) {
	catalog := &fakeCatalog{
		ingested: []string{"2026-01-19"},
		history: map[string][]database.ChainStat{
			"2026-01-19": {{Chain: "konzum", MinPrice: 1, AvgPrice: 1}},
		},
	}
	svc := New(catalog, &fakeArchive{}, zerolog.Nop())

	_, err := svc.History(context.Background(), HistoryParams{Barcode: "385001", Name: "mlijeko", Days: 1})
	require.NoError(t, err)
	assert.Equal(t, "385001", catalog.lastBarcode)
	assert.Equal(t, "", catalog.lastName)
}

func TestHistoryDaysLimit(t *testing.T) {
	catalog := &fakeCatalog{
		ingested: []string{"2026-01-17", "2026-01-18", "2026-01-19"},
		history: map[string][]database.ChainStat{
			"2026-01-19": {{Chain: "konzum", MinPrice: 1, AvgPrice: 1}},
			"2026-01-18": {{Chain: "konzum", MinPrice: 2, AvgPrice: 2}},
			"2026-01-17": {{Chain: "konzum", MinPrice: 3, AvgPrice: 3}},
		},
	}
	svc := New(catalog, &fakeArchive{}, zerolog.Nop())

	entries, err := svc.History(context.Background(), HistoryParams{Barcode: "385001", Days: 2})
	require.NoError(t, err)

	// Only the two most recent dates are considered
	require.Len(t, entries, 2)
	assert.Equal(t, "2026-01-18", entries[0].Date)
	assert.Equal(t, "2026-01-19", entries[1].Date)
}

func TestHistoryArchiveAggregation(t *testing.T) {
	day := func(konzumPrices, lidlPrice string) map[string]map[string]string {
		return map[string]map[string]string{
			"konzum": {
				"stores.csv":   "store_id,type,address,city,zipcode\n001,supermarket,Ilica 1,Zagreb,10000\n002,supermarket,Trg 3,Split,21000\n",
				"products.csv": "product_id,barcode,name,brand,category,unit,quantity\nk1,385001,Mlijeko,Dukat,mlijecni,L,1\n",
				"prices.csv":   konzumPrices,
			},
			"lidl": {
				"stores.csv":   "store_id,type,address,city,zipcode\n005,supermarket,Put 5,Zagreb,10000\n",
				"products.csv": "product_id,barcode,name,brand,category,unit,quantity\nl1,385001,Mlijeko trajno,Dukat,mlijecni,L,1\n",
				"prices.csv":   lidlPrice,
			},
		}
	}
	arc := &fakeArchive{files: map[string]map[string]map[string]string{
		"2026-01-19": day(
			"store_id,product_id,price\n001,k1,1.00\n002,k1,1.50\n",
			"store_id,product_id,price\n005,l1,0.95\n",
		),
		"2026-01-18": day(
			"store_id,product_id,price\n001,k1,1.20\n002,k1,1.40\n",
			"store_id,product_id,price\n005,l1,0.99\n",
		),
	}}
	svc := New(&fakeCatalog{}, arc, zerolog.Nop())

	entries, err := svc.History(context.Background(), HistoryParams{Barcode: "385001", Days: 7})
	require.NoError(t, err)

	require.Len(t, entries, 2)
	assert.Equal(t, "2026-01-18", entries[0].Date)
	assert.Equal(t, "2026-01-19", entries[1].Date)

	// Per-chain min and mean over stores, chains sorted by name
	latest := entries[1].Prices
	require.Len(t, latest, 2)
	assert.Equal(t, "konzum", latest[0].Chain)
	assert.Equal(t, 1.00, latest[0].MinPrice)
	assert.InDelta(t, 1.25, latest[0].AvgPrice, 1e-9)
	assert.Equal(t, "lidl", latest[1].Chain)
	assert.Equal(t, 0.95, latest[1].MinPrice)
}

func TestHistoryArchiveChainFilter(t *testing.T) {
	arc := &fakeArchive{files: map[string]map[string]map[string]string{
		"2026-01-19": {
			"konzum": {
				"stores.csv":   "store_id,type,address,city,zipcode\n001,supermarket,Ilica 1,Zagreb,10000\n",
				"products.csv": "product_id,barcode,name,brand,category,unit,quantity\nk1,385001,Mlijeko,Dukat,mlijecni,L,1\n",
				"prices.csv":   "store_id,product_id,price\n001,k1,1.00\n",
			},
			"lidl": {
				"stores.csv":   "store_id,type,address,city,zipcode\n005,supermarket,Put 5,Zagreb,10000\n",
				"products.csv": "product_id,barcode,name,brand,category,unit,quantity\nl1,385001,Mlijeko trajno,Dukat,mlijecni,L,1\n",
				"prices.csv":   "store_id,product_id,price\n005,l1,0.95\n",
			},
		},
	}}
	svc := New(&fakeCatalog{}, arc, zerolog.Nop())

	entries, err := svc.History(context.Background(), HistoryParams{Barcode: "385001", Chain: "lidl", Days: 7})
	require.NoError(t, err)

	require.Len(t, entries, 1)
	require.Len(t, entries[0].Prices, 1)
	assert.Equal(t, "lidl", entries[0].Prices[0].Chain)
}
