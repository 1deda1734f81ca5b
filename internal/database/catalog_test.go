package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestCatalog starts a throwaway Postgres container, connects the
// package pool to it, and applies the schema.
func setupTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { container.Terminate(ctx) })

	connString, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, Connect(ctx, connString, 5, 1, time.Hour, time.Minute))
	t.Cleanup(Close)

	require.NoError(t, EnsureSchema(ctx))
	return NewCatalog(Pool(), zerolog.Nop())
}

func sampleSnapshot(date string) Snapshot {
	unitPrice := 1.09
	return Snapshot{
		Stores: []Store{
			{Chain: "konzum", StoreID: "001", Date: date, Type: "supermarket", Address: "Ilica 1", City: "Zagreb", Zipcode: "10000"},
			{Chain: "lidl", StoreID: "002", Date: date, Type: "supermarket", Address: "Put 5", City: "Split", Zipcode: "21000"},
		},
		Products: []Product{
			{Chain: "konzum", ProductID: "k1", Date: date, Barcode: "385001", Name: "Mlijeko trajno", Brand: "Dukat", Category: "mlijecni", Unit: "L", Quantity: "1"},
			{Chain: "lidl", ProductID: "l1", Date: date, Barcode: "385001", Name: "Mlijeko trajno 2.8%", Brand: "Dukat", Category: "mlijecni", Unit: "L", Quantity: "1"},
		},
		Prices: []Price{
			{Chain: "konzum", StoreID: "001", ProductID: "k1", Date: date, Price: 1.09, UnitPrice: &unitPrice},
			{Chain: "lidl", StoreID: "002", ProductID: "l1", Date: date, Price: 0.99},
		},
	}
}

func TestReplaceDateRoundtrip(t *testing.T) {
	catalog := setupTestCatalog(t)
	ctx := context.Background()
	date := "2026-01-19"

	require.NoError(t, catalog.ReplaceDate(ctx, date, sampleSnapshot(date)))

	done, err := catalog.IsDateIngested(ctx, date)
	require.NoError(t, err)
	assert.True(t, done)

	latest, err := catalog.LatestIngestedDate(ctx)
	require.NoError(t, err)
	assert.Equal(t, date, latest)

	products, err := catalog.ProductsMatching(ctx, date, "mlijeko")
	require.NoError(t, err)
	assert.Len(t, products, 2)

	stores, err := catalog.StoresForChains(ctx, date, []string{"konzum", "lidl"}, "zagreb")
	require.NoError(t, err)
	require.Len(t, stores, 1)
	assert.Equal(t, "001", stores[0].StoreID)

	prices, err := catalog.PricesForProducts(ctx, date, []string{"konzum", "lidl"}, []string{"k1", "l1"})
	require.NoError(t, err)
	require.Len(t, prices, 2)
	for _, p := range prices {
		if p.Chain == "konzum" {
			require.NotNil(t, p.UnitPrice)
			assert.Equal(t, 1.09, *p.UnitPrice)
		} else {
			assert.Nil(t, p.UnitPrice)
		}
	}

	cities, err := catalog.Cities(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Zagreb", "Split"}, cities)
}

func TestReplaceDateIsIdempotent(t *testing.T) {
	catalog := setupTestCatalog(t)
	ctx := context.Background()
	date := "2026-01-19"

	require.NoError(t, catalog.ReplaceDate(ctx, date, sampleSnapshot(date)))

	// Replace with a smaller snapshot; old rows for the date must be gone
	smaller := Snapshot{
		Stores:   sampleSnapshot(date).Stores[:1],
		Products: sampleSnapshot(date).Products[:1],
		Prices:   sampleSnapshot(date).Prices[:1],
	}
	require.NoError(t, catalog.ReplaceDate(ctx, date, smaller))

	prices, err := catalog.PricesForProducts(ctx, date, []string{"konzum", "lidl"}, []string{"k1", "l1"})
	require.NoError(t, err)
	assert.Len(t, prices, 1)

	log, err := catalog.Log(ctx, 10)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, StatusSuccess, log[0].Status)
	assert.Equal(t, 1, log[0].PriceCount)
}

func TestReplaceDateLeavesOtherDatesAlone(t *testing.T) {
	catalog := setupTestCatalog(t)
	ctx := context.Background()

	require.NoError(t, catalog.ReplaceDate(ctx, "2026-01-18", sampleSnapshot("2026-01-18")))
	require.NoError(t, catalog.ReplaceDate(ctx, "2026-01-19", sampleSnapshot("2026-01-19")))
	require.NoError(t, catalog.ReplaceDate(ctx, "2026-01-19", Snapshot{}))

	prices, err := catalog.PricesForProducts(ctx, "2026-01-18", []string{"konzum", "lidl"}, []string{"k1", "l1"})
	require.NoError(t, err)
	assert.Len(t, prices, 2)

	ds, err := catalog.SuccessDates(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-01-19", "2026-01-18"}, ds)
}

func TestRecordFailureAndRecovery(t *testing.T) {
	catalog := setupTestCatalog(t)
	ctx := context.Background()
	date := "2026-01-19"

	require.NoError(t, catalog.RecordFailure(ctx, date, "upstream unreachable"))

	done, err := catalog.IsDateIngested(ctx, date)
	require.NoError(t, err)
	assert.False(t, done)

	log, err := catalog.Log(ctx, 10)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, StatusError, log[0].Status)
	assert.Equal(t, "upstream unreachable", log[0].ErrorMessage)

	// A later successful run replaces the error row
	require.NoError(t, catalog.ReplaceDate(ctx, date, sampleSnapshot(date)))

	done, err = catalog.IsDateIngested(ctx, date)
	require.NoError(t, err)
	assert.True(t, done)

	log, err = catalog.Log(ctx, 10)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, StatusSuccess, log[0].Status)
	assert.Empty(t, log[0].ErrorMessage)
}

func TestBatchInsertLargeSnapshot(t *testing.T) {
	catalog := setupTestCatalog(t)
	ctx := context.Background()
	date := "2026-01-19"

	snap := Snapshot{
		Stores: []Store{{Chain: "konzum", StoreID: "001", Date: date, City: "Zagreb"}},
	}
	for i := 0; i < insertBatchSize*2+37; i++ {
		id := fmt.Sprintf("p%d", i)
		snap.Products = append(snap.Products, Product{Chain: "konzum", ProductID: id, Date: date, Name: "Artikl " + id})
		snap.Prices = append(snap.Prices, Price{Chain: "konzum", StoreID: "001", ProductID: id, Date: date, Price: float64(i)})
	}

	require.NoError(t, catalog.ReplaceDate(ctx, date, snap))

	var count int
	require.NoError(t, Pool().QueryRow(ctx, `SELECT COUNT(*) FROM prices WHERE date = $1`, date).Scan(&count))
	assert.Equal(t, insertBatchSize*2+37, count)
}

func TestHistoryPoints(t *testing.T) {
	catalog := setupTestCatalog(t)
	ctx := context.Background()
	date := "2026-01-19"

	snap := sampleSnapshot(date)
	// Second konzum store so the chain has a real min/avg spread
	snap.Stores = append(snap.Stores, Store{Chain: "konzum", StoreID: "005", Date: date, City: "Zagreb"})
	snap.Prices = append(snap.Prices, Price{Chain: "konzum", StoreID: "005", ProductID: "k1", Date: date, Price: 1.29})
	require.NoError(t, catalog.ReplaceDate(ctx, date, snap))

	stats, err := catalog.HistoryPoints(ctx, date, "385001", "", "", "")
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, "konzum", stats[0].Chain)
	assert.Equal(t, 1.09, stats[0].MinPrice)
	assert.InDelta(t, 1.19, stats[0].AvgPrice, 1e-9)
	assert.Equal(t, "lidl", stats[1].Chain)

	// City filter reaches prices through the store join
	stats, err = catalog.HistoryPoints(ctx, date, "385001", "", "Split", "")
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "lidl", stats[0].Chain)

	// Chain filter
	stats, err = catalog.HistoryPoints(ctx, date, "385001", "", "", "konzum")
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "konzum", stats[0].Chain)
}
