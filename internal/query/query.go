// Package query answers the two user-facing questions: product search for a
// date and geography, and price history for a product. It prefers the
// catalog and falls back to on-demand range extraction from the upstream
// archives, in that order, deterministically.
package query

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/kosarica/price-archive/internal/archive"
	"github.com/kosarica/price-archive/internal/database"
)

const (
	// maxResults caps merged product groups returned by Search.
	maxResults = 50
	// remoteFetchLimit bounds member fetches in flight on the remote path.
	remoteFetchLimit = 8
	// remoteHistoryBatch bounds dates processed in parallel by remote history.
	remoteHistoryBatch = 5
)

// Sources of a search answer.
const (
	SourceCatalog = "db"
	SourceArchive = "zip"
)

// ErrBadRequest is returned when history is called with neither barcode nor
// name.
var ErrBadRequest = errors.New("query: barcode or name required")

// Catalog is the read side of the catalog the query layer consumes.
type Catalog interface {
	IsDateIngested(ctx context.Context, date string) (bool, error)
	LatestIngestedDate(ctx context.Context) (string, error)
	SuccessDates(ctx context.Context, limit int) ([]string, error)
	ProductsMatching(ctx context.Context, date, q string) ([]database.Product, error)
	StoresForChains(ctx context.Context, date string, chains []string, city string) ([]database.Store, error)
	PricesForProducts(ctx context.Context, date string, chains, productIDs []string) ([]database.Price, error)
	HistoryPoints(ctx context.Context, date, barcode, name, city, chain string) ([]database.ChainStat, error)
	Cities(ctx context.Context) ([]string, error)
}

// Archive is the slice of the archive client the query layer consumes.
type Archive interface {
	ResolveDate(ctx context.Context, date string) (string, error)
	Chains(ctx context.Context, date string) ([]string, error)
	ReadCSV(ctx context.Context, date, chain, file string) (string, error)
	List(ctx context.Context) ([]archive.Info, error)
}

// Service routes queries between catalog and archive.
type Service struct {
	catalog Catalog
	archive Archive
	log     zerolog.Logger
}

// New creates a query service.
func New(catalog Catalog, arc Archive, logger zerolog.Logger) *Service {
	return &Service{catalog: catalog, archive: arc, log: logger}
}

// PriceObservation is one store's price attached to a product group.
type PriceObservation struct {
	Chain        string   `json:"chain"`
	StoreID      string   `json:"storeId"`
	City         string   `json:"city"`
	Price        float64  `json:"price"`
	UnitPrice    *float64 `json:"unitPrice,omitempty"`
	BestPrice30  *float64 `json:"bestPrice30,omitempty"`
	AnchorPrice  *float64 `json:"anchorPrice,omitempty"`
	SpecialPrice *float64 `json:"specialPrice,omitempty"`
}

// ProductGroup is one merged search result: products sharing a barcode, or
// a single (chain, product_id) when the barcode is empty.
type ProductGroup struct {
	Barcode  string             `json:"barcode,omitempty"`
	Name     string             `json:"name"`
	Brand    string             `json:"brand,omitempty"`
	Category string             `json:"category,omitempty"`
	Unit     string             `json:"unit,omitempty"`
	Quantity string             `json:"quantity,omitempty"`
	Chains   []string           `json:"chains"`
	Prices   []PriceObservation `json:"prices"`
}

// SearchResult is the answer to a product search.
type SearchResult struct {
	Products   []ProductGroup `json:"products"`
	ActualDate string         `json:"actualDate"`
	Source     string         `json:"source"`
}

// HistoryParams selects the product and scope for a price history.
type HistoryParams struct {
	Barcode string
	Name    string
	City    string
	Chain   string
	Days    int
}

// HistoryEntry is one day of aggregated prices, one element per chain.
type HistoryEntry struct {
	Date   string               `json:"date"`
	Prices []database.ChainStat `json:"prices"`
}
