package database

// Store identifies one physical outlet within a chain on a date.
type Store struct {
	Chain   string `json:"chain"`
	StoreID string `json:"store_id"` // chain-local identifier
	Date    string `json:"date"`     // YYYY-MM-DD
	Type    string `json:"type"`
	Address string `json:"address"`
	City    string `json:"city"`
	Zipcode string `json:"zipcode"`
}

// Product is one catalog item offered by a chain on a date.
type Product struct {
	Chain     string `json:"chain"`
	ProductID string `json:"product_id"` // chain-local identifier
	Date      string `json:"date"`
	Barcode   string `json:"barcode"` // global EAN when non-empty; merges products across chains
	Name      string `json:"name"`
	Brand     string `json:"brand"`
	Category  string `json:"category"`
	Unit      string `json:"unit"`
	Quantity  string `json:"quantity"`
}

// Price is one price record for one product at one store on a date.
// The four optional reals are nil when the source column was absent or
// unparseable; the mandatory Price falls back to the sentinel 0.
type Price struct {
	Chain        string   `json:"chain"`
	StoreID      string   `json:"store_id"`
	ProductID    string   `json:"product_id"`
	Date         string   `json:"date"`
	Price        float64  `json:"price"`
	UnitPrice    *float64 `json:"unit_price"`
	BestPrice30  *float64 `json:"best_price_30"`
	AnchorPrice  *float64 `json:"anchor_price"`
	SpecialPrice *float64 `json:"special_price"`
}

// Ingestion log statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// IngestionLog is one row per ingested date; the catalog's record of which
// dates are queryable.
type IngestionLog struct {
	Date         string `json:"date"`
	IngestedAt   int64  `json:"ingested_at"` // epoch seconds
	StoreCount   int    `json:"store_count"`
	ProductCount int    `json:"product_count"`
	PriceCount   int    `json:"price_count"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

// Snapshot bundles one archive-day's rows for the atomic per-date replace.
type Snapshot struct {
	Stores   []Store
	Products []Product
	Prices   []Price
}

// ChainStat is the per-chain price aggregate used by the history query.
type ChainStat struct {
	Chain    string  `json:"chain"`
	MinPrice float64 `json:"minPrice"`
	AvgPrice float64 `json:"avgPrice"`
}
