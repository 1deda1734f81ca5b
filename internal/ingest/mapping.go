package ingest

import (
	"github.com/kosarica/price-archive/internal/database"
	"github.com/kosarica/price-archive/internal/parsers/csv"
)

// MapStore maps one stores.csv record to a Store, stamping chain and date.
func MapStore(rec csv.Record, chain, date string) database.Store {
	return database.Store{
		Chain:   chain,
		StoreID: rec["store_id"],
		Date:    date,
		Type:    rec["type"],
		Address: rec["address"],
		City:    rec["city"],
		Zipcode: rec["zipcode"],
	}
}

// MapProduct maps one products.csv record to a Product.
func MapProduct(rec csv.Record, chain, date string) database.Product {
	return database.Product{
		Chain:     chain,
		ProductID: rec["product_id"],
		Date:      date,
		Barcode:   rec["barcode"],
		Name:      rec["name"],
		Brand:     rec["brand"],
		Category:  rec["category"],
		Unit:      rec["unit"],
		Quantity:  rec["quantity"],
	}
}

// MapPrice maps one prices.csv record to a Price. The mandatory price
// coerces to the sentinel 0 when unparseable; the optional reals to nil.
func MapPrice(rec csv.Record, chain, date string) database.Price {
	return database.Price{
		Chain:        chain,
		StoreID:      rec["store_id"],
		ProductID:    rec["product_id"],
		Date:         date,
		Price:        csv.ParsePrice(rec["price"]),
		UnitPrice:    csv.ParseOptional(rec["unit_price"]),
		BestPrice30:  csv.ParseOptional(rec["best_price_30"]),
		AnchorPrice:  csv.ParseOptional(rec["anchor_price"]),
		SpecialPrice: csv.ParseOptional(rec["special_price"]),
	}
}
