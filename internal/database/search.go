package database

import (
	"context"
)

// searchCandidateLimit caps the raw product matches the search path loads
// before merging.
const searchCandidateLimit = 500

// ProductsMatching returns up to 500 products for date whose name or brand
// contains q (case-insensitive) or whose barcode equals q exactly. q must
// already be lowercased and trimmed by the caller.
func (c *Catalog) ProductsMatching(ctx context.Context, date, q string) ([]Product, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT chain, product_id, date, barcode, name, brand, category, unit, quantity
		FROM products
		WHERE date = $1 AND (name ILIKE $2 OR brand ILIKE $2 OR barcode = $3)
		LIMIT $4`,
		date, "%"+q+"%", q, searchCandidateLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.Chain, &p.ProductID, &p.Date, &p.Barcode, &p.Name, &p.Brand, &p.Category, &p.Unit, &p.Quantity); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// StoresForChains returns all stores for date in one of chains, filtered by
// a case-insensitive city substring when city is non-empty.
func (c *Catalog) StoresForChains(ctx context.Context, date string, chains []string, city string) ([]Store, error) {
	if len(chains) == 0 {
		return nil, nil
	}
	query := `
		SELECT chain, store_id, date, type, address, city, zipcode
		FROM stores
		WHERE date = $1 AND chain = ANY($2)`
	args := []any{date, chains}
	if city != "" {
		query += ` AND city ILIKE $3`
		args = append(args, "%"+city+"%")
	}

	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Store
	for rows.Next() {
		var s Store
		if err := rows.Scan(&s.Chain, &s.StoreID, &s.Date, &s.Type, &s.Address, &s.City, &s.Zipcode); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// PricesForProducts returns all prices for date restricted to the given
// chains and product IDs.
func (c *Catalog) PricesForProducts(ctx context.Context, date string, chains, productIDs []string) ([]Price, error) {
	if len(chains) == 0 || len(productIDs) == 0 {
		return nil, nil
	}
	rows, err := c.pool.Query(ctx, `
		SELECT chain, store_id, product_id, date, price, unit_price, best_price_30, anchor_price, special_price
		FROM prices
		WHERE date = $1 AND chain = ANY($2) AND product_id = ANY($3)`,
		date, chains, productIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Price
	for rows.Next() {
		var p Price
		if err := rows.Scan(&p.Chain, &p.StoreID, &p.ProductID, &p.Date, &p.Price, &p.UnitPrice, &p.BestPrice30, &p.AnchorPrice, &p.SpecialPrice); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
