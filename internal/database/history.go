package database

import (
	"context"
	"strconv"
)

// HistoryPoints aggregates prices per chain for one date. Products are
// matched by exact barcode when barcode is non-empty, otherwise by
// case-insensitive name substring; chain restricts to one chain when set.
// The join against stores both applies the city filter and skips orphan
// price rows.
func (c *Catalog) HistoryPoints(ctx context.Context, date, barcode, name, city, chain string) ([]ChainStat, error) {
	query := `
		SELECT p.chain, MIN(p.price), AVG(p.price)
		FROM prices p
		JOIN products pr ON pr.chain = p.chain AND pr.product_id = p.product_id AND pr.date = p.date
		JOIN stores s ON s.chain = p.chain AND s.store_id = p.store_id AND s.date = p.date
		WHERE p.date = $1`
	args := []any{date}

	if barcode != "" {
		args = append(args, barcode)
		query += ` AND pr.barcode = $2`
	} else {
		args = append(args, "%"+name+"%")
		query += ` AND pr.name ILIKE $2`
	}
	if chain != "" {
		args = append(args, chain)
		query += ` AND p.chain = $3`
	}
	if city != "" {
		args = append(args, "%"+city+"%")
		query += ` AND s.city ILIKE $` + strconv.Itoa(len(args))
	}
	query += ` GROUP BY p.chain ORDER BY p.chain`

	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChainStat
	for rows.Next() {
		var s ChainStat
		if err := rows.Scan(&s.Chain, &s.MinPrice, &s.AvgPrice); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
