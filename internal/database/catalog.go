package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/kosarica/price-archive/internal/metrics"
)

// insertBatchSize caps rows per INSERT statement to stay well inside the
// protocol's parameter limit.
const insertBatchSize = 500

// Catalog owns the four catalog tables. ReplaceDate is the only write path;
// everything else reads.
type Catalog struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// NewCatalog creates a catalog over the given pool.
func NewCatalog(pool *pgxpool.Pool, logger zerolog.Logger) *Catalog {
	return &Catalog{pool: pool, log: logger}
}

// ReplaceDate atomically replaces all rows for date with the snapshot and
// records success in ingestion_log. Readers see either the previous or the
// new rows for the date, never a mixture. On failure everything rolls back
// and an error row is written instead.
func (c *Catalog) ReplaceDate(ctx context.Context, date string, snap Snapshot) error {
	if err := c.replaceDate(ctx, date, snap); err != nil {
		if rerr := c.RecordFailure(ctx, date, err.Error()); rerr != nil {
			c.log.Error().Str("date", date).Err(rerr).Msg("failed to record ingest failure")
		}
		return err
	}
	metrics.IngestedRows.WithLabelValues("stores").Add(float64(len(snap.Stores)))
	metrics.IngestedRows.WithLabelValues("products").Add(float64(len(snap.Products)))
	metrics.IngestedRows.WithLabelValues("prices").Add(float64(len(snap.Prices)))
	return nil
}

func (c *Catalog) replaceDate(ctx context.Context, date string, snap Snapshot) error {
	tx, err := c.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin replace for %s: %w", date, err)
	}
	defer tx.Rollback(ctx)

	for _, table := range []string{"prices", "products", "stores"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table+" WHERE date = $1", date); err != nil {
			return fmt.Errorf("clear %s for %s: %w", table, date, err)
		}
	}

	if err := insertStores(ctx, tx, snap.Stores); err != nil {
		return fmt.Errorf("insert stores for %s: %w", date, err)
	}
	if err := insertProducts(ctx, tx, snap.Products); err != nil {
		return fmt.Errorf("insert products for %s: %w", date, err)
	}
	if err := insertPrices(ctx, tx, snap.Prices); err != nil {
		return fmt.Errorf("insert prices for %s: %w", date, err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO ingestion_log (date, ingested_at, store_count, product_count, price_count, status, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, '')
		ON CONFLICT (date) DO UPDATE SET
			ingested_at = EXCLUDED.ingested_at,
			store_count = EXCLUDED.store_count,
			product_count = EXCLUDED.product_count,
			price_count = EXCLUDED.price_count,
			status = EXCLUDED.status,
			error_message = ''
	`, date, time.Now().Unix(), len(snap.Stores), len(snap.Products), len(snap.Prices), StatusSuccess); err != nil {
		return fmt.Errorf("record success for %s: %w", date, err)
	}

	return tx.Commit(ctx)
}

// RecordFailure writes or replaces the ingestion_log row for date with
// status error.
func (c *Catalog) RecordFailure(ctx context.Context, date, message string) error {
	_, err := c.pool.Exec(ctx, `
		INSERT INTO ingestion_log (date, ingested_at, store_count, product_count, price_count, status, error_message)
		VALUES ($1, $2, 0, 0, 0, $3, $4)
		ON CONFLICT (date) DO UPDATE SET
			ingested_at = EXCLUDED.ingested_at,
			store_count = 0,
			product_count = 0,
			price_count = 0,
			status = EXCLUDED.status,
			error_message = EXCLUDED.error_message
	`, date, time.Now().Unix(), StatusError, message)
	return err
}

// IsDateIngested reports whether date has a success row in ingestion_log.
func (c *Catalog) IsDateIngested(ctx context.Context, date string) (bool, error) {
	var ok bool
	err := c.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM ingestion_log WHERE date = $1 AND status = $2)`,
		date, StatusSuccess).Scan(&ok)
	return ok, err
}

// LatestIngestedDate returns the maximum successfully ingested date, or ""
// when the catalog is empty.
func (c *Catalog) LatestIngestedDate(ctx context.Context) (string, error) {
	var date string
	err := c.pool.QueryRow(ctx,
		`SELECT date FROM ingestion_log WHERE status = $1 ORDER BY date DESC LIMIT 1`,
		StatusSuccess).Scan(&date)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return date, err
}

// SuccessDates returns up to limit successfully ingested dates, newest first.
func (c *Catalog) SuccessDates(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := c.pool.Query(ctx,
		`SELECT date FROM ingestion_log WHERE status = $1 ORDER BY date DESC LIMIT $2`,
		StatusSuccess, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Log returns the most recent ingestion_log rows, newest first.
func (c *Catalog) Log(ctx context.Context, limit int) ([]IngestionLog, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT date, ingested_at, store_count, product_count, price_count, status, error_message
		FROM ingestion_log ORDER BY date DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []IngestionLog
	for rows.Next() {
		var l IngestionLog
		if err := rows.Scan(&l.Date, &l.IngestedAt, &l.StoreCount, &l.ProductCount, &l.PriceCount, &l.Status, &l.ErrorMessage); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// batchInsert builds multi-row INSERT statements of at most insertBatchSize
// rows. columns is the column list, and values yields the arguments for one
// row.
func batchInsert[T any](ctx context.Context, tx pgx.Tx, table string, columns []string, rows []T, values func(T) []any) error {
	for start := 0; start < len(rows); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		var sb strings.Builder
		sb.WriteString("INSERT INTO " + table + " (" + strings.Join(columns, ", ") + ") VALUES ")
		args := make([]any, 0, len(batch)*len(columns))
		for i, row := range batch {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteByte('(')
			for j := 0; j < len(columns); j++ {
				if j > 0 {
					sb.WriteByte(',')
				}
				fmt.Fprintf(&sb, "$%d", len(args)+j+1)
			}
			sb.WriteByte(')')
			args = append(args, values(row)...)
		}
		if _, err := tx.Exec(ctx, sb.String(), args...); err != nil {
			return err
		}
	}
	return nil
}

func insertStores(ctx context.Context, tx pgx.Tx, stores []Store) error {
	return batchInsert(ctx, tx, "stores",
		[]string{"chain", "store_id", "date", "type", "address", "city", "zipcode"},
		stores, func(s Store) []any {
			return []any{s.Chain, s.StoreID, s.Date, s.Type, s.Address, s.City, s.Zipcode}
		})
}

func insertProducts(ctx context.Context, tx pgx.Tx, products []Product) error {
	return batchInsert(ctx, tx, "products",
		[]string{"chain", "product_id", "date", "barcode", "name", "brand", "category", "unit", "quantity"},
		products, func(p Product) []any {
			return []any{p.Chain, p.ProductID, p.Date, p.Barcode, p.Name, p.Brand, p.Category, p.Unit, p.Quantity}
		})
}

func insertPrices(ctx context.Context, tx pgx.Tx, prices []Price) error {
	return batchInsert(ctx, tx, "prices",
		[]string{"chain", "store_id", "product_id", "date", "price", "unit_price", "best_price_30", "anchor_price", "special_price"},
		prices, func(p Price) []any {
			return []any{p.Chain, p.StoreID, p.ProductID, p.Date, p.Price, p.UnitPrice, p.BestPrice30, p.AnchorPrice, p.SpecialPrice}
		})
}
