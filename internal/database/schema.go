package database

import (
	"context"
	"fmt"
)

// schemaStatements creates the four catalog tables and their composite
// indexes. All statements are idempotent so EnsureSchema can run on every
// startup. String columns default to empty string; only the optional price
// columns are nullable.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS stores (
		chain    TEXT NOT NULL DEFAULT '',
		store_id TEXT NOT NULL DEFAULT '',
		date     TEXT NOT NULL DEFAULT '',
		type     TEXT NOT NULL DEFAULT '',
		address  TEXT NOT NULL DEFAULT '',
		city     TEXT NOT NULL DEFAULT '',
		zipcode  TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_stores_chain_date ON stores (chain, date)`,
	`CREATE INDEX IF NOT EXISTS idx_stores_city ON stores (city)`,
	`CREATE INDEX IF NOT EXISTS idx_stores_store_chain_date ON stores (store_id, chain, date)`,

	`CREATE TABLE IF NOT EXISTS products (
		chain      TEXT NOT NULL DEFAULT '',
		product_id TEXT NOT NULL DEFAULT '',
		date       TEXT NOT NULL DEFAULT '',
		barcode    TEXT NOT NULL DEFAULT '',
		name       TEXT NOT NULL DEFAULT '',
		brand      TEXT NOT NULL DEFAULT '',
		category   TEXT NOT NULL DEFAULT '',
		unit       TEXT NOT NULL DEFAULT '',
		quantity   TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_chain_date ON products (chain, date)`,
	`CREATE INDEX IF NOT EXISTS idx_products_barcode_date ON products (barcode, date)`,
	`CREATE INDEX IF NOT EXISTS idx_products_name_date ON products (name, date)`,
	`CREATE INDEX IF NOT EXISTS idx_products_product_chain_date ON products (product_id, chain, date)`,

	`CREATE TABLE IF NOT EXISTS prices (
		chain         TEXT NOT NULL DEFAULT '',
		store_id      TEXT NOT NULL DEFAULT '',
		product_id    TEXT NOT NULL DEFAULT '',
		date          TEXT NOT NULL DEFAULT '',
		price         DOUBLE PRECISION NOT NULL DEFAULT 0,
		unit_price    DOUBLE PRECISION,
		best_price_30 DOUBLE PRECISION,
		anchor_price  DOUBLE PRECISION,
		special_price DOUBLE PRECISION
	)`,
	`CREATE INDEX IF NOT EXISTS idx_prices_chain_date ON prices (chain, date)`,
	`CREATE INDEX IF NOT EXISTS idx_prices_product_chain_date ON prices (product_id, chain, date)`,
	`CREATE INDEX IF NOT EXISTS idx_prices_store_chain_date ON prices (store_id, chain, date)`,

	`CREATE TABLE IF NOT EXISTS ingestion_log (
		date          TEXT NOT NULL UNIQUE,
		ingested_at   BIGINT NOT NULL DEFAULT 0,
		store_count   INTEGER NOT NULL DEFAULT 0,
		product_count INTEGER NOT NULL DEFAULT 0,
		price_count   INTEGER NOT NULL DEFAULT 0,
		status        TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT ''
	)`,
}

// EnsureSchema creates the catalog tables and indexes if they do not exist.
func EnsureSchema(ctx context.Context) error {
	p := Pool()
	if p == nil {
		return fmt.Errorf("database not initialized")
	}
	for _, stmt := range schemaStatements {
		if _, err := p.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
