// Package handlers exposes the query layer over HTTP.
package handlers

import (
	"github.com/rs/zerolog"

	"github.com/kosarica/price-archive/internal/database"
	"github.com/kosarica/price-archive/internal/query"
)

// Handlers bundles the HTTP endpoints and their dependencies.
type Handlers struct {
	svc     *query.Service
	catalog *database.Catalog
	log     zerolog.Logger
}

// New creates the HTTP handler set.
func New(svc *query.Service, catalog *database.Catalog, logger zerolog.Logger) *Handlers {
	return &Handlers{svc: svc, catalog: catalog, log: logger}
}
