// Package metrics holds the Prometheus collectors shared by the archive
// client and the ingest driver.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UpstreamRequests counts requests against the upstream archive service,
	// partitioned by kind (list, head, range).
	UpstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "price_archive",
		Subsystem: "upstream",
		Name:      "requests_total",
		Help:      "Requests issued against the upstream archive service.",
	}, []string{"kind"})

	// UpstreamBytes counts body bytes fetched from the upstream.
	UpstreamBytes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "price_archive",
		Subsystem: "upstream",
		Name:      "bytes_total",
		Help:      "Body bytes fetched from the upstream archive service.",
	})

	// IngestedRows counts rows written into the catalog, partitioned by table.
	IngestedRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "price_archive",
		Subsystem: "ingest",
		Name:      "rows_total",
		Help:      "Rows written into the catalog by the ingest driver.",
	}, []string{"table"})

	// IngestRuns counts ingest attempts by outcome.
	IngestRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "price_archive",
		Subsystem: "ingest",
		Name:      "runs_total",
		Help:      "Ingest runs by outcome (success, error, noop).",
	}, []string{"outcome"})
)
