package main

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/kosarica/price-archive/internal/dates"
)

type stubResolver struct {
	date string
	err  error
}

func (s stubResolver) ResolveDate(ctx context.Context, date string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.date, nil
}

func TestDefaultIngestDateUsesLatestArchive(t *testing.T) {
	got := defaultIngestDate(context.Background(), stubResolver{date: "2026-01-19"}, zerolog.Nop())
	assert.Equal(t, "2026-01-19", got)
}

func TestDefaultIngestDateFallsBackToToday(t *testing.T) {
	got := defaultIngestDate(context.Background(), stubResolver{err: errors.New("list unavailable")}, zerolog.Nop())
	assert.Equal(t, dates.Today(), got)
}
