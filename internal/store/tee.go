package store

import (
	"context"
	"log/slog"
)

// Tee writes every result to the primary store and to the archive. Reads go
// to the primary only; an archive write failure is logged, not fatal.
type Tee struct {
	primary Store
	archive Store
}

// NewTee wraps primary with an archive. A nil archive degenerates to the
// primary alone.
func NewTee(primary, archive Store) Store {
	if archive == nil {
		return primary
	}
	return &Tee{primary: primary, archive: archive}
}

func (t *Tee) SaveInvestigation(ctx context.Context, wallet string, payload []byte) error {
	if err := t.archive.SaveInvestigation(ctx, wallet, payload); err != nil {
		slog.Warn("archive write failed", "wallet", wallet, "error", err)
	}
	return t.primary.SaveInvestigation(ctx, wallet, payload)
}

func (t *Tee) LatestInvestigation(ctx context.Context, wallet string) ([]byte, error) {
	return t.primary.LatestInvestigation(ctx, wallet)
}

func (t *Tee) ListInvestigations(ctx context.Context, wallet string, limit int) ([][]byte, error) {
	return t.primary.ListInvestigations(ctx, wallet, limit)
}

func (t *Tee) Close() error {
	if err := t.archive.Close(); err != nil {
		slog.Warn("archive close failed", "error", err)
	}
	return t.primary.Close()
}
