// Package store persists investigation results. The primary store is Redis
// with an in-memory fallback when Redis is unreachable; an optional Postgres
// archive keeps a durable append-only copy.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no investigation exists for a wallet.
var ErrNotFound = errors.New("investigation not found")

// Store persists serialized investigation results keyed by wallet address.
// Payloads are opaque JSON; the strategy layer owns the schema.
type Store interface {
	// SaveInvestigation records a completed investigation for the wallet.
	SaveInvestigation(ctx context.Context, wallet string, payload []byte) error
	// LatestInvestigation returns the most recent result for the wallet,
	// or ErrNotFound.
	LatestInvestigation(ctx context.Context, wallet string) ([]byte, error)
	// ListInvestigations returns up to limit results for the wallet,
	// newest first.
	ListInvestigations(ctx context.Context, wallet string, limit int) ([][]byte, error)
	Close() error
}
