package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
)

const investigationsSchema = `
CREATE TABLE IF NOT EXISTS investigations (
	id          BIGSERIAL PRIMARY KEY,
	wallet      TEXT NOT NULL,
	payload     JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_investigations_wallet_created
	ON investigations (wallet, created_at DESC);`

// Postgres is the durable archive. It is append-only: rows are never
// updated or deleted by the application.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens the database, verifies connectivity, and ensures the
// schema exists.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, investigationsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	slog.Info("Postgres archive connected")
	return &Postgres{db: db}, nil
}

func (p *Postgres) SaveInvestigation(ctx context.Context, wallet string, payload []byte) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO investigations (wallet, payload) VALUES ($1, $2)`,
		wallet, payload)
	return err
}

func (p *Postgres) LatestInvestigation(ctx context.Context, wallet string) ([]byte, error) {
	var payload []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT payload FROM investigations WHERE wallet = $1 ORDER BY created_at DESC LIMIT 1`,
		wallet).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return payload, err
}

func (p *Postgres) ListInvestigations(ctx context.Context, wallet string, limit int) ([][]byte, error) {
	if limit <= 0 {
		limit = maxHistoryPerWallet
	}
	rows, err := p.db.QueryContext(ctx,
		`SELECT payload FROM investigations WHERE wallet = $1 ORDER BY created_at DESC LIMIT $2`,
		wallet, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]byte
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		out = append(out, payload)
	}
	return out, rows.Err()
}

func (p *Postgres) Close() error { return p.db.Close() }
