package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	investigationKeyPrefix  = "gwh:investigation:"
	investigationListPrefix = "gwh:investigations:"
)

// Redis stores the latest result per wallet as a plain key and the history
// as a trimmed list.
type Redis struct {
	rdb *redis.Client
}

// NewRedis connects and pings. Returns the store and any connection error;
// the caller decides whether to fall back to in-memory.
func NewRedis(addr, password string, db int) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     20,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed (%s): %w", addr, err)
	}

	slog.Info("Redis store connected", "addr", addr, "db", db)
	return &Redis{rdb: rdb}, nil
}

func (r *Redis) SaveInvestigation(ctx context.Context, wallet string, payload []byte) error {
	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, investigationKeyPrefix+wallet, payload, 0)
	pipe.LPush(ctx, investigationListPrefix+wallet, payload)
	pipe.LTrim(ctx, investigationListPrefix+wallet, 0, maxHistoryPerWallet-1)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *Redis) LatestInvestigation(ctx context.Context, wallet string) ([]byte, error) {
	val, err := r.rdb.Get(ctx, investigationKeyPrefix+wallet).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	return val, err
}

func (r *Redis) ListInvestigations(ctx context.Context, wallet string, limit int) ([][]byte, error) {
	if limit <= 0 || limit > maxHistoryPerWallet {
		limit = maxHistoryPerWallet
	}
	vals, err := r.rdb.LRange(ctx, investigationListPrefix+wallet, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(vals))
	for i, v := range vals {
		out[i] = []byte(v)
	}
	return out, nil
}

func (r *Redis) Close() error { return r.rdb.Close() }
