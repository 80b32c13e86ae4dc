// hunter-check is a pre-flight diagnostic: it probes every external
// dependency the server needs before taking traffic.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/ghostwallet/hunter/internal/config"
	"github.com/ghostwallet/hunter/internal/solana"
	"github.com/ghostwallet/hunter/internal/store"
)

type component struct {
	Name string
	Test func(ctx context.Context, cfg *config.Config) error
}

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	fmt.Println("\033[96mGhost Wallet Hunter - Pre-Flight Diagnostic\033[0m")
	fmt.Println("---------------------------------------------------------")

	components := []component{
		{"Chain Layer (Solana RPC)", checkRPC},
		{"Blacklist Layer (cache file)", checkBlacklistCache},
		{"Storage Layer (Redis)", checkRedis},
		{"API Layer (/health)", checkAPI},
	}

	failures := 0
	for _, c := range components {
		fmt.Printf("Checking %-30s ", c.Name+"...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := c.Test(ctx, cfg)
		cancel()
		if err != nil {
			failures++
			fmt.Println("\033[31m[FAIL]\033[0m")
			fmt.Printf("  >> Error: %v\n", err)
		} else {
			fmt.Println("\033[32m[OK]\033[0m")
		}
	}

	fmt.Println("---------------------------------------------------------")
	if failures > 0 {
		fmt.Printf("\033[31mStatus: %d component(s) failing.\033[0m\n", failures)
		os.Exit(1)
	}
	fmt.Println("\033[96mStatus: System ready for investigations.\033[0m")
}

func checkRPC(ctx context.Context, cfg *config.Config) error {
	pool := solana.NewPool(solana.PoolConfig{
		PrimaryURL:   cfg.Solana.RPCURL,
		FallbackURLs: cfg.Solana.FallbackURLs,
		Timeout:      cfg.Solana.Timeout,
		RetryMax:     1,
		RetryBase:    cfg.Solana.RetryBase,
	}, nil)
	chain := solana.NewClient(pool, nil, cfg.Solana.Commitment)

	health, err := chain.GetHealth(ctx)
	if err != nil {
		return err
	}
	if health != "ok" {
		return fmt.Errorf("rpc reports %q", health)
	}
	return nil
}

func checkBlacklistCache(_ context.Context, cfg *config.Config) error {
	raw, err := os.ReadFile(cfg.Blacklist.CacheFile)
	if err != nil {
		return fmt.Errorf("cache unreadable (server will start unprimed): %w", err)
	}
	var cached struct {
		SavedAt time.Time `json:"saved_at"`
		Count   int       `json:"count"`
	}
	if err := json.Unmarshal(raw, &cached); err != nil {
		return fmt.Errorf("cache malformed: %w", err)
	}
	if age := time.Since(cached.SavedAt); age > cfg.Blacklist.CacheTTL {
		return fmt.Errorf("cache stale (%s old, %d entries)", age.Round(time.Minute), cached.Count)
	}
	return nil
}

func checkRedis(_ context.Context, cfg *config.Config) error {
	if cfg.Store.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR unset (server will fall back to memory)")
	}
	redis, err := store.NewRedis(cfg.Store.RedisAddr, cfg.Store.RedisPassword, cfg.Store.RedisDB)
	if err != nil {
		return err
	}
	return redis.Close()
}

func checkAPI(ctx context.Context, cfg *config.Config) error {
	url := fmt.Sprintf("http://%s:%s/health", cfg.Server.Host, cfg.Server.Port)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health returned %d", resp.StatusCode)
	}
	return nil
}
