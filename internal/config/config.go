// Package config loads runtime configuration from the environment and an
// optional YAML profile file. Environment variables win over file values.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full runtime configuration assembled at startup.
type Config struct {
	Server    ServerConfig
	Solana    SolanaConfig
	Blacklist BlacklistConfig
	LLM       LLMConfig
	Store     StoreConfig
	Auth      AuthConfig
}

type ServerConfig struct {
	Host string
	Port string
}

type SolanaConfig struct {
	RPCURL            string
	FallbackURLs      []string
	Timeout           time.Duration
	RetryMax          int
	RetryBase         time.Duration
	Commitment        string
	SignatureCacheTTL time.Duration
}

type BlacklistConfig struct {
	CacheFile     string
	CacheTTL      time.Duration
	SolscanAPIKey string
}

type LLMConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type StoreConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	DatabaseURL   string
}

type AuthConfig struct {
	Enabled bool
	APIKeys []string
}

// FromEnv assembles configuration from the process environment, applying
// the documented defaults for anything unset.
func FromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("HOST", "0.0.0.0"),
			Port: envOr("PORT", "8080"),
		},
		Solana: SolanaConfig{
			RPCURL:            os.Getenv("SOLANA_RPC_URL"),
			FallbackURLs:      splitCSV(os.Getenv("SOLANA_RPC_FALLBACK_URLS")),
			Timeout:           time.Duration(envInt("SOLANA_TIMEOUT_MS", 30000)) * time.Millisecond,
			RetryMax:          envInt("SOLANA_RETRY_MAX", 3),
			RetryBase:         time.Duration(envInt("SOLANA_RETRY_BASE_MS", 250)) * time.Millisecond,
			Commitment:        envOr("SOLANA_COMMITMENT", "confirmed"),
			SignatureCacheTTL: time.Duration(envInt("SOLANA_SIGNATURE_CACHE_TTL_S", 60)) * time.Second,
		},
		Blacklist: BlacklistConfig{
			CacheFile:     envOr("BLACKLIST_CACHE_FILE", "blacklist_cache.json"),
			CacheTTL:      time.Duration(envInt("BLACKLIST_CACHE_TTL_S", 3600)) * time.Second,
			SolscanAPIKey: os.Getenv("SOLSCAN_API_KEY"),
		},
		LLM: LLMConfig{
			APIKey:  envOr("OPENAI_API_KEY", os.Getenv("LLM_API_KEY")),
			Model:   envOr("LLM_MODEL", "gpt-4o-mini"),
			// Full endpoint URL; empty lets the client pick the
			// provider default.
			BaseURL: os.Getenv("LLM_BASE_URL"),
		},
		Store: StoreConfig{
			RedisAddr:     os.Getenv("REDIS_ADDR"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			RedisDB:       envInt("REDIS_DB", 0),
			DatabaseURL:   os.Getenv("DATABASE_URL"),
		},
		Auth: AuthConfig{
			Enabled: envBool("ENABLE_AUTHENTICATION", false),
			APIKeys: splitCSV(os.Getenv("API_KEYS")),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
