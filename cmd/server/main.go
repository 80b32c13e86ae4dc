// Ghost Wallet Hunter server: assembles the RPC pool, blacklist checker,
// detective squad, agent runtime and HTTP API, then serves until SIGTERM.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ghostwallet/hunter/internal/agents"
	"github.com/ghostwallet/hunter/internal/api"
	"github.com/ghostwallet/hunter/internal/blacklist"
	"github.com/ghostwallet/hunter/internal/config"
	"github.com/ghostwallet/hunter/internal/detectives"
	"github.com/ghostwallet/hunter/internal/events"
	"github.com/ghostwallet/hunter/internal/solana"
	"github.com/ghostwallet/hunter/internal/store"
	"github.com/ghostwallet/hunter/internal/strategy"
	"github.com/ghostwallet/hunter/internal/tools"
	"github.com/ghostwallet/hunter/internal/webhooks"
	"github.com/ghostwallet/hunter/internal/websocket"
)

func main() {
	_ = godotenv.Load()
	log.Println("🕵️ Starting Ghost Wallet Hunter...")

	cfg := config.FromEnv()
	profiles, err := config.LoadProfiles(os.Getenv("PROFILES_FILE"))
	if err != nil {
		log.Fatalf("Failed to load profiles: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Chain layer: failover RPC pool + signature cache.
	rpcMetrics := solana.NewMetrics()
	pool := solana.NewPool(solana.PoolConfig{
		PrimaryURL:   cfg.Solana.RPCURL,
		FallbackURLs: cfg.Solana.FallbackURLs,
		Timeout:      cfg.Solana.Timeout,
		RetryMax:     cfg.Solana.RetryMax,
		RetryBase:    cfg.Solana.RetryBase,
	}, rpcMetrics)
	cache := solana.NewSignatureCache(cfg.Solana.SignatureCacheTTL, rpcMetrics)
	chain := solana.NewClient(pool, cache, cfg.Solana.Commitment)

	// Blacklist checker with the on-disk cache and background refresh.
	var source blacklist.ReputationSource
	if cfg.Blacklist.SolscanAPIKey != "" {
		source = blacklist.NewSolscanSource(cfg.Blacklist.SolscanAPIKey, "")
	}
	checker := blacklist.New(cfg.Blacklist.CacheFile, cfg.Blacklist.CacheTTL, source)
	if source != nil {
		checker.StartRefresher(ctx, cfg.Blacklist.CacheTTL)
	}

	// Persistence: Redis primary with in-memory fallback, optional Postgres
	// archive alongside.
	resultStore := buildStore(ctx, cfg.Store)
	defer resultStore.Close()

	// Event fabric: bus → webhooks + websocket stream.
	bus := events.NewEventBus()
	hookRegistry := webhooks.NewRegistry()
	dispatcher := webhooks.NewDispatcher(hookRegistry, 4)
	dispatcher.Attach(bus)
	streamer := websocket.NewStreamer()
	go streamer.Run()
	streamer.Attach(bus)

	// Tools and the LLM client shared by raven and plan_and_execute.
	llm := tools.NewLLMClient(tools.LLMConfig{
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
		BaseURL: cfg.LLM.BaseURL,
	})
	toolRegistry := buildTools(llm, checker, chain)

	// Detective squad and strategies.
	squad := detectives.NewSquad(profiles.Detectives.Weights, llm, checker)
	pipeline := strategy.NewDetectiveInvestigation(chain, checker, squad, resultStore, bus)

	strategies := strategy.NewStrategyRegistry()
	mustRegister(strategies.Register(pipeline))
	mustRegister(strategies.Register(strategy.NewPlanAndExecute(llm, toolRegistry)))

	// Agent runtime.
	agentRegistry := agents.NewRegistry(strategies, profiles, agents.NewMetrics())
	agentRegistry.SetPublisher(bus)

	server := api.NewServer(pipeline, resultStore, agentRegistry, hookRegistry, streamer, cfg.Auth)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.Server.Host + ":" + cfg.Server.Port)
	}()

	select {
	case <-ctx.Done():
		log.Println("🛑 Shutdown signal received, draining...")
	case err := <-errCh:
		log.Fatalf("Server failed: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ HTTP shutdown: %v", err)
	}
	agentRegistry.StopAll()
	dispatcher.Shutdown()
	log.Println("✅ Ghost Wallet Hunter stopped")
}

// buildStore prefers Redis, falls back to memory, and tees into Postgres
// when a DSN is configured.
func buildStore(ctx context.Context, cfg config.StoreConfig) store.Store {
	var primary store.Store
	if cfg.RedisAddr != "" {
		redis, err := store.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Printf("⚠️ Redis unavailable (%v), using in-memory store", err)
		} else {
			primary = redis
		}
	}
	if primary == nil {
		primary = store.NewMemory()
	}

	if cfg.DatabaseURL == "" {
		return primary
	}
	pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Printf("⚠️ Postgres archive unavailable: %v", err)
		return primary
	}
	return store.NewTee(primary, pg)
}

// buildTools registers every tool whose credentials are present.
func buildTools(llm *tools.LLMClient, checker *blacklist.Checker, chain tools.ChainReader) *tools.Registry {
	reg := tools.NewRegistry()

	mustRegister(reg.Register(tools.NewCheckBlacklist(checker)))
	mustRegister(reg.Register(tools.NewAnalyzeWallet(chain)))
	mustRegister(reg.Register(tools.NewRiskAssessment()))
	mustRegister(reg.Register(tools.NewScrapeArticle()))
	mustRegister(reg.Register(tools.NewLLMChat(llm)))
	mustRegister(reg.Register(tools.NewWriteBlog(llm)))
	mustRegister(reg.Register(tools.NewDetectSwearing(llm)))

	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		if send, err := tools.NewSendMessage(token, ""); err == nil {
			mustRegister(reg.Register(send))
		}
		if ban, err := tools.NewBanUser(token, ""); err == nil {
			mustRegister(reg.Register(ban))
		}
	}
	if bearer := os.Getenv("X_BEARER_TOKEN"); bearer != "" {
		if post, err := tools.NewPostToX(bearer, ""); err == nil {
			mustRegister(reg.Register(post))
		}
	}
	return reg
}

func mustRegister(err error) {
	if err != nil {
		log.Fatalf("Startup wiring failed: %v", err)
	}
}
