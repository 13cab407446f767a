package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"kelurahan-assistant/agent"
	"kelurahan-assistant/cache"
	"kelurahan-assistant/config"
	"kelurahan-assistant/knowledge"
	"kelurahan-assistant/llmclient"
	"kelurahan-assistant/semantic"
	"kelurahan-assistant/web"

	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	// Initialize logger with default level to load config
	tempLogger, err := config.InitLogger("info")
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	// Load config (which includes log level setting)
	cfg := config.Load(tempLogger)

	// Re-initialize logger with configured level
	logger, err := config.InitLogger(cfg.LogLevel)
	if err != nil {
		fmt.Printf("Failed to re-initialize logger with configured level: %v\n", err)
		os.Exit(1)
	}
	defer config.Cleanup()

	// Knowledge corpus is loaded once and shared read-only; load failures
	// degrade to an empty corpus rather than aborting.
	store := knowledge.Load(cfg.TrainDataFiles, logger)
	if store.Len() == 0 {
		logger.Warn("Knowledge corpus is empty, only remote answers are possible")
	}

	cacheStore := newCacheStore(cfg, logger)

	keys := cfg.APIKeys()
	if len(keys) == 0 {
		logger.Warn("No Gemini API keys configured, remote generation disabled")
	}
	pool := llmclient.NewKeyPool(keys)
	limiter := llmclient.NewRateLimiter(cfg.RateLimitPerMin)
	client := llmclient.New(cfg, pool, limiter, logger)

	// The semantic index is optional; serving continues without that stage.
	var sem agent.SemanticFallback
	if fallback, err := semantic.Load(cfg.EmbeddedDocsFile, client, cfg.SemanticThreshold, cfg.EmbeddingCacheSize, logger); err != nil {
		logger.Warn("Semantic index unavailable, stage will be skipped",
			zap.String("file", cfg.EmbeddedDocsFile),
			zap.Error(err))
	} else {
		sem = fallback
	}

	assistant := agent.New(cfg, store, cacheStore, client, sem, logger)

	webServer := web.NewServer(assistant, store, cacheStore, client, limiter, logger, cfg)

	// Create context that listens for interrupt signals
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	port := fmt.Sprintf(":%d", cfg.WebPort)
	logger.Info("Starting kelurahan assistant web server",
		zap.String("port", port),
		zap.Int("corpus_entries", store.Len()),
		zap.Int("api_keys", len(keys)))
	if err := webServer.Start(ctx, port); err != nil {
		logger.Error("Web server error", zap.Error(err))
		os.Exit(1)
	}
}

// newCacheStore selects the Redis backend when configured and falls back to
// the in-process store otherwise.
func newCacheStore(cfg *config.Config, logger *zap.Logger) cache.Store {
	if cfg.RedisAddr == "" {
		logger.Info("Using in-memory cache (Redis not configured)")
		return cache.NewMemory(cfg.CacheTTL, cfg.CacheMaxItems, cfg.CachePrefix, logger)
	}

	redisStore := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL, cfg.CachePrefix, logger)
	if err := redisStore.Ping(context.Background()); err != nil {
		logger.Warn("Redis unreachable, falling back to in-memory cache", zap.Error(err))
		return cache.NewMemory(cfg.CacheTTL, cfg.CacheMaxItems, cfg.CachePrefix, logger)
	}
	logger.Info("Connected to Redis cache", zap.String("addr", cfg.RedisAddr))
	return redisStore
}
