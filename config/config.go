package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds the application's configuration
type Config struct {
	GeminiAPIKey            string        `mapstructure:"GEMINI_API_KEY"`
	GeminiAPIKey2           string        `mapstructure:"GEMINI_API_KEY_2"`
	GeminiAPIKey3           string        `mapstructure:"GEMINI_API_KEY_3"`
	GeminiBaseURL           string        `mapstructure:"GEMINI_BASE_URL"`
	GeminiModel             string        `mapstructure:"GEMINI_MODEL"`
	FallbackModels          []string      `mapstructure:"FALLBACK_MODELS"`
	EmbeddingModel          string        `mapstructure:"EMBEDDING_MODEL"`
	TrainDataFiles          []string      `mapstructure:"TRAIN_DATA_FILES"`
	EmbeddedDocsFile        string        `mapstructure:"EMBEDDED_DOCS_FILE"`
	RedisAddr               string        `mapstructure:"REDIS_ADDR"`
	RedisPassword           string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB                 int           `mapstructure:"REDIS_DB"`
	CacheTTL                time.Duration `mapstructure:"CACHE_TTL_SEC"`
	CacheMaxItems           int           `mapstructure:"CACHE_MAX_ITEMS"`
	CachePrefix             string        `mapstructure:"CACHE_PREFIX"`
	RateLimitPerMin         int           `mapstructure:"RATE_LIMIT_PER_MIN"`
	LLMRequestTimeout       time.Duration `mapstructure:"LLM_REQUEST_TIMEOUT"`
	MaxRetries              int           `mapstructure:"MAX_RETRIES"`
	MaxOutputTokens         int           `mapstructure:"MAX_OUTPUT_TOKENS"`
	Temperature             float64       `mapstructure:"TEMPERATURE"`
	HistoryTail             int           `mapstructure:"HISTORY_TAIL"`
	RAGResults              int           `mapstructure:"RAG_RESULTS"`
	SemanticThreshold       float64       `mapstructure:"SEMANTIC_SIMILARITY_THRESHOLD"`
	EmbeddingCacheSize      int           `mapstructure:"EMBEDDING_CACHE_SIZE"`
	WebPort                 int           `mapstructure:"WEB_PORT"`
	LogLevel                string        `mapstructure:"LOG_LEVEL"`
}

func Load(logger *zap.Logger) *Config {
	var config Config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")        // For running locally
	viper.AddConfigPath("../")      // For running from docker subdir
	viper.AddConfigPath("./config") // Common config folder
	viper.AutomaticEnv()

	// Set default values. Secrets default to empty so AutomaticEnv can bind
	// them during Unmarshal.
	viper.SetDefault("GEMINI_API_KEY", "")
	viper.SetDefault("GEMINI_API_KEY_2", "")
	viper.SetDefault("GEMINI_API_KEY_3", "")
	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com")
	viper.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	viper.SetDefault("FALLBACK_MODELS", []string{"gemini-1.5-flash-8b", "gemini-1.5-pro"})
	viper.SetDefault("EMBEDDING_MODEL", "text-embedding-004")
	viper.SetDefault("TRAIN_DATA_FILES", []string{"data/train.json", "data/kosakata_jawa.json"})
	viper.SetDefault("EMBEDDED_DOCS_FILE", "data/embedded_docs.json")
	viper.SetDefault("CACHE_TTL_SEC", 21600) // 6 hours
	viper.SetDefault("CACHE_MAX_ITEMS", 500)
	viper.SetDefault("CACHE_PREFIX", "v1")
	viper.SetDefault("RATE_LIMIT_PER_MIN", 15)
	viper.SetDefault("LLM_REQUEST_TIMEOUT", 8) // seconds, per provider call
	viper.SetDefault("MAX_RETRIES", 2)
	viper.SetDefault("MAX_OUTPUT_TOKENS", 500)
	viper.SetDefault("TEMPERATURE", 0.7)
	viper.SetDefault("HISTORY_TAIL", 4)
	viper.SetDefault("RAG_RESULTS", 3)
	viper.SetDefault("SEMANTIC_SIMILARITY_THRESHOLD", 0.6)
	viper.SetDefault("EMBEDDING_CACHE_SIZE", 256)
	viper.SetDefault("WEB_PORT", 3000)
	viper.SetDefault("LOG_LEVEL", "info")

	if err := viper.ReadInConfig(); err != nil {
		if logger != nil {
			logger.Warn("Could not read config file, using defaults/env vars", zap.Error(err))
		}
	}

	if err := viper.Unmarshal(&config); err != nil {
		// Config unmarshaling is critical - fail fast during bootstrap
		if logger != nil {
			logger.Fatal("Unable to decode config into struct", zap.Error(err))
		} else {
			// Fallback if logger not available (should not happen in practice)
			fmt.Fprintf(os.Stderr, "FATAL: Unable to decode config into struct: %v\n", err)
			os.Exit(1)
		}
	}

	// Convert seconds to proper time.Duration
	config.CacheTTL = config.CacheTTL * time.Second
	config.LLMRequestTimeout = config.LLMRequestTimeout * time.Second

	return &config
}

// APIKeys returns the configured Gemini credentials, empty slots filtered out.
// The pool may legitimately be empty; remote generation is then skipped entirely.
func (c *Config) APIKeys() []string {
	keys := make([]string, 0, 3)
	for _, k := range []string{c.GeminiAPIKey, c.GeminiAPIKey2, c.GeminiAPIKey3} {
		k = strings.TrimSpace(k)
		if k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// ModelCandidates returns the ordered model list: the configured primary
// followed by the fallback models, duplicates removed.
func (c *Config) ModelCandidates() []string {
	models := make([]string, 0, 1+len(c.FallbackModels))
	seen := make(map[string]bool)
	for _, m := range append([]string{c.GeminiModel}, c.FallbackModels...) {
		m = strings.TrimSpace(m)
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		models = append(models, m)
	}
	return models
}
