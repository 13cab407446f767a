package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kelurahan-assistant/cache"
	"kelurahan-assistant/config"
	"kelurahan-assistant/knowledge"
	"kelurahan-assistant/llmclient"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func systemRouter(t *testing.T, entries []knowledge.Entry, keys []string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		GeminiBaseURL:   "http://localhost:0",
		GeminiModel:     "gemini-1.5-flash",
		FallbackModels:  []string{"gemini-1.5-flash-8b"},
		RateLimitPerMin: 15,
		CachePrefix:     "v1",
	}
	store := loadStore(t, entries)
	mem := cache.NewMemory(time.Minute, 50, cfg.CachePrefix, zap.NewNop())
	limiter := llmclient.NewRateLimiter(cfg.RateLimitPerMin)
	client := llmclient.New(cfg, llmclient.NewKeyPool(keys), limiter, zap.NewNop())

	router := gin.New()
	handler := NewSystemHandler(store, mem, client, limiter, zap.NewNop())
	router.GET("/", handler.Root)
	router.GET("/health", handler.Health)
	router.GET("/status", handler.Status)
	return router
}

func TestHealthHealthy(t *testing.T) {
	router := systemRouter(t, []knowledge.Entry{
		{Question: "Apa itu RT?", Answer: "Rukun Tetangga."},
	}, []string{"key-1"})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		Status string                 `json:"status"`
		Checks map[string]healthCheck `json:"checks"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != statusHealthy {
		t.Errorf("status = %q, want healthy", resp.Status)
	}
	if len(resp.Checks) != 3 {
		t.Errorf("expected 3 named checks, got %d", len(resp.Checks))
	}
}

func TestHealthDegradedWithoutCorpusAndKeys(t *testing.T) {
	router := systemRouter(t, nil, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	var resp struct {
		Status string `json:"status"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Status != statusDegraded {
		t.Errorf("status = %q, want degraded", resp.Status)
	}
}

func TestStatusSnapshot(t *testing.T) {
	router := systemRouter(t, []knowledge.Entry{
		{Question: "Apa itu RT?", Answer: "Rukun Tetangga."},
	}, []string{"key-1"})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp struct {
		RateLimit struct {
			Used int `json:"used_this_minute"`
			Max  int `json:"max_per_minute"`
		} `json:"rate_limit"`
		Models []string `json:"models"`
		Corpus struct {
			Entries int `json:"entries"`
		} `json:"corpus"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.RateLimit.Max != 15 {
		t.Errorf("max_per_minute = %d, want 15", resp.RateLimit.Max)
	}
	if len(resp.Models) != 2 {
		t.Errorf("models = %v, want primary plus fallback", resp.Models)
	}
	if resp.Corpus.Entries != 1 {
		t.Errorf("corpus entries = %d, want 1", resp.Corpus.Entries)
	}
}

func TestRootOnline(t *testing.T) {
	router := systemRouter(t, nil, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["status"] != "online" {
		t.Errorf("unexpected body %v", resp)
	}
}
