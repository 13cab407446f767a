package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"kelurahan-assistant/config"
	apperrors "kelurahan-assistant/errors"

	"go.uber.org/zap"
)

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		GeminiBaseURL:     baseURL,
		GeminiModel:       "model-a",
		FallbackModels:    []string{"model-b"},
		EmbeddingModel:    "text-embedding-004",
		MaxRetries:        2,
		LLMRequestTimeout: 2 * time.Second,
		MaxOutputTokens:   500,
		Temperature:       0.7,
		RateLimitPerMin:   100,
	}
}

func newTestClient(cfg *config.Config, keys []string) *Client {
	return New(cfg, NewKeyPool(keys), NewRateLimiter(cfg.RateLimitPerMin), zap.NewNop())
}

func candidatesBody(text string) string {
	out := GenerateOutput{
		Candidates: []Candidate{{Content: Content{Role: "model", Parts: []Part{{Text: text}}}}},
	}
	raw, _ := json.Marshal(out)
	return string(raw)
}

func TestGenerateSuccess(t *testing.T) {
	var gotModel, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotModel = modelFromPath(r.URL.Path)
		gotKey = r.URL.Query().Get("key")

		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if len(req.Contents) == 0 {
			t.Error("expected contents in request")
		}
		if req.GenerationConfig.MaxOutputTokens != 500 {
			t.Errorf("maxOutputTokens = %d, want 500", req.GenerationConfig.MaxOutputTokens)
		}

		w.Write([]byte(candidatesBody("Datang ke kelurahan dengan KK.")))
	}))
	defer server.Close()

	client := newTestClient(testConfig(server.URL), []string{"key-1"})
	result, err := client.Generate(context.Background(), []Content{UserContent("Bagaimana cara membuat KTP?")})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.Model != "model-a" {
		t.Errorf("Model = %q, want model-a", result.Model)
	}
	if result.Text() != "Datang ke kelurahan dengan KK." {
		t.Errorf("Text() = %q", result.Text())
	}
	if gotModel != "model-a" || gotKey != "key-1" {
		t.Errorf("request went to model %q with key %q", gotModel, gotKey)
	}
}

func TestGenerateRotatesKeyOnQuotaAndRetriesSameModel(t *testing.T) {
	var keys []string
	var models []string
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keys = append(keys, r.URL.Query().Get("key"))
		models = append(models, modelFromPath(r.URL.Path))
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"code":429,"message":"Resource has been exhausted","status":"RESOURCE_EXHAUSTED"}}`))
			return
		}
		w.Write([]byte(candidatesBody("ok")))
	}))
	defer server.Close()

	client := newTestClient(testConfig(server.URL), []string{"key-1", "key-2"})
	result, err := client.Generate(context.Background(), []Content{UserContent("halo")})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.Model != "model-a" {
		t.Errorf("quota retry should stay on the same model, answered by %q", result.Model)
	}
	if len(keys) != 2 || keys[0] == keys[1] {
		t.Errorf("expected rotated credentials across attempts, got %v", keys)
	}
	if models[0] != "model-a" || models[1] != "model-a" {
		t.Errorf("expected both attempts on model-a, got %v", models)
	}
}

func TestGenerateAllModelsExhausted(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":429,"message":"quota exceeded"}}`))
	}))
	defer server.Close()

	client := newTestClient(testConfig(server.URL), []string{"key-1"})
	_, err := client.Generate(context.Background(), []Content{UserContent("halo")})
	if !errors.Is(err, apperrors.ErrAllModelsExhausted) {
		t.Fatalf("expected ErrAllModelsExhausted, got %v", err)
	}
	// MaxRetries attempts per candidate model: 2 models x 2 attempts.
	if calls != 4 {
		t.Errorf("expected 4 attempts, got %d", calls)
	}
}

func TestGenerateNonQuotaErrorPropagatesImmediately(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"invalid argument"}}`))
	}))
	defer server.Close()

	client := newTestClient(testConfig(server.URL), []string{"key-1"})
	_, err := client.Generate(context.Background(), []Content{UserContent("halo")})
	if !errors.Is(err, apperrors.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	if calls != 1 {
		t.Errorf("non-quota errors must not be retried, got %d calls", calls)
	}
}

func TestGenerateEmptyPool(t *testing.T) {
	client := newTestClient(testConfig("http://unused"), nil)
	_, err := client.Generate(context.Background(), []Content{UserContent("halo")})
	if !apperrors.IsNoCredentials(err) {
		t.Errorf("expected ErrNoCredentials, got %v", err)
	}
}

func TestGenerateRejectsEmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	client := newTestClient(testConfig(server.URL), []string{"key-1"})
	_, err := client.Generate(context.Background(), []Content{UserContent("halo")})
	if !errors.Is(err, apperrors.ErrUpstream) {
		t.Errorf("expected ErrUpstream for empty candidates, got %v", err)
	}
}

func TestEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "text-embedding-004:embedContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"embedding":{"values":[0.1, 0.2, 0.3]}}`))
	}))
	defer server.Close()

	client := newTestClient(testConfig(server.URL), []string{"key-1"})
	vector, err := client.Embed(context.Background(), "apa itu skck")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vector) != 3 {
		t.Errorf("vector length = %d, want 3", len(vector))
	}
}

func modelFromPath(path string) string {
	// /v1beta/models/<model>:generateContent
	parts := strings.Split(path, "/")
	last := parts[len(parts)-1]
	return strings.Split(last, ":")[0]
}
