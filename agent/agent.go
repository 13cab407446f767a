package agent

import (
	"context"
	"encoding/json"

	"kelurahan-assistant/cache"
	"kelurahan-assistant/config"
	"kelurahan-assistant/knowledge"
	"kelurahan-assistant/llmclient"
	"kelurahan-assistant/prompts"
	"kelurahan-assistant/semantic"

	"go.uber.org/zap"
)

// Model labels for the local response layers, part of the /chat contract.
const (
	ModelSemanticFallback = "local-rag-fallback"
	ModelKeywordFallback  = "keyword-fallback"
	ModelDecline          = "fallback"
)

// Generator is the remote completion dependency, satisfied by llmclient.Client.
type Generator interface {
	Generate(ctx context.Context, contents []llmclient.Content) (*llmclient.GenerateResult, error)
}

// SemanticFallback is the optional embedding retrieval collaborator.
type SemanticFallback interface {
	BestMatch(ctx context.Context, query string) (semantic.Match, bool)
}

// Result is the answer produced by exactly one response layer.
type Result struct {
	Text   string
	Model  string
	Cached bool
	Output llmclient.GenerateOutput
}

// cachedPayload is the wire form written through to the cache. Replaying it
// yields byte-identical output for repeated questions.
type cachedPayload struct {
	Model  string                   `json:"model"`
	Output llmclient.GenerateOutput `json:"output"`
}

// Agent sequences the response layers into one deterministic fallback chain:
// cache hit, grounded remote generation, semantic retrieval, strict keyword
// retrieval, generic decline. Every layer below the cache is a potential
// terminal success; the decline always is.
type Agent struct {
	cfg      *config.Config
	store    *knowledge.Store
	cache    cache.Store
	llm      Generator
	semantic SemanticFallback
	logger   *zap.Logger
}

// New constructs the orchestrator. semantic may be nil; that stage is then
// skipped.
func New(cfg *config.Config, store *knowledge.Store, cacheStore cache.Store, llm Generator, sem SemanticFallback, logger *zap.Logger) *Agent {
	return &Agent{
		cfg:      cfg,
		store:    store,
		cache:    cacheStore,
		llm:      llm,
		semantic: sem,
		logger:   logger,
	}
}

// Respond answers a citizen question. It never returns an error: every remote
// failure class advances the chain and the final layer is a fixed polite
// decline.
func (a *Agent) Respond(ctx context.Context, message string, history []llmclient.Content) *Result {
	key, hasKey := cache.Key(a.cfg.CachePrefix, message)

	// 1. Cache hit
	if hasKey {
		if raw, ok := a.cache.Get(ctx, key); ok {
			var payload cachedPayload
			if err := json.Unmarshal(raw, &payload); err == nil {
				a.logger.Debug("Cache hit", zap.String("key", key))
				result := resultFromPayload(payload)
				result.Cached = true
				return result
			}
			a.logger.Warn("Discarding undecodable cache entry", zap.String("key", key))
		}
	}

	// 2. Remote generation grounded on retrieved entries
	relevant := knowledge.FindRelevant(message, a.store.Entries(), a.cfg.RAGResults)
	if result := a.generateRemote(ctx, message, history, relevant); result != nil {
		a.writeThrough(ctx, key, hasKey, result)
		return result
	}

	// 3. Semantic fallback over precomputed embeddings
	if a.semantic != nil {
		if match, ok := a.semantic.BestMatch(ctx, message); ok {
			a.logger.Info("Answering from semantic fallback",
				zap.Float64("similarity", match.Similarity))
			result := localResult(ModelSemanticFallback, match.Answer)
			a.writeThrough(ctx, key, hasKey, result)
			return result
		}
	}

	// 4. Strict keyword fallback, answer returned verbatim
	if entry, ok := knowledge.StrictFallback(message, a.store.Entries()); ok {
		a.logger.Info("Answering from keyword fallback", zap.String("question", entry.Question))
		result := localResult(ModelKeywordFallback, entry.Answer)
		a.writeThrough(ctx, key, hasKey, result)
		return result
	}

	// 5. Generic decline, never cached
	a.logger.Info("No response layer produced an answer, declining")
	return localResult(ModelDecline, prompts.GenericDecline())
}

// generateRemote attempts the full remote path and returns nil on any failure;
// the caller degrades to the local layers.
func (a *Agent) generateRemote(ctx context.Context, message string, history []llmclient.Content, relevant []knowledge.Entry) *Result {
	instruction := prompts.SystemInstruction(prompts.Grounding(relevant))

	contents := make([]llmclient.Content, 0, 2+a.cfg.HistoryTail)
	contents = append(contents, llmclient.UserContent(instruction))
	contents = append(contents, historyTail(history, a.cfg.HistoryTail)...)
	contents = append(contents, llmclient.UserContent(message))

	generated, err := a.llm.Generate(ctx, contents)
	if err != nil {
		a.logger.Warn("Remote generation failed, degrading to local fallback",
			zap.Error(err))
		return nil
	}

	result := &Result{
		Text:   generated.Text(),
		Model:  generated.Model,
		Output: generated.Output,
	}
	return result
}

// writeThrough caches the produced payload. At most one write happens per
// request, and only for the generation and fallback layers.
func (a *Agent) writeThrough(ctx context.Context, key string, hasKey bool, result *Result) {
	if !hasKey {
		return
	}
	raw, err := json.Marshal(cachedPayload{Model: result.Model, Output: result.Output})
	if err != nil {
		a.logger.Warn("Could not marshal response for cache", zap.Error(err))
		return
	}
	a.cache.Set(ctx, key, raw)
}

func historyTail(history []llmclient.Content, n int) []llmclient.Content {
	if n <= 0 || len(history) == 0 {
		return nil
	}
	if len(history) > n {
		history = history[len(history)-n:]
	}
	return history
}

func localResult(model, text string) *Result {
	return &Result{
		Text:   text,
		Model:  model,
		Output: llmclient.OutputFromText(text),
	}
}

func resultFromPayload(p cachedPayload) *Result {
	result := &Result{Model: p.Model, Output: p.Output}
	if len(p.Output.Candidates) > 0 && len(p.Output.Candidates[0].Content.Parts) > 0 {
		result.Text = p.Output.Candidates[0].Content.Parts[0].Text
	}
	return result
}
