// Command indexer builds the precomputed embedding index consumed by the
// semantic fallback. It is a one-shot offline batch tool, not part of the
// serving path:
//
//	go run ./cmd/indexer
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"kelurahan-assistant/config"
	"kelurahan-assistant/knowledge"
	"kelurahan-assistant/llmclient"
	"kelurahan-assistant/semantic"

	"go.uber.org/zap"
)

// maxDocuments bounds the index size; when the corpus is larger, the entries
// with the longest answers are kept.
const maxDocuments = 400

func main() {
	logger, err := config.InitLogger("info")
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer config.Cleanup()

	cfg := config.Load(logger)

	keys := cfg.APIKeys()
	if len(keys) == 0 {
		logger.Fatal("GEMINI_API_KEY is required to build the embedding index")
	}

	store := knowledge.Load(cfg.TrainDataFiles, logger)
	if store.Len() == 0 {
		logger.Fatal("No training data to index")
	}

	entries := store.Entries()
	if len(entries) > maxDocuments {
		logger.Warn("Corpus exceeds index bound, keeping longest answers",
			zap.Int("corpus", len(entries)),
			zap.Int("bound", maxDocuments))
		trimmed := make([]knowledge.Entry, len(entries))
		copy(trimmed, entries)
		sort.SliceStable(trimmed, func(i, j int) bool {
			return len(trimmed[i].Answer) > len(trimmed[j].Answer)
		})
		entries = trimmed[:maxDocuments]
	}

	pool := llmclient.NewKeyPool(keys)
	limiter := llmclient.NewRateLimiter(cfg.RateLimitPerMin)
	client := llmclient.New(cfg, pool, limiter, logger)

	ctx := context.Background()
	docs := make([]semantic.Document, 0, len(entries))
	for i, entry := range entries {
		vector, err := client.Embed(ctx, embeddingText(entry))
		if err != nil {
			logger.Warn("Embedding failed, skipping entry",
				zap.Int("index", i),
				zap.String("question", entry.Question),
				zap.Error(err))
			continue
		}
		docs = append(docs, semantic.Document{
			Text:      entry.Question,
			Answer:    entry.Answer,
			Kategori:  entry.Category,
			Tags:      topTags(entry.Tags, 3),
			Embedding: vector,
		})
		if (i+1)%25 == 0 {
			logger.Info("Indexing progress",
				zap.Int("done", i+1),
				zap.Int("total", len(entries)))
		}
	}

	if len(docs) == 0 {
		logger.Fatal("No documents were embedded")
	}

	if dir := filepath.Dir(cfg.EmbeddedDocsFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Fatal("Could not create output directory", zap.Error(err))
		}
	}
	out, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		logger.Fatal("Could not marshal index", zap.Error(err))
	}
	if err := os.WriteFile(cfg.EmbeddedDocsFile, out, 0o644); err != nil {
		logger.Fatal("Could not write index file", zap.Error(err))
	}

	logger.Info("Embedding index written",
		zap.String("file", cfg.EmbeddedDocsFile),
		zap.Int("documents", len(docs)),
		zap.Int("dimension", len(docs[0].Embedding)))
}

// embeddingText joins the fields worth embedding: the question, the answer
// truncated to 300 characters, and up to three tags.
func embeddingText(e knowledge.Entry) string {
	parts := []string{e.Question}
	answer := e.Answer
	if len(answer) > 300 {
		answer = answer[:300]
	}
	if answer != "" {
		parts = append(parts, answer)
	}
	if tags := topTags(e.Tags, 3); len(tags) > 0 {
		parts = append(parts, "Tag: "+strings.Join(tags, ", "))
	}
	return strings.Join(parts, "\n")
}

func topTags(tags []string, n int) []string {
	if len(tags) > n {
		tags = tags[:n]
	}
	return tags
}
