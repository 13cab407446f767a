// Package semantic serves precomputed-embedding retrieval as the first local
// fallback when remote generation is exhausted. The vectors come from the
// offline indexer (cmd/indexer); at runtime only the query is embedded.
package semantic

import (
	"context"
	"encoding/json"
	"math"
	"os"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

// Document is one precomputed record of the embedded index file.
type Document struct {
	ID        any       `json:"id,omitempty"`
	Text      string    `json:"text"`
	Answer    string    `json:"answer"`
	Kategori  string    `json:"kategori,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Embedding []float64 `json:"embedding"`
}

// Match is a confident retrieval hit.
type Match struct {
	Question   string
	Answer     string
	Similarity float64
}

// Embedder is the remote embedding dependency, satisfied by llmclient.Client.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Fallback ranks the loaded documents against a query embedding by cosine
// similarity. Query embeddings are memoized in an LRU cache since the same
// questions recur; the document vectors are read-only after load.
type Fallback struct {
	docs      []Document
	embedder  Embedder
	threshold float64
	queryLRU  *lru.Cache
	logger    *zap.Logger
}

// Load reads the embedded index file. A missing or invalid file returns
// (nil, err); callers run without the semantic stage in that case.
func Load(path string, embedder Embedder, threshold float64, cacheSize int, logger *zap.Logger) (*Fallback, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var docs []Document
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, err
	}

	// Drop records without a vector; they cannot be ranked.
	valid := docs[:0]
	for _, d := range docs {
		if len(d.Embedding) > 0 {
			valid = append(valid, d)
		}
	}

	queryLRU, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}

	logger.Info("Loaded semantic index",
		zap.String("file", path),
		zap.Int("documents", len(valid)))

	return &Fallback{
		docs:      valid,
		embedder:  embedder,
		threshold: threshold,
		queryLRU:  queryLRU,
		logger:    logger,
	}, nil
}

func (f *Fallback) Len() int {
	return len(f.docs)
}

// BestMatch embeds the query and returns the most similar document when its
// cosine similarity clears the confidence threshold. Failures never propagate;
// the orchestrator just moves to the next fallback stage.
func (f *Fallback) BestMatch(ctx context.Context, query string) (Match, bool) {
	if f == nil || len(f.docs) == 0 {
		return Match{}, false
	}

	vector, err := f.queryVector(ctx, query)
	if err != nil {
		f.logger.Warn("Query embedding failed, skipping semantic fallback", zap.Error(err))
		return Match{}, false
	}

	best := Match{Similarity: -1}
	for _, doc := range f.docs {
		sim := cosine(vector, doc.Embedding)
		if sim > best.Similarity {
			best = Match{Question: doc.Text, Answer: doc.Answer, Similarity: sim}
		}
	}

	if best.Similarity < f.threshold || best.Answer == "" {
		return Match{}, false
	}
	return best, true
}

func (f *Fallback) queryVector(ctx context.Context, query string) ([]float64, error) {
	if cached, ok := f.queryLRU.Get(query); ok {
		return cached.([]float64), nil
	}
	vector, err := f.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	f.queryLRU.Add(query, vector)
	return vector, nil
}

func cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
