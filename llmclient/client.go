package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"kelurahan-assistant/config"
	apperrors "kelurahan-assistant/errors"

	"go.uber.org/zap"
)

// Client issues generateContent calls against the provider, cycling through
// the credential pool and the candidate model list.
//
// Retry policy: on a quota-shaped failure (429 / exhausted quota) the next
// attempt uses the next credential against the same model, up to MaxRetries
// attempts per model; after that the next candidate model is tried. Any other
// failure aborts the remote stage immediately so the caller can degrade.
type Client struct {
	cfg        *config.Config
	pool       *KeyPool
	limiter    *RateLimiter
	httpClient *http.Client
	logger     *zap.Logger
}

func New(cfg *config.Config, pool *KeyPool, limiter *RateLimiter, logger *zap.Logger) *Client {
	return &Client{
		cfg:     cfg,
		pool:    pool,
		limiter: limiter,
		// Per-request deadline lives on the request context; the transport
		// timeout is a backstop.
		httpClient: &http.Client{Timeout: cfg.LLMRequestTimeout},
		logger:     logger,
	}
}

// Models returns the ordered candidate model list.
func (c *Client) Models() []string {
	return c.cfg.ModelCandidates()
}

// HasCredentials reports whether the key pool is non-empty.
func (c *Client) HasCredentials() bool {
	return c.pool.Size() > 0
}

// Generate runs the full candidate-model / key-rotation loop and returns the
// first successful completion.
func (c *Client) Generate(ctx context.Context, contents []Content) (*GenerateResult, error) {
	if c.pool.Size() == 0 {
		return nil, apperrors.ErrNoCredentials
	}

	for _, model := range c.cfg.ModelCandidates() {
		for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
			output, err := c.generateOnce(ctx, model, contents)
			if err == nil {
				return &GenerateResult{Model: model, Output: *output}, nil
			}
			if apperrors.IsQuotaShaped(err) {
				c.logger.Warn("Provider quota hit, rotating credential",
					zap.String("model", model),
					zap.Int("attempt", attempt),
					zap.Error(err))
				continue
			}
			return nil, err
		}
		c.logger.Warn("Model attempts exhausted, advancing to next candidate",
			zap.String("model", model))
	}
	return nil, apperrors.ErrAllModelsExhausted
}

func (c *Client) generateOnce(ctx context.Context, model string, contents []Content) (*GenerateOutput, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperrors.WrapError(err, "rate limiter wait")
	}
	key, err := c.pool.Next()
	if err != nil {
		return nil, err
	}

	reqBody := generateRequest{
		Contents: contents,
		GenerationConfig: generationConfig{
			MaxOutputTokens: c.cfg.MaxOutputTokens,
			Temperature:     c.cfg.Temperature,
		},
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, apperrors.WrapError(err, "marshal generate request")
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		strings.TrimRight(c.cfg.GeminiBaseURL, "/"), model, key)

	body, err := c.post(ctx, url, jsonBody)
	if err != nil {
		return nil, err
	}

	var output GenerateOutput
	if err := json.Unmarshal(body, &output); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrUpstream, "decode generate response")
	}
	if len(output.Candidates) == 0 {
		return nil, apperrors.WrapError(apperrors.ErrUpstream, "no candidates in response")
	}
	return &output, nil
}

// Embed generates an embedding vector for the provided text using the
// provider's embedContent endpoint, under the same limiter and key rotation.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	if c.pool.Size() == 0 {
		return nil, apperrors.ErrNoCredentials
	}

	reqBody := embedRequest{
		Model:   fmt.Sprintf("models/%s", c.cfg.EmbeddingModel),
		Content: Content{Parts: []Part{{Text: text}}},
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, apperrors.WrapError(err, "marshal embed request")
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, apperrors.WrapError(err, "rate limiter wait")
		}
		key, err := c.pool.Next()
		if err != nil {
			return nil, err
		}

		url := fmt.Sprintf("%s/v1beta/models/%s:embedContent?key=%s",
			strings.TrimRight(c.cfg.GeminiBaseURL, "/"), c.cfg.EmbeddingModel, key)

		body, err := c.post(ctx, url, jsonBody)
		if err != nil {
			lastErr = err
			if apperrors.IsQuotaShaped(err) {
				continue
			}
			return nil, err
		}

		var er embedResponse
		if err := json.Unmarshal(body, &er); err != nil {
			return nil, apperrors.WrapError(apperrors.ErrUpstream, "decode embed response")
		}
		if len(er.Embedding.Values) == 0 {
			return nil, apperrors.WrapError(apperrors.ErrUpstream, "empty embedding")
		}
		return er.Embedding.Values, nil
	}
	return nil, lastErr
}

// post performs one provider call and classifies the failure.
func (c *Client) post(ctx context.Context, url string, jsonBody []byte) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.LLMRequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, apperrors.WrapError(err, "create provider request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			return nil, apperrors.WrapError(apperrors.ErrTimeout, err.Error())
		}
		return nil, apperrors.WrapError(apperrors.ErrUpstream, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrUpstream, "read provider response")
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, apperrors.WrapError(apperrors.ErrRateLimited, providerMessage(body))
	}
	if resp.StatusCode != http.StatusOK {
		msg := providerMessage(body)
		if isQuotaMessage(msg) {
			return nil, apperrors.WrapError(apperrors.ErrQuotaExceeded, msg)
		}
		return nil, apperrors.WrapErrorf(apperrors.ErrUpstream, "provider status %s: %s", resp.Status, msg)
	}
	return body, nil
}

func providerMessage(body []byte) string {
	var pe providerError
	if err := json.Unmarshal(body, &pe); err == nil && pe.Error.Message != "" {
		return pe.Error.Message
	}
	return string(body)
}

func isQuotaMessage(msg string) bool {
	upper := strings.ToUpper(msg)
	return strings.Contains(upper, "QUOTA") ||
		strings.Contains(upper, "RESOURCE_EXHAUSTED") ||
		strings.Contains(msg, "429")
}
