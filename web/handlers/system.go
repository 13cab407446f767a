package handlers

import (
	"context"
	"net/http"
	"time"

	"kelurahan-assistant/cache"
	"kelurahan-assistant/knowledge"
	"kelurahan-assistant/llmclient"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
)

// SystemHandler serves the operational endpoints: liveness, health rollup and
// the rate-limiter/model status snapshot.
type SystemHandler struct {
	store   *knowledge.Store
	cache   cache.Store
	client  *llmclient.Client
	limiter *llmclient.RateLimiter
	logger  *zap.Logger
}

func NewSystemHandler(store *knowledge.Store, cacheStore cache.Store, client *llmclient.Client, limiter *llmclient.RateLimiter, logger *zap.Logger) *SystemHandler {
	return &SystemHandler{
		store:   store,
		cache:   cacheStore,
		client:  client,
		limiter: limiter,
		logger:  logger,
	}
}

// Root handles GET /.
func (h *SystemHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "online"})
}

type healthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// Health handles GET /health. Any degraded check degrades the rollup and the
// HTTP status; the process keeps serving either way since every degradation
// has a fallback.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]healthCheck{
		"corpus":      h.checkCorpus(),
		"cache":       h.checkCache(ctx),
		"credentials": h.checkCredentials(),
	}

	overall := statusHealthy
	for _, check := range checks {
		if check.Status != statusHealthy {
			overall = statusDegraded
			break
		}
	}

	httpStatus := http.StatusOK
	if overall != statusHealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	c.JSON(httpStatus, gin.H{
		"status":    overall,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

// Status handles GET /status.
func (h *SystemHandler) Status(c *gin.Context) {
	used, ceiling := h.limiter.Usage()
	c.JSON(http.StatusOK, gin.H{
		"rate_limit": gin.H{
			"used_this_minute": used,
			"max_per_minute":   ceiling,
		},
		"models": h.client.Models(),
		"cache":  h.cache.Stats(),
		"corpus": gin.H{"entries": h.store.Len()},
	})
}

func (h *SystemHandler) checkCorpus() healthCheck {
	if h.store.Len() == 0 {
		return healthCheck{Status: statusDegraded, Message: "knowledge corpus is empty"}
	}
	return healthCheck{Status: statusHealthy}
}

func (h *SystemHandler) checkCache(ctx context.Context) healthCheck {
	if err := h.cache.Ping(ctx); err != nil {
		return healthCheck{Status: statusDegraded, Message: err.Error()}
	}
	return healthCheck{Status: statusHealthy}
}

func (h *SystemHandler) checkCredentials() healthCheck {
	if !h.client.HasCredentials() {
		return healthCheck{Status: statusDegraded, Message: "no api keys configured"}
	}
	return healthCheck{Status: statusHealthy}
}
