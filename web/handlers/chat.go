package handlers

import (
	"net/http"
	"strings"

	"kelurahan-assistant/agent"
	"kelurahan-assistant/llmclient"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ChatHandler struct {
	agent  *agent.Agent
	logger *zap.Logger
}

type ChatRequest struct {
	Message string              `json:"message"`
	History []llmclient.Content `json:"history"`
}

func NewChatHandler(agent *agent.Agent, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		agent:  agent,
		logger: logger,
	}
}

// SendMessage handles POST /chat. The only non-200 outcomes are a missing
// message (400) and a panic caught by recovery (500); every degradation below
// that still produces an answer.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "message required"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "message required"})
		return
	}

	requestID := uuid.New().String()
	h.logger.Info("Chat request",
		zap.String("request_id", requestID),
		zap.Int("history_turns", len(req.History)))

	result := h.agent.Respond(c.Request.Context(), req.Message, req.History)

	h.logger.Info("Chat response",
		zap.String("request_id", requestID),
		zap.String("model", result.Model),
		zap.Bool("cached", result.Cached))

	resp := gin.H{
		"ok":     true,
		"model":  result.Model,
		"output": result.Output,
	}
	if result.Cached {
		resp["cached"] = true
	}
	c.JSON(http.StatusOK, resp)
}
