package web

import (
	"context"
	"net/http"

	"kelurahan-assistant/agent"
	"kelurahan-assistant/cache"
	"kelurahan-assistant/config"
	"kelurahan-assistant/knowledge"
	"kelurahan-assistant/llmclient"
	"kelurahan-assistant/web/handlers"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	router *gin.Engine
	logger *zap.Logger
	config *config.Config
}

func NewServer(a *agent.Agent, store *knowledge.Store, cacheStore cache.Store, client *llmclient.Client, limiter *llmclient.RateLimiter, logger *zap.Logger, cfg *config.Config) *Server {
	// Set Gin mode based on environment
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Recovery is the only path that can produce a 500 on /chat.
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("Panic recovered in handler", zap.Any("panic", recovered))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"ok":    false,
			"error": "internal server error",
		})
	}))
	router.Use(corsMiddleware())
	router.Use(func(c *gin.Context) {
		// Add logger to context
		c.Set("logger", logger)
		c.Next()
	})

	server := &Server{
		router: router,
		logger: logger,
		config: cfg,
	}

	server.setupRoutes(a, store, cacheStore, client, limiter)
	return server
}

func (s *Server) setupRoutes(a *agent.Agent, store *knowledge.Store, cacheStore cache.Store, client *llmclient.Client, limiter *llmclient.RateLimiter) {
	chatHandler := handlers.NewChatHandler(a, s.logger)
	systemHandler := handlers.NewSystemHandler(store, cacheStore, client, limiter, s.logger)

	s.router.POST("/chat", chatHandler.SendMessage)
	s.router.POST("/api/chat", chatHandler.SendMessage)
	s.router.GET("/", systemHandler.Root)
	s.router.GET("/health", systemHandler.Health)
	s.router.GET("/status", systemHandler.Status)
}

// Router exposes the handler tree for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) Start(ctx context.Context, addr string) error {
	s.logger.Info("Starting web server", zap.String("address", addr))

	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	// Start server in a goroutine
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Web server failed to start", zap.Error(err))
		}
	}()

	// Wait for context cancellation
	<-ctx.Done()

	s.logger.Info("Shutting down web server")
	return srv.Shutdown(context.Background())
}

// corsMiddleware allows the chat widget to be embedded from any origin, as
// the kiosk deployments serve the UI from a separate host.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}
