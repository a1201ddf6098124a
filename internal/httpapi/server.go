// Package httpapi serves the shop's REST API: chat, catalog, cart and
// orders, plus health and metrics endpoints.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/edgard/baristabot/internal/chat"
	"github.com/edgard/baristabot/internal/config"
	"github.com/edgard/baristabot/internal/database"
	"github.com/edgard/baristabot/internal/logger"
)

const serviceName = "BaristaBot API"

// Deps are the collaborators of the API handlers.
type Deps struct {
	Logger *slog.Logger
	Store  database.Store
	Chat   *chat.Service
	// RequestTimeout bounds chat requests. Zero means no extra bound.
	RequestTimeout time.Duration
	AllowedOrigins []string
}

type handlers struct {
	deps Deps
	log  *slog.Logger
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Requested-With"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(deps Deps) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	h := &handlers{deps: deps, log: deps.Logger.With("component", "httpapi")}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(cors.New(corsConfig(deps.AllowedOrigins)))

	r.GET("/", h.health)
	r.GET("/healthcheck", h.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/chat", h.chat)
	r.POST("/api/chatbot", h.chatbot)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/", h.apiRoot)

		v1.GET("/products/", h.listProducts)
		v1.GET("/products/:id", h.getProduct)
		v1.GET("/categories/", h.listCategories)

		v1.POST("/cart/", h.addToCart)
		v1.GET("/cart/", h.getCart)
		v1.DELETE("/cart/", h.clearCart)
		v1.PUT("/cart/:id", h.updateCartItem)
		v1.DELETE("/cart/:id", h.removeCartItem)

		v1.GET("/session-id/", h.newSession)

		v1.POST("/orders/", h.createOrder)
		v1.GET("/orders/", h.listOrders)
		v1.GET("/orders/:id", h.getOrder)
	}

	return r
}

// Server is the HTTP front end.
type Server struct {
	srv             *http.Server
	shutdownTimeout time.Duration
	log             *slog.Logger
}

// NewServer creates a server for cfg. It does not start listening.
func NewServer(cfg config.HTTPConfig, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	deps.AllowedOrigins = cfg.AllowedOrigins

	shutdown := cfg.ShutdownTimeout
	if shutdown <= 0 {
		shutdown = 10 * time.Second
	}

	return &Server{
		srv: &http.Server{
			Addr:              cfg.Addr,
			Handler:           NewRouter(deps),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       cfg.ReadTimeout,
		},
		shutdownTimeout: shutdown,
		log:             deps.Logger.With("component", "http_server"),
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.InfoContext(ctx, "HTTP server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	s.log.Info("HTTP server stopped")
	return nil
}

func (h *handlers) health(c *gin.Context) {
	if err := h.deps.Store.Ping(c.Request.Context()); err != nil {
		h.log.ErrorContext(c.Request.Context(), "Health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "service": serviceName})
		return
	}
	respondOK(c, gin.H{"status": "healthy", "service": serviceName})
}

func (h *handlers) apiRoot(c *gin.Context) {
	respondOK(c, gin.H{
		"message":   serviceName + " v1",
		"endpoints": []string{"/chat", "/products", "/categories", "/cart", "/orders"},
	})
}
