package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	api_utils "github.com/ethanbaker/api/pkg/utils"
	"github.com/ethanbaker/mentor/pkg/conversation"
	"github.com/ethanbaker/mentor/pkg/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	health_module "github.com/ethanbaker/mentor/internal/api/modules/health"
	mentor_module "github.com/ethanbaker/mentor/internal/api/modules/mentor"
)

// NewRouter builds the gin engine with all modules registered
func NewRouter(cfg *utils.Config, svc *mentor_module.Service) (*gin.Engine, error) {
	// Add app level settings/routes
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())
	engine.NoRoute(api_utils.NoRouteHandler)

	// Add trusted proxies
	if err := engine.SetTrustedProxies(nil); err != nil {
		return nil, err
	}

	// Add CORS using gin-contrib/cors (https://github.com/gin-contrib/cors for documentation)
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(cfg.GetWithDefault("CORS_ALLOWED_ORIGINS", "*"), ","),
		AllowMethods:     []string{"OPTIONS", "GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-API-KEY"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// Base group '/api' for all API routes
	baseGroup := engine.Group("/api")

	// Adding custom modules
	health_module.RegisterRoutes(baseGroup)

	if err := mentor_module.RegisterRoutes(baseGroup, cfg, svc); err != nil {
		return nil, fmt.Errorf("failed to register mentor routes: %w", err)
	}

	return engine, nil
}

// Start runs the API server until ctx is cancelled, then detaches every open view
func Start(ctx context.Context, cfg *utils.Config, store conversation.Store) error {
	// Initialized configuration settings
	port := cfg.GetWithDefault("API_PORT", "8080")

	svc, err := mentor_module.NewService(cfg, mentor_module.ServiceOptions{Store: store})
	if err != nil {
		return err
	}
	if err := svc.Start(); err != nil {
		return err
	}
	defer svc.Stop()

	engine, err := NewRouter(cfg, svc)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server listening", "port", port)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to start server: %w", err)

	case <-ctx.Done():
		slog.Info("shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

// requestLogger logs one structured line per request
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelDebug
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		slog.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
