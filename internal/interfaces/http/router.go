// Package http assembles the gin router for the token service.
package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/envseal/envseal/internal/config"
	"github.com/envseal/envseal/internal/domain/service"
	"github.com/envseal/envseal/internal/interfaces/http/handlers"
	"github.com/envseal/envseal/internal/interfaces/http/middleware"
	"github.com/envseal/envseal/pkg/logger"
)

// NewRouter wires middleware, token endpoints, and the operational surface.
// Readiness checks are optional per dependency.
func NewRouter(cfg *config.Config, tokens service.TokenService, log logger.Logger, checks map[string]func() error) *gin.Engine {
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.AccessLog(log),
		cors.New(cors.Config{
			AllowOrigins:  []string{"*"},
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.HeaderRequestID},
			ExposeHeaders: []string{middleware.HeaderRequestID},
			MaxAge:        12 * time.Hour,
		}),
	)

	health := handlers.NewHealthHandler(checks)
	engine.GET("/healthz", health.Live)
	engine.GET("/readyz", health.Ready)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.Server.Debug {
		pprof.Register(engine)
	}

	token := handlers.NewTokenHandler(tokens, cfg.Token, log)
	v1 := engine.Group("/v1")
	{
		v1.POST("/tokens", token.Issue)
		v1.POST("/tokens/verify", token.Verify)
	}

	return engine
}
