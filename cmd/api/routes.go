package main

import (
	"retell-pos-bridge/internal/audit"
	"retell-pos-bridge/internal/auth"
	"retell-pos-bridge/internal/config"
	"retell-pos-bridge/internal/functions"
	"retell-pos-bridge/internal/httpapi"
	"retell-pos-bridge/internal/rbac"
	"retell-pos-bridge/internal/retell"

	"github.com/gin-gonic/gin"
)

type routeDeps struct {
	cfg        config.Config
	guard      retell.Guard
	dispatcher *functions.Dispatcher
	registry   *functions.Registry
	audit      *audit.Service
	auth       *auth.Manager
}

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic.
func registerRoutes(r *gin.Engine, d routeDeps) {
	r.Use(httpapi.CORS(d.cfg.HTTP.CORSAllowOrigins))

	r.GET("/health", httpapi.Health)

	// Retell function-call webhook. Signature checks run before the body is parsed.
	webhook := []gin.HandlerFunc{}
	if d.cfg.HTTP.RateLimitPerMin > 0 {
		webhook = append(webhook, httpapi.NewRateLimiter(d.cfg.HTTP.RateLimitPerMin).Middleware())
	}
	webhook = append(webhook, d.guard.Middleware(), d.dispatcher.HandleFunctionCall)
	r.POST("/retell/functions", webhook...)

	if d.auth == nil {
		return
	}

	h := httpapi.Handlers{Audit: d.audit, Registry: d.registry}

	admin := r.Group("/v1/admin")
	admin.Use(auth.RequireAccessToken(d.auth))
	admin.Use(rbac.RequireAnyRole(rbac.RoleOperator, rbac.RoleAdmin))
	{
		admin.GET("/function-calls", h.ListFunctionCalls)
		admin.GET("/functions", h.ListFunctions)
	}
}
