package httpapi

import (
	"net/http"
	"strconv"

	"retell-pos-bridge/internal/audit"
	"retell-pos-bridge/internal/auth"
	"retell-pos-bridge/internal/functions"
	"retell-pos-bridge/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups operator HTTP handlers for dependency injection.
// Keep these thin: parse input, call internal services, return JSON.
type Handlers struct {
	Audit    *audit.Service
	Registry *functions.Registry
}

// Health reports liveness.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListFunctionCalls returns recent function-call audit events.
// Query: limit (default 50, max 500).
func (h Handlers) ListFunctionCalls(c *gin.Context) {
	if h.Audit == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "audit not configured"})
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	events, err := h.Audit.Recent(c.Request.Context(), limit)
	if err != nil {
		logger.FromGin(c).Error("audit list failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "audit lookup failed"})
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	sub, _ := auth.Subject(c.Request.Context())
	logger.FromGin(c).Info("operator listed function calls", "subject", sub, "count", len(events))
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// ListFunctions returns the registered function names.
func (h Handlers) ListFunctions(c *gin.Context) {
	if h.Registry == nil {
		c.JSON(http.StatusOK, gin.H{"functions": []string{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"functions": h.Registry.Names()})
}
