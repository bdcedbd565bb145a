package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Mateusz-G541/pokedex-auth-service/pkg/constants"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/logger"
)

const readinessTimeout = 3 * time.Second

// Checker reports whether a dependency is usable.
type Checker func(ctx context.Context) error

// HealthHandler provides liveness and readiness endpoints.
type HealthHandler struct {
	checks map[string]Checker
	log    logger.Logger
}

// NewHealthHandler creates a HealthHandler with no readiness checks.
func NewHealthHandler(log logger.Logger) *HealthHandler {
	return &HealthHandler{checks: make(map[string]Checker), log: log}
}

// AddCheck registers a readiness check under name. It is not safe to call once the server is
// running.
func (h *HealthHandler) AddCheck(name string, check Checker) *HealthHandler {
	h.checks[name] = check
	return h
}

// Liveness handles GET /health.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   constants.ServiceName,
		"version":   constants.ServiceVersion,
		"timestamp": time.Now().UTC(),
	})
}

// Readiness handles GET /health/ready. It answers 503 when any check fails.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	checks := h.performChecks(ctx)

	status, httpStatus := "ready", http.StatusOK
	for name, result := range checks {
		if result != "ok" {
			status, httpStatus = "not_ready", http.StatusServiceUnavailable
			h.log.Warn(ctx, "Readiness check failed", logger.Fields{"check": name, "result": result})
		}
	}

	c.JSON(httpStatus, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	})
}

func (h *HealthHandler) performChecks(ctx context.Context) map[string]string {
	var wg sync.WaitGroup
	var mu sync.Mutex
	results := make(map[string]string, len(h.checks))

	wg.Add(len(h.checks))
	for name, check := range h.checks {
		go func(name string, check Checker) {
			defer wg.Done()
			result := "ok"
			if err := check(ctx); err != nil {
				result = "error: " + err.Error()
			}
			mu.Lock()
			results[name] = result
			mu.Unlock()
		}(name, check)
	}
	wg.Wait()
	return results
}
