package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/application/dto"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/service"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/infrastructure/monitoring"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/constants"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/errors"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/logger"
)

// RateLimit limits requests per client IP within scope. A nil limiter disables the check.
// Limiter errors fail open.
func RateLimit(limiter service.RateLimitService, scope string, metrics *monitoring.Metrics, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		key := scope + ":" + c.ClientIP()
		res, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			log.Warn(c.Request.Context(), "Rate limiter unavailable, allowing request", logger.Fields{
				"scope": scope,
				"error": err.Error(),
			})
			c.Next()
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			metrics.RecordRateLimitHit(scope)
			log.Warn(c.Request.Context(), "Rate limit exceeded", logger.Fields{
				"scope":     scope,
				"client_ip": c.ClientIP(),
			})
			c.Header(constants.HeaderRetryAfter, strconv.Itoa(res.RetryAfter))
			dto.SendError(c, errors.ErrRateLimitExceeded)
			return
		}
		c.Next()
	}
}
