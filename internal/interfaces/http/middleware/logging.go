package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/application/dto"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/errors"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/logger"
)

// Logging writes one entry per request. Server errors are logged with the error attached by
// the handler.
func Logging(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := logger.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		}
		if id, ok := IdentityFrom(c); ok {
			fields["user_id"] = id.UserID
		}

		var err error
		if last := c.Errors.Last(); last != nil {
			err = last.Err
		}

		ctx := c.Request.Context()
		switch {
		case status >= 500:
			log.Error(ctx, "Request failed", err, fields)
		case status >= 400:
			if err != nil {
				fields["error"] = err.Error()
			}
			log.Warn(ctx, "Request rejected", fields)
		default:
			log.Info(ctx, "Request completed", fields)
		}
	}
}

// Recovery turns a panic into a 500 envelope.
func Recovery(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				err := fmt.Errorf("panic: %v", r)
				log.Error(c.Request.Context(), "Recovered from panic", err, logger.Fields{"path": c.Request.URL.Path})
				dto.SendError(c, errors.ErrInternal.WithError(err))
			}
		}()
		c.Next()
	}
}
