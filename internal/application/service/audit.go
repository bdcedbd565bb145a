package service

import (
	"context"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/models"
	domainService "github.com/Mateusz-G541/pokedex-auth-service/internal/domain/service"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/logger"
)

// RequestMeta describes where a request came from. It is attached to audit events.
type RequestMeta struct {
	IPAddress string
	RequestID string
}

// recordAudit sends event to the audit service. Failures are logged and never fail the request.
func recordAudit(ctx context.Context, audit domainService.AuditService, log logger.Logger, meta RequestMeta, event *models.AuditEvent) {
	if audit == nil {
		return
	}
	event.WithRequest(meta.IPAddress, meta.RequestID)
	if err := audit.LogEvent(ctx, event); err != nil {
		log.Warn(ctx, "Failed to record audit event", logger.Fields{
			"event_type": string(event.EventType),
			"error":      err.Error(),
		})
	}
}
