package audit

import (
	"context"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/models"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/service"
	"github.com/Mateusz-G541/pokedex-auth-service/pkg/logger"
)

var _ service.AuditService = (*LogAuditService)(nil)

// LogAuditService writes audit events to the structured log.
type LogAuditService struct {
	logger logger.Logger
}

func NewLogAuditService(log logger.Logger) *LogAuditService {
	return &LogAuditService{logger: log.WithFields(logger.Fields{"component": "audit"})}
}

func (s *LogAuditService) LogEvent(ctx context.Context, event *models.AuditEvent) error {
	fields := logger.Fields{
		"event_id":   event.EventID.String(),
		"event_type": string(event.EventType),
		"actor_id":   event.ActorID,
		"subject_id": event.SubjectID,
		"success":    event.Success,
	}
	if event.IPAddress != "" {
		fields["ip"] = event.IPAddress
	}
	if len(event.Metadata) > 0 {
		fields["metadata"] = string(event.Metadata)
	}
	s.logger.Info(ctx, event.Message, fields)
	return nil
}
