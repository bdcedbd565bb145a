// Package audit records security events to the log, a database table or a Kafka topic.
package audit

import (
	"encoding/json"
	"time"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/models"
)

// eventPayload is the wire form of an audit event.
type eventPayload struct {
	EventID   string          `json:"eventId"`
	EventType string          `json:"eventType"`
	ActorID   int64           `json:"actorId,omitempty"`
	SubjectID int64           `json:"subjectId,omitempty"`
	Success   bool            `json:"success"`
	IPAddress string          `json:"ipAddress,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
	Message   string          `json:"message,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

func toPayload(e *models.AuditEvent) eventPayload {
	return eventPayload{
		EventID:   e.EventID.String(),
		EventType: string(e.EventType),
		ActorID:   e.ActorID,
		SubjectID: e.SubjectID,
		Success:   e.Success,
		IPAddress: e.IPAddress,
		RequestID: e.RequestID,
		Message:   e.Message,
		Metadata:  e.Metadata,
		Timestamp: e.Timestamp,
	}
}
