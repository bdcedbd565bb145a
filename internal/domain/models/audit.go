package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditEventType names an auditable action.
type AuditEventType string

const (
	AuditUserRegistered  AuditEventType = "user.registered"
	AuditUserLogin       AuditEventType = "user.login"
	AuditUserLoginFailed AuditEventType = "user.login_failed"
	AuditUserCreated     AuditEventType = "user.created"
	AuditUserUpdated     AuditEventType = "user.updated"
	AuditUserDeleted     AuditEventType = "user.deleted"
	AuditAdminSeeded     AuditEventType = "admin.seeded"
)

// AuditEvent is a single audit trail entry.
type AuditEvent struct {
	EventID   uuid.UUID
	EventType AuditEventType
	ActorID   int64 // 0 for anonymous actions such as registration
	SubjectID int64
	Success   bool
	IPAddress string
	RequestID string
	Message   string
	Metadata  json.RawMessage
	Timestamp time.Time
}

// NewAuditEvent creates an audit event stamped with a fresh id and the current time.
func NewAuditEvent(eventType AuditEventType, actorID, subjectID int64, success bool, message string) *AuditEvent {
	return &AuditEvent{
		EventID:   uuid.New(),
		EventType: eventType,
		ActorID:   actorID,
		SubjectID: subjectID,
		Success:   success,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// WithRequest records where the action came from.
func (e *AuditEvent) WithRequest(ip, requestID string) *AuditEvent {
	e.IPAddress = ip
	e.RequestID = requestID
	return e
}

// WithMetadata attaches event-specific data. Marshalling failures drop the metadata.
func (e *AuditEvent) WithMetadata(v interface{}) *AuditEvent {
	if raw, err := json.Marshal(v); err == nil {
		e.Metadata = raw
	}
	return e
}
