package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/models"
	"github.com/Mateusz-G541/pokedex-auth-service/internal/domain/service"
)

var _ service.AuditService = (*GormAuditService)(nil)

// auditRecord is the audit_events row.
type auditRecord struct {
	ID        uint      `gorm:"primaryKey"`
	EventID   string    `gorm:"size:36;uniqueIndex;not null"`
	EventType string    `gorm:"size:64;index;not null"`
	ActorID   int64     `gorm:"index"`
	SubjectID int64     `gorm:"index"`
	Success   bool      `gorm:"not null"`
	IPAddress string    `gorm:"size:64"`
	RequestID string    `gorm:"size:64"`
	Message   string    `gorm:"size:255"`
	Metadata  string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"index;not null"`
}

func (auditRecord) TableName() string { return "audit_events" }

// GormAuditService stores audit events in a relational database.
type GormAuditService struct {
	db *gorm.DB
}

// NewGormAuditService creates the service and, when migrate is set, the audit_events table.
func NewGormAuditService(db *gorm.DB, migrate bool) (*GormAuditService, error) {
	if migrate {
		if err := db.AutoMigrate(&auditRecord{}); err != nil {
			return nil, err
		}
	}
	return &GormAuditService{db: db}, nil
}

// LogEvent saves an AuditEvent to the database.
func (s *GormAuditService) LogEvent(ctx context.Context, event *models.AuditEvent) error {
	rec := auditRecord{
		EventID:   event.EventID.String(),
		EventType: string(event.EventType),
		ActorID:   event.ActorID,
		SubjectID: event.SubjectID,
		Success:   event.Success,
		IPAddress: event.IPAddress,
		RequestID: event.RequestID,
		Message:   event.Message,
		Metadata:  string(event.Metadata),
		CreatedAt: event.Timestamp,
	}
	return s.db.WithContext(ctx).Create(&rec).Error
}

// Recent returns up to limit events for subjectID, newest first. It backs the admin CLI.
func (s *GormAuditService) Recent(ctx context.Context, subjectID int64, limit int) ([]models.AuditEvent, error) {
	var recs []auditRecord
	err := s.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("created_at DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}

	events := make([]models.AuditEvent, 0, len(recs))
	for _, r := range recs {
		events = append(events, r.toModel())
	}
	return events, nil
}

func (r auditRecord) toModel() models.AuditEvent {
	e := models.AuditEvent{
		EventType: models.AuditEventType(r.EventType),
		ActorID:   r.ActorID,
		SubjectID: r.SubjectID,
		Success:   r.Success,
		IPAddress: r.IPAddress,
		RequestID: r.RequestID,
		Message:   r.Message,
		Timestamp: r.CreatedAt,
	}
	if id, err := uuid.Parse(r.EventID); err == nil {
		e.EventID = id
	}
	if r.Metadata != "" {
		e.Metadata = []byte(r.Metadata)
	}
	return e
}
