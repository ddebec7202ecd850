package services

import (
	"context"

	"github.com/sjperalta/insurance-api/internal/models"
	"github.com/sjperalta/insurance-api/pkg/logger"
	"gorm.io/gorm"
)

// Actor identifies who performs a mutation, for audit and authorization
type Actor struct {
	UserID    uint
	Role      string
	IP        string
	UserAgent string
}

// IsAdmin returns true if the actor holds the admin role
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

func (a Actor) createdBy() *uint {
	if a.UserID == 0 {
		return nil
	}
	id := a.UserID
	return &id
}

// SystemActor is used by scheduled jobs
var SystemActor = Actor{Role: models.RoleAdmin, UserAgent: "scheduler"}

type AuditService struct {
	db *gorm.DB
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// Log records an audit entry. System actions have no user row and only go
// to the application log.
func (s *AuditService) Log(ctx context.Context, actor Actor, action, entity string, entityID uint, details string) error {
	if actor.UserID == 0 {
		logger.Info("system action", "action", action, "entity", entity, "entity_id", entityID, "details", details)
		return nil
	}
	entry := &models.AuditLog{
		UserID:    actor.UserID,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Details:   details,
		IPAddress: actor.IP,
		UserAgent: actor.UserAgent,
	}
	return s.db.WithContext(ctx).Create(entry).Error
}

// List retrieves audit logs newest first, optionally for one entity type
func (s *AuditService) List(ctx context.Context, entity string, limit, offset int) ([]models.AuditLog, int64, error) {
	var logs []models.AuditLog
	var total int64

	db := s.db.WithContext(ctx).Model(&models.AuditLog{})
	if entity != "" {
		db = db.Where("entity = ?", entity)
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Preload("User").Order("created_at desc, id desc").Limit(limit).Offset(offset).Find(&logs).Error
	return logs, total, err
}
