package repository

import (
	"context"

	"github.com/sjperalta/insurance-api/internal/models"
	"gorm.io/gorm"
)

// AgentRepository defines the interface for agent data access
type AgentRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Agent, error)
	FindByName(ctx context.Context, name string) (*models.Agent, error)
	Create(ctx context.Context, agent *models.Agent) error
	List(ctx context.Context, query *ListQuery) ([]models.Agent, int64, error)
}

type agentRepository struct {
	db *gorm.DB
}

func NewAgentRepository(db *gorm.DB) AgentRepository {
	return &agentRepository{db: db}
}

func (r *agentRepository) FindByID(ctx context.Context, id uint) (*models.Agent, error) {
	var agent models.Agent
	if err := r.db.WithContext(ctx).First(&agent, id).Error; err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *agentRepository) FindByName(ctx context.Context, name string) (*models.Agent, error) {
	var agent models.Agent
	err := r.db.WithContext(ctx).
		Where("LOWER(name) = LOWER(?)", name).
		First(&agent).Error
	if err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *agentRepository) Create(ctx context.Context, agent *models.Agent) error {
	return translate(r.db.WithContext(ctx).Create(agent).Error)
}

func (r *agentRepository) List(ctx context.Context, query *ListQuery) ([]models.Agent, int64, error) {
	var agents []models.Agent
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Agent{})
	if query.Search != "" {
		db = db.Where("LOWER(name) LIKE ?", likeTerm(query.Search))
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := applyPage(db.Order("name ASC"), query).Find(&agents).Error
	return agents, total, err
}
