package repository

import (
	"context"

	"github.com/sjperalta/insurance-api/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerRepository defines the interface for ledger entry data access
type LedgerRepository interface {
	Create(ctx context.Context, entry *models.LedgerEntry) error
	FindByPolicy(ctx context.Context, policyID uint) ([]models.LedgerEntry, error)
	FindByAgent(ctx context.Context, agentID uint) ([]models.LedgerEntry, error)
	List(ctx context.Context, query *LedgerQuery) ([]models.LedgerEntry, int64, error)
}

// LedgerQuery extends ListQuery with ledger-specific filters
type LedgerQuery struct {
	*ListQuery
	Kind      string
	Direction string
	PolicyID  uint
}

// ledgerRepository handles database operations for ledger entries
type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

// Create creates a new ledger entry
func (r *ledgerRepository) Create(ctx context.Context, entry *models.LedgerEntry) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(entry).Error
}

// FindByPolicy retrieves all ledger entries for a policy
func (r *ledgerRepository) FindByPolicy(ctx context.Context, policyID uint) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("policy_id = ?", policyID).
		Order("entry_date ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

// FindByAgent retrieves the agent-flow entries booked for an agent
func (r *ledgerRepository) FindByAgent(ctx context.Context, agentID uint) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("agent_id = ? AND kind = ?", agentID, models.EntryKindAgentFlow).
		Order("entry_date ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

func (r *ledgerRepository) List(ctx context.Context, query *LedgerQuery) ([]models.LedgerEntry, int64, error) {
	var entries []models.LedgerEntry
	var total int64

	db := r.db.WithContext(ctx).Model(&models.LedgerEntry{})
	if query.Kind != "" {
		db = db.Where("kind = ?", query.Kind)
	}
	if query.Direction != "" {
		db = db.Where("direction = ?", query.Direction)
	}
	if query.PolicyID != 0 {
		db = db.Where("policy_id = ?", query.PolicyID)
	}
	db = applyDateRange(db, query.ListQuery, "entry_date")

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := applyPage(db.Order("entry_date DESC, id DESC"), query.ListQuery).Find(&entries).Error
	return entries, total, err
}
