package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/insurance-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PolicyRepository defines the interface for insurance policy data access
type PolicyRepository interface {
	FindByID(ctx context.Context, id uint) (*models.InsurancePolicy, error)
	FindByIDWithDetails(ctx context.Context, id uint) (*models.InsurancePolicy, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*models.InsurancePolicy, error)
	Create(ctx context.Context, policy *models.InsurancePolicy) error
	Update(ctx context.Context, policy *models.InsurancePolicy) error
	UpdatePaidAmount(ctx context.Context, id uint, paid decimal.Decimal) error
	ListByVehicle(ctx context.Context, vehicleID uint) ([]models.InsurancePolicy, error)
	ListByAgent(ctx context.Context, agentID uint) ([]models.InsurancePolicy, error)
	List(ctx context.Context, query *PolicyQuery) ([]models.InsurancePolicy, int64, error)
	FindExpiring(ctx context.Context, before time.Time) ([]models.InsurancePolicy, error)
	SoftDeleteByVehicle(ctx context.Context, vehicleID uint) error
}

// PolicyQuery extends ListQuery with policy-specific filters
type PolicyQuery struct {
	*ListQuery
	Status     string
	CustomerID uint
	AgentID    uint
}

type policyRepository struct {
	db *gorm.DB
}

// NewPolicyRepository creates a new policy repository
func NewPolicyRepository(db *gorm.DB) PolicyRepository {
	return &policyRepository{db: db}
}

func (r *policyRepository) FindByID(ctx context.Context, id uint) (*models.InsurancePolicy, error) {
	var policy models.InsurancePolicy
	if err := r.db.WithContext(ctx).First(&policy, id).Error; err != nil {
		return nil, err
	}
	return &policy, nil
}

func (r *policyRepository) FindByIDWithDetails(ctx context.Context, id uint) (*models.InsurancePolicy, error) {
	var policy models.InsurancePolicy
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Preload("Vehicle").
		Preload("Agent").
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("payment_date ASC, id ASC") }).
		First(&policy, id).Error
	if err != nil {
		return nil, err
	}
	return &policy, nil
}

// FindByIDForUpdate locks the policy row until the surrounding transaction ends
func (r *policyRepository) FindByIDForUpdate(ctx context.Context, id uint) (*models.InsurancePolicy, error) {
	var policy models.InsurancePolicy
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&policy, id).Error
	if err != nil {
		return nil, err
	}
	return &policy, nil
}

func (r *policyRepository) Create(ctx context.Context, policy *models.InsurancePolicy) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(policy).Error
}

func (r *policyRepository) Update(ctx context.Context, policy *models.InsurancePolicy) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(policy).Error
}

func (r *policyRepository) UpdatePaidAmount(ctx context.Context, id uint, paid decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.InsurancePolicy{}).
		Where("id = ?", id).
		Update("paid_amount", paid).Error
}

func (r *policyRepository) ListByVehicle(ctx context.Context, vehicleID uint) ([]models.InsurancePolicy, error) {
	var policies []models.InsurancePolicy
	err := r.db.WithContext(ctx).
		Where("vehicle_id = ?", vehicleID).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("payment_date ASC, id ASC") }).
		Order("start_date DESC").
		Find(&policies).Error
	return policies, err
}

func (r *policyRepository) ListByAgent(ctx context.Context, agentID uint) ([]models.InsurancePolicy, error) {
	var policies []models.InsurancePolicy
	err := r.db.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Preload("Customer").
		Preload("Vehicle", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("payment_date ASC, id ASC") }).
		Order("start_date ASC, id ASC").
		Find(&policies).Error
	return policies, err
}

func (r *policyRepository) List(ctx context.Context, query *PolicyQuery) ([]models.InsurancePolicy, int64, error) {
	var policies []models.InsurancePolicy
	var total int64

	db := r.db.WithContext(ctx).Model(&models.InsurancePolicy{})

	if query.Status != "" {
		db = db.Where("status = ?", query.Status)
	}
	if query.CustomerID != 0 {
		db = db.Where("customer_id = ?", query.CustomerID)
	}
	if query.AgentID != 0 {
		db = db.Where("agent_id = ?", query.AgentID)
	}
	if query.Search != "" {
		search := likeTerm(query.Search)
		db = db.Where("LOWER(company) LIKE ? OR LOWER(type) LIKE ?", search, search)
	}
	db = applyDateRange(db, query.ListQuery, "start_date")

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db = applyOrder(db, query.ListQuery, map[string]string{
		"start_date": "start_date",
		"end_date":   "end_date",
		"amount":     "amount",
		"company":    "company",
	}, "created_at DESC")

	err := applyPage(db, query.ListQuery).
		Preload("Customer").
		Preload("Vehicle").
		Preload("Agent").
		Find(&policies).Error
	return policies, total, err
}

// FindExpiring returns active policies whose end date is before the given time
func (r *policyRepository) FindExpiring(ctx context.Context, before time.Time) ([]models.InsurancePolicy, error) {
	var policies []models.InsurancePolicy
	err := r.db.WithContext(ctx).
		Where("status = ? AND end_date < ?", models.PolicyStatusActive, before).
		Find(&policies).Error
	return policies, err
}

func (r *policyRepository) SoftDeleteByVehicle(ctx context.Context, vehicleID uint) error {
	return r.db.WithContext(ctx).
		Where("vehicle_id = ?", vehicleID).
		Delete(&models.InsurancePolicy{}).Error
}
