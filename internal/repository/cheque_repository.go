package repository

import (
	"context"
	"time"

	"github.com/sjperalta/insurance-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChequeRepository defines the interface for cheque data access
type ChequeRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Cheque, error)
	Create(ctx context.Context, cheque *models.Cheque) error
	Update(ctx context.Context, cheque *models.Cheque) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, query *ChequeQuery) ([]models.Cheque, int64, error)
	FindDueUnreminded(ctx context.Context, now time.Time) ([]models.Cheque, error)
	MarkReminderSent(ctx context.Context, ids []uint, at time.Time) error
}

// ChequeQuery extends ListQuery with cheque-specific filters
type ChequeQuery struct {
	*ListQuery
	Status     string
	CustomerID uint
	PolicyID   uint
}

type chequeRepository struct {
	db *gorm.DB
}

// NewChequeRepository creates a new cheque repository
func NewChequeRepository(db *gorm.DB) ChequeRepository {
	return &chequeRepository{db: db}
}

func (r *chequeRepository) FindByID(ctx context.Context, id uint) (*models.Cheque, error) {
	var cheque models.Cheque
	if err := r.db.WithContext(ctx).Preload("Customer").First(&cheque, id).Error; err != nil {
		return nil, err
	}
	return &cheque, nil
}

func (r *chequeRepository) Create(ctx context.Context, cheque *models.Cheque) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(cheque).Error
}

func (r *chequeRepository) Update(ctx context.Context, cheque *models.Cheque) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(cheque).Error
}

func (r *chequeRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Cheque{}, id).Error
}

func (r *chequeRepository) List(ctx context.Context, query *ChequeQuery) ([]models.Cheque, int64, error) {
	var cheques []models.Cheque
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Cheque{})

	if query.Status != "" {
		db = db.Where("status = ?", query.Status)
	}
	if query.CustomerID != 0 {
		db = db.Where("customer_id = ?", query.CustomerID)
	}
	if query.PolicyID != 0 {
		db = db.Where("policy_id = ?", query.PolicyID)
	}
	if query.Search != "" {
		db = db.Where("LOWER(cheque_number) LIKE ?", likeTerm(query.Search))
	}
	db = applyDateRange(db, query.ListQuery, "cheque_date")

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db = applyOrder(db, query.ListQuery, map[string]string{
		"cheque_date": "cheque_date",
		"amount":      "amount",
		"status":      "status",
		"created_at":  "created_at",
	}, "cheque_date DESC, id DESC")

	err := applyPage(db, query.ListQuery).Preload("Customer").Find(&cheques).Error
	return cheques, total, err
}

// FindDueUnreminded returns pending cheques dated on or before now that
// have not been included in a reminder yet
func (r *chequeRepository) FindDueUnreminded(ctx context.Context, now time.Time) ([]models.Cheque, error) {
	var cheques []models.Cheque
	err := r.db.WithContext(ctx).
		Where("status = ? AND cheque_date <= ? AND reminder_sent_at IS NULL", models.ChequeStatusPending, now).
		Preload("Customer").
		Order("cheque_date ASC").
		Find(&cheques).Error
	return cheques, err
}

func (r *chequeRepository) MarkReminderSent(ctx context.Context, ids []uint, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Cheque{}).
		Where("id IN ?", ids).
		Update("reminder_sent_at", at).Error
}
