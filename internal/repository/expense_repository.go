package repository

import (
	"context"

	"github.com/sjperalta/insurance-api/internal/models"
	"gorm.io/gorm"
)

// ExpenseRepository defines the interface for expense data access
type ExpenseRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Expense, error)
	Create(ctx context.Context, expense *models.Expense) error
	Update(ctx context.Context, expense *models.Expense) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, query *ExpenseQuery) ([]models.Expense, int64, error)
}

// ExpenseQuery extends ListQuery with expense-specific filters
type ExpenseQuery struct {
	*ListQuery
	PaymentMethod string
}

type expenseRepository struct {
	db *gorm.DB
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *gorm.DB) ExpenseRepository {
	return &expenseRepository{db: db}
}

func (r *expenseRepository) FindByID(ctx context.Context, id uint) (*models.Expense, error) {
	var expense models.Expense
	if err := r.db.WithContext(ctx).First(&expense, id).Error; err != nil {
		return nil, err
	}
	return &expense, nil
}

func (r *expenseRepository) Create(ctx context.Context, expense *models.Expense) error {
	return translate(r.db.WithContext(ctx).Create(expense).Error)
}

func (r *expenseRepository) Update(ctx context.Context, expense *models.Expense) error {
	return r.db.WithContext(ctx).Save(expense).Error
}

func (r *expenseRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Expense{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *expenseRepository) List(ctx context.Context, query *ExpenseQuery) ([]models.Expense, int64, error) {
	var expenses []models.Expense
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Expense{})

	if query.Search != "" {
		search := likeTerm(query.Search)
		db = db.Where("LOWER(title) LIKE ? OR LOWER(paid_by) LIKE ? OR LOWER(description) LIKE ?",
			search, search, search)
	}
	if query.PaymentMethod != "" {
		db = db.Where("payment_method = ?", query.PaymentMethod)
	}
	db = applyDateRange(db, query.ListQuery, "created_at")

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db = applyOrder(db, query.ListQuery, map[string]string{
		"title":      "title",
		"amount":     "amount",
		"created_at": "created_at",
	}, "created_at DESC, id DESC")

	err := applyPage(db, query.ListQuery).Find(&expenses).Error
	return expenses, total, err
}
