package repository

import (
	"context"

	"github.com/sjperalta/insurance-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PaymentRepository defines the interface for payment data access. Payments
// are append-only: only status fields are ever updated.
type PaymentRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Payment, error)
	FindByGatewayReference(ctx context.Context, reference string) (*models.Payment, error)
	FindByPolicy(ctx context.Context, policyID uint) ([]models.Payment, error)
	FindByCheque(ctx context.Context, chequeID uint) (*models.Payment, error)
	Create(ctx context.Context, payment *models.Payment) error
	UpdateStatus(ctx context.Context, payment *models.Payment) error
	UpdateChequeStatus(ctx context.Context, id uint, status string) error
	LinkCheque(ctx context.Context, id, chequeID uint) error
	UnlinkCheque(ctx context.Context, chequeID uint) error
	List(ctx context.Context, query *PaymentQuery) ([]models.Payment, int64, error)
}

// PaymentQuery extends ListQuery with payment-specific filters
type PaymentQuery struct {
	*ListQuery
	PolicyID   uint
	CustomerID uint
	Method     string
	Status     string
}

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) FindByID(ctx context.Context, id uint) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Preload("Policy").
		First(&payment, id).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) FindByGatewayReference(ctx context.Context, reference string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("gateway_reference = ?", reference).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) FindByPolicy(ctx context.Context, policyID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.WithContext(ctx).
		Where("policy_id = ?", policyID).
		Order("payment_date ASC, id ASC").
		Find(&payments).Error
	return payments, err
}

func (r *paymentRepository) FindByCheque(ctx context.Context, chequeID uint) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("cheque_id = ?", chequeID).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *paymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(payment).Error)
}

// UpdateStatus persists a gateway transition without touching the amount
func (r *paymentRepository) UpdateStatus(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", payment.ID).
		Updates(map[string]interface{}{
			"status":       payment.Status,
			"confirmed_at": payment.ConfirmedAt,
		}).Error
}

func (r *paymentRepository) UpdateChequeStatus(ctx context.Context, id uint, status string) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND method = ?", id, models.PaymentMethodCheque).
		Update("cheque_status", status).Error
}

func (r *paymentRepository) LinkCheque(ctx context.Context, id, chequeID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Update("cheque_id", chequeID).Error
}

// UnlinkCheque detaches payments from a deleted cheque; their own cheque
// fields are kept
func (r *paymentRepository) UnlinkCheque(ctx context.Context, chequeID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("cheque_id = ?", chequeID).
		Update("cheque_id", nil).Error
}

func (r *paymentRepository) List(ctx context.Context, query *PaymentQuery) ([]models.Payment, int64, error) {
	var payments []models.Payment
	var total int64

	db := r.db.WithContext(ctx).Model(&models.Payment{})

	if query.PolicyID != 0 {
		db = db.Where("policy_id = ?", query.PolicyID)
	}
	if query.CustomerID != 0 {
		db = db.Where("customer_id = ?", query.CustomerID)
	}
	if query.Method != "" {
		db = db.Where("method = ?", query.Method)
	}
	if query.Status != "" {
		db = db.Where("status = ?", query.Status)
	}
	if query.Search != "" {
		search := likeTerm(query.Search)
		db = db.Where("LOWER(receipt_number) LIKE ? OR LOWER(cheque_number) LIKE ?", search, search)
	}
	db = applyDateRange(db, query.ListQuery, "payment_date")

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	db = applyOrder(db, query.ListQuery, map[string]string{
		"payment_date": "payment_date",
		"amount":       "amount",
		"method":       "method",
	}, "payment_date DESC, id DESC")

	err := applyPage(db, query.ListQuery).Preload("Customer").Find(&payments).Error
	return payments, total, err
}
