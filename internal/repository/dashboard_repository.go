package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/insurance-api/internal/models"
	"gorm.io/gorm"
)

// settledPaymentClause selects payments that count as money received
const settledPaymentClause = "status = ? AND (method <> ? OR cheque_status IS NULL OR cheque_status NOT IN ?)"

// DatedAmount is one money movement used for time series
type DatedAmount struct {
	At        time.Time
	Amount    decimal.Decimal
	Direction string
}

// DashboardRepository runs the aggregate queries behind the dashboard
type DashboardRepository interface {
	CountCustomers(ctx context.Context) (int64, error)
	CountVehicles(ctx context.Context) (int64, error)
	CountPoliciesByStatus(ctx context.Context) (map[string]int64, error)
	CountChequesByStatus(ctx context.Context) (map[string]int64, error)
	SumPendingCheques(ctx context.Context) (decimal.Decimal, error)
	SumOutstandingDebt(ctx context.Context) (decimal.Decimal, error)
	CountAwaitingGateway(ctx context.Context) (int64, error)
	SettledPaymentsTotal(ctx context.Context, start, end time.Time) (decimal.Decimal, int64, error)
	SettledPaymentsByMethod(ctx context.Context, start, end time.Time) ([]models.MethodTotal, error)
	LedgerTotals(ctx context.Context, start, end time.Time) (map[string]decimal.Decimal, error)
	ExpensesTotal(ctx context.Context, start, end time.Time) (decimal.Decimal, error)
	SettledPaymentAmounts(ctx context.Context, start, end time.Time) ([]DatedAmount, error)
	LedgerAmounts(ctx context.Context, start, end time.Time) ([]DatedAmount, error)
	ExpenseAmounts(ctx context.Context, start, end time.Time) ([]DatedAmount, error)
}

type dashboardRepository struct {
	db *gorm.DB
}

func NewDashboardRepository(db *gorm.DB) DashboardRepository {
	return &dashboardRepository{db: db}
}

type totalRow struct {
	Total decimal.Decimal
	Count int64
}

type statusCount struct {
	Status string
	Count  int64
}

func (r *dashboardRepository) settled(ctx context.Context, start, end time.Time) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where(settledPaymentClause, models.PaymentStatusConfirmed, models.PaymentMethodCheque,
			[]string{models.ChequeStatusReturned, models.ChequeStatusCancelled}).
		Where("payment_date >= ? AND payment_date < ?", start, end)
}

func (r *dashboardRepository) CountCustomers(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Customer{}).Count(&count).Error
	return count, err
}

func (r *dashboardRepository) CountVehicles(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Vehicle{}).Count(&count).Error
	return count, err
}

func (r *dashboardRepository) CountPoliciesByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []statusCount
	err := r.db.WithContext(ctx).
		Model(&models.InsurancePolicy{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	return toStatusMap(rows), err
}

func (r *dashboardRepository) CountChequesByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []statusCount
	err := r.db.WithContext(ctx).
		Model(&models.Cheque{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	return toStatusMap(rows), err
}

func toStatusMap(rows []statusCount) map[string]int64 {
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Status] = row.Count
	}
	return out
}

func (r *dashboardRepository) SumPendingCheques(ctx context.Context) (decimal.Decimal, error) {
	var row totalRow
	err := r.db.WithContext(ctx).
		Model(&models.Cheque{}).
		Select("COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Where("status = ?", models.ChequeStatusPending).
		Scan(&row).Error
	return row.Total, err
}

// SumOutstandingDebt adds the positive remaining debt of active policies
func (r *dashboardRepository) SumOutstandingDebt(ctx context.Context) (decimal.Decimal, error) {
	var row totalRow
	err := r.db.WithContext(ctx).
		Model(&models.InsurancePolicy{}).
		Select("COALESCE(SUM(amount - paid_amount), 0) AS total, COUNT(*) AS count").
		Where("status = ? AND amount > paid_amount", models.PolicyStatusActive).
		Scan(&row).Error
	return row.Total, err
}

func (r *dashboardRepository) CountAwaitingGateway(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("status = ?", models.PaymentStatusAwaitingGateway).
		Count(&count).Error
	return count, err
}

func (r *dashboardRepository) SettledPaymentsTotal(ctx context.Context, start, end time.Time) (decimal.Decimal, int64, error) {
	var row totalRow
	err := r.settled(ctx, start, end).
		Select("COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Scan(&row).Error
	return row.Total, row.Count, err
}

func (r *dashboardRepository) SettledPaymentsByMethod(ctx context.Context, start, end time.Time) ([]models.MethodTotal, error) {
	var rows []models.MethodTotal
	err := r.settled(ctx, start, end).
		Select("method, COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Group("method").
		Order("method").
		Scan(&rows).Error
	return rows, err
}

// LedgerTotals sums ledger entries per kind and direction, keyed "kind:direction"
func (r *dashboardRepository) LedgerTotals(ctx context.Context, start, end time.Time) (map[string]decimal.Decimal, error) {
	var rows []struct {
		Kind      string
		Direction string
		Total     decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Select("kind, direction, COALESCE(SUM(amount), 0) AS total").
		Where("entry_date >= ? AND entry_date < ?", start, end).
		Group("kind, direction").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		out[row.Kind+":"+row.Direction] = row.Total
	}
	return out, nil
}

func (r *dashboardRepository) ExpensesTotal(ctx context.Context, start, end time.Time) (decimal.Decimal, error) {
	var row totalRow
	err := r.db.WithContext(ctx).
		Model(&models.Expense{}).
		Select("COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Where("created_at >= ? AND created_at < ?", start, end).
		Scan(&row).Error
	return row.Total, err
}

func (r *dashboardRepository) SettledPaymentAmounts(ctx context.Context, start, end time.Time) ([]DatedAmount, error) {
	var rows []DatedAmount
	err := r.settled(ctx, start, end).
		Select("payment_date AS at, amount, 'in' AS direction").
		Scan(&rows).Error
	return rows, err
}

func (r *dashboardRepository) LedgerAmounts(ctx context.Context, start, end time.Time) ([]DatedAmount, error) {
	var rows []DatedAmount
	err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Select("entry_date AS at, amount, direction").
		Where("entry_date >= ? AND entry_date < ?", start, end).
		Scan(&rows).Error
	return rows, err
}

func (r *dashboardRepository) ExpenseAmounts(ctx context.Context, start, end time.Time) ([]DatedAmount, error) {
	var rows []DatedAmount
	err := r.db.WithContext(ctx).
		Model(&models.Expense{}).
		Select("created_at AS at, amount, 'out' AS direction").
		Where("created_at >= ? AND created_at < ?", start, end).
		Scan(&rows).Error
	return rows, err
}
