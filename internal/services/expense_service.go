package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/insurance-api/internal/events"
	"github.com/sjperalta/insurance-api/internal/models"
	"github.com/sjperalta/insurance-api/internal/repository"
)

// ExpenseInput is the body of a create or update expense request
type ExpenseInput struct {
	Title         string          `json:"title"`
	Amount        decimal.Decimal `json:"amount"`
	PaidBy        string          `json:"paid_by"`
	PaymentMethod string          `json:"payment_method"`
	Description   string          `json:"description"`
}

type ExpenseService struct {
	repos    *repository.Repositories
	exporter *ExportService
	recorder *changeRecorder
	now      func() time.Time
}

func NewExpenseService(repos *repository.Repositories, exporter *ExportService, recorder *changeRecorder) *ExpenseService {
	return &ExpenseService{repos: repos, exporter: exporter, recorder: recorder, now: time.Now}
}

// validateExpense checks title, amount, payer and method in that order
func validateExpense(in *ExpenseInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return invalid("title", "expense.title_required", "title is required")
	}
	if !in.Amount.IsPositive() {
		return invalid("amount", "expense.amount_invalid", "amount must be greater than zero")
	}
	if strings.TrimSpace(in.PaidBy) == "" {
		return invalid("paid_by", "expense.paid_by_required", "payer is required")
	}
	if !models.IsValidPaymentMethod(strings.ToLower(strings.TrimSpace(in.PaymentMethod))) {
		return invalid("payment_method", "expense.method_invalid", "payment method must be one of cash, card, cheque, bank_transfer")
	}
	return nil
}

func (in *ExpenseInput) apply(e *models.Expense) {
	e.Title = strings.TrimSpace(in.Title)
	e.Amount = in.Amount
	e.PaidBy = strings.TrimSpace(in.PaidBy)
	e.PaymentMethod = strings.ToLower(strings.TrimSpace(in.PaymentMethod))
	e.Description = optional(in.Description)
}

func (s *ExpenseService) Create(ctx context.Context, actor Actor, in ExpenseInput) (*models.Expense, error) {
	if err := validateExpense(&in); err != nil {
		return nil, err
	}

	expense := &models.Expense{
		ReceiptNumber: models.GenerateReceiptNumber(s.now()),
		CreatedByID:   actor.createdBy(),
	}
	in.apply(expense)
	if err := s.repos.Expense.Create(ctx, expense); err != nil {
		return nil, translateErr("expense", err)
	}

	event := events.NewEvent(events.ExpenseCreated, expense.ID, expense)
	s.recorder.record(ctx, actor, models.AuditActionCreate, "expense", expense.ID,
		fmt.Sprintf("Expense %s %s", expense.Title, expense.Amount.StringFixed(2)), &event)
	return expense, nil
}

func (s *ExpenseService) Get(ctx context.Context, id uint) (*models.Expense, error) {
	expense, err := s.repos.Expense.FindByID(ctx, id)
	return expense, translateErr("expense", err)
}

func (s *ExpenseService) List(ctx context.Context, query *repository.ExpenseQuery) ([]models.Expense, int64, error) {
	query.PaymentMethod = strings.ToLower(strings.TrimSpace(query.PaymentMethod))
	return s.repos.Expense.List(ctx, query)
}

func (s *ExpenseService) Update(ctx context.Context, actor Actor, id uint, in ExpenseInput) (*models.Expense, error) {
	if err := validateExpense(&in); err != nil {
		return nil, err
	}

	expense, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(expense)
	if err := s.repos.Expense.Update(ctx, expense); err != nil {
		return nil, fmt.Errorf("failed to update expense: %w", err)
	}

	s.recorder.record(ctx, actor, models.AuditActionUpdate, "expense", expense.ID,
		fmt.Sprintf("Updated expense %s", expense.Title), nil)
	return expense, nil
}

func (s *ExpenseService) Delete(ctx context.Context, actor Actor, id uint) error {
	if err := s.repos.Expense.Delete(ctx, id); err != nil {
		return translateErr("expense", err)
	}
	s.recorder.record(ctx, actor, models.AuditActionDelete, "expense", id, fmt.Sprintf("Deleted expense #%d", id), nil)
	return nil
}

// Export renders every expense matching the filters
func (s *ExpenseService) Export(ctx context.Context, format string, query *repository.ExpenseQuery) (*ExportFile, error) {
	query.PerPage = 0
	expenses, _, err := s.List(ctx, query)
	if err != nil {
		return nil, err
	}

	table := Table{
		Title:   "Expenses",
		Name:    "expenses",
		Headers: []string{"Receipt", "Date", "Title", "Paid by", "Method", "Amount", "Description"},
	}
	total := decimal.Zero
	for _, e := range expenses {
		table.Rows = append(table.Rows, []string{
			e.ReceiptNumber,
			e.CreatedAt.Format(models.DateLayout),
			e.Title,
			e.PaidBy,
			e.PaymentMethod,
			e.Amount.StringFixed(2),
			getStringValue(e.Description),
		})
		total = total.Add(e.Amount)
	}
	table.Footer = []string{"Total", "", "", "", "", total.StringFixed(2), ""}

	return s.exporter.Export(format, table)
}
