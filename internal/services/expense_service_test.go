package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/insurance-api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpenseCRUD(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	in := ExpenseInput{Title: "Rent", Amount: decimal.NewFromInt(1500), PaidBy: "office", PaymentMethod: "Bank_Transfer"}
	expense, err := env.svcs.Expense.Create(ctx, staffActor, in)
	require.NoError(t, err)
	assert.Equal(t, "bank_transfer", expense.PaymentMethod)
	assert.NotEmpty(t, expense.ReceiptNumber)

	in.Amount = decimal.NewFromInt(1600)
	updated, err := env.svcs.Expense.Update(ctx, staffActor, expense.ID, in)
	require.NoError(t, err)
	assertAmount(t, 1600, updated.Amount)

	query := &repository.ExpenseQuery{ListQuery: repository.NewListQuery(), PaymentMethod: "BANK_TRANSFER"}
	expenses, total, err := env.svcs.Expense.List(ctx, query)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, expenses, 1)

	require.NoError(t, env.svcs.Expense.Delete(ctx, staffActor, expense.ID))
	_, err = env.svcs.Expense.Get(ctx, expense.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	err = env.svcs.Expense.Delete(ctx, staffActor, expense.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpenseValidationOrder(t *testing.T) {
	tests := []struct {
		name string
		in   ExpenseInput
		key  string
	}{
		{"title", ExpenseInput{}, "expense.title_required"},
		{"amount", ExpenseInput{Title: "Rent"}, "expense.amount_invalid"},
		{"payer", ExpenseInput{Title: "Rent", Amount: decimal.NewFromInt(1)}, "expense.paid_by_required"},
		{"method", ExpenseInput{Title: "Rent", Amount: decimal.NewFromInt(1), PaidBy: "office"}, "expense.method_invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.key, validationKey(t, validateExpense(&tt.in)))
		})
	}
}

func TestExpenseExport_PDF(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svcs.Expense.Create(ctx, staffActor, ExpenseInput{Title: "Fuel", Amount: decimal.NewFromInt(90), PaidBy: "Sami", PaymentMethod: "cash"})
	require.NoError(t, err)

	file, err := env.svcs.Expense.Export(ctx, FormatPDF, &repository.ExpenseQuery{ListQuery: repository.NewListQuery()})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, len(file.Data) > 4 && string(file.Data[:4]) == "%PDF")
}
