package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/insurance-api/internal/cache"
	"github.com/sjperalta/insurance-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardStatistics_CachedUntilMutation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	policyWithCheque(t, env)

	stats, err := env.svcs.Dashboard.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Customers)
	assert.Equal(t, int64(1), stats.Vehicles)
	assert.Equal(t, int64(1), stats.ActivePolicies)
	assert.Equal(t, int64(1), stats.PendingCheques)
	assertAmount(t, 500, stats.PendingChequesAmount)
	assertAmount(t, 200, stats.TotalOutstandingDebt)
	assertAmount(t, 800, stats.PaymentsThisMonth)
	assert.Equal(t, int64(2), stats.PaymentsThisMonthSize)

	// rows written straight to the repository do not invalidate the cache
	require.NoError(t, env.repos.Customer.Create(ctx, &models.Customer{FullName: "Direct", Identity: "D-1"}))
	cached, err := env.svcs.Dashboard.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cached.Customers)

	_, _ = env.seedVehicle(t, "44-555-66")
	fresh, err := env.svcs.Dashboard.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), fresh.Customers)

	_, err = env.svcs.Expense.Create(ctx, staffActor, ExpenseInput{
		Title:         "Rent",
		Amount:        decimal.NewFromInt(1500),
		PaidBy:        "office",
		PaymentMethod: "bank_transfer",
	})
	require.NoError(t, err)

	hit, err := env.cache.Get(ctx, cache.KeyDashboardStatistics, &struct{}{})
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestDashboardFinancialOverview(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	policy, _ := policyWithCheque(t, env)

	_, err := env.svcs.Policy.CancelPolicy(ctx, staffActor, policy.ID, CancelPolicyInput{
		RefundAmount:  decimal.NewFromInt(100),
		PaidBy:        "office",
		PaymentMethod: "cash",
	})
	require.NoError(t, err)

	_, err = env.svcs.Expense.Create(ctx, staffActor, ExpenseInput{
		Title:         "Stationery",
		Amount:        decimal.NewFromInt(50),
		PaidBy:        "office",
		PaymentMethod: "cash",
	})
	require.NoError(t, err)

	overview, err := env.svcs.Dashboard.FinancialOverview(ctx, nil, nil)
	require.NoError(t, err)
	assertAmount(t, 800, overview.Revenue)
	assertAmount(t, 150, overview.Expenses)
	assertAmount(t, 100, overview.Refunds)
	assertAmount(t, 650, overview.Net)
	assert.Len(t, overview.MonthlySeries, 12)
	assert.NotEmpty(t, overview.ByMethod)
}
