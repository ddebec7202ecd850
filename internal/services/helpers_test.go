package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/insurance-api/internal/cache"
	"github.com/sjperalta/insurance-api/internal/config"
	"github.com/sjperalta/insurance-api/internal/models"
	"github.com/sjperalta/insurance-api/internal/repository"
	"github.com/sjperalta/insurance-api/internal/storage"
	"github.com/sjperalta/insurance-api/internal/testutil"
	"github.com/stretchr/testify/require"
)

var (
	staffActor = Actor{UserID: 2, Role: models.RoleStaff}
	adminActor = Actor{UserID: 1, Role: models.RoleAdmin}
)

type testEnv struct {
	repos *repository.Repositories
	cache *cache.MemoryCache
	cfg   *config.Config
	svcs  *Services
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewDB(t)
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	cfg := &config.Config{
		JWTSecret:            "test-secret",
		JWTExpirationHours:   1,
		PaymentGatewayURL:    "https://pay.test/checkout",
		PaymentGatewaySecret: "gateway-secret",
		DashboardCacheTTL:    time.Minute,
	}
	repos := repository.NewRepositories(db)
	mem := cache.NewMemoryCache()

	return &testEnv{
		repos: repos,
		cache: mem,
		cfg:   cfg,
		svcs:  NewServices(repos, nil, store, mem, nil, cfg, db),
	}
}

// seedVehicle creates a customer with one vehicle
func (e *testEnv) seedVehicle(t *testing.T, plate string) (*models.Customer, *models.Vehicle) {
	t.Helper()
	ctx := context.Background()

	customer, err := e.svcs.Customer.Create(ctx, staffActor, CustomerInput{
		FullName: "Rami Haddad",
		Identity: "ID-" + plate,
		Phone:    "0501234567",
	})
	require.NoError(t, err)

	vehicle, err := e.svcs.Customer.AddVehicle(ctx, staffActor, customer.ID, VehicleInput{PlateNumber: plate, Model: "Corolla"}, nil)
	require.NoError(t, err)
	return customer, vehicle
}

func policyInput(amount int64, payments ...PaymentInput) CreatePolicyInput {
	return CreatePolicyInput{
		Type:     "comprehensive",
		Company:  "Acme Insurance",
		Amount:   decimal.NewFromInt(amount),
		Payments: payments,
	}
}

func cash(amount int64) PaymentInput {
	return PaymentInput{Amount: decimal.NewFromInt(amount), PaymentMethod: models.PaymentMethodCash}
}

func chequePayment(amount int64, number string) PaymentInput {
	return PaymentInput{
		Amount:        decimal.NewFromInt(amount),
		PaymentMethod: models.PaymentMethodCheque,
		ChequeNumber:  number,
		ChequeDate:    &models.Date{Time: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)},
	}
}

func assertAmount(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	require.True(t, decimal.NewFromInt(want).Equal(got), "want %d, got %s", want, got.String())
}
