package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/insurance-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validationKey(t *testing.T, err error) string {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected a validation error, got %v", err)
	return verr.MessageKey
}

func TestCreatePolicy_RecordsPaymentsAndCheques(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customer, vehicle := env.seedVehicle(t, "11-222-33")

	in := policyInput(1200,
		cash(300),
		PaymentInput{},
		chequePayment(500, "100200"),
	)
	policy, err := env.svcs.Policy.CreatePolicy(ctx, staffActor, customer.ID, vehicle.ID, in)
	require.NoError(t, err)

	assert.Equal(t, models.PolicyStatusActive, policy.Status)
	assert.Len(t, policy.Payments, 2, "blank rows are skipped")
	assertAmount(t, 800, policy.PaidAmount)
	assertAmount(t, 400, policy.RemainingDebt())

	list, err := env.svcs.Cheque.List(ctx, ChequeListQuery{CustomerID: customer.ID})
	require.NoError(t, err)
	require.Len(t, list.Cheques, 1)
	assert.Equal(t, "100200", list.Cheques[0].ChequeNumber)
	assert.Equal(t, models.ChequeStatusPending, list.Cheques[0].Status)
}

func TestCreatePolicy_ValidationOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   CreatePolicyInput
		key  string
	}{
		{"missing type", CreatePolicyInput{Company: "Acme", Amount: decimal.NewFromInt(10)}, "policy.type_required"},
		{"missing company", CreatePolicyInput{Type: "third_party", Amount: decimal.NewFromInt(10)}, "policy.company_required"},
		{"zero amount", CreatePolicyInput{Type: "third_party", Company: "Acme"}, "policy.amount_invalid"},
		{"no payments", policyInput(1000), "policy.payment_required"},
		{"only blank payments", policyInput(1000, PaymentInput{}, PaymentInput{}), "policy.payment_required"},
		{"bad method", policyInput(1000, PaymentInput{Amount: decimal.NewFromInt(5), PaymentMethod: "bitcoin"}), "payment.method_invalid"},
		{"cheque without number", policyInput(1000, chequePayment(100, "")), "payment.cheque_number_required"},
		{"cheque without date", policyInput(1000, PaymentInput{Amount: decimal.NewFromInt(400), PaymentMethod: models.PaymentMethodCheque, ChequeNumber: "123"}), "payment.cheque_date_required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// unknown customer and vehicle: input errors come first
			_, err := env.svcs.Policy.CreatePolicy(ctx, staffActor, 999, 999, tt.in)
			assert.Equal(t, tt.key, validationKey(t, err))
		})
	}
}

func TestCreatePolicy_VehicleOfAnotherCustomer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, vehicle := env.seedVehicle(t, "11-222-33")
	other, _ := env.seedVehicle(t, "44-555-66")

	_, err := env.svcs.Policy.CreatePolicy(ctx, staffActor, other.ID, vehicle.ID, policyInput(1000, cash(100)))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreatePolicy_AgentFlowEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customer, vehicle := env.seedVehicle(t, "11-222-33")

	agent, err := env.svcs.Agent.Create(ctx, staffActor, AgentInput{Name: "Yousef"})
	require.NoError(t, err)

	in := policyInput(1000, cash(1000))
	in.AgentName = "Yousef"
	in.AgentFlow = models.AgentFlowToAgent
	in.AgentAmount = decimal.NewFromInt(150)

	policy, err := env.svcs.Policy.CreatePolicy(ctx, staffActor, customer.ID, vehicle.ID, in)
	require.NoError(t, err)
	require.NotNil(t, policy.AgentID)
	assert.Equal(t, agent.ID, *policy.AgentID)

	entries, err := env.repos.Ledger.FindByPolicy(ctx, policy.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.EntryKindAgentFlow, entries[0].Kind)
	assert.Equal(t, models.DirectionOut, entries[0].Direction)
	assertAmount(t, 150, entries[0].Amount)
}

func TestCreatePolicy_RejectOverpayment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customer, vehicle := env.seedVehicle(t, "11-222-33")

	policy, err := env.svcs.Policy.CreatePolicy(ctx, staffActor, customer.ID, vehicle.ID, policyInput(500, cash(600)))
	require.NoError(t, err)
	assertAmount(t, -100, policy.RemainingDebt())

	env.cfg.RejectOverpayment = true
	_, err = env.svcs.Policy.CreatePolicy(ctx, staffActor, customer.ID, vehicle.ID, policyInput(500, cash(600)))
	assert.Equal(t, "policy.overpayment", validationKey(t, err))
}

func TestPolicy_PaidInTwoCashPayments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customer, vehicle := env.seedVehicle(t, "11-222-33")

	policy, err := env.svcs.Policy.CreatePolicy(ctx, staffActor, customer.ID, vehicle.ID, policyInput(1000, cash(400)))
	require.NoError(t, err)
	assertAmount(t, 400, policy.PaidAmount)
	assertAmount(t, 600, policy.RemainingDebt())

	result, err := env.svcs.Policy.AddPayment(ctx, staffActor, policy.ID, cash(600))
	require.NoError(t, err)
	assertAmount(t, 1000, result.Policy.PaidAmount)
	assertAmount(t, 0, result.Policy.RemainingDebt())
	assert.True(t, result.Policy.RemainingDebt().IsZero())
}

func TestAddPayment_CannotExceedRemaining(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customer, vehicle := env.seedVehicle(t, "11-222-33")

	policy, err := env.svcs.Policy.CreatePolicy(ctx, staffActor, customer.ID, vehicle.ID, policyInput(1000, cash(700)))
	require.NoError(t, err)

	_, err = env.svcs.Policy.AddPayment(ctx, staffActor, policy.ID, cash(301))
	assert.Equal(t, "payment.exceeds_remaining", validationKey(t, err))

	result, err := env.svcs.Policy.AddPayment(ctx, staffActor, policy.ID, cash(300))
	require.NoError(t, err)
	assertAmount(t, 1000, result.Policy.PaidAmount)
	assert.Empty(t, result.RedirectURL)
}

func TestAddPayment_CardAwaitsGateway(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customer, vehicle := env.seedVehicle(t, "11-222-33")

	policy, err := env.svcs.Policy.CreatePolicy(ctx, staffActor, customer.ID, vehicle.ID, policyInput(1000, cash(200)))
	require.NoError(t, err)

	card := PaymentInput{Amount: decimal.NewFromInt(500), PaymentMethod: models.PaymentMethodCard}
	result, err := env.svcs.Policy.AddPayment(ctx, staffActor, policy.ID, card)
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusAwaitingGateway, result.Payment.Status)
	assert.Contains(t, result.RedirectURL, "https://pay.test/checkout?")
	assertAmount(t, 200, result.Policy.PaidAmount)

	// the pending card payment already reserves part of the debt
	_, err = env.svcs.Policy.AddPayment(ctx, staffActor, policy.ID, cash(301))
	assert.Equal(t, "payment.exceeds_remaining", validationKey(t, err))

	ref := *result.Payment.GatewayReference
	_, err = env.svcs.Payment.ConfirmGatewayPayment(ctx, GatewayCallback{Reference: ref, Status: "succeeded", Signature: "bad"})
	assert.ErrorIs(t, err, ErrUnauthorized)

	cb := GatewayCallback{
		Reference: ref,
		Status:    GatewayStatusSucceeded,
		Signature: SignGatewayCallback(env.cfg.PaymentGatewaySecret, ref, GatewayStatusSucceeded),
	}
	payment, err := env.svcs.Payment.ConfirmGatewayPayment(ctx, cb)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusConfirmed, payment.Status)

	// replays are accepted and change nothing
	_, err = env.svcs.Payment.ConfirmGatewayPayment(ctx, cb)
	require.NoError(t, err)

	updated, err := env.svcs.Policy.FindByID(ctx, policy.ID)
	require.NoError(t, err)
	assertAmount(t, 700, updated.PaidAmount)
}

func TestAddPayment_InactivePolicy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customer, vehicle := env.seedVehicle(t, "11-222-33")

	policy, err := env.svcs.Policy.CreatePolicy(ctx, staffActor, customer.ID, vehicle.ID, policyInput(1000, cash(100)))
	require.NoError(t, err)
	_, err = env.svcs.Policy.CancelPolicy(ctx, staffActor, policy.ID, CancelPolicyInput{})
	require.NoError(t, err)

	_, err = env.svcs.Policy.AddPayment(ctx, staffActor, policy.ID, cash(50))
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCancelPolicy_RefundAndDoubleCancel(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customer, vehicle := env.seedVehicle(t, "11-222-33")

	policy, err := env.svcs.Policy.CreatePolicy(ctx, staffActor, customer.ID, vehicle.ID, policyInput(1000, cash(600)))
	require.NoError(t, err)

	_, err = env.svcs.Policy.CancelPolicy(ctx, staffActor, policy.ID, CancelPolicyInput{RefundAmount: decimal.NewFromInt(200)})
	assert.Equal(t, "cancel.paid_by_required", validationKey(t, err))

	cancelled, err := env.svcs.Policy.CancelPolicy(ctx, staffActor, policy.ID, CancelPolicyInput{
		RefundAmount:  decimal.NewFromInt(200),
		PaidBy:        "office",
		PaymentMethod: "Cash",
	})
	require.NoError(t, err)
	assert.Equal(t, models.PolicyStatusCancelled, cancelled.Status)
	assert.NotNil(t, cancelled.CancelledAt)

	entries, err := env.repos.Ledger.FindByPolicy(ctx, policy.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.EntryKindRefund, entries[0].Kind)
	assert.Equal(t, models.DirectionOut, entries[0].Direction)

	_, err = env.svcs.Policy.CancelPolicy(ctx, staffActor, policy.ID, CancelPolicyInput{})
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestTransferPolicy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customer, from := env.seedVehicle(t, "11-222-33")
	to, err := env.svcs.Customer.AddVehicle(ctx, staffActor, customer.ID, VehicleInput{PlateNumber: "77-888-99"}, nil)
	require.NoError(t, err)

	policy, err := env.svcs.Policy.CreatePolicy(ctx, staffActor, customer.ID, from.ID, policyInput(1000, cash(1000)))
	require.NoError(t, err)

	moved, err := env.svcs.Policy.TransferPolicy(ctx, staffActor, policy.ID, from.ID, TransferPolicyInput{
		ToVehicleID:           to.ID,
		CustomerFee:           decimal.NewFromInt(80),
		CustomerPaymentMethod: "cash",
		CompanyFee:            decimal.NewFromInt(50),
		CompanyPaidBy:         "office",
		CompanyPaymentMethod:  "bank_transfer",
	})
	require.NoError(t, err)
	assert.Equal(t, to.ID, moved.VehicleID)
	require.NotNil(t, moved.PreviousVehicleID)
	assert.Equal(t, from.ID, *moved.PreviousVehicleID)

	entries, err := env.repos.Ledger.FindByPolicy(ctx, policy.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestTransferPolicy_OtherCustomerLeavesPolicyUntouched(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customer, from := env.seedVehicle(t, "11-222-33")
	_, foreign := env.seedVehicle(t, "44-555-66")

	policy, err := env.svcs.Policy.CreatePolicy(ctx, staffActor, customer.ID, from.ID, policyInput(1000, cash(1000)))
	require.NoError(t, err)

	_, err = env.svcs.Policy.TransferPolicy(ctx, staffActor, policy.ID, from.ID, TransferPolicyInput{
		ToVehicleID:           foreign.ID,
		CustomerFee:           decimal.NewFromInt(80),
		CustomerPaymentMethod: "cash",
	})
	assert.Equal(t, "transfer.other_customer", validationKey(t, err))

	unchanged, err := env.svcs.Policy.FindByID(ctx, policy.ID)
	require.NoError(t, err)
	assert.Equal(t, from.ID, unchanged.VehicleID)

	entries, err := env.repos.Ledger.FindByPolicy(ctx, policy.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestExpirePolicies(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	customer, vehicle := env.seedVehicle(t, "11-222-33")

	in := policyInput(1000, cash(100))
	in.StartDate = &models.Date{Time: time.Now().AddDate(-1, 0, -10)}
	in.EndDate = &models.Date{Time: time.Now().AddDate(0, 0, -10)}
	old, err := env.svcs.Policy.CreatePolicy(ctx, staffActor, customer.ID, vehicle.ID, in)
	require.NoError(t, err)

	current, err := env.svcs.Policy.CreatePolicy(ctx, staffActor, customer.ID, vehicle.ID, policyInput(1000, cash(100)))
	require.NoError(t, err)

	n, err := env.svcs.Policy.ExpirePolicies(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	old, err = env.svcs.Policy.FindByID(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PolicyStatusExpired, old.Status)

	current, err = env.svcs.Policy.FindByID(ctx, current.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PolicyStatusActive, current.Status)
}
