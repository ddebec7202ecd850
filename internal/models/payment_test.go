package models

import (
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPayment_ChequeFieldsOnlyForCheques(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	cash := NewPayment(decimal.NewFromInt(100), now, CashDetails{})
	assert.Equal(t, PaymentMethodCash, cash.Method)
	assert.Equal(t, PaymentStatusConfirmed, cash.Status)
	assert.Nil(t, cash.ChequeNumber)
	assert.Nil(t, cash.ChequeDate)
	assert.Nil(t, cash.ChequeStatus)

	cheque := NewPayment(decimal.NewFromInt(100), now, ChequeDetails{Number: "000123", Date: now})
	require.NotNil(t, cheque.ChequeNumber)
	assert.Equal(t, "000123", *cheque.ChequeNumber)
	assert.Equal(t, ChequeStatusPending, *cheque.ChequeStatus)
	assert.Equal(t, ChequeDetails{Number: "000123", Date: now, Status: ChequeStatusPending}, cheque.Details())
}

func TestNewPayment_CardAwaitsGateway(t *testing.T) {
	p := NewPayment(decimal.NewFromInt(50), time.Now(), CardDetails{})

	assert.Equal(t, PaymentStatusAwaitingGateway, p.Status)
	assert.False(t, p.IsSettled())
	assert.True(t, p.MayConfirm())
}

func TestPayment_IsSettled(t *testing.T) {
	returned := ChequeStatusReturned
	cleared := ChequeStatusCleared

	tests := []struct {
		name    string
		payment Payment
		want    bool
	}{
		{"confirmed cash", Payment{Method: PaymentMethodCash, Status: PaymentStatusConfirmed}, true},
		{"failed card", Payment{Method: PaymentMethodCard, Status: PaymentStatusFailed}, false},
		{"returned cheque", Payment{Method: PaymentMethodCheque, Status: PaymentStatusConfirmed, ChequeStatus: &returned}, false},
		{"cleared cheque", Payment{Method: PaymentMethodCheque, Status: PaymentStatusConfirmed, ChequeStatus: &cleared}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.payment.IsSettled())
		})
	}
}

func TestInsurancePolicy_RemainingDebtMayGoNegative(t *testing.T) {
	policy := InsurancePolicy{Amount: decimal.NewFromInt(1000)}
	policy.RecalculatePaid([]Payment{
		{Amount: decimal.NewFromInt(700), Method: PaymentMethodCash, Status: PaymentStatusConfirmed},
		{Amount: decimal.NewFromInt(500), Method: PaymentMethodBankTransfer, Status: PaymentStatusConfirmed},
		{Amount: decimal.NewFromInt(900), Method: PaymentMethodCard, Status: PaymentStatusAwaitingGateway},
	})

	assert.True(t, decimal.NewFromInt(1200).Equal(policy.PaidAmount))
	assert.True(t, decimal.NewFromInt(-200).Equal(policy.RemainingDebt()))
}

func TestGenerateReceiptNumber(t *testing.T) {
	at := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	receipt := GenerateReceiptNumber(at)

	assert.Regexp(t, regexp.MustCompile(`^RCP-20261016-[0-9A-F]{8}$`), receipt)
	assert.NotEqual(t, receipt, GenerateReceiptNumber(at))
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(1, 20, 45)
	assert.Equal(t, 3, p.TotalPages)
	assert.True(t, p.HasNextPage)

	last := NewPagination(3, 20, 45)
	assert.False(t, last.HasNextPage)

	exact := NewPagination(2, 20, 40)
	assert.False(t, exact.HasNextPage)
}

func TestNormalizeChequeStatus(t *testing.T) {
	assert.Equal(t, ChequeStatusReturned, NormalizeChequeStatus(" Bounced "))
	assert.Equal(t, ChequeStatusCleared, NormalizeChequeStatus("cleared"))
	assert.False(t, IsValidChequeStatus("lost"))
}

func TestDecimalMarshalsAsNumber(t *testing.T) {
	out, err := json.Marshal(PolicyResponse{Amount: decimal.RequireFromString("1000.50")})
	require.NoError(t, err)
	assert.Contains(t, string(out), `"amount":1000.5`)
}
