package models

import (
	"github.com/shopspring/decimal"
)

func init() {
	// amounts travel as JSON numbers, not strings
	decimal.MarshalJSONWithoutQuotes = true
}

// SumAmounts adds up a list of decimal amounts
func SumAmounts(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// Payment method constants, shared by payments, expenses and ledger entries
const (
	PaymentMethodCash         = "cash"
	PaymentMethodCard         = "card"
	PaymentMethodCheque       = "cheque"
	PaymentMethodBankTransfer = "bank_transfer"
)

// PaymentMethods lists every accepted payment method
var PaymentMethods = []string{
	PaymentMethodCash,
	PaymentMethodCard,
	PaymentMethodCheque,
	PaymentMethodBankTransfer,
}

// IsValidPaymentMethod returns true if method is one of PaymentMethods
func IsValidPaymentMethod(method string) bool {
	for _, m := range PaymentMethods {
		if m == method {
			return true
		}
	}
	return false
}
