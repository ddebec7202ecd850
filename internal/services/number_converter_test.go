package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestAmountInWords(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{"0", "ZERO AND 00/100"},
		{"7", "SEVEN AND 00/100"},
		{"15.5", "FIFTEEN AND 50/100"},
		{"42", "FORTY-TWO AND 00/100"},
		{"100", "ONE HUNDRED AND 00/100"},
		{"1500.50", "ONE THOUSAND FIVE HUNDRED AND 50/100"},
		{"2300000.01", "TWO MILLION THREE HUNDRED THOUSAND AND 01/100"},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			assert.Equal(t, tt.want, AmountInWords(decimal.RequireFromString(tt.amount)))
		})
	}
}
