package services

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AmountInWords spells out an amount for receipts.
// Example: 1500.50 -> "ONE THOUSAND FIVE HUNDRED AND 50/100"
func AmountInWords(amount decimal.Decimal) string {
	amount = amount.Round(2)
	integerPart := amount.IntPart()
	cents := amount.Sub(decimal.NewFromInt(integerPart)).Abs().Mul(decimal.NewFromInt(100)).IntPart()

	return fmt.Sprintf("%s AND %02d/100", convertNumberToWords(integerPart), cents)
}

func convertNumberToWords(n int64) string {
	if n == 0 {
		return "ZERO"
	}

	if n < 0 {
		return "MINUS " + convertNumberToWords(-n)
	}

	if n < 20 {
		return units[n]
	}

	if n < 100 {
		u := n % 10
		t := n / 10
		if u == 0 {
			return tens[t]
		}
		return fmt.Sprintf("%s-%s", tens[t], units[u])
	}

	if n < 1000 {
		remainder := n % 100
		text := units[n/100] + " HUNDRED"
		if remainder == 0 {
			return text
		}
		return text + " " + convertNumberToWords(remainder)
	}

	for _, scale := range scales {
		if n < scale.value*1000 || scale.value == scales[len(scales)-1].value {
			head := convertNumberToWords(n/scale.value) + " " + scale.name
			remainder := n % scale.value
			if remainder == 0 {
				return head
			}
			return head + " " + convertNumberToWords(remainder)
		}
	}

	return fmt.Sprint(n)
}

var units = []string{
	"", "ONE", "TWO", "THREE", "FOUR", "FIVE", "SIX", "SEVEN", "EIGHT", "NINE",
	"TEN", "ELEVEN", "TWELVE", "THIRTEEN", "FOURTEEN", "FIFTEEN", "SIXTEEN",
	"SEVENTEEN", "EIGHTEEN", "NINETEEN",
}

var tens = []string{
	"", "", "TWENTY", "THIRTY", "FORTY", "FIFTY", "SIXTY", "SEVENTY", "EIGHTY", "NINETY",
}

var scales = []struct {
	value int64
	name  string
}{
	{1000, "THOUSAND"},
	{1000000, "MILLION"},
	{1000000000, "BILLION"},
}
