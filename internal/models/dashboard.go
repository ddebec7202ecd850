package models

import (
	"github.com/shopspring/decimal"
)

// DashboardStatistics is the headline counters block of the dashboard
type DashboardStatistics struct {
	Customers             int64           `json:"customers"`
	Vehicles              int64           `json:"vehicles"`
	ActivePolicies        int64           `json:"active_policies"`
	CancelledPolicies     int64           `json:"cancelled_policies"`
	ExpiredPolicies       int64           `json:"expired_policies"`
	PendingCheques        int64           `json:"pending_cheques"`
	ReturnedCheques       int64           `json:"returned_cheques"`
	PendingChequesAmount  decimal.Decimal `json:"pending_cheques_amount"`
	TotalOutstandingDebt  decimal.Decimal `json:"total_outstanding_debt"`
	PaymentsThisMonth     decimal.Decimal `json:"payments_this_month"`
	PaymentsThisMonthSize int64           `json:"payments_this_month_count"`
	AwaitingGateway       int64           `json:"awaiting_gateway"`
}

// FinancialOverview is revenue against expenses over a period
type FinancialOverview struct {
	Revenue       decimal.Decimal   `json:"revenue"`
	Expenses      decimal.Decimal   `json:"expenses"`
	Refunds       decimal.Decimal   `json:"refunds"`
	Net           decimal.Decimal   `json:"net"`
	ByMethod      []MethodTotal     `json:"by_method"`
	MonthlySeries []MonthlyTotals   `json:"monthly_series"`
	Period        map[string]string `json:"period"`
}

// MethodTotal is revenue collected through one payment method
type MethodTotal struct {
	Method string          `json:"method"`
	Total  decimal.Decimal `json:"total"`
	Count  int64           `json:"count"`
}

// MonthlyTotals is one point of the revenue/expense chart
type MonthlyTotals struct {
	Month    string          `json:"month"` // YYYY-MM
	Revenue  decimal.Decimal `json:"revenue"`
	Expenses decimal.Decimal `json:"expenses"`
	Net      decimal.Decimal `json:"net"`
}
