package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry is a money movement that is not a customer payment: refunds,
// transfer fees and agent flows. Amount is always positive, Direction says
// whether money came in or went out.
type LedgerEntry struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	Kind          string          `json:"kind" gorm:"size:40;not null;index"`
	Direction     string          `json:"direction" gorm:"size:3;not null;index"`
	Amount        decimal.Decimal `json:"amount" gorm:"type:decimal(12,2);not null;default:0"`
	PaymentMethod *string         `json:"payment_method" gorm:"size:20"`
	PaidBy        *string         `json:"paid_by" gorm:"size:150"`
	Description   string          `json:"description" gorm:"type:text"`
	PolicyID      *uint           `json:"policy_id,omitempty" gorm:"index"`
	CustomerID    *uint           `json:"customer_id,omitempty" gorm:"index"`
	AgentID       *uint           `json:"agent_id,omitempty" gorm:"index"`
	ReceiptNumber string          `json:"receipt_number" gorm:"size:40;index"`
	EntryDate     time.Time       `json:"entry_date" gorm:"not null;index"`
	CreatedByID   *uint           `json:"created_by_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	// Relationships
	Policy *InsurancePolicy `json:"policy,omitempty" gorm:"foreignKey:PolicyID"`
}

// Entry kind constants
const (
	EntryKindRefund              = "refund"                // money returned to a customer on cancellation
	EntryKindTransferCustomerFee = "transfer_customer_fee" // fee the customer pays for a transfer
	EntryKindTransferCompanyFee  = "transfer_company_fee"  // fee settled with the insurer for a transfer
	EntryKindAgentFlow           = "agent_flow"
)

// Direction constants
const (
	DirectionIn  = "in"
	DirectionOut = "out"
)

// TableName specifies the table name for GORM
func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

// Signed returns the amount as a positive inflow or negative outflow
func (e *LedgerEntry) Signed() decimal.Decimal {
	if e.Direction == DirectionOut {
		return e.Amount.Neg()
	}
	return e.Amount
}
