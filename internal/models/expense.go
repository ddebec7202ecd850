package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense is a standalone operating cost of the agency
type Expense struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Title         string          `gorm:"size:200;not null;index" json:"title"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"amount"`
	PaidBy        string          `gorm:"size:150;not null" json:"paid_by"`
	PaymentMethod string          `gorm:"size:20;not null;index" json:"payment_method"`
	Description   *string         `gorm:"type:text" json:"description"`
	ReceiptNumber string          `gorm:"size:40;uniqueIndex;not null" json:"receipt_number"`
	CreatedByID   *uint           `json:"created_by_id"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Expense
func (Expense) TableName() string {
	return "expenses"
}
