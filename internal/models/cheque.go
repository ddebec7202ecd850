package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Cheque is a tracked payment instrument. It may stand alone for a customer
// or back a cheque payment on a policy.
type Cheque struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	ChequeNumber    string          `gorm:"size:50;not null;index" json:"cheque_number"`
	Amount          decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"amount"`
	ChequeDate      time.Time       `gorm:"type:date;not null;index" json:"cheque_date"`
	BankName        *string         `gorm:"size:100" json:"bank_name"`
	ImagePath       *string         `json:"-"`
	ThumbnailPath   *string         `json:"-"`
	Notes           *string         `gorm:"type:text" json:"notes"`
	Status          string          `gorm:"size:20;default:pending;not null;index" json:"status"`
	ReturnedReason  *string         `gorm:"type:text" json:"returned_reason"`
	CustomerID      *uint           `gorm:"index" json:"customer_id"`
	PolicyID        *uint           `gorm:"index" json:"policy_id"`
	PaymentID       *uint           `gorm:"index" json:"payment_id"`
	StatusChangedAt *time.Time      `json:"status_changed_at"`
	ReminderSentAt  *time.Time      `json:"-"`
	CreatedByID     *uint           `json:"created_by_id"`
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	// Associations
	Customer *Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
}

// TableName specifies the table name for Cheque
func (Cheque) TableName() string {
	return "cheques"
}

// Cheque status constants
const (
	ChequeStatusPending   = "pending"
	ChequeStatusCleared   = "cleared"
	ChequeStatusReturned  = "returned"
	ChequeStatusCancelled = "cancelled"
)

// NormalizeChequeStatus maps legacy spellings onto the canonical statuses
func NormalizeChequeStatus(status string) string {
	s := strings.ToLower(strings.TrimSpace(status))
	if s == "bounced" {
		return ChequeStatusReturned
	}
	return s
}

// IsValidChequeStatus returns true for a canonical cheque status
func IsValidChequeStatus(status string) bool {
	switch status {
	case ChequeStatusPending, ChequeStatusCleared, ChequeStatusReturned, ChequeStatusCancelled:
		return true
	}
	return false
}

// MayClear returns true if cheque can be cleared
func (c *Cheque) MayClear() bool {
	return c.Status == ChequeStatusPending
}

// MayReturn returns true if cheque can be marked returned
func (c *Cheque) MayReturn() bool {
	return c.Status == ChequeStatusPending
}

// MayCancel returns true if cheque can be cancelled
func (c *Cheque) MayCancel() bool {
	return c.Status == ChequeStatusPending
}

// HasImage returns true if a scan of the cheque was uploaded
func (c *Cheque) HasImage() bool {
	return c.ImagePath != nil && *c.ImagePath != ""
}

// IsDue returns true if a pending cheque's date has arrived
func (c *Cheque) IsDue(now time.Time) bool {
	return c.Status == ChequeStatusPending && !c.ChequeDate.After(now)
}

// ChequeResponse is the JSON response format for cheques
type ChequeResponse struct {
	ID              uint            `json:"id"`
	ChequeNumber    string          `json:"cheque_number"`
	Amount          decimal.Decimal `json:"amount"`
	ChequeDate      time.Time       `json:"cheque_date"`
	BankName        *string         `json:"bank_name"`
	Notes           *string         `json:"notes"`
	Status          string          `json:"status"`
	ReturnedReason  *string         `json:"returned_reason"`
	CustomerID      *uint           `json:"customer_id"`
	CustomerName    string          `json:"customer_name,omitempty"`
	PolicyID        *uint           `json:"policy_id"`
	PaymentID       *uint           `json:"payment_id"`
	HasImage        bool            `json:"has_image"`
	StatusChangedAt *time.Time      `json:"status_changed_at"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ToResponse converts Cheque to ChequeResponse
func (c *Cheque) ToResponse() ChequeResponse {
	resp := ChequeResponse{
		ID:              c.ID,
		ChequeNumber:    c.ChequeNumber,
		Amount:          c.Amount,
		ChequeDate:      c.ChequeDate,
		BankName:        c.BankName,
		Notes:           c.Notes,
		Status:          c.Status,
		ReturnedReason:  c.ReturnedReason,
		CustomerID:      c.CustomerID,
		PolicyID:        c.PolicyID,
		PaymentID:       c.PaymentID,
		HasImage:        c.HasImage(),
		StatusChangedAt: c.StatusChangedAt,
		CreatedAt:       c.CreatedAt,
	}
	if c.Customer != nil {
		resp.CustomerName = c.Customer.FullName
	}
	return resp
}
