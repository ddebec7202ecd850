package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment is one installment received against a policy, or a general payment
// received from a customer. Payments are append-only.
type Payment struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	PolicyID         *uint           `gorm:"index" json:"policy_id"`
	CustomerID       uint            `gorm:"not null;index" json:"customer_id"`
	Amount           decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"amount"`
	Method           string          `gorm:"size:20;not null;index" json:"method"`
	PaymentDate      time.Time       `gorm:"not null;index" json:"payment_date"`
	Notes            *string         `gorm:"size:500" json:"notes"`
	ReceiptNumber    string          `gorm:"size:40;uniqueIndex;not null" json:"receipt_number"`
	ChequeNumber     *string         `gorm:"size:50" json:"cheque_number"`
	ChequeDate       *time.Time      `gorm:"type:date" json:"cheque_date"`
	ChequeStatus     *string         `gorm:"size:20" json:"cheque_status"`
	ChequeID         *uint           `gorm:"index" json:"cheque_id"`
	Status           string          `gorm:"size:40;default:confirmed;not null;index" json:"status"`
	GatewayReference *string         `gorm:"size:64;uniqueIndex" json:"gateway_reference"`
	ConfirmedAt      *time.Time      `json:"confirmed_at"`
	RecordedByID     *uint           `gorm:"index" json:"recorded_by_id"`
	CreatedAt        time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`

	// Associations
	Policy   *InsurancePolicy `gorm:"foreignKey:PolicyID" json:"policy,omitempty"`
	Customer *Customer        `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
}

// TableName specifies the table name for Payment
func (Payment) TableName() string {
	return "payments"
}

// Payment status constants
const (
	PaymentStatusConfirmed       = "confirmed"
	PaymentStatusAwaitingGateway = "awaiting_gateway_confirmation"
	PaymentStatusFailed          = "failed"
)

// MayConfirm returns true if a gateway payment can be confirmed
func (p *Payment) MayConfirm() bool {
	return p.Status == PaymentStatusAwaitingGateway
}

// MayFail returns true if a gateway payment can be marked failed
func (p *Payment) MayFail() bool {
	return p.Status == PaymentStatusAwaitingGateway
}

// IsSettled returns true if the payment counts toward a policy's paid amount.
// Returned and cancelled cheques never count.
func (p *Payment) IsSettled() bool {
	if p.Status != PaymentStatusConfirmed {
		return false
	}
	if p.Method == PaymentMethodCheque && p.ChequeStatus != nil {
		return *p.ChequeStatus != ChequeStatusReturned && *p.ChequeStatus != ChequeStatusCancelled
	}
	return true
}

// IsAwaitingGateway returns true while the hosted card page has not called back
func (p *Payment) IsAwaitingGateway() bool {
	return p.Status == PaymentStatusAwaitingGateway
}

// GenerateReceiptNumber returns a receipt number of the form RCP-YYYYMMDD-XXXXXXXX
func GenerateReceiptNumber(at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("RCP-%s-%s", at.Format("20060102"), suffix)
}

// PaymentResponse is the JSON response format for payments
type PaymentResponse struct {
	ID               uint            `json:"id"`
	PolicyID         *uint           `json:"policy_id"`
	CustomerID       uint            `json:"customer_id"`
	Amount           decimal.Decimal `json:"amount"`
	Method           string          `json:"method"`
	PaymentDate      time.Time       `json:"payment_date"`
	Notes            *string         `json:"notes"`
	ReceiptNumber    string          `json:"receipt_number"`
	Status           string          `json:"status"`
	Settled          bool            `json:"settled"`
	ChequeNumber     *string         `json:"cheque_number,omitempty"`
	ChequeDate       *time.Time      `json:"cheque_date,omitempty"`
	ChequeStatus     *string         `json:"cheque_status,omitempty"`
	ChequeID         *uint           `json:"cheque_id,omitempty"`
	GatewayReference *string         `json:"gateway_reference,omitempty"`
	ConfirmedAt      *time.Time      `json:"confirmed_at"`
	CustomerName     string          `json:"customer_name,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// ToResponse converts Payment to PaymentResponse
func (p *Payment) ToResponse() PaymentResponse {
	resp := PaymentResponse{
		ID:               p.ID,
		PolicyID:         p.PolicyID,
		CustomerID:       p.CustomerID,
		Amount:           p.Amount,
		Method:           p.Method,
		PaymentDate:      p.PaymentDate,
		Notes:            p.Notes,
		ReceiptNumber:    p.ReceiptNumber,
		Status:           p.Status,
		Settled:          p.IsSettled(),
		ChequeNumber:     p.ChequeNumber,
		ChequeDate:       p.ChequeDate,
		ChequeStatus:     p.ChequeStatus,
		ChequeID:         p.ChequeID,
		GatewayReference: p.GatewayReference,
		ConfirmedAt:      p.ConfirmedAt,
		CreatedAt:        p.CreatedAt,
	}

	if p.Customer != nil {
		resp.CustomerName = p.Customer.FullName
	}

	return resp
}
