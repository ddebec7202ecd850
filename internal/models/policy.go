package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InsurancePolicy covers one vehicle for a date range. PaidAmount is derived
// from the policy's settled payments and is never accepted from a client.
type InsurancePolicy struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	CustomerID        uint            `gorm:"not null;index" json:"customer_id"`
	VehicleID         uint            `gorm:"not null;index" json:"vehicle_id"`
	AgentID           *uint           `gorm:"index" json:"agent_id"`
	Type              string          `gorm:"size:50;not null" json:"type"`
	Company           string          `gorm:"size:100;not null;index" json:"company"`
	Amount            decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"amount"`
	PaidAmount        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"paid_amount"`
	StartDate         time.Time       `gorm:"type:date;not null" json:"start_date"`
	EndDate           time.Time       `gorm:"type:date;not null;index" json:"end_date"`
	Status            string          `gorm:"size:20;default:active;not null;index" json:"status"`
	AgentFlow         string          `gorm:"size:20;default:none;not null" json:"agent_flow"`
	AgentAmount       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"agent_amount"`
	PreviousVehicleID *uint           `json:"previous_vehicle_id"`
	TransferredAt     *time.Time      `json:"transferred_at"`
	CancelledAt       *time.Time      `json:"cancelled_at"`
	Notes             *string         `gorm:"type:text" json:"notes"`
	CreatedByID       *uint           `gorm:"index" json:"created_by_id"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
	DeletedAt         gorm.DeletedAt  `gorm:"index" json:"-"`

	// Associations
	Customer *Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Vehicle  *Vehicle  `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
	Agent    *Agent    `gorm:"foreignKey:AgentID" json:"agent,omitempty"`
	Payments []Payment `gorm:"foreignKey:PolicyID" json:"payments,omitempty"`
}

// TableName specifies the table name for InsurancePolicy
func (InsurancePolicy) TableName() string {
	return "insurance_policies"
}

// Policy status constants
const (
	PolicyStatusActive    = "active"
	PolicyStatusCancelled = "cancelled"
	PolicyStatusExpired   = "expired"
)

// Agent flow constants. to_agent is money the agency owes the agent,
// from_agent is money the agent owes the agency.
const (
	AgentFlowNone      = "none"
	AgentFlowToAgent   = "to_agent"
	AgentFlowFromAgent = "from_agent"
)

// IsValidAgentFlow returns true for a known agent flow value
func IsValidAgentFlow(flow string) bool {
	return flow == AgentFlowNone || flow == AgentFlowToAgent || flow == AgentFlowFromAgent
}

// RemainingDebt returns amount minus paid. It is negative when overpaid.
func (p *InsurancePolicy) RemainingDebt() decimal.Decimal {
	return p.Amount.Sub(p.PaidAmount)
}

// IsActive returns true if the policy accepts payments and transfers
func (p *InsurancePolicy) IsActive() bool {
	return p.Status == PolicyStatusActive
}

// MayCancel returns true if policy can be cancelled
func (p *InsurancePolicy) MayCancel() bool {
	return p.Status == PolicyStatusActive || p.Status == PolicyStatusExpired
}

// MayExpire returns true if policy can be expired
func (p *InsurancePolicy) MayExpire() bool {
	return p.Status == PolicyStatusActive
}

// MayTransfer returns true if policy can move to another vehicle
func (p *InsurancePolicy) MayTransfer() bool {
	return p.Status == PolicyStatusActive
}

// RecalculatePaid sets PaidAmount to the sum of the settled payments
func (p *InsurancePolicy) RecalculatePaid(payments []Payment) {
	total := decimal.Zero
	for i := range payments {
		if payments[i].IsSettled() {
			total = total.Add(payments[i].Amount)
		}
	}
	p.PaidAmount = total
}

// PolicyResponse is the JSON response format for policies
type PolicyResponse struct {
	ID                uint              `json:"id"`
	CustomerID        uint              `json:"customer_id"`
	VehicleID         uint              `json:"vehicle_id"`
	Type              string            `json:"type"`
	Company           string            `json:"company"`
	Amount            decimal.Decimal   `json:"amount"`
	PaidAmount        decimal.Decimal   `json:"paid_amount"`
	RemainingDebt     decimal.Decimal   `json:"remaining_debt"`
	StartDate         time.Time         `json:"start_date"`
	EndDate           time.Time         `json:"end_date"`
	Status            string            `json:"status"`
	AgentID           *uint             `json:"agent_id"`
	AgentName         string            `json:"agent_name,omitempty"`
	AgentFlow         string            `json:"agent_flow"`
	AgentAmount       decimal.Decimal   `json:"agent_amount"`
	PreviousVehicleID *uint             `json:"previous_vehicle_id"`
	TransferredAt     *time.Time        `json:"transferred_at"`
	CancelledAt       *time.Time        `json:"cancelled_at"`
	CustomerName      string            `json:"customer_name,omitempty"`
	PlateNumber       string            `json:"plate_number,omitempty"`
	Notes             *string           `json:"notes"`
	Payments          []PaymentResponse `json:"payments"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// ToResponse converts InsurancePolicy to PolicyResponse
func (p *InsurancePolicy) ToResponse() PolicyResponse {
	resp := PolicyResponse{
		ID:                p.ID,
		CustomerID:        p.CustomerID,
		VehicleID:         p.VehicleID,
		Type:              p.Type,
		Company:           p.Company,
		Amount:            p.Amount,
		PaidAmount:        p.PaidAmount,
		RemainingDebt:     p.RemainingDebt(),
		StartDate:         p.StartDate,
		EndDate:           p.EndDate,
		Status:            p.Status,
		AgentID:           p.AgentID,
		AgentFlow:         p.AgentFlow,
		AgentAmount:       p.AgentAmount,
		PreviousVehicleID: p.PreviousVehicleID,
		TransferredAt:     p.TransferredAt,
		CancelledAt:       p.CancelledAt,
		Notes:             p.Notes,
		Payments:          make([]PaymentResponse, 0, len(p.Payments)),
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}

	if p.Agent != nil {
		resp.AgentName = p.Agent.Name
	}
	if p.Customer != nil {
		resp.CustomerName = p.Customer.FullName
	}
	if p.Vehicle != nil {
		resp.PlateNumber = p.Vehicle.PlateNumber
	}
	for i := range p.Payments {
		resp.Payments = append(resp.Payments, p.Payments[i].ToResponse())
	}

	return resp
}
