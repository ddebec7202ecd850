package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Agent is an external sales agent credited or debited per policy
type Agent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:150;uniqueIndex;not null" json:"name"`
	Email     *string   `gorm:"size:150" json:"email"`
	Phone     *string   `gorm:"size:30" json:"phone"`
	Role      string    `gorm:"size:50;default:agent" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Agent
func (Agent) TableName() string {
	return "agents"
}

// AgentStatement aggregates every policy sold through one agent
type AgentStatement struct {
	Agent           Agent                `json:"agent"`
	TotalPaid       decimal.Decimal      `json:"total_paid"`
	TotalDebts      decimal.Decimal      `json:"total_debts"`
	TotalToAgent    decimal.Decimal      `json:"total_to_agent"`
	TotalFromAgent  decimal.Decimal      `json:"total_from_agent"`
	NetAgentBalance decimal.Decimal      `json:"net_agent_balance"`
	InsuranceList   []AgentStatementLine `json:"insurance_list"`
}

// AgentStatementLine is one policy row of an agent statement. ID is always
// the policy's primary key.
type AgentStatementLine struct {
	ID            uint            `json:"id"`
	CustomerID    uint            `json:"customer_id"`
	CustomerName  string          `json:"customer_name"`
	PlateNumber   string          `json:"plate_number"`
	Company       string          `json:"company"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Paid          decimal.Decimal `json:"paid"`
	Remaining     decimal.Decimal `json:"remaining"`
	AgentFlow     string          `json:"agent_flow"`
	AgentAmount   decimal.Decimal `json:"agent_amount"`
	PaymentMethod string          `json:"payment_method"`
	StartDate     time.Time       `json:"start_date"`
	EndDate       time.Time       `json:"end_date"`
	Status        string          `json:"status"`
}
