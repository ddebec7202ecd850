package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/insurance-api/internal/models"
	"github.com/sjperalta/insurance-api/internal/repository"
)

// AgentInput is the body of a create-agent request
type AgentInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Role  string `json:"role"`
}

type AgentService struct {
	repos    *repository.Repositories
	exporter *ExportService
	recorder *changeRecorder
}

func NewAgentService(repos *repository.Repositories, exporter *ExportService, recorder *changeRecorder) *AgentService {
	return &AgentService{repos: repos, exporter: exporter, recorder: recorder}
}

func (s *AgentService) Create(ctx context.Context, actor Actor, in AgentInput) (*models.Agent, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("name", "agent.name_required", "agent name is required")
	}
	if email := strings.TrimSpace(in.Email); email != "" && !strings.Contains(email, "@") {
		return nil, invalid("email", "agent.email_invalid", "email address is not valid")
	}

	agent := &models.Agent{
		Name:  name,
		Email: optional(strings.ToLower(in.Email)),
		Phone: optional(in.Phone),
		Role:  strings.TrimSpace(in.Role),
	}
	if agent.Role == "" {
		agent.Role = "agent"
	}
	if err := s.repos.Agent.Create(ctx, agent); err != nil {
		return nil, translateErr("agent", err)
	}

	s.recorder.record(ctx, actor, models.AuditActionCreate, "agent", agent.ID, "Agent "+agent.Name, nil)
	return agent, nil
}

func (s *AgentService) List(ctx context.Context, query *repository.ListQuery) ([]models.Agent, int64, error) {
	return s.repos.Agent.List(ctx, query)
}

func (s *AgentService) GetByName(ctx context.Context, name string) (*models.Agent, error) {
	agent, err := s.repos.Agent.FindByName(ctx, strings.TrimSpace(name))
	return agent, translateErr("agent", err)
}

// GetStatement aggregates every policy sold through an agent. Cancelled
// policies are listed but their remaining debt is not owed.
func (s *AgentService) GetStatement(ctx context.Context, agentName string) (*models.AgentStatement, error) {
	agent, err := s.GetByName(ctx, agentName)
	if err != nil {
		return nil, err
	}

	policies, err := s.repos.Policy.ListByAgent(ctx, agent.ID)
	if err != nil {
		return nil, err
	}

	return buildStatement(agent, policies), nil
}

func buildStatement(agent *models.Agent, policies []models.InsurancePolicy) *models.AgentStatement {
	st := &models.AgentStatement{
		Agent:          *agent,
		TotalPaid:      decimal.Zero,
		TotalDebts:     decimal.Zero,
		TotalToAgent:   decimal.Zero,
		TotalFromAgent: decimal.Zero,
		InsuranceList:  make([]models.AgentStatementLine, 0, len(policies)),
	}

	for i := range policies {
		p := &policies[i]
		line := models.AgentStatementLine{
			ID:          p.ID,
			CustomerID:  p.CustomerID,
			Company:     p.Company,
			Type:        p.Type,
			Amount:      p.Amount,
			Paid:        p.PaidAmount,
			Remaining:   p.RemainingDebt(),
			AgentFlow:   p.AgentFlow,
			AgentAmount: p.AgentAmount,
			StartDate:   p.StartDate,
			EndDate:     p.EndDate,
			Status:      p.Status,
		}
		if p.Customer != nil {
			line.CustomerName = p.Customer.FullName
		}
		if p.Vehicle != nil {
			line.PlateNumber = p.Vehicle.PlateNumber
		}
		if len(p.Payments) > 0 {
			line.PaymentMethod = p.Payments[0].Method
		}
		st.InsuranceList = append(st.InsuranceList, line)

		st.TotalPaid = st.TotalPaid.Add(p.PaidAmount)
		if p.Status != models.PolicyStatusCancelled {
			st.TotalDebts = st.TotalDebts.Add(p.RemainingDebt())
		}
		switch p.AgentFlow {
		case models.AgentFlowToAgent:
			st.TotalToAgent = st.TotalToAgent.Add(p.AgentAmount)
		case models.AgentFlowFromAgent:
			st.TotalFromAgent = st.TotalFromAgent.Add(p.AgentAmount)
		}
	}

	st.NetAgentBalance = st.TotalToAgent.Sub(st.TotalFromAgent)
	return st
}

// ExportStatement renders an agent statement in the requested format
func (s *AgentService) ExportStatement(ctx context.Context, agentName, format string) (*ExportFile, error) {
	st, err := s.GetStatement(ctx, agentName)
	if err != nil {
		return nil, err
	}

	table := Table{
		Title:   "Agent statement - " + st.Agent.Name,
		Name:    "agent_statement_" + strings.ReplaceAll(strings.ToLower(st.Agent.Name), " ", "_"),
		Headers: []string{"Policy", "Customer", "Plate", "Company", "Type", "Amount", "Paid", "Remaining", "Agent flow", "Agent amount", "Method", "Start", "End", "Status"},
	}
	for _, l := range st.InsuranceList {
		table.Rows = append(table.Rows, []string{
			fmt.Sprintf("%d", l.ID),
			l.CustomerName,
			l.PlateNumber,
			l.Company,
			l.Type,
			l.Amount.StringFixed(2),
			l.Paid.StringFixed(2),
			l.Remaining.StringFixed(2),
			l.AgentFlow,
			l.AgentAmount.StringFixed(2),
			l.PaymentMethod,
			l.StartDate.Format(models.DateLayout),
			l.EndDate.Format(models.DateLayout),
			l.Status,
		})
	}
	table.Footer = []string{"Total", "", "", "", "", "", st.TotalPaid.StringFixed(2), st.TotalDebts.StringFixed(2),
		"net", st.NetAgentBalance.StringFixed(2), "", "", "", ""}

	return s.exporter.Export(format, table)
}
