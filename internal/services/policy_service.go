package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/insurance-api/internal/config"
	"github.com/sjperalta/insurance-api/internal/events"
	"github.com/sjperalta/insurance-api/internal/models"
	"github.com/sjperalta/insurance-api/internal/repository"
	"github.com/sjperalta/insurance-api/internal/statemachine"
	"github.com/sjperalta/insurance-api/pkg/logger"
)

// CreatePolicyInput is the body of an add-insurance request
type CreatePolicyInput struct {
	Type        string          `json:"type"`
	Company     string          `json:"company"`
	Amount      decimal.Decimal `json:"insurance_amount"`
	StartDate   *models.Date    `json:"start_date"`
	EndDate     *models.Date    `json:"end_date"`
	AgentID     *uint           `json:"agent_id"`
	AgentName   string          `json:"agent_name"`
	AgentFlow   string          `json:"agent_flow"`
	AgentAmount decimal.Decimal `json:"agent_amount"`
	Notes       string          `json:"notes"`
	Payments    []PaymentInput  `json:"payments"`
}

// CancelPolicyInput describes the refund that goes with a cancellation
type CancelPolicyInput struct {
	RefundAmount  decimal.Decimal `json:"refund_amount"`
	PaidBy        string          `json:"paid_by"`
	PaymentMethod string          `json:"payment_method"`
	Description   string          `json:"description"`
}

// TransferPolicyInput describes a move to another vehicle and its two fee legs
type TransferPolicyInput struct {
	ToVehicleID           uint            `json:"to_vehicle_id"`
	CustomerFee           decimal.Decimal `json:"customer_fee"`
	CompanyFee            decimal.Decimal `json:"company_fee"`
	CustomerPaymentMethod string          `json:"customer_payment_method"`
	CompanyPaidBy         string          `json:"company_paid_by"`
	CompanyPaymentMethod  string          `json:"company_payment_method"`
	Description           string          `json:"description"`
}

// PaymentResult is a recorded payment plus what the client needs next
type PaymentResult struct {
	Payment     *models.Payment         `json:"-"`
	Policy      *models.InsurancePolicy `json:"-"`
	RedirectURL string                  `json:"redirect_url,omitempty"`
}

type PolicyService struct {
	repos    *repository.Repositories
	cfg      *config.Config
	recorder *changeRecorder
	now      func() time.Time
}

func NewPolicyService(repos *repository.Repositories, cfg *config.Config, recorder *changeRecorder) *PolicyService {
	return &PolicyService{repos: repos, cfg: cfg, recorder: recorder, now: time.Now}
}

func (s *PolicyService) FindByID(ctx context.Context, id uint) (*models.InsurancePolicy, error) {
	policy, err := s.repos.Policy.FindByIDWithDetails(ctx, id)
	return policy, translateErr("policy", err)
}

func (s *PolicyService) List(ctx context.Context, query *repository.PolicyQuery) ([]models.InsurancePolicy, int64, error) {
	return s.repos.Policy.List(ctx, query)
}

func (s *PolicyService) ListByVehicle(ctx context.Context, vehicleID uint) ([]models.InsurancePolicy, error) {
	return s.repos.Policy.ListByVehicle(ctx, vehicleID)
}

// validateCreate checks type, company, amount, payments and agent flow in
// that order and returns the non-blank payments with their variants.
func (s *PolicyService) validateCreate(in *CreatePolicyInput) ([]PaymentInput, []models.PaymentDetails, error) {
	if strings.TrimSpace(in.Type) == "" {
		return nil, nil, invalid("type", "policy.type_required", "insurance type is required")
	}
	if strings.TrimSpace(in.Company) == "" {
		return nil, nil, invalid("company", "policy.company_required", "insurance company is required")
	}
	if !in.Amount.IsPositive() {
		return nil, nil, invalid("insurance_amount", "policy.amount_invalid", "insurance amount must be greater than zero")
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(in.StartDate.Time) {
		return nil, nil, invalid("end_date", "policy.dates_invalid", "end date must not be before start date")
	}

	var rows []PaymentInput
	hasUsable := false
	for _, p := range in.Payments {
		if p.isBlank() {
			continue
		}
		rows = append(rows, p)
		if p.Amount.IsPositive() && strings.TrimSpace(p.PaymentMethod) != "" {
			hasUsable = true
		}
	}
	if !hasUsable {
		return nil, nil, invalid("payments", "policy.payment_required", "at least one payment with an amount and a method is required")
	}

	details := make([]models.PaymentDetails, 0, len(rows))
	total := decimal.Zero
	for _, row := range rows {
		d, err := validatePayment(row)
		if err != nil {
			return nil, nil, err
		}
		details = append(details, d)
		total = total.Add(row.Amount)
	}

	flow := strings.TrimSpace(in.AgentFlow)
	if flow == "" {
		flow = models.AgentFlowNone
	}
	if !models.IsValidAgentFlow(flow) {
		return nil, nil, invalid("agent_flow", "policy.agent_flow_invalid", "agent flow must be one of none, to_agent, from_agent")
	}
	if flow != models.AgentFlowNone {
		if in.AgentID == nil && strings.TrimSpace(in.AgentName) == "" {
			return nil, nil, invalid("agent", "policy.agent_required", "an agent is required when agent flow is set")
		}
		if !in.AgentAmount.IsPositive() {
			return nil, nil, invalid("agent_amount", "policy.agent_amount_invalid", "agent amount must be greater than zero")
		}
	}
	in.AgentFlow = flow

	if s.cfg != nil && s.cfg.RejectOverpayment && total.GreaterThan(in.Amount) {
		return nil, nil, invalid("payments", "policy.overpayment", "payments exceed the insurance amount")
	}

	return rows, details, nil
}

// resolveAgent finds the agent by id or, failing that, by name
func (s *PolicyService) resolveAgent(ctx context.Context, repos *repository.Repositories, in *CreatePolicyInput) (*models.Agent, error) {
	if in.AgentID != nil {
		agent, err := repos.Agent.FindByID(ctx, *in.AgentID)
		if err != nil {
			return nil, invalid("agent", "policy.agent_not_found", "agent not found")
		}
		return agent, nil
	}
	if name := strings.TrimSpace(in.AgentName); name != "" {
		agent, err := repos.Agent.FindByName(ctx, name)
		if err != nil {
			return nil, invalid("agent", "policy.agent_not_found", "agent not found")
		}
		return agent, nil
	}
	return nil, nil
}

// CreatePolicy adds a policy to a customer's vehicle together with its
// initial payments and agent flow entry, in one transaction.
func (s *PolicyService) CreatePolicy(ctx context.Context, actor Actor, customerID, vehicleID uint, in CreatePolicyInput) (*models.InsurancePolicy, error) {
	rows, details, err := s.validateCreate(&in)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var policyID uint

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		vehicle, err := tx.Vehicle.FindByID(ctx, vehicleID)
		if err != nil {
			return translateErr("vehicle", err)
		}
		if vehicle.CustomerID != customerID {
			return &NotFoundError{Entity: "vehicle", MessageKey: "vehicle.not_found"}
		}

		agent, err := s.resolveAgent(ctx, tx, &in)
		if err != nil {
			return err
		}

		start := in.StartDate.Or(now)
		policy := &models.InsurancePolicy{
			CustomerID:  customerID,
			VehicleID:   vehicleID,
			Type:        strings.TrimSpace(in.Type),
			Company:     strings.TrimSpace(in.Company),
			Amount:      in.Amount.Round(2),
			StartDate:   start,
			EndDate:     in.EndDate.Or(start.AddDate(1, 0, 0)),
			Status:      models.PolicyStatusActive,
			AgentFlow:   in.AgentFlow,
			AgentAmount: in.AgentAmount.Round(2),
			CreatedByID: actor.createdBy(),
		}
		if agent != nil {
			policy.AgentID = &agent.ID
		}
		if notes := strings.TrimSpace(in.Notes); notes != "" {
			policy.Notes = &notes
		}
		if err := tx.Policy.Create(ctx, policy); err != nil {
			return fmt.Errorf("failed to create policy: %w", err)
		}

		for i, row := range rows {
			payment := buildPayment(row, details[i], customerID, &policy.ID, actor, now)
			if err := insertPayment(ctx, tx, payment, row.BankName, actor); err != nil {
				return err
			}
		}

		if policy.AgentFlow != models.AgentFlowNone {
			entry := agentFlowEntry(policy, actor, now)
			if err := tx.Ledger.Create(ctx, entry); err != nil {
				return fmt.Errorf("failed to record agent flow: %w", err)
			}
		}

		if err := syncPaidAmount(ctx, tx, policy); err != nil {
			return err
		}
		policyID = policy.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	policy, err := s.FindByID(ctx, policyID)
	if err != nil {
		return nil, err
	}

	logger.Info("policy created", "policy_id", policy.ID, "vehicle_id", vehicleID, "paid", policy.PaidAmount.String())
	event := events.NewEvent(events.PolicyCreated, policy.ID, policy.ToResponse())
	s.recorder.record(ctx, actor, models.AuditActionCreate, "policy", policy.ID,
		fmt.Sprintf("Policy %s/%s for %s", policy.Company, policy.Type, policy.Amount.StringFixed(2)), &event)

	return policy, nil
}

// AddPayment appends a payment to an active policy. The amount may not
// exceed what is still outstanding, counting card payments that are waiting
// for the gateway as already spoken for.
func (s *PolicyService) AddPayment(ctx context.Context, actor Actor, policyID uint, in PaymentInput) (*PaymentResult, error) {
	now := s.now()
	details, err := validatePayment(in)
	if err != nil {
		return nil, err
	}

	var payment *models.Payment
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		policy, err := tx.Policy.FindByIDForUpdate(ctx, policyID)
		if err != nil {
			return translateErr("policy", err)
		}
		if !policy.IsActive() {
			return fmt.Errorf("policy is %s: %w", policy.Status, ErrInvalidState)
		}

		existing, err := tx.Payment.FindByPolicy(ctx, policy.ID)
		if err != nil {
			return err
		}
		outstanding := outstandingDebt(policy, existing)
		if in.Amount.GreaterThan(outstanding) {
			return invalid("amount", "payment.exceeds_remaining",
				fmt.Sprintf("amount exceeds the remaining debt of %s", outstanding.StringFixed(2)))
		}

		payment = buildPayment(in, details, policy.CustomerID, &policy.ID, actor, now)
		if err := insertPayment(ctx, tx, payment, in.BankName, actor); err != nil {
			return err
		}
		return syncPaidAmount(ctx, tx, policy)
	})
	if err != nil {
		return nil, err
	}

	policy, err := s.FindByID(ctx, policyID)
	if err != nil {
		return nil, err
	}

	event := events.NewEvent(events.PaymentRecorded, payment.ID, payment.ToResponse())
	s.recorder.record(ctx, actor, models.AuditActionCreate, "payment", payment.ID,
		fmt.Sprintf("Payment %s %s on policy #%d", payment.Amount.StringFixed(2), payment.Method, policyID), &event)

	result := &PaymentResult{Payment: payment, Policy: policy}
	if s.cfg != nil {
		result.RedirectURL = gatewayRedirectURL(s.cfg.PaymentGatewayURL, payment)
	}
	return result, nil
}

// CancelPolicy moves a policy to cancelled and records the refund, if any.
// A second cancel fails with ErrInvalidState.
func (s *PolicyService) CancelPolicy(ctx context.Context, actor Actor, policyID uint, in CancelPolicyInput) (*models.InsurancePolicy, error) {
	if in.RefundAmount.IsNegative() {
		return nil, invalid("refund_amount", "cancel.refund_invalid", "refund amount must not be negative")
	}
	method := strings.ToLower(strings.TrimSpace(in.PaymentMethod))
	if in.RefundAmount.IsPositive() {
		if strings.TrimSpace(in.PaidBy) == "" {
			return nil, invalid("paid_by", "cancel.paid_by_required", "payer is required for a refund")
		}
		if !models.IsValidPaymentMethod(method) {
			return nil, invalid("payment_method", "cancel.method_invalid", "refund payment method must be one of cash, card, cheque, bank_transfer")
		}
	}

	now := s.now()
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		policy, err := tx.Policy.FindByIDForUpdate(ctx, policyID)
		if err != nil {
			return translateErr("policy", err)
		}

		if err := statemachine.NewPolicyFSM(policy).Cancel(ctx); err != nil {
			return stateError(err)
		}
		policy.CancelledAt = &now
		if err := tx.Policy.Update(ctx, policy); err != nil {
			return fmt.Errorf("failed to cancel policy: %w", err)
		}

		if in.RefundAmount.IsPositive() {
			paidBy := strings.TrimSpace(in.PaidBy)
			entry := &models.LedgerEntry{
				Kind:          models.EntryKindRefund,
				Direction:     models.DirectionOut,
				Amount:        in.RefundAmount.Round(2),
				PaymentMethod: &method,
				PaidBy:        &paidBy,
				Description:   describe(in.Description, fmt.Sprintf("Refund on cancellation of policy #%d", policy.ID)),
				PolicyID:      &policy.ID,
				CustomerID:    &policy.CustomerID,
				ReceiptNumber: models.GenerateReceiptNumber(now),
				EntryDate:     now,
				CreatedByID:   actor.createdBy(),
			}
			if err := tx.Ledger.Create(ctx, entry); err != nil {
				return fmt.Errorf("failed to record refund: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	policy, err := s.FindByID(ctx, policyID)
	if err != nil {
		return nil, err
	}

	event := events.NewEvent(events.PolicyCancelled, policy.ID, map[string]interface{}{
		"refund_amount": in.RefundAmount,
	})
	s.recorder.record(ctx, actor, models.AuditActionCancel, "policy", policy.ID,
		fmt.Sprintf("Cancelled with refund %s", in.RefundAmount.StringFixed(2)), &event)

	return policy, nil
}

// validateTransfer checks the target vehicle and both fee legs
func validateTransfer(fromVehicleID uint, in *TransferPolicyInput) error {
	if in.ToVehicleID == 0 {
		return invalid("to_vehicle_id", "transfer.target_required", "target vehicle is required")
	}
	if in.ToVehicleID == fromVehicleID {
		return invalid("to_vehicle_id", "transfer.same_vehicle", "target vehicle must differ from the current vehicle")
	}
	if in.CustomerFee.IsNegative() {
		return invalid("customer_fee", "transfer.fee_invalid", "customer fee must not be negative")
	}
	if in.CompanyFee.IsNegative() {
		return invalid("company_fee", "transfer.fee_invalid", "company fee must not be negative")
	}

	in.CustomerPaymentMethod = strings.ToLower(strings.TrimSpace(in.CustomerPaymentMethod))
	in.CompanyPaymentMethod = strings.ToLower(strings.TrimSpace(in.CompanyPaymentMethod))

	if in.CustomerFee.IsPositive() && !models.IsValidPaymentMethod(in.CustomerPaymentMethod) {
		return invalid("customer_payment_method", "transfer.method_invalid", "customer fee needs a valid payment method")
	}
	if in.CompanyFee.IsPositive() {
		if strings.TrimSpace(in.CompanyPaidBy) == "" {
			return invalid("company_paid_by", "transfer.paid_by_required", "company fee needs a payer")
		}
		if !models.IsValidPaymentMethod(in.CompanyPaymentMethod) {
			return invalid("company_payment_method", "transfer.method_invalid", "company fee needs a valid payment method")
		}
	}
	return nil
}

// TransferPolicy moves an active policy from one vehicle to another vehicle
// of the same customer. The move and both fee entries commit together.
func (s *PolicyService) TransferPolicy(ctx context.Context, actor Actor, policyID, fromVehicleID uint, in TransferPolicyInput) (*models.InsurancePolicy, error) {
	if err := validateTransfer(fromVehicleID, &in); err != nil {
		return nil, err
	}

	now := s.now()
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		policy, err := tx.Policy.FindByIDForUpdate(ctx, policyID)
		if err != nil {
			return translateErr("policy", err)
		}
		if !policy.MayTransfer() {
			return fmt.Errorf("policy is %s: %w", policy.Status, ErrInvalidState)
		}
		if policy.VehicleID != fromVehicleID {
			return invalid("from_vehicle_id", "transfer.vehicle_mismatch", "policy is not on the source vehicle")
		}

		target, err := tx.Vehicle.FindByID(ctx, in.ToVehicleID)
		if err != nil {
			return translateErr("vehicle", err)
		}
		if target.CustomerID != policy.CustomerID {
			return invalid("to_vehicle_id", "transfer.other_customer", "target vehicle belongs to another customer")
		}

		policy.PreviousVehicleID = &fromVehicleID
		policy.VehicleID = target.ID
		policy.TransferredAt = &now
		if err := tx.Policy.Update(ctx, policy); err != nil {
			return fmt.Errorf("failed to move policy: %w", err)
		}

		description := describe(in.Description, fmt.Sprintf("Transfer of policy #%d from vehicle #%d to #%d", policy.ID, fromVehicleID, target.ID))

		if in.CustomerFee.IsPositive() {
			entry := &models.LedgerEntry{
				Kind:          models.EntryKindTransferCustomerFee,
				Direction:     models.DirectionIn,
				Amount:        in.CustomerFee.Round(2),
				PaymentMethod: &in.CustomerPaymentMethod,
				Description:   description,
				PolicyID:      &policy.ID,
				CustomerID:    &policy.CustomerID,
				ReceiptNumber: models.GenerateReceiptNumber(now),
				EntryDate:     now,
				CreatedByID:   actor.createdBy(),
			}
			if err := tx.Ledger.Create(ctx, entry); err != nil {
				return fmt.Errorf("failed to record customer fee: %w", err)
			}
		}

		if in.CompanyFee.IsPositive() {
			paidBy := strings.TrimSpace(in.CompanyPaidBy)
			entry := &models.LedgerEntry{
				Kind:          models.EntryKindTransferCompanyFee,
				Direction:     models.DirectionOut,
				Amount:        in.CompanyFee.Round(2),
				PaymentMethod: &in.CompanyPaymentMethod,
				PaidBy:        &paidBy,
				Description:   description,
				PolicyID:      &policy.ID,
				CustomerID:    &policy.CustomerID,
				ReceiptNumber: models.GenerateReceiptNumber(now),
				EntryDate:     now,
				CreatedByID:   actor.createdBy(),
			}
			if err := tx.Ledger.Create(ctx, entry); err != nil {
				return fmt.Errorf("failed to record company fee: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	policy, err := s.FindByID(ctx, policyID)
	if err != nil {
		return nil, err
	}

	event := events.NewEvent(events.PolicyTransferred, policy.ID, map[string]interface{}{
		"from_vehicle_id": fromVehicleID,
		"to_vehicle_id":   in.ToVehicleID,
		"customer_fee":    in.CustomerFee,
		"company_fee":     in.CompanyFee,
	})
	s.recorder.record(ctx, actor, models.AuditActionTransfer, "policy", policy.ID,
		fmt.Sprintf("Moved from vehicle #%d to #%d", fromVehicleID, in.ToVehicleID), &event)

	return policy, nil
}

// ExpirePolicies marks active policies whose end date has passed as expired
func (s *PolicyService) ExpirePolicies(ctx context.Context) (int, error) {
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	policies, err := s.repos.Policy.FindExpiring(ctx, today)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range policies {
		policy := &policies[i]
		if err := statemachine.NewPolicyFSM(policy).Expire(ctx); err != nil {
			logger.Warn("skipping policy expiry", "policy_id", policy.ID, "error", err)
			continue
		}
		if err := s.repos.Policy.Update(ctx, policy); err != nil {
			return expired, fmt.Errorf("failed to expire policy %d: %w", policy.ID, err)
		}
		expired++
		event := events.NewEvent(events.PolicyExpired, policy.ID, nil)
		s.recorder.publish(event)
	}

	if expired > 0 {
		s.recorder.invalidateDashboard(ctx)
		logger.Info("expired policies", "count", expired)
	}
	return expired, nil
}

// insertPayment stores a payment and, for cheques, its linked cheque record
func insertPayment(ctx context.Context, tx *repository.Repositories, payment *models.Payment, bankName string, actor Actor) error {
	if err := tx.Payment.Create(ctx, payment); err != nil {
		return translateErr("payment", err)
	}

	cheque := chequeForPayment(payment, bankName, actor)
	if cheque == nil {
		return nil
	}
	now := time.Now()
	cheque.StatusChangedAt = &now
	if err := tx.Cheque.Create(ctx, cheque); err != nil {
		return fmt.Errorf("failed to register cheque: %w", err)
	}
	if err := tx.Payment.LinkCheque(ctx, payment.ID, cheque.ID); err != nil {
		return fmt.Errorf("failed to link cheque: %w", err)
	}
	payment.ChequeID = &cheque.ID
	return nil
}

// syncPaidAmount recomputes PaidAmount from the policy's settled payments
func syncPaidAmount(ctx context.Context, tx *repository.Repositories, policy *models.InsurancePolicy) error {
	payments, err := tx.Payment.FindByPolicy(ctx, policy.ID)
	if err != nil {
		return err
	}
	policy.RecalculatePaid(payments)
	if err := tx.Policy.UpdatePaidAmount(ctx, policy.ID, policy.PaidAmount); err != nil {
		return fmt.Errorf("failed to update paid amount: %w", err)
	}
	return nil
}

// outstandingDebt is the remaining debt minus card payments still waiting
// for the gateway
func outstandingDebt(policy *models.InsurancePolicy, payments []models.Payment) decimal.Decimal {
	p := *policy
	p.RecalculatePaid(payments)
	outstanding := p.RemainingDebt()
	for i := range payments {
		if payments[i].IsAwaitingGateway() {
			outstanding = outstanding.Sub(payments[i].Amount)
		}
	}
	return outstanding
}

// agentFlowEntry records what the agency owes the agent or the agent owes
// the agency for a policy
func agentFlowEntry(policy *models.InsurancePolicy, actor Actor, now time.Time) *models.LedgerEntry {
	direction := models.DirectionIn
	if policy.AgentFlow == models.AgentFlowToAgent {
		direction = models.DirectionOut
	}
	return &models.LedgerEntry{
		Kind:          models.EntryKindAgentFlow,
		Direction:     direction,
		Amount:        policy.AgentAmount,
		Description:   fmt.Sprintf("Agent flow %s for policy #%d", policy.AgentFlow, policy.ID),
		PolicyID:      &policy.ID,
		CustomerID:    &policy.CustomerID,
		AgentID:       policy.AgentID,
		ReceiptNumber: models.GenerateReceiptNumber(now),
		EntryDate:     now,
		CreatedByID:   actor.createdBy(),
	}
}

// stateError maps a rejected FSM transition onto ErrInvalidState
func stateError(err error) error {
	if errors.Is(err, statemachine.ErrInvalidTransition) {
		return fmt.Errorf("%v: %w", err, ErrInvalidState)
	}
	return err
}

func describe(description, fallback string) string {
	if d := strings.TrimSpace(description); d != "" {
		return d
	}
	return fallback
}
