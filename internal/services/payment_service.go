package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sjperalta/insurance-api/internal/config"
	"github.com/sjperalta/insurance-api/internal/events"
	"github.com/sjperalta/insurance-api/internal/models"
	"github.com/sjperalta/insurance-api/internal/repository"
	"github.com/sjperalta/insurance-api/internal/statemachine"
	"github.com/sjperalta/insurance-api/pkg/logger"
)

// PaymentContext says what a payment is recorded against: a policy, or a
// customer in general. PolicyID wins when both are set.
type PaymentContext struct {
	PolicyID   uint
	CustomerID uint
}

// GatewayCallback is the hosted card page's signed result notification
type GatewayCallback struct {
	Reference string `json:"reference" binding:"required"`
	Status    string `json:"status" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// Gateway callback statuses
const (
	GatewayStatusSucceeded = "succeeded"
	GatewayStatusFailed    = "failed"
)

type PaymentService struct {
	repos     *repository.Repositories
	policySvc *PolicyService
	cfg       *config.Config
	recorder  *changeRecorder
	now       func() time.Time
}

func NewPaymentService(repos *repository.Repositories, policySvc *PolicyService, cfg *config.Config, recorder *changeRecorder) *PaymentService {
	return &PaymentService{repos: repos, policySvc: policySvc, cfg: cfg, recorder: recorder, now: time.Now}
}

func (s *PaymentService) FindByID(ctx context.Context, id uint) (*models.Payment, error) {
	payment, err := s.repos.Payment.FindByID(ctx, id)
	return payment, translateErr("payment", err)
}

func (s *PaymentService) List(ctx context.Context, query *repository.PaymentQuery) ([]models.Payment, int64, error) {
	return s.repos.Payment.List(ctx, query)
}

// RecordPayment records a payment against a policy or a customer
func (s *PaymentService) RecordPayment(ctx context.Context, actor Actor, pc PaymentContext, in PaymentInput) (*PaymentResult, error) {
	if pc.PolicyID != 0 {
		return s.policySvc.AddPayment(ctx, actor, pc.PolicyID, in)
	}
	if pc.CustomerID == 0 {
		return nil, invalid("context", "payment.context_required", "a policy or a customer is required")
	}

	now := s.now()
	details, err := validatePayment(in)
	if err != nil {
		return nil, err
	}

	var payment *models.Payment
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		if _, err := tx.Customer.FindByID(ctx, pc.CustomerID); err != nil {
			return translateErr("customer", err)
		}
		payment = buildPayment(in, details, pc.CustomerID, nil, actor, now)
		return insertPayment(ctx, tx, payment, in.BankName, actor)
	})
	if err != nil {
		return nil, err
	}

	event := events.NewEvent(events.PaymentRecorded, payment.ID, payment.ToResponse())
	s.recorder.record(ctx, actor, models.AuditActionCreate, "payment", payment.ID,
		fmt.Sprintf("Payment %s %s from customer #%d", payment.Amount.StringFixed(2), payment.Method, pc.CustomerID), &event)

	result := &PaymentResult{Payment: payment}
	if s.cfg != nil {
		result.RedirectURL = gatewayRedirectURL(s.cfg.PaymentGatewayURL, payment)
	}
	return result, nil
}

// ConfirmGatewayPayment applies a signed gateway callback. Replays of an
// already applied outcome return the payment unchanged.
func (s *PaymentService) ConfirmGatewayPayment(ctx context.Context, cb GatewayCallback) (*models.Payment, error) {
	status := strings.ToLower(strings.TrimSpace(cb.Status))
	if s.cfg == nil || !verifyGatewaySignature(s.cfg.PaymentGatewaySecret, cb.Reference, status, cb.Signature) {
		return nil, fmt.Errorf("gateway signature mismatch: %w", ErrUnauthorized)
	}
	if status != GatewayStatusSucceeded && status != GatewayStatusFailed {
		return nil, invalid("status", "gateway.status_invalid", "status must be succeeded or failed")
	}

	target := models.PaymentStatusConfirmed
	if status == GatewayStatusFailed {
		target = models.PaymentStatusFailed
	}

	var payment *models.Payment
	replay := false
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		var err error
		payment, err = tx.Payment.FindByGatewayReference(ctx, cb.Reference)
		if err != nil {
			return translateErr("payment", err)
		}
		if payment.Status == target {
			replay = true
			return nil
		}

		machine := statemachine.NewPaymentFSM(payment)
		if target == models.PaymentStatusConfirmed {
			err = machine.Confirm(ctx)
		} else {
			err = machine.Fail(ctx)
		}
		if err != nil {
			return stateError(err)
		}
		if err := tx.Payment.UpdateStatus(ctx, payment); err != nil {
			return fmt.Errorf("failed to update payment status: %w", err)
		}

		if payment.PolicyID != nil {
			policy, err := tx.Policy.FindByIDForUpdate(ctx, *payment.PolicyID)
			if err != nil {
				return translateErr("policy", err)
			}
			return syncPaidAmount(ctx, tx, policy)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if replay {
		return payment, nil
	}

	eventType := events.PaymentConfirmed
	if target == models.PaymentStatusFailed {
		eventType = events.PaymentFailed
	}
	logger.Info("gateway callback applied", "payment_id", payment.ID, "status", payment.Status)
	event := events.NewEvent(eventType, payment.ID, payment.ToResponse())
	s.recorder.record(ctx, SystemActor, models.AuditActionStatus, "payment", payment.ID, "Gateway "+status, &event)

	return payment, nil
}
