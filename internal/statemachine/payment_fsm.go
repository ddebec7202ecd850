package statemachine

import (
	"context"
	"fmt"
	"time"

	"github.com/looplab/fsm"
	"github.com/sjperalta/insurance-api/internal/models"
)

// PaymentFSM wraps a gateway payment with its state machine
type PaymentFSM struct {
	payment *models.Payment
	fsm     *fsm.FSM
}

// NewPaymentFSM creates a new payment state machine
func NewPaymentFSM(payment *models.Payment) *PaymentFSM {
	pfsm := &PaymentFSM{
		payment: payment,
	}

	pfsm.fsm = fsm.NewFSM(
		payment.Status,
		fsm.Events{
			// awaiting gateway → confirmed
			{Name: "confirm", Src: []string{models.PaymentStatusAwaitingGateway}, Dst: models.PaymentStatusConfirmed},

			// awaiting gateway → failed
			{Name: "fail", Src: []string{models.PaymentStatusAwaitingGateway}, Dst: models.PaymentStatusFailed},
		},
		fsm.Callbacks{
			"enter_" + models.PaymentStatusConfirmed: func(_ context.Context, _ *fsm.Event) {
				now := time.Now()
				payment.ConfirmedAt = &now
			},
		},
	)

	return pfsm
}

// Confirm transitions payment to confirmed state
func (p *PaymentFSM) Confirm(ctx context.Context) error {
	if !p.payment.MayConfirm() {
		return fmt.Errorf("%w: payment cannot be confirmed in current state: %s", ErrInvalidTransition, p.payment.Status)
	}

	if err := p.fsm.Event(ctx, "confirm"); err != nil {
		return fmt.Errorf("failed to confirm payment: %w", err)
	}

	p.payment.Status = p.fsm.Current()
	return nil
}

// Fail transitions payment to failed state
func (p *PaymentFSM) Fail(ctx context.Context) error {
	if !p.payment.MayFail() {
		return fmt.Errorf("%w: payment cannot be failed in current state: %s", ErrInvalidTransition, p.payment.Status)
	}

	if err := p.fsm.Event(ctx, "fail"); err != nil {
		return fmt.Errorf("failed to fail payment: %w", err)
	}

	p.payment.Status = p.fsm.Current()
	return nil
}

// Current returns the current state
func (p *PaymentFSM) Current() string {
	return p.fsm.Current()
}

// Can checks if a transition is possible
func (p *PaymentFSM) Can(event string) bool {
	return p.fsm.Can(event)
}
