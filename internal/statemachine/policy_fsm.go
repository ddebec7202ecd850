package statemachine

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"
	"github.com/sjperalta/insurance-api/internal/models"
)

// ErrInvalidTransition is returned when an event is not allowed from the current state
var ErrInvalidTransition = errors.New("invalid state transition")

// PolicyFSM wraps an insurance policy with its state machine
type PolicyFSM struct {
	policy *models.InsurancePolicy
	fsm    *fsm.FSM
}

// NewPolicyFSM creates a new policy state machine
func NewPolicyFSM(policy *models.InsurancePolicy) *PolicyFSM {
	pfsm := &PolicyFSM{
		policy: policy,
	}

	pfsm.fsm = fsm.NewFSM(
		policy.Status,
		fsm.Events{
			// active/expired → cancelled (terminal)
			{Name: "cancel", Src: []string{models.PolicyStatusActive, models.PolicyStatusExpired}, Dst: models.PolicyStatusCancelled},

			// active → expired
			{Name: "expire", Src: []string{models.PolicyStatusActive}, Dst: models.PolicyStatusExpired},
		},
		fsm.Callbacks{},
	)

	return pfsm
}

// Cancel transitions policy to cancelled state
func (p *PolicyFSM) Cancel(ctx context.Context) error {
	if !p.policy.MayCancel() {
		return fmt.Errorf("%w: policy cannot be cancelled in current state: %s", ErrInvalidTransition, p.policy.Status)
	}

	if err := p.fsm.Event(ctx, "cancel"); err != nil {
		return fmt.Errorf("failed to cancel policy: %w", err)
	}

	p.policy.Status = p.fsm.Current()
	return nil
}

// Expire transitions policy to expired state
func (p *PolicyFSM) Expire(ctx context.Context) error {
	if !p.policy.MayExpire() {
		return fmt.Errorf("%w: policy cannot be expired in current state: %s", ErrInvalidTransition, p.policy.Status)
	}

	if err := p.fsm.Event(ctx, "expire"); err != nil {
		return fmt.Errorf("failed to expire policy: %w", err)
	}

	p.policy.Status = p.fsm.Current()
	return nil
}

// Current returns the current state
func (p *PolicyFSM) Current() string {
	return p.fsm.Current()
}

// Can checks if a transition is possible
func (p *PolicyFSM) Can(event string) bool {
	return p.fsm.Can(event)
}
