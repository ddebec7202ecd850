package statemachine

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"
	"github.com/sjperalta/insurance-api/internal/models"
)

// ChequeFSM wraps a cheque with its state machine
type ChequeFSM struct {
	cheque *models.Cheque
	fsm    *fsm.FSM
}

// NewChequeFSM creates a new cheque state machine
func NewChequeFSM(cheque *models.Cheque) *ChequeFSM {
	cfsm := &ChequeFSM{
		cheque: cheque,
	}

	cfsm.fsm = fsm.NewFSM(
		cheque.Status,
		fsm.Events{
			{Name: "clear", Src: []string{models.ChequeStatusPending}, Dst: models.ChequeStatusCleared},
			{Name: "return", Src: []string{models.ChequeStatusPending}, Dst: models.ChequeStatusReturned},
			{Name: "cancel", Src: []string{models.ChequeStatusPending}, Dst: models.ChequeStatusCancelled},
		},
		fsm.Callbacks{},
	)

	return cfsm
}

// eventFor maps a target status to the event that reaches it
func eventFor(status string) string {
	switch status {
	case models.ChequeStatusCleared:
		return "clear"
	case models.ChequeStatusReturned:
		return "return"
	case models.ChequeStatusCancelled:
		return "cancel"
	}
	return ""
}

// TransitionTo moves the cheque to status through a regular transition.
// Asking for the current status is a no-op.
func (c *ChequeFSM) TransitionTo(ctx context.Context, status string) error {
	if status == c.fsm.Current() && models.IsValidChequeStatus(status) {
		return nil
	}

	event := eventFor(status)
	if event == "" || !c.fsm.Can(event) {
		return fmt.Errorf("%w: cheque cannot move from %s to %s", ErrInvalidTransition, c.cheque.Status, status)
	}

	if err := c.fsm.Event(ctx, event); err != nil {
		return fmt.Errorf("failed to %s cheque: %w", event, err)
	}

	c.cheque.Status = c.fsm.Current()
	return nil
}

// Override forces the cheque into any valid status. Reserved for admins.
func (c *ChequeFSM) Override(status string) error {
	if !models.IsValidChequeStatus(status) {
		return fmt.Errorf("%w: unknown cheque status %q", ErrInvalidTransition, status)
	}

	c.fsm.SetState(status)
	c.cheque.Status = c.fsm.Current()
	return nil
}

// Current returns the current state
func (c *ChequeFSM) Current() string {
	return c.fsm.Current()
}

// Can checks if a transition is possible
func (c *ChequeFSM) Can(event string) bool {
	return c.fsm.Can(event)
}
