package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/insurance-api/internal/config"
	"github.com/sjperalta/insurance-api/internal/models"
	"github.com/sjperalta/insurance-api/internal/repository"
)

// NotificationService fans office and customer notices out over email and SMS
type NotificationService struct {
	email    *EmailService
	sms      *SMSService
	userRepo repository.UserRepository
	cfg      *config.Config
}

func NewNotificationService(email *EmailService, sms *SMSService, userRepo repository.UserRepository, cfg *config.Config) *NotificationService {
	return &NotificationService{email: email, sms: sms, userRepo: userRepo, cfg: cfg}
}

// adminRecipients merges ADMIN_EMAILS with active admin accounts
func (s *NotificationService) adminRecipients(ctx context.Context) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(addr string) {
		addr = strings.ToLower(strings.TrimSpace(addr))
		if addr != "" && !seen[addr] {
			seen[addr] = true
			out = append(out, addr)
		}
	}

	for _, addr := range s.cfg.AdminEmails {
		add(addr)
	}
	if admins, err := s.userRepo.FindAdmins(ctx); err == nil {
		for _, admin := range admins {
			add(admin.Email)
		}
	}
	return out
}

// NotifyChequeReturned emails the office and texts the customer
func (s *NotificationService) NotifyChequeReturned(ctx context.Context, cheque *models.Cheque, customer *models.Customer) error {
	var errs []error

	if recipients := s.adminRecipients(ctx); len(recipients) > 0 {
		if err := s.email.SendChequeReturned(ctx, recipients, cheque, customer); err != nil {
			errs = append(errs, fmt.Errorf("email: %w", err))
		}
	}

	if customer != nil && customer.Phone != "" {
		body := fmt.Sprintf("Dear %s, your cheque %s for %s was returned by the bank. Please contact our office to settle the payment.",
			customer.FullName, cheque.ChequeNumber, cheque.Amount.StringFixed(2))
		if err := s.sms.Send(ctx, customer.Phone, body); err != nil {
			errs = append(errs, fmt.Errorf("sms: %w", err))
		}
	}

	return errors.Join(errs...)
}

// SendChequeReminderDigest emails the list of due cheques to the office
func (s *NotificationService) SendChequeReminderDigest(ctx context.Context, cheques []models.Cheque) error {
	recipients := s.adminRecipients(ctx)
	if len(recipients) == 0 || len(cheques) == 0 {
		return nil
	}
	return s.email.SendChequeReminders(ctx, recipients, cheques)
}

func sumCheques(cheques []models.Cheque) decimal.Decimal {
	amounts := make([]decimal.Decimal, len(cheques))
	for i := range cheques {
		amounts[i] = cheques[i].Amount
	}
	return models.SumAmounts(amounts...)
}
