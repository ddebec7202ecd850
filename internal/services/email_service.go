package services

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/resend/resend-go/v2"
	"github.com/sjperalta/insurance-api/internal/config"
	"github.com/sjperalta/insurance-api/internal/models"
	"github.com/sjperalta/insurance-api/pkg/logger"
)

//go:embed templates/email/*.html
var emailTemplates embed.FS

type EmailService struct {
	config       *config.Config
	resendClient *resend.Client
}

func NewEmailService(cfg *config.Config) *EmailService {
	client := resend.NewClient(cfg.ResendAPIKey)
	return &EmailService{
		config:       cfg,
		resendClient: client,
	}
}

// checkEmailPreconditions reports whether an email may be sent. A disabled
// feature is not an error; missing configuration is.
func (s *EmailService) checkEmailPreconditions(to []string, operation string) (bool, error) {
	if !s.config.EnableEmailNotifications {
		logger.Debug("email notifications disabled", "operation", operation)
		return false, nil
	}
	if s.config.ResendAPIKey == "" {
		return false, errors.New("RESEND_API_KEY is not set")
	}
	if len(to) == 0 {
		return false, errors.New("email address is empty")
	}
	for _, addr := range to {
		if strings.TrimSpace(addr) == "" {
			return false, errors.New("email address is empty")
		}
	}
	return true, nil
}

func (s *EmailService) send(to []string, subject, templateName string, data interface{}) error {
	ok, err := s.checkEmailPreconditions(to, subject)
	if !ok {
		return err
	}

	body, err := s.renderTemplate(templateName, data)
	if err != nil {
		return err
	}

	params := &resend.SendEmailRequest{
		From:    s.config.FromEmail,
		To:      to,
		Subject: subject,
		Html:    body,
	}
	if _, err := s.resendClient.Emails.Send(params); err != nil {
		logger.Error("failed to send email", "to", strings.Join(to, ","), "subject", subject, "error", err)
		return err
	}

	logger.Info("email sent", "to", strings.Join(to, ","), "subject", subject)
	return nil
}

// SendChequeReturned tells the office that a cheque bounced
func (s *EmailService) SendChequeReturned(ctx context.Context, to []string, cheque *models.Cheque, customer *models.Customer) error {
	data := struct {
		CustomerName string
		CustomerID   string
		Phone        string
		ChequeNumber string
		Amount       string
		ChequeDate   string
		Reason       string
	}{
		ChequeNumber: cheque.ChequeNumber,
		Amount:       cheque.Amount.StringFixed(2),
		ChequeDate:   cheque.ChequeDate.Format(models.DateLayout),
		Reason:       getStringValue(cheque.ReturnedReason),
	}
	if customer != nil {
		data.CustomerName = customer.FullName
		data.CustomerID = customer.Identity
		data.Phone = customer.Phone
	}

	return s.send(to, fmt.Sprintf("Returned cheque %s", cheque.ChequeNumber), "cheque_returned.html", data)
}

// SendChequeReminders sends the digest of pending cheques that are due
func (s *EmailService) SendChequeReminders(ctx context.Context, to []string, cheques []models.Cheque) error {
	type row struct {
		Number   string
		Customer string
		Amount   string
		Date     string
	}
	rows := make([]row, 0, len(cheques))
	for _, c := range cheques {
		r := row{Number: c.ChequeNumber, Amount: c.Amount.StringFixed(2), Date: c.ChequeDate.Format(models.DateLayout)}
		if c.Customer != nil {
			r.Customer = c.Customer.FullName
		}
		rows = append(rows, r)
	}

	data := struct {
		Count   int
		Cheques []row
		Total   string
	}{
		Count:   len(cheques),
		Cheques: rows,
		Total:   sumCheques(cheques).StringFixed(2),
	}

	return s.send(to, fmt.Sprintf("%d cheques due for deposit", len(cheques)), "cheque_reminders.html", data)
}

func (s *EmailService) renderTemplate(name string, data interface{}) (string, error) {
	tmpl, err := template.ParseFS(emailTemplates, "templates/email/"+name)
	if err != nil {
		return "", fmt.Errorf("failed to parse template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}

	return buf.String(), nil
}

// Helper function to safely get string from pointer
func getStringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
