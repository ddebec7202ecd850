package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sjperalta/insurance-api/internal/models"
)

// MaxNotesLength bounds payment notes
const MaxNotesLength = 500

// PaymentInput is one payment as submitted by a client. Cheque fields are
// read only when PaymentMethod is cheque.
type PaymentInput struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	PaymentDate   *models.Date    `json:"payment_date"`
	Notes         string          `json:"notes"`
	ReceiptNumber string          `json:"receipt_number"`
	ChequeNumber  string          `json:"cheque_number"`
	ChequeDate    *models.Date    `json:"cheque_date"`
	ChequeStatus  string          `json:"cheque_status"`
	BankName      string          `json:"bank_name"`
}

// isBlank reports a form row the client left empty
func (in PaymentInput) isBlank() bool {
	return in.Amount.IsZero() && strings.TrimSpace(in.PaymentMethod) == ""
}

// validatePayment checks amount, method, cheque fields and notes, in that
// order, and returns the method variant. Only the first failure is reported.
func validatePayment(in PaymentInput) (models.PaymentDetails, error) {
	if !in.Amount.IsPositive() {
		return nil, invalid("amount", "payment.amount_invalid", "amount must be greater than zero")
	}

	method := strings.ToLower(strings.TrimSpace(in.PaymentMethod))
	if !models.IsValidPaymentMethod(method) {
		return nil, invalid("payment_method", "payment.method_invalid", "payment method must be one of cash, card, cheque, bank_transfer")
	}

	var details models.PaymentDetails
	switch method {
	case models.PaymentMethodCash:
		details = models.CashDetails{}
	case models.PaymentMethodCard:
		details = models.CardDetails{}
	case models.PaymentMethodBankTransfer:
		details = models.BankTransferDetails{}
	case models.PaymentMethodCheque:
		number := strings.TrimSpace(in.ChequeNumber)
		if number == "" {
			return nil, invalid("cheque_number", "payment.cheque_number_required", "cheque number is required for cheque payments")
		}
		if in.ChequeDate == nil || in.ChequeDate.IsZero() {
			return nil, invalid("cheque_date", "payment.cheque_date_required", "cheque date is required for cheque payments")
		}
		status := models.ChequeStatusPending
		if in.ChequeStatus != "" {
			status = models.NormalizeChequeStatus(in.ChequeStatus)
		}
		if !models.IsValidChequeStatus(status) {
			return nil, invalid("cheque_status", "payment.cheque_status_invalid", "cheque status must be one of pending, cleared, returned, cancelled")
		}
		details = models.ChequeDetails{
			Number: number,
			Date:   in.ChequeDate.Time,
			Status: status,
		}
	}

	if utf8.RuneCountInString(in.Notes) > MaxNotesLength {
		return nil, invalid("notes", "payment.notes_too_long", fmt.Sprintf("notes must be at most %d characters", MaxNotesLength))
	}

	return details, nil
}

// buildPayment turns a validated input into a payment row
func buildPayment(in PaymentInput, details models.PaymentDetails, customerID uint, policyID *uint, actor Actor, now time.Time) *models.Payment {
	payment := models.NewPayment(in.Amount.Round(2), in.PaymentDate.Or(now), details)
	payment.CustomerID = customerID
	payment.PolicyID = policyID
	payment.RecordedByID = actor.createdBy()

	if notes := strings.TrimSpace(in.Notes); notes != "" {
		payment.Notes = &notes
	}

	payment.ReceiptNumber = strings.TrimSpace(in.ReceiptNumber)
	if payment.ReceiptNumber == "" {
		payment.ReceiptNumber = models.GenerateReceiptNumber(now)
	}

	if payment.IsAwaitingGateway() {
		ref := strings.ReplaceAll(uuid.NewString(), "-", "")
		payment.GatewayReference = &ref
	}

	return payment
}

// chequeForPayment registers the instrument behind a cheque payment
func chequeForPayment(payment *models.Payment, bankName string, actor Actor) *models.Cheque {
	details, ok := payment.Details().(models.ChequeDetails)
	if !ok {
		return nil
	}

	cheque := &models.Cheque{
		ChequeNumber: details.Number,
		Amount:       payment.Amount,
		ChequeDate:   details.Date,
		Status:       details.Status,
		CustomerID:   &payment.CustomerID,
		PolicyID:     payment.PolicyID,
		PaymentID:    &payment.ID,
		CreatedByID:  actor.createdBy(),
	}
	if bank := strings.TrimSpace(bankName); bank != "" {
		cheque.BankName = &bank
	}
	return cheque
}

// gatewayRedirectURL builds the hosted card page link for a pending payment
func gatewayRedirectURL(base string, payment *models.Payment) string {
	if payment.GatewayReference == nil || base == "" {
		return ""
	}
	q := url.Values{}
	q.Set("reference", *payment.GatewayReference)
	q.Set("amount", payment.Amount.StringFixed(2))
	q.Set("receipt", payment.ReceiptNumber)

	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + q.Encode()
}

// SignGatewayCallback computes the callback signature over reference and status
func SignGatewayCallback(secret, reference, status string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(reference + ":" + status))
	return hex.EncodeToString(mac.Sum(nil))
}

func verifyGatewaySignature(secret, reference, status, signature string) bool {
	if secret == "" {
		return false
	}
	expected := SignGatewayCallback(secret, reference, status)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}
