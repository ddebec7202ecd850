package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentDetails is the method-specific part of a payment. The set of
// implementations is closed: cash, card, bank transfer and cheque.
type PaymentDetails interface {
	Method() string
	apply(p *Payment)
}

// CashDetails marks a cash payment
type CashDetails struct{}

// CardDetails marks a card payment settled through the hosted gateway page
type CardDetails struct{}

// BankTransferDetails marks a bank transfer
type BankTransferDetails struct{}

// ChequeDetails carries the instrument fields a cheque payment requires
type ChequeDetails struct {
	Number string
	Date   time.Time
	Status string
}

func (CashDetails) Method() string         { return PaymentMethodCash }
func (CardDetails) Method() string         { return PaymentMethodCard }
func (BankTransferDetails) Method() string { return PaymentMethodBankTransfer }
func (ChequeDetails) Method() string       { return PaymentMethodCheque }

func (CashDetails) apply(p *Payment) {
	p.Method = PaymentMethodCash
	p.Status = PaymentStatusConfirmed
}

func (CardDetails) apply(p *Payment) {
	p.Method = PaymentMethodCard
	p.Status = PaymentStatusAwaitingGateway
}

func (BankTransferDetails) apply(p *Payment) {
	p.Method = PaymentMethodBankTransfer
	p.Status = PaymentStatusConfirmed
}

func (d ChequeDetails) apply(p *Payment) {
	number := d.Number
	date := d.Date
	status := d.Status
	if status == "" {
		status = ChequeStatusPending
	}

	p.Method = PaymentMethodCheque
	p.Status = PaymentStatusConfirmed
	p.ChequeNumber = &number
	p.ChequeDate = &date
	p.ChequeStatus = &status
}

// NewPayment builds a payment from its method variant. Cheque columns are
// populated exactly when details is ChequeDetails.
func NewPayment(amount decimal.Decimal, paidAt time.Time, details PaymentDetails) *Payment {
	p := &Payment{
		Amount:      amount,
		PaymentDate: paidAt,
	}
	details.apply(p)
	return p
}

// Details rebuilds the method variant from a stored payment
func (p *Payment) Details() PaymentDetails {
	switch p.Method {
	case PaymentMethodCard:
		return CardDetails{}
	case PaymentMethodBankTransfer:
		return BankTransferDetails{}
	case PaymentMethodCheque:
		d := ChequeDetails{}
		if p.ChequeNumber != nil {
			d.Number = *p.ChequeNumber
		}
		if p.ChequeDate != nil {
			d.Date = *p.ChequeDate
		}
		if p.ChequeStatus != nil {
			d.Status = *p.ChequeStatus
		}
		return d
	default:
		return CashDetails{}
	}
}
