package services

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/sjperalta/insurance-api/internal/models"
	"github.com/sjperalta/insurance-api/internal/repository"
)

//go:embed templates/reports/*.html
var reportTemplates embed.FS

// ReportService renders payment receipts
type ReportService struct {
	paymentRepo repository.PaymentRepository
}

func NewReportService(paymentRepo repository.PaymentRepository) *ReportService {
	return &ReportService{paymentRepo: paymentRepo}
}

type receiptData struct {
	ReceiptNumber string
	Date          string
	CustomerName  string
	CustomerID    string
	Amount        string
	AmountInWords string
	Method        string
	Status        string
	Notes         string
	ChequeNumber  string
	ChequeDate    string
	PolicyLabel   string
	Remaining     string
}

func (s *ReportService) receiptData(ctx context.Context, paymentID uint) (*receiptData, error) {
	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, translateErr("payment", err)
	}

	data := &receiptData{
		ReceiptNumber: payment.ReceiptNumber,
		Date:          payment.PaymentDate.Format(models.DateLayout),
		Amount:        payment.Amount.StringFixed(2),
		AmountInWords: AmountInWords(payment.Amount),
		Method:        payment.Method,
		Status:        payment.Status,
		Notes:         getStringValue(payment.Notes),
		ChequeNumber:  getStringValue(payment.ChequeNumber),
	}
	if payment.ChequeDate != nil {
		data.ChequeDate = payment.ChequeDate.Format(models.DateLayout)
	}
	if payment.Customer != nil {
		data.CustomerName = payment.Customer.FullName
		data.CustomerID = payment.Customer.Identity
	}
	if payment.Policy != nil {
		data.PolicyLabel = fmt.Sprintf("#%d %s / %s", payment.Policy.ID, payment.Policy.Company, payment.Policy.Type)
		data.Remaining = payment.Policy.RemainingDebt().StringFixed(2)
	}
	return data, nil
}

// ReceiptHTML renders the printable receipt of a payment
func (s *ReportService) ReceiptHTML(ctx context.Context, paymentID uint) (*bytes.Buffer, error) {
	data, err := s.receiptData(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return s.renderHTML("receipt.html", data)
}

// ReceiptPDF renders the receipt of a payment as a PDF document
func (s *ReportService) ReceiptPDF(ctx context.Context, paymentID uint) (*bytes.Buffer, error) {
	data, err := s.receiptData(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	return s.generatePDF("receipt.html", data)
}

func (s *ReportService) renderHTML(templateName string, data interface{}) (*bytes.Buffer, error) {
	tmpl, err := template.ParseFS(reportTemplates, "templates/reports/"+templateName)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", templateName, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to execute template: %w", err)
	}
	return &buf, nil
}

// Helper to generate PDF from HTML template
func (s *ReportService) generatePDF(templateName string, data interface{}) (*bytes.Buffer, error) {
	html, err := s.renderHTML(templateName, data)
	if err != nil {
		return nil, err
	}

	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create pdf generator: %w", err)
	}

	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	pdfg.PageSize.Set(wkhtmltopdf.PageSizeA5)
	pdfg.Grayscale.Set(false)

	page := wkhtmltopdf.NewPageReader(bytes.NewReader(html.Bytes()))
	page.EnableLocalFileAccess.Set(true)
	pdfg.AddPage(page)

	if err := pdfg.Create(); err != nil {
		return nil, fmt.Errorf("failed to create pdf: %w", err)
	}

	return pdfg.Buffer(), nil
}
