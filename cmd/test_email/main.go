package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/sjperalta/insurance-api/internal/config"
	"github.com/sjperalta/insurance-api/internal/models"
	"github.com/sjperalta/insurance-api/internal/services"
	"github.com/sjperalta/insurance-api/pkg/logger"
)

// Sends the cheque notification emails (and the SMS when Twilio is set up)
// with sample data, to check provider credentials and templates.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.Setup("development", "debug")

	if cfg.ResendAPIKey == "" {
		log.Fatal("RESEND_API_KEY is not set")
	}
	cfg.EnableEmailNotifications = true

	toEmail := os.Getenv("TEST_EMAIL_TO")
	if toEmail == "" {
		toEmail = "test@example.com"
		log.Println("TEST_EMAIL_TO not set, using test@example.com. Delivery fails unless the domain is verified.")
	}

	emailService := services.NewEmailService(cfg)
	ctx := context.Background()

	email := toEmail
	customer := &models.Customer{FullName: "Test Customer", Identity: "000000000", Phone: os.Getenv("TEST_SMS_TO"), Email: &email}
	reason := "Insufficient funds"
	bank := "Test Bank"
	cheque := models.Cheque{
		ChequeNumber:   "100200",
		Amount:         decimal.NewFromInt(500),
		ChequeDate:     time.Now(),
		BankName:       &bank,
		Status:         models.ChequeStatusReturned,
		ReturnedReason: &reason,
		Customer:       customer,
	}

	log.Printf("Sending cheque returned email to %s...", toEmail)
	if err := emailService.SendChequeReturned(ctx, []string{toEmail}, &cheque, customer); err != nil {
		log.Fatalf("Failed to send cheque returned email: %v", err)
	}
	log.Println("Cheque returned email sent")

	log.Printf("Sending cheque reminder digest to %s...", toEmail)
	if err := emailService.SendChequeReminders(ctx, []string{toEmail}, []models.Cheque{cheque}); err != nil {
		log.Fatalf("Failed to send cheque reminders: %v", err)
	}
	log.Println("Cheque reminder digest sent")

	sms := services.NewSMSService(cfg)
	if sms.Enabled() && customer.Phone != "" {
		if err := sms.Send(ctx, customer.Phone, "Test message: cheque 100200 was returned by the bank."); err != nil {
			log.Fatalf("Failed to send SMS: %v", err)
		}
		log.Println("SMS sent")
	}
}
