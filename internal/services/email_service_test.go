package services

import (
	"testing"

	"github.com/sjperalta/insurance-api/internal/config"
	"github.com/sjperalta/insurance-api/pkg/logger"
	"github.com/stretchr/testify/assert"
)

func TestEmailService_checkEmailPreconditions(t *testing.T) {
	logger.Setup("test", "error")
	to := []string{"office@example.com"}

	// Test case 1: Email notifications disabled
	cfg := &config.Config{
		EnableEmailNotifications: false,
	}
	service := NewEmailService(cfg)

	ok, err := service.checkEmailPreconditions(to, "test operation")
	assert.False(t, ok, "Should return false when notifications are disabled")
	assert.Nil(t, err, "Should not return error when notifications are disabled")

	// Test case 2: Email configured and valid
	cfg = &config.Config{
		EnableEmailNotifications: true,
		ResendAPIKey:             "test_key",
		FromEmail:                "from@example.com",
	}
	service = NewEmailService(cfg)

	ok, err = service.checkEmailPreconditions(to, "test operation")
	assert.True(t, ok, "Should return true when properly configured")
	assert.Nil(t, err, "Should not return error when properly configured")

	// Test case 3: Email not configured (missing key)
	cfg = &config.Config{
		EnableEmailNotifications: true,
		ResendAPIKey:             "",
		FromEmail:                "from@example.com",
	}
	service = NewEmailService(cfg)

	ok, err = service.checkEmailPreconditions(to, "test operation")
	assert.False(t, ok, "Should return false when config is missing")
	assert.Error(t, err, "Should return error when config is missing")
	assert.Contains(t, err.Error(), "RESEND_API_KEY is not set")

	// Test case 4: Blank recipient
	cfg = &config.Config{
		EnableEmailNotifications: true,
		ResendAPIKey:             "test_key",
		FromEmail:                "from@example.com",
	}
	service = NewEmailService(cfg)

	ok, err = service.checkEmailPreconditions([]string{"office@example.com", " "}, "test operation")
	assert.False(t, ok, "Should return false when an address is blank")
	assert.Error(t, err, "Should return error when an address is blank")
	assert.Equal(t, "email address is empty", err.Error())

	ok, err = service.checkEmailPreconditions(nil, "test operation")
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestEmailService_renderTemplates(t *testing.T) {
	service := NewEmailService(&config.Config{})

	body, err := service.renderTemplate("cheque_returned.html", map[string]string{
		"ChequeNumber": "100200",
		"CustomerName": "Rami Haddad",
		"Amount":       "450.00",
		"ChequeDate":   "2026-05-01",
		"Reason":       "insufficient funds",
	})
	assert.NoError(t, err)
	assert.Contains(t, body, "Cheque 100200 was returned")
	assert.Contains(t, body, "insufficient funds")

	_, err = service.renderTemplate("missing.html", nil)
	assert.Error(t, err)
}
