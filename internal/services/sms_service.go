package services

import (
	"context"
	"strings"

	"github.com/sjperalta/insurance-api/internal/config"
	"github.com/sjperalta/insurance-api/pkg/logger"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// SMSService sends text messages to customers through Twilio
type SMSService struct {
	client *twilio.RestClient
	from   string
}

func NewSMSService(cfg *config.Config) *SMSService {
	if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" || cfg.TwilioFromNumber == "" {
		return &SMSService{}
	}
	return &SMSService{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.TwilioAccountSID,
			Password: cfg.TwilioAuthToken,
		}),
		from: cfg.TwilioFromNumber,
	}
}

// Enabled reports whether Twilio credentials are configured
func (s *SMSService) Enabled() bool {
	return s.client != nil
}

// Send delivers one SMS. Without credentials the message is only logged.
func (s *SMSService) Send(ctx context.Context, to, body string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return nil
	}
	if !s.Enabled() {
		logger.Debug("sms disabled, skipping", "to", to)
		return nil
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(body)

	resp, err := s.client.Api.CreateMessage(params)
	if err != nil {
		logger.Error("failed to send sms", "to", to, "error", err)
		return err
	}
	if resp.Sid != nil {
		logger.Info("sms sent", "to", to, "sid", *resp.Sid)
	}
	return nil
}
