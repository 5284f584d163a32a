package notifications

import (
	"context"

	"github.com/lacasita-io/storefront-backend/pkg/logger"
)

// EmailSender delivers transactional email. The storefront ships a log-only
// implementation; a real provider plugs in behind the same interface.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// SMSSender delivers transactional SMS.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) error
}

// LogEmailSender writes the email to the structured log instead of sending it.
type LogEmailSender struct {
	Logger *logger.Logger
}

func (s *LogEmailSender) SendEmail(ctx context.Context, to, subject, body string) error {
	if s.Logger == nil {
		return nil
	}
	logCtx := s.Logger.WithFields(ctx, map[string]any{
		"channel": "email",
		"to":      to,
		"subject": subject,
	})
	s.Logger.Info(logCtx, body)
	return nil
}

// LogSMSSender writes the SMS to the structured log instead of sending it.
type LogSMSSender struct {
	Logger *logger.Logger
}

func (s *LogSMSSender) SendSMS(ctx context.Context, phone, message string) error {
	if s.Logger == nil {
		return nil
	}
	logCtx := s.Logger.WithFields(ctx, map[string]any{
		"channel": "sms",
		"to":      phone,
	})
	s.Logger.Info(logCtx, message)
	return nil
}
