package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	pkglogger "github.com/BradenHooton/bastion/pkg/logger"
)

// Mailer sends the account notifications the auth flow produces
type Mailer interface {
	SendWelcome(ctx context.Context, to, name string) error
	SendLockNotice(ctx context.Context, to, name string, until time.Time) error
}

// sesSender is the part of the SES client the mailer uses
type sesSender interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESMailer sends emails using AWS SES
type SESMailer struct {
	client      sesSender
	fromAddress string
	logger      *slog.Logger
}

// NewSESMailer loads the default AWS config for region and creates an SES client
func NewSESMailer(ctx context.Context, region, fromAddress string, logger *slog.Logger) (*SESMailer, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return newSESMailer(ses.NewFromConfig(cfg), fromAddress, logger), nil
}

func newSESMailer(client sesSender, fromAddress string, logger *slog.Logger) *SESMailer {
	return &SESMailer{
		client:      client,
		fromAddress: fromAddress,
		logger:      logger,
	}
}

// SendWelcome greets a newly registered user
func (m *SESMailer) SendWelcome(ctx context.Context, to, name string) error {
	text := fmt.Sprintf(`Hi %s,

Your account has been created. An administrator will activate it shortly.

This is an automated message. Please do not reply to this email.
`, name)

	html := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <p>Hi %s,</p>
    <p>Your account has been created. An administrator will activate it shortly.</p>
    <p style="color: #666; font-size: 12px;">This is an automated message. Please do not reply to this email.</p>
</body>
</html>
`, name)

	return m.send(ctx, to, "Welcome", text, html)
}

// SendLockNotice tells the account owner that repeated failed logins locked the account
func (m *SESMailer) SendLockNotice(ctx context.Context, to, name string, until time.Time) error {
	untilText := until.UTC().Format(time.RFC1123)

	text := fmt.Sprintf(`Hi %s,

Your account was locked after too many failed sign-in attempts.
You can try again after %s.

If this wasn't you, contact an administrator to review the account.
`, name, untilText)

	html := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <p>Hi %s,</p>
    <p>Your account was locked after too many failed sign-in attempts.</p>
    <p>You can try again after <strong>%s</strong>.</p>
    <div style="background-color: #fff3cd; padding: 10px; border-left: 4px solid #ffc107;">
        If this wasn't you, contact an administrator to review the account.
    </div>
</body>
</html>
`, name, untilText)

	return m.send(ctx, to, "Your account has been locked", text, html)
}

func (m *SESMailer) send(ctx context.Context, to, subject, text, html string) error {
	input := &ses.SendEmailInput{
		Source: aws.String(m.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(html)},
				Text: &types.Content{Data: aws.String(text)},
			},
		},
	}

	result, err := m.client.SendEmail(ctx, input)
	if err != nil {
		m.logger.Error("failed to send email via SES",
			slog.String("email", pkglogger.SanitizedEmail(to)),
			slog.String("subject", subject),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.logger.Info("email sent",
		slog.String("email", pkglogger.SanitizedEmail(to)),
		slog.String("subject", subject),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}

// LogMailer records notifications in the log instead of sending them.
// It is used when EMAIL_ENABLED is false.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendWelcome(ctx context.Context, to, name string) error {
	m.logger.Info("email disabled, skipping welcome email",
		slog.String("email", pkglogger.SanitizedEmail(to)))
	return nil
}

func (m *LogMailer) SendLockNotice(ctx context.Context, to, name string, until time.Time) error {
	m.logger.Info("email disabled, skipping lock notice",
		slog.String("email", pkglogger.SanitizedEmail(to)),
		slog.Time("locked_until", until))
	return nil
}
