package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/wolfman30/leadflow/pkg/logging"
)

// Mailer delivers lead emails. Providers are picked by MailerConfig.Provider.
type Mailer interface {
	Deliver(ctx context.Context, msg LeadEmail) error
}

const (
	ProviderSendGrid = "sendgrid"
	ProviderSES      = "ses"
	ProviderLog      = "stub"
)

// MailerConfig selects and configures the email provider.
type MailerConfig struct {
	Provider       string
	FromAddress    string
	FromName       string
	SendGridAPIKey string
}

type sendgridAPI interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// NewMailer returns the configured provider. An unknown provider, or
// sendgrid without an API key, falls back to LogMailer. ses may be nil
// unless the provider is ses.
func NewMailer(cfg MailerConfig, ses sesAPI, logger *logging.Logger) Mailer {
	if logger == nil {
		logger = logging.Default()
	}
	if strings.TrimSpace(cfg.FromName) == "" {
		cfg.FromName = "Lead Desk"
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case ProviderSendGrid:
		if cfg.SendGridAPIKey != "" {
			return &SendGridMailer{client: sendgrid.NewSendClient(cfg.SendGridAPIKey), cfg: cfg, logger: logger}
		}
		logger.Warn("sendgrid selected without API key; lead emails are logged only")
	case ProviderSES:
		if ses != nil {
			return &SESMailer{client: ses, cfg: cfg, logger: logger}
		}
		logger.Warn("ses selected without a client; lead emails are logged only")
	}
	return &LogMailer{logger: logger}
}

// SendGridMailer delivers through the SendGrid v3 API.
type SendGridMailer struct {
	client sendgridAPI
	cfg    MailerConfig
	logger *logging.Logger
}

func (m *SendGridMailer) Deliver(ctx context.Context, msg LeadEmail) error {
	message := mail.NewSingleEmail(
		mail.NewEmail(m.cfg.FromName, m.cfg.FromAddress),
		msg.Subject,
		mail.NewEmail("", msg.To),
		msg.Text,
		msg.HTML,
	)
	if msg.ReplyTo != "" {
		message.SetReplyTo(mail.NewEmail("", msg.ReplyTo))
	}
	message.SetHeader("X-Lead-ID", msg.LeadID)

	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("notify: sendgrid lead %s: %w", msg.LeadID, err)
	}
	if resp.StatusCode >= 400 {
		m.logger.Error("sendgrid rejected lead email", "lead_id", msg.LeadID, "status", resp.StatusCode, "body", resp.Body)
		return fmt.Errorf("notify: sendgrid lead %s: status %d", msg.LeadID, resp.StatusCode)
	}
	m.logger.Info("lead email delivered", "provider", ProviderSendGrid, "lead_id", msg.LeadID, "status", resp.StatusCode)
	return nil
}

// SESMailer delivers through Amazon SES v2.
type SESMailer struct {
	client sesAPI
	cfg    MailerConfig
	logger *logging.Logger
}

func (m *SESMailer) Deliver(ctx context.Context, msg LeadEmail) error {
	body := &types.Body{}
	if msg.Text != "" {
		body.Text = utf8Content(msg.Text)
	}
	if msg.HTML != "" {
		body.Html = utf8Content(msg.HTML)
	}
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", m.cfg.FromName, m.cfg.FromAddress)),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{Subject: utf8Content(msg.Subject), Body: body},
		},
		EmailTags: []types.MessageTag{{Name: aws.String("lead_id"), Value: aws.String(sesTagValue(msg.LeadID))}},
	}
	if msg.ReplyTo != "" {
		input.ReplyToAddresses = []string{msg.ReplyTo}
	}

	out, err := m.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("notify: ses lead %s: %w", msg.LeadID, err)
	}
	m.logger.Info("lead email delivered", "provider", ProviderSES, "lead_id", msg.LeadID, "message_id", aws.ToString(out.MessageId))
	return nil
}

func utf8Content(s string) *types.Content {
	return &types.Content{Data: aws.String(s), Charset: aws.String("UTF-8")}
}

// sesTagValue keeps the characters SES accepts in tag values.
func sesTagValue(s string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return -1
	}, s)
	if clean == "" {
		return "unknown"
	}
	return clean
}

// LogMailer records lead emails in the log instead of sending them.
type LogMailer struct {
	logger *logging.Logger
}

func (m *LogMailer) Deliver(ctx context.Context, msg LeadEmail) error {
	m.logger.Info("lead email not sent, no provider configured", "lead_id", msg.LeadID, "subject", msg.Subject)
	return nil
}
