package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/leadflow/pkg/logging"
)

type fakeSendGrid struct {
	status int
	err    error
	last   *mail.SGMailV3
}

func (f *fakeSendGrid) SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	f.last = email
	if f.err != nil {
		return nil, f.err
	}
	return &rest.Response{StatusCode: f.status}, nil
}

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

var testMailerConfig = MailerConfig{FromAddress: "bot@leadflow.example", FromName: "Lead Desk"}

func TestNewMailerSelectsProvider(t *testing.T) {
	logger := logging.New("error")

	m := NewMailer(MailerConfig{Provider: "SendGrid", SendGridAPIKey: "key"}, nil, logger)
	assert.IsType(t, &SendGridMailer{}, m)

	m = NewMailer(MailerConfig{Provider: ProviderSendGrid}, nil, logger)
	assert.IsType(t, &LogMailer{}, m)

	m = NewMailer(MailerConfig{Provider: ProviderSES}, &fakeSES{}, logger)
	require.IsType(t, &SESMailer{}, m)
	assert.Equal(t, "Lead Desk", m.(*SESMailer).cfg.FromName)

	m = NewMailer(MailerConfig{Provider: ProviderSES}, nil, logger)
	assert.IsType(t, &LogMailer{}, m)

	m = NewMailer(MailerConfig{Provider: "pigeon"}, nil, nil)
	assert.IsType(t, &LogMailer{}, m)
}

func TestSendGridMailerDeliversLeadEmail(t *testing.T) {
	fake := &fakeSendGrid{status: 202}
	mailer := &SendGridMailer{client: fake, cfg: testMailerConfig, logger: logging.Default()}

	err := mailer.Deliver(context.Background(), NewLeadEmail("sales@leadflow.example", capturedLead()))
	require.NoError(t, err)
	require.NotNil(t, fake.last)
	assert.Equal(t, "New lead: Jane Doe (Acme)", fake.last.Subject)
	assert.Equal(t, "bot@leadflow.example", fake.last.From.Address)
	require.NotNil(t, fake.last.ReplyTo)
	assert.Equal(t, "jane@acme.io", fake.last.ReplyTo.Address)
	assert.Equal(t, "lead-1", fake.last.Headers["X-Lead-ID"])
	require.Len(t, fake.last.Content, 2)
}

func TestSendGridMailerErrors(t *testing.T) {
	mailer := &SendGridMailer{client: &fakeSendGrid{status: 401}, cfg: testMailerConfig, logger: logging.Default()}
	err := mailer.Deliver(context.Background(), LeadEmail{LeadID: "lead-1", To: "a@b.co", Subject: "s", Text: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lead-1")
	assert.Contains(t, err.Error(), "401")

	mailer.client = &fakeSendGrid{err: errors.New("dial tcp: timeout")}
	err = mailer.Deliver(context.Background(), LeadEmail{LeadID: "lead-1", To: "a@b.co", Subject: "s", Text: "b"})
	assert.ErrorContains(t, err, "timeout")
}

func TestSESMailerDeliversLeadEmail(t *testing.T) {
	fake := &fakeSES{}
	mailer := &SESMailer{client: fake, cfg: testMailerConfig, logger: logging.Default()}

	err := mailer.Deliver(context.Background(), NewLeadEmail("sales@leadflow.example", capturedLead()))
	require.NoError(t, err)
	require.NotNil(t, fake.input)
	assert.Equal(t, "Lead Desk <bot@leadflow.example>", aws.ToString(fake.input.FromEmailAddress))
	assert.Equal(t, []string{"sales@leadflow.example"}, fake.input.Destination.ToAddresses)
	assert.Equal(t, []string{"jane@acme.io"}, fake.input.ReplyToAddresses)
	assert.Contains(t, aws.ToString(fake.input.Content.Simple.Body.Text.Data), "Needs: manual invoicing")
	assert.Contains(t, aws.ToString(fake.input.Content.Simple.Body.Html.Data), "<td>manual invoicing</td>")
	require.Len(t, fake.input.EmailTags, 1)
	assert.Equal(t, "lead-1", aws.ToString(fake.input.EmailTags[0].Value))
}

func TestSESMailerError(t *testing.T) {
	mailer := &SESMailer{client: &fakeSES{err: errors.New("throttled")}, cfg: testMailerConfig, logger: logging.Default()}
	err := mailer.Deliver(context.Background(), LeadEmail{LeadID: "lead-1", To: "a@b.co", Subject: "s", Text: "b"})
	assert.ErrorContains(t, err, "throttled")
}

func TestSESTagValue(t *testing.T) {
	assert.Equal(t, "6f1c2b7e-4d0a", sesTagValue("6f1c2b7e-4d0a"))
	assert.Equal(t, "abc", sesTagValue("a b/c"))
	assert.Equal(t, "unknown", sesTagValue(""))
}

func TestLogMailerDeliver(t *testing.T) {
	m := NewMailer(MailerConfig{}, nil, logging.New("error"))
	assert.NoError(t, m.Deliver(context.Background(), LeadEmail{LeadID: "lead-1", Subject: "s"}))
}
