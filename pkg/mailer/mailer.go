// Package mailer delivers transactional e-mail such as password resets.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/noah-isme/aju-clearance-api/pkg/config"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// Message is a single outbound e-mail.
type Message struct {
	ToName  string
	ToEmail string
	Subject string
	Text    string
	HTML    string
}

// Mailer sends messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New returns a SendGrid mailer when an API key is configured and a
// log-only mailer otherwise.
func New(cfg config.MailConfig, logger *zap.Logger) Mailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SendgridAPIKey == "" {
		return &LogMailer{subjectPrefix: cfg.SubjectPrefix, logger: logger}
	}
	return &SendgridMailer{
		key:           cfg.SendgridAPIKey,
		from:          sgmail.NewEmail(cfg.FromName, cfg.FromAddress),
		subjectPrefix: cfg.SubjectPrefix,
		logger:        logger,
	}
}

// SendgridMailer delivers through the SendGrid v3 API.
type SendgridMailer struct {
	key           string
	from          *sgmail.Email
	subjectPrefix string
	logger        *zap.Logger
}

func (m *SendgridMailer) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = m.subjectPrefix + msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.ToEmail))

	v3 := sgmail.NewV3Mail()
	v3.SetFrom(m.from)
	v3.AddPersonalizations(p)
	v3.AddContent(sgmail.NewContent("text/plain", msg.Text))
	if msg.HTML != "" {
		v3.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}
	return v3
}

// Send posts msg to SendGrid and fails on any 4xx/5xx response.
func (m *SendgridMailer) Send(ctx context.Context, msg Message) error {
	if msg.ToEmail == "" {
		return errors.New("mailer: missing recipient")
	}
	req := sendgrid.GetRequest(m.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m.prepare(msg))

	if err := ctx.Err(); err != nil {
		return err
	}
	res, err := sendgrid.API(req)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		m.logger.Error("sendgrid rejected message", zap.Int("status", res.StatusCode), zap.String("body", res.Body))
		return fmt.Errorf("send mail: status %d", res.StatusCode)
	}
	return nil
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	subjectPrefix string
	logger        *zap.Logger
}

// Send logs msg.
func (m *LogMailer) Send(_ context.Context, msg Message) error {
	if msg.ToEmail == "" {
		return errors.New("mailer: missing recipient")
	}
	m.logger.Info("mail delivery disabled; message logged",
		zap.String("to", msg.ToEmail),
		zap.String("subject", m.subjectPrefix+msg.Subject),
		zap.String("text", msg.Text),
	)
	return nil
}
