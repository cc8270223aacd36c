// Package notify delivers user-facing email and runs the periodic jobs that
// produce it.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"academihub.org/internal/obs"
)

const (
	KindGrade    = "grade"
	KindReminder = "reminder"
)

const (
	sendGridHost     = "https://api.sendgrid.com"
	sendGridEndpoint = "/v3/mail/send"
)

var ErrNoRecipient = errors.New("message has no recipient")

// Message is a single-recipient email.
type Message struct {
	Kind    string
	ToEmail string
	ToName  string
	Subject string
	Text    string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NewMailer returns a SendGrid mailer when key is set and a log mailer
// otherwise. Either way deliveries are counted in notifications_sent_total.
func NewMailer(key, fromEmail, fromName, appName string) Mailer {
	if strings.TrimSpace(key) == "" {
		return Metered(NewLogMailer(obs.Logger()))
	}
	return Metered(NewSendGridMailer(key, fromEmail, fromName, appName))
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	log *slog.Logger
}

func NewLogMailer(log *slog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if msg.ToEmail == "" {
		return ErrNoRecipient
	}
	m.log.InfoContext(ctx, "mail",
		"kind", msg.Kind,
		"to", msg.ToEmail,
		"subject", msg.Subject,
		"text", msg.Text,
	)
	return nil
}

// SendGridMailer posts to the SendGrid v3 mail API.
type SendGridMailer struct {
	key        string
	host       string
	from       *sgmail.Email
	subjPrefix string
}

func NewSendGridMailer(key, fromEmail, fromName, appName string) *SendGridMailer {
	if fromName == "" {
		fromName = appName
	}
	prefix := ""
	if appName != "" {
		prefix = "[" + appName + "] "
	}
	return &SendGridMailer{
		key:        key,
		host:       sendGridHost,
		from:       sgmail.NewEmail(fromName, fromEmail),
		subjPrefix: prefix,
	}
}

func (m *SendGridMailer) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = m.subjPrefix + msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.ToEmail))

	out := sgmail.NewV3Mail()
	out.SetFrom(m.from)
	out.AddPersonalizations(p)
	out.AddContent(sgmail.NewContent("text/plain", msg.Text))
	if msg.HTML != "" {
		out.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}
	return out
}

func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	if msg.ToEmail == "" {
		return ErrNoRecipient
	}
	req := sendgrid.GetRequest(m.key, sendGridEndpoint, m.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m.prepare(msg))

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

type metered struct {
	next Mailer
}

// Metered counts each delivery attempt by kind and outcome.
func Metered(next Mailer) Mailer {
	return metered{next: next}
}

func (m metered) Send(ctx context.Context, msg Message) error {
	err := m.next.Send(ctx, msg)
	obs.RecordMail(msg.Kind, err)
	return err
}
