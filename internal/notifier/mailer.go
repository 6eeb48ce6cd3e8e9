package notifier

import (
	"context"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/briefings/internal/application"
)

// SMTPSettings configures outgoing mail.
type SMTPSettings struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type sendFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer delivers application messages through an SMTP relay. It
// implements application.Mailer.
type SMTPMailer struct {
	settings SMTPSettings
	send     sendFunc
	now      func() time.Time
}

var _ application.Mailer = (*SMTPMailer)(nil)

// NewSMTPMailer builds a mailer that uses STARTTLS when the server offers it.
func NewSMTPMailer(settings SMTPSettings) *SMTPMailer {
	if settings.Port == 0 {
		settings.Port = 587
	}
	return &SMTPMailer{settings: settings, send: smtp.SendMail, now: time.Now}
}

// Send delivers msg to its To and Cc recipients.
func (m *SMTPMailer) Send(ctx context.Context, msg application.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	recipients := append(append([]string(nil), msg.To...), msg.Cc...)
	if len(recipients) == 0 {
		return nil
	}

	var auth smtp.Auth
	if m.settings.User != "" {
		auth = smtp.PlainAuth("", m.settings.User, m.settings.Password, m.settings.Host)
	}
	addr := net.JoinHostPort(m.settings.Host, strconv.Itoa(m.settings.Port))

	done := make(chan error, 1)
	go func() {
		done <- m.send(addr, auth, m.settings.From, recipients, m.compose(msg))
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp: send %q: %w", msg.Subject, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp: send %q: %w", msg.Subject, ctx.Err())
	}
}

func (m *SMTPMailer) compose(msg application.Message) []byte {
	var b strings.Builder
	header := func(name, value string) {
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\r\n")
	}
	header("From", m.settings.From)
	header("To", strings.Join(msg.To, ", "))
	if len(msg.Cc) > 0 {
		header("Cc", strings.Join(msg.Cc, ", "))
	}
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", m.now().Format(time.RFC1123Z))
	header("Message-ID", fmt.Sprintf("<%s@%s>", uuid.NewString(), m.domain()))
	header("MIME-Version", "1.0")
	header("Content-Type", `text/plain; charset="utf-8"`)
	header("Content-Transfer-Encoding", "8bit")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(msg.Body, "\r\n", "\n"), "\n", "\r\n"))
	return []byte(b.String())
}

func (m *SMTPMailer) domain() string {
	if i := strings.LastIndex(m.settings.From, "@"); i >= 0 {
		return strings.Trim(m.settings.From[i+1:], "<> ")
	}
	return m.settings.Host
}
