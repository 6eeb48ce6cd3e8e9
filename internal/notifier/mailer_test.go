package notifier

import (
	"context"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/example/briefings/internal/application"
)

func TestSMTPMailer_Send(t *testing.T) {
	t.Parallel()

	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
		gotAuth smtp.Auth
	)
	mailer := NewSMTPMailer(SMTPSettings{Host: "smtp.example.com", User: "talks", Password: "pw", From: "talks@example.com"})
	mailer.now = func() time.Time { return time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC) }
	mailer.send = func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg, gotAuth = addr, to, string(msg), auth
		return nil
	}

	err := mailer.Send(context.Background(), application.Message{
		To:      []string{"ada@example.com"},
		Cc:      []string{"grace@example.com"},
		Subject: "Briefings talk confirmed",
		Body:    "line one\nline two",
	})
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if gotAddr != "smtp.example.com:587" {
		t.Fatalf("unexpected addr %q", gotAddr)
	}
	if strings.Join(gotTo, ",") != "ada@example.com,grace@example.com" {
		t.Fatalf("expected To and Cc recipients, got %v", gotTo)
	}
	if gotAuth == nil {
		t.Fatal("expected PLAIN auth when a user is configured")
	}
	for _, want := range []string{
		"From: talks@example.com\r\n",
		"Cc: grace@example.com\r\n",
		"Subject: Briefings talk confirmed\r\n",
		"Date: Thu, 01 Feb 2024 09:00:00 +0000\r\n",
		"\r\n\r\nline one\r\nline two",
	} {
		if !strings.Contains(gotMsg, want) {
			t.Errorf("expected %q in message:\n%s", want, gotMsg)
		}
	}
}

func TestSMTPMailer_SkipsEmptyRecipients(t *testing.T) {
	t.Parallel()

	mailer := NewSMTPMailer(SMTPSettings{Host: "smtp.example.com", From: "talks@example.com"})
	mailer.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send must not be called")
		return nil
	}
	if err := mailer.Send(context.Background(), application.Message{Subject: "nobody"}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestSMTPMailer_WrapsFailures(t *testing.T) {
	t.Parallel()

	boom := errors.New("relay refused")
	mailer := NewSMTPMailer(SMTPSettings{Host: "smtp.example.com", From: "talks@example.com"})
	mailer.send = func(string, smtp.Auth, string, []string, []byte) error { return boom }

	err := mailer.Send(context.Background(), application.Message{To: []string{"ada@example.com"}})
	if !errors.Is(err, boom) {
		t.Fatalf("expected relay error, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := mailer.Send(ctx, application.Message{To: []string{"ada@example.com"}}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
