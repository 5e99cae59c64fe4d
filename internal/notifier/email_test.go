package notifier

import (
	"testing"

	"github.com/boarsvc/boar/internal/config"
)

func TestEmailSendSkipsWhenNotConfigured(t *testing.T) {
	sender := NewEmailSender(config.SMTP{})

	sent, err := sender.Send([]string{"a@example.com"}, "subject", "body", "")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if sent {
		t.Fatal("Send should report false when SMTP is not configured")
	}
}

func TestEmailSendSkipsWithNoRecipients(t *testing.T) {
	sender := NewEmailSender(config.SMTP{Host: "smtp.example.com", From: "noreply@example.com"})

	sent, err := sender.Send(nil, "subject", "body", "")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if sent {
		t.Fatal("Send should report false when there are no recipients")
	}
}

func TestEmailSendSkipsOnInvalidFrom(t *testing.T) {
	sender := NewEmailSender(config.SMTP{Host: "smtp.example.com", From: "not-an-email"})

	sent, err := sender.Send([]string{"a@example.com"}, "subject", "body", "")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if sent {
		t.Fatal("Send should report false when the from address is invalid")
	}
}
