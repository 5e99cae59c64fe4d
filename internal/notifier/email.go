package notifier

import (
	"crypto/tls"
	"log/slog"
	"time"

	mail "github.com/wneessen/go-mail"

	"github.com/boarsvc/boar/internal/config"
)

// EmailSender sends transactional email over SMTP, adapted near-verbatim
// from the teacher's nodes/email.go client construction (TLS policy
// selection by port, SMTP auth) but trimmed to a single config.SMTP value
// populated straight from the process configuration — no NodeConfig/template-node
// plumbing, since BOAR has no workflow-DSL surface.
type EmailSender struct {
	cfg config.SMTP
}

// NewEmailSender builds a sender from the process SMTP configuration.
func NewEmailSender(cfg config.SMTP) *EmailSender {
	return &EmailSender{cfg: cfg}
}

// Send dispatches a multipart message (plain-text fallback + HTML body) to
// the given recipients. When SMTP is not configured it degrades silently:
// logs and returns (false, nil), never an error upstream code must handle
// as a hard failure, per spec.md §4.D.
func (s *EmailSender) Send(to []string, subject, textBody, htmlBody string) (bool, error) {
	if !s.cfg.Configured() {
		slog.Warn("email send skipped: smtp not configured", "subject", subject)
		return false, nil
	}
	if len(to) == 0 {
		slog.Warn("email send skipped: no recipients", "subject", subject)
		return false, nil
	}

	m := mail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		slog.Warn("email send skipped: invalid from address", "from", s.cfg.From, "error", err)
		return false, nil
	}
	if err := m.To(to...); err != nil {
		slog.Warn("email send skipped: invalid recipient address", "to", to, "error", err)
		return false, nil
	}
	m.Subject(subject)
	m.SetBodyString(mail.TypeTextPlain, textBody)
	if htmlBody != "" {
		m.AddAlternativeString(mail.TypeTextHTML, htmlBody)
	}

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTimeout(30 * time.Second),
	}
	if s.cfg.User != "" || s.cfg.Password != "" {
		opts = append(opts, mail.WithSMTPAuth(mail.SMTPAuthPlain), mail.WithUsername(s.cfg.User), mail.WithPassword(s.cfg.Password))
	}

	if s.cfg.Port == 465 {
		opts = append(opts, mail.WithSSL(), mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		tlsConfig := &tls.Config{ServerName: s.cfg.Host}
		opts = append(opts, mail.WithTLSConfig(tlsConfig), mail.WithTLSPolicy(mail.TLSOpportunistic))
	}

	c, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		slog.Warn("email send skipped: failed to build smtp client", "error", err)
		return false, nil
	}

	if err := c.DialAndSend(m); err != nil {
		slog.Warn("email send failed", "subject", subject, "error", err)
		return false, nil
	}

	return true, nil
}
