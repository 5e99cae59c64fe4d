package notifier

import (
	"context"
	"log/slog"

	"github.com/boarsvc/boar/internal/config"
)

// Notifier combines WebhookSender and EmailSender with the event catalog's
// routing table (spec.md §4.D) into the single entry point the Scheduled
// Job Runtime's handlers and the Analytical Pipelines call to fan an event
// out to its configured channels.
type Notifier struct {
	webhook *WebhookSender
	email   *EmailSender
	urls    config.Webhooks
}

// NewNotifier builds a Notifier over already-constructed senders and the
// process's configured webhook URLs.
func NewNotifier(webhook *WebhookSender, email *EmailSender, urls config.Webhooks) *Notifier {
	return &Notifier{webhook: webhook, email: email, urls: urls}
}

// Dispatch routes eventType per RouteFor: POSTs data to the mapped
// channel's webhook URL (if one is configured) and, when the catalog calls
// for email, sends subject/body to recipients. Both legs degrade silently —
// failures are logged, never returned — so a notification failure never
// fails the pipeline or job that produced it (spec.md §4.D).
func (n *Notifier) Dispatch(ctx context.Context, eventType string, data any, recipients []string, subject, body string) {
	routing := RouteFor(eventType)

	if routing.Webhook != "" {
		if url := n.urlForChannel(routing.Webhook); url != "" {
			if err := n.webhook.Send(ctx, url, eventType, data); err != nil {
				slog.Error("notifier: webhook dispatch failed", "event_type", eventType, "channel", routing.Webhook, "error", err)
			}
		}
	}

	if (routing.EmailManagers || routing.EmailPerUser) && len(recipients) > 0 {
		if _, err := n.email.Send(recipients, subject, body, ""); err != nil {
			slog.Error("notifier: email dispatch failed", "event_type", eventType, "error", err)
		}
	}
}

func (n *Notifier) urlForChannel(channel string) string {
	switch channel {
	case ChannelContractExpiry:
		return n.urls.ContractExpiry
	case ChannelMilestone:
		return n.urls.Milestone
	case ChannelCompliance:
		return n.urls.Compliance
	case ChannelReport:
		return n.urls.Report
	case ChannelOverdue:
		return n.urls.Overdue
	case ChannelAssignment:
		return n.urls.Assignment
	case ChannelManager:
		return n.urls.Manager
	default:
		return ""
	}
}
