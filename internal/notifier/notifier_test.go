package notifier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/boarsvc/boar/internal/config"
)

func TestDispatchSendsWebhookForConfiguredChannel(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wh, err := NewWebhookSender("")
	if err != nil {
		t.Fatalf("NewWebhookSender: %v", err)
	}
	email := NewEmailSender(config.SMTP{})
	n := NewNotifier(wh, email, config.Webhooks{ContractExpiry: srv.URL})

	n.Dispatch(context.Background(), EventContractExpiring, map[string]string{"contract": "C-1"}, nil, "", "")

	if atomic.LoadInt32(&hits) != 1 {
		t.Errorf("hits = %d, want 1", hits)
	}
}

func TestDispatchSkipsWebhookWhenChannelUnconfigured(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	wh, _ := NewWebhookSender("")
	email := NewEmailSender(config.SMTP{})
	n := NewNotifier(wh, email, config.Webhooks{}) // no URLs configured

	n.Dispatch(context.Background(), EventContractExpiring, map[string]string{"contract": "C-1"}, nil, "", "")

	if atomic.LoadInt32(&hits) != 0 {
		t.Errorf("hits = %d, want 0 when no webhook URL is configured", hits)
	}
}

func TestDispatchUnroutedEventIsANoOp(t *testing.T) {
	wh, _ := NewWebhookSender("")
	email := NewEmailSender(config.SMTP{})
	n := NewNotifier(wh, email, config.Webhooks{
		ContractExpiry: "http://127.0.0.1:0", Manager: "http://127.0.0.1:0",
	})

	// An event with no routing entry and no alert. prefix should not panic
	// or attempt delivery.
	n.Dispatch(context.Background(), "unknown.event", nil, nil, "", "")
}
