package boarerr

import (
	"fmt"
	"testing"
)

func TestStatusCode(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{KindErpUnreachable, 502},
		{KindEntityNotFound, 404},
		{KindValidationError, 400},
		{KindAuthRequired, 401},
		{KindRateLimited, 429},
		{KindIntegrationTimeout, 504},
		{KindAiUnavailable, 503},
		{Kind("unknown"), 500},
	}
	for _, c := range cases {
		e := New(c.kind, "boom")
		if got := e.StatusCode(); got != c.want {
			t.Errorf("kind %s: got status %d, want %d", c.kind, got, c.want)
		}
	}
}

func TestIsUnwraps(t *testing.T) {
	base := New(KindErpUnreachable, "no route to host")
	wrapped := fmt.Errorf("calling search_read: %w", base)

	if !Is(wrapped, KindErpUnreachable) {
		t.Fatal("expected Is to find wrapped ErpUnreachable")
	}
	if Is(wrapped, KindAiBadJSON) {
		t.Fatal("expected Is to reject mismatched kind")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	e := Wrap(KindErpUnreachable, "connect to odoo", cause)

	if e.Unwrap() != cause {
		t.Fatal("expected Unwrap to return original cause")
	}
	if e.StatusCode() != 502 {
		t.Fatalf("got status %d, want 502", e.StatusCode())
	}
}
