package erp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"testing"
)

func TestIsTransportError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"url.Error", &url.Error{Op: "Post", URL: "http://odoo.local", Err: errors.New("connection refused")}, true},
		{"net.OpError", &net.OpError{Op: "dial", Err: errors.New("refused")}, true},
		{"context deadline exceeded", context.DeadlineExceeded, true},
		{"business fault", fmt.Errorf("xmlrpc fault: Invalid field 'foo' on model 'res.partner'"), false},
	}
	for _, c := range cases {
		if got := isTransportError(c.err); got != c.want {
			t.Errorf("%s: isTransportError() = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	cases := []Config{
		{},
		{BaseURL: "http://odoo.local"},
		{BaseURL: "http://odoo.local", Database: "prod"},
		{BaseURL: "http://odoo.local", Database: "prod", User: "admin"},
	}
	for _, cfg := range cases {
		if _, err := New(cfg); err == nil {
			t.Errorf("New(%+v) should fail with incomplete credentials", cfg)
		}
	}

	g, err := New(Config{BaseURL: "http://odoo.local/", Database: "prod", User: "admin", Password: "secret"})
	if err != nil {
		t.Fatalf("New with full credentials failed: %v", err)
	}
	if g.cfg.BaseURL != "http://odoo.local" {
		t.Errorf("expected trailing slash to be trimmed, got %q", g.cfg.BaseURL)
	}
}

func TestToInt64Slice(t *testing.T) {
	got := toInt64Slice([]any{float64(1), float64(2), float64(3)})
	want := []int64{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestToRecords(t *testing.T) {
	raw := []any{
		map[string]any{"id": float64(1), "name": "a"},
		map[string]any{"id": float64(2), "name": "b"},
	}
	recs := toRecords(raw)
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0]["name"] != "a" || recs[1]["name"] != "b" {
		t.Errorf("unexpected records: %+v", recs)
	}
}
