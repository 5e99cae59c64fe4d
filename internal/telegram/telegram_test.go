package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeAuth struct {
	linkCode    string
	linkErr     error
	verifyErr   error
	unlinkErr   error
	lastEmail   string
	lastCode    string
	unlinkCalls int
}

func (f *fakeAuth) LinkStart(ctx context.Context, externalID, workEmail, username string) (string, error) {
	f.lastEmail = workEmail
	return f.linkCode, f.linkErr
}

func (f *fakeAuth) Verify(ctx context.Context, externalID, code string) error {
	f.lastCode = code
	return f.verifyErr
}

func (f *fakeAuth) Unlink(ctx context.Context, externalID string) error {
	f.unlinkCalls++
	return f.unlinkErr
}

type fakeSurface struct {
	reply string
	err   error
}

func (f *fakeSurface) Handle(ctx context.Context, externalID, message string) (string, error) {
	return f.reply, f.err
}

func TestHandleLinkRequiresEmailArgument(t *testing.T) {
	b := &Bot{auth: &fakeAuth{}, surf: &fakeSurface{}}
	got := b.handleLink(context.Background(), "1", "alice", "/link")
	if got != "Usage: /link <work email>" {
		t.Errorf("got %q", got)
	}
}

func TestHandleLinkEchoesDemoCode(t *testing.T) {
	auth := &fakeAuth{linkCode: "123456"}
	b := &Bot{auth: auth, surf: &fakeSurface{}}
	got := b.handleLink(context.Background(), "1", "alice", "/link alice@co.test")
	if auth.lastEmail != "alice@co.test" {
		t.Errorf("lastEmail = %q", auth.lastEmail)
	}
	if got == "" || !containsAll(got, "123456") {
		t.Errorf("expected the demo code in the reply, got %q", got)
	}
}

func TestHandleLinkWithoutDemoCodeTellsUserToCheckEmail(t *testing.T) {
	auth := &fakeAuth{linkCode: ""}
	b := &Bot{auth: auth, surf: &fakeSurface{}}
	got := b.handleLink(context.Background(), "1", "alice", "/link alice@co.test")
	if containsAll(got, "123456") {
		t.Errorf("should not leak a code when none was returned: %q", got)
	}
}

func TestHandleLinkPropagatesError(t *testing.T) {
	auth := &fakeAuth{linkErr: errors.New("not found")}
	b := &Bot{auth: auth, surf: &fakeSurface{}}
	got := b.handleLink(context.Background(), "1", "alice", "/link ghost@co.test")
	if got == "" {
		t.Error("expected a non-empty error reply")
	}
}

func TestHandleVerifySuccessAndFailure(t *testing.T) {
	auth := &fakeAuth{}
	b := &Bot{auth: auth, surf: &fakeSurface{}}

	got := b.handleVerify(context.Background(), "1", "654321")
	if auth.lastCode != "654321" {
		t.Errorf("lastCode = %q", auth.lastCode)
	}
	if got == "" {
		t.Error("expected a success reply")
	}

	auth.verifyErr = errors.New("expired")
	got = b.handleVerify(context.Background(), "1", "000000")
	if !containsAll(got, "expired") {
		t.Errorf("expected the error reflected in the reply, got %q", got)
	}
}

func TestHandleUnlink(t *testing.T) {
	auth := &fakeAuth{}
	b := &Bot{auth: auth, surf: &fakeSurface{}}
	b.handleUnlink(context.Background(), "1")
	if auth.unlinkCalls != 1 {
		t.Errorf("unlinkCalls = %d, want 1", auth.unlinkCalls)
	}
}

func TestSixDigitCodePattern(t *testing.T) {
	cases := map[string]bool{"123456": true, "12345": false, "1234567": false, "abcdef": false}
	for input, want := range cases {
		if got := sixDigitCode.MatchString(input); got != want {
			t.Errorf("sixDigitCode.MatchString(%q) = %v, want %v", input, got, want)
		}
	}
}

func containsAll(haystack, needle string) bool {
	return strings.Contains(haystack, needle)
}
