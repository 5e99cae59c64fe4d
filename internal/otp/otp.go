// Package otp implements the OTP/Session Authenticator (spec.md §4.E): a
// process-memory state machine — NONE → AWAITING_CODE → BOUND — that binds
// an external chat identity (e.g. a Telegram chat id) to an ERP employee,
// grounded on original_source/employee-agent/app/services/odoo_service.py's
// save_telegram_link/get_employee_by_telegram/remove_telegram_link trio for
// the persisted-key shape: telegram_link_<external_id> = "<employee_id>|<username>".
package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/boarsvc/boar/internal/boarerr"
	"github.com/boarsvc/boar/internal/erp"
)

// State is a value in the NONE/AWAITING_CODE/BOUND lifecycle.
type State string

const (
	StateNone         State = "none"
	StateAwaitingCode State = "awaiting_code"
	StateBound        State = "bound"
)

const (
	codeExpiry   = 10 * time.Minute
	codeAttempts = 3
)

// ErrExpired is returned by Verify when the session's code has expired or
// its attempt budget is exhausted; both cases end the same way — the
// session is deleted and the caller must start over with LinkStart.
var ErrExpired = boarerr.New(boarerr.KindAuthRequired, "verification code expired or attempts exhausted")

// MemoryClearer is satisfied by llm.ConversationMemory; Unlink clears the
// conversation history kept for an unbound identity without internal/otp
// importing internal/llm directly.
type MemoryClearer interface {
	Clear(externalID string)
}

// ErpGateway is the slice of *erp.Gateway the Authenticator depends on,
// accepted as an interface so tests can substitute a fake config/employee
// store instead of standing up a real Odoo endpoint.
type ErpGateway interface {
	ConfigParameter(ctx context.Context, key string) (string, bool, error)
	SetConfigParameter(ctx context.Context, key, value string) error
	DeleteConfigParameter(ctx context.Context, key string) error
	ReadEmployees(ctx context.Context, domain []any, limit, offset int) ([]erp.Employee, error)
}

// EmailSender is the slice of *notifier.EmailSender the Authenticator
// depends on.
type EmailSender interface {
	Send(to []string, subject, textBody, htmlBody string) (bool, error)
}

type session struct {
	employeeID        int64
	username          string
	code              string
	expiresAt         time.Time
	attemptsRemaining int
}

// Authenticator holds in-flight AWAITING_CODE sessions; BOUND state lives
// entirely in ERP config parameters, so it survives process restarts.
type Authenticator struct {
	erp      ErpGateway
	email    EmailSender
	demoMode bool
	memory   MemoryClearer

	mu       sync.Mutex
	sessions map[string]*session
}

// New builds an Authenticator. demoMode gates the "echo the code instead of
// emailing it" fallback used when SMTP dispatch fails (spec.md §9's
// resolution of the OTP_DEMO_MODE open question) — off by default, in which
// case a dispatch failure is a hard error rather than a silent echo.
func New(gw ErpGateway, email EmailSender, demoMode bool) *Authenticator {
	return &Authenticator{erp: gw, email: email, demoMode: demoMode, sessions: make(map[string]*session)}
}

// SetMemoryClearer wires the conversation memory Unlink clears on success.
func (a *Authenticator) SetMemoryClearer(m MemoryClearer) {
	a.memory = m
}

func configKey(externalID string) string {
	return "telegram_link_" + externalID
}

// State reports externalID's current position in the lifecycle.
func (a *Authenticator) State(ctx context.Context, externalID string) (State, error) {
	a.mu.Lock()
	_, awaiting := a.sessions[externalID]
	a.mu.Unlock()
	if awaiting {
		return StateAwaitingCode, nil
	}

	_, bound, err := a.erp.ConfigParameter(ctx, configKey(externalID))
	if err != nil {
		return "", fmt.Errorf("otp: check binding: %w", err)
	}
	if bound {
		return StateBound, nil
	}
	return StateNone, nil
}

// LinkStart resolves workEmail to an employee, opens an AWAITING_CODE
// session, and dispatches the code by email. It refuses to run against an
// identity already BOUND — Unlink must run first. On success it returns ""
// (the code went out by email); in demo mode with a failed email dispatch
// it returns the code itself for the caller to echo back to the user.
func (a *Authenticator) LinkStart(ctx context.Context, externalID, workEmail, username string) (demoCode string, err error) {
	state, err := a.State(ctx, externalID)
	if err != nil {
		return "", err
	}
	if state == StateBound {
		return "", boarerr.New(boarerr.KindValidationError, "identity is already linked; unlink first")
	}

	employees, err := a.erp.ReadEmployees(ctx, []any{[]any{"work_email", "=", workEmail}}, 1, 0)
	if err != nil {
		return "", fmt.Errorf("otp: resolve employee by work email: %w", err)
	}
	if len(employees) == 0 {
		return "", boarerr.New(boarerr.KindEntityNotFound, fmt.Sprintf("no employee found with work email %q", workEmail))
	}
	employee := employees[0]

	code, err := generateCode()
	if err != nil {
		return "", err
	}

	a.mu.Lock()
	a.sessions[externalID] = &session{
		employeeID:        employee.ID,
		username:          username,
		code:              code,
		expiresAt:         time.Now().Add(codeExpiry),
		attemptsRemaining: codeAttempts,
	}
	a.mu.Unlock()

	subject := "Your verification code"
	body := fmt.Sprintf("Your verification code is %s. It expires in 10 minutes.", code)
	sent, sendErr := a.email.Send([]string{employee.WorkEmail}, subject, body, "")
	if sendErr == nil && sent {
		return "", nil
	}

	if a.demoMode {
		return code, nil
	}

	a.mu.Lock()
	delete(a.sessions, externalID)
	a.mu.Unlock()
	return "", boarerr.Wrap(boarerr.KindIntegrationTimeout, "could not dispatch verification code by email", sendErr)
}

// Verify checks code against externalID's pending session. On success it
// persists the binding into ERP config storage and transitions to BOUND.
func (a *Authenticator) Verify(ctx context.Context, externalID, code string) error {
	a.mu.Lock()
	sess, ok := a.sessions[externalID]
	if !ok {
		a.mu.Unlock()
		return ErrExpired
	}
	if time.Now().After(sess.expiresAt) {
		delete(a.sessions, externalID)
		a.mu.Unlock()
		return ErrExpired
	}

	if subtle.ConstantTimeCompare([]byte(code), []byte(sess.code)) != 1 {
		sess.attemptsRemaining--
		if sess.attemptsRemaining <= 0 {
			delete(a.sessions, externalID)
			a.mu.Unlock()
			return ErrExpired
		}
		remaining := sess.attemptsRemaining
		a.mu.Unlock()
		return boarerr.New(boarerr.KindAuthRequired, fmt.Sprintf("incorrect code, %d attempt(s) remaining", remaining))
	}

	employeeID, username := sess.employeeID, sess.username
	delete(a.sessions, externalID)
	a.mu.Unlock()

	value := fmt.Sprintf("%d|%s", employeeID, username)
	if err := a.erp.SetConfigParameter(ctx, configKey(externalID), value); err != nil {
		return fmt.Errorf("otp: persist binding: %w", err)
	}
	return nil
}

// Unlink removes externalID's binding and clears its conversation memory.
func (a *Authenticator) Unlink(ctx context.Context, externalID string) error {
	if err := a.erp.DeleteConfigParameter(ctx, configKey(externalID)); err != nil {
		return fmt.Errorf("otp: delete binding: %w", err)
	}

	a.mu.Lock()
	delete(a.sessions, externalID)
	a.mu.Unlock()

	if a.memory != nil {
		a.memory.Clear(externalID)
	}
	return nil
}

// Resolve reads the persisted binding and returns the bound employee id, or
// 0 if externalID is not currently BOUND.
func (a *Authenticator) Resolve(ctx context.Context, externalID string) (int64, error) {
	raw, ok, err := a.erp.ConfigParameter(ctx, configKey(externalID))
	if err != nil {
		return 0, fmt.Errorf("otp: resolve binding: %w", err)
	}
	if !ok {
		return 0, nil
	}

	first, _, _ := strings.Cut(raw, "|")
	id, err := strconv.ParseInt(first, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("otp: malformed binding value %q: %w", raw, err)
	}
	return id, nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("otp: generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
