// Package boarerr defines the typed error kinds BOAR services return, each
// carrying an HTTP status code for its kind via StatusCode (spec.md §7).
// Callers branch on the kind with Is rather than on error strings. The
// internal/httpapi handlers do not call StatusCode; each writes fixed
// statuses for its own failure paths.
package boarerr

import "fmt"

// Kind enumerates the error categories named in spec.md §7.
type Kind string

const (
	KindErpUnreachable    Kind = "erp_unreachable"
	KindErpAuthFailed     Kind = "erp_auth_failed"
	KindErpCallFailed     Kind = "erp_call_failed"
	KindErpModuleMissing  Kind = "erp_module_missing"
	KindAiUnavailable     Kind = "ai_unavailable"
	KindAiBadJSON         Kind = "ai_bad_json"
	KindAiGenerationFailed Kind = "ai_generation_failed"
	KindEntityNotFound    Kind = "entity_not_found"
	KindValidationError   Kind = "validation_error"
	KindAuthRequired      Kind = "auth_required"
	KindRateLimited       Kind = "rate_limited"
	KindIntegrationTimeout Kind = "integration_timeout"
)

var statusByKind = map[Kind]int{
	KindErpUnreachable:     502,
	KindErpAuthFailed:      502,
	KindErpCallFailed:      502,
	KindErpModuleMissing:   503,
	KindAiUnavailable:      503,
	KindAiBadJSON:          502,
	KindAiGenerationFailed: 502,
	KindEntityNotFound:     404,
	KindValidationError:    400,
	KindAuthRequired:       401,
	KindRateLimited:        429,
	KindIntegrationTimeout: 504,
}

// Error is the concrete error type every BOAR component returns for
// categorized failures. Plain Go errors (fmt.Errorf, io errors) still flow
// through normal wrapping; Error is only for conditions the caller needs to
// branch on or report with a specific status code.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status the httpapi layer should respond with.
func (e *Error) StatusCode() int {
	if code, ok := statusByKind[e.Kind]; ok {
		return code
	}
	return 500
}

// New builds an *Error of the given kind with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error of the given kind wrapping an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Is reports whether err is a *Error of the given kind, unwrapping as needed.
func Is(err error, kind Kind) bool {
	var be *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			be = e
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return be != nil && be.Kind == kind
}
