package transport

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors for the failure taxonomy. The root package re-exports
// these; callers match with errors.Is.
var (
	ErrNetworkFailure     = errors.New("network failure")
	ErrValidationFailure  = errors.New("validation failure")
	ErrCSRFRejected       = errors.New("csrf token rejected")
	ErrAuthExpired        = errors.New("authentication expired")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidCode        = errors.New("invalid verification code")
	ErrAccountLocked      = errors.New("account locked")
	ErrServerFailure      = errors.New("server failure")
)

// FailureKind classifies an API failure.
type FailureKind uint8

const (
	FailureNetwork FailureKind = iota
	FailureValidation
	FailureCSRF
	FailureAuthExpired
	FailureInvalidCredentials
	FailureInvalidCode
	FailureAccountLocked
	FailureServer
)

func (k FailureKind) sentinel() error {
	switch k {
	case FailureNetwork:
		return ErrNetworkFailure
	case FailureCSRF:
		return ErrCSRFRejected
	case FailureAuthExpired:
		return ErrAuthExpired
	case FailureInvalidCredentials:
		return ErrInvalidCredentials
	case FailureInvalidCode:
		return ErrInvalidCode
	case FailureAccountLocked:
		return ErrAccountLocked
	case FailureServer:
		return ErrServerFailure
	default:
		return ErrValidationFailure
	}
}

// APIError is the typed failure returned by the pipeline. Message carries the
// envelope's error string verbatim; the UI displays it unmodified.
type APIError struct {
	Kind       FailureKind
	StatusCode int
	Endpoint   string
	Message    string
	cause      error
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.sentinel().Error()
	}
	if e.Endpoint == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", e.Endpoint, msg)
}

// Unwrap exposes both the taxonomy sentinel and, for transport-level
// failures, the underlying error.
func (e *APIError) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Kind.sentinel(), e.cause}
	}
	return []error{e.Kind.sentinel()}
}

// Message returns the server's verbatim error string when err carries one,
// falling back to err.Error(). This is the text surfaced to the UI.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

// Classifier maps an HTTP failure to a FailureKind. Endpoint-aware: a 401
// from the login or registration endpoint is a credentials rejection, not an
// expired session, and a second-factor rejection is an invalid code.
type Classifier struct {
	LoginPath     string
	TwoFactorPath string
	RegisterPath  string
}

// Classify maps the response for path to a failure kind. env may hold the
// zero value when the body carried no envelope.
func (c Classifier) Classify(path string, status int, env Envelope) FailureKind {
	switch {
	case status >= http.StatusInternalServerError:
		return FailureServer
	case status == http.StatusLocked:
		return FailureAccountLocked
	case status == http.StatusForbidden:
		if strings.Contains(env.Error, "CSRF") {
			return FailureCSRF
		}
		if strings.Contains(strings.ToLower(env.Error), "locked") {
			return FailureAccountLocked
		}
		return FailureValidation
	case status == http.StatusUnauthorized:
		switch path {
		case c.LoginPath, c.RegisterPath:
			return FailureInvalidCredentials
		case c.TwoFactorPath:
			return FailureInvalidCode
		default:
			return FailureAuthExpired
		}
	case path == c.TwoFactorPath && status >= http.StatusBadRequest:
		return FailureInvalidCode
	default:
		return FailureValidation
	}
}
