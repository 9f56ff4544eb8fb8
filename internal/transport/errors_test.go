package transport

import (
	"errors"
	"net/http"
	"testing"
)

func TestClassifyIsEndpointAware(t *testing.T) {
	c := Classifier{
		LoginPath:     "/auth/login",
		TwoFactorPath: "/auth/login/2fa",
		RegisterPath:  "/auth/register",
	}

	cases := []struct {
		name   string
		path   string
		status int
		env    Envelope
		want   FailureKind
	}{
		{"server error", "/auth/me", http.StatusInternalServerError, Envelope{}, FailureServer},
		{"locked status", "/auth/login", http.StatusLocked, Envelope{Error: "Account locked"}, FailureAccountLocked},
		{"csrf rejection", "/posts", http.StatusForbidden, Envelope{Error: "Invalid CSRF token"}, FailureCSRF},
		{"locked via forbidden", "/auth/login", http.StatusForbidden, Envelope{Error: "Account locked due to failed attempts"}, FailureAccountLocked},
		{"plain forbidden", "/admin/users", http.StatusForbidden, Envelope{Error: "Admin access required"}, FailureValidation},
		{"bad credentials", "/auth/login", http.StatusUnauthorized, Envelope{Error: "Invalid email or password"}, FailureInvalidCredentials},
		{"bad credentials on register", "/auth/register", http.StatusUnauthorized, Envelope{}, FailureInvalidCredentials},
		{"bad code", "/auth/login/2fa", http.StatusUnauthorized, Envelope{Error: "Invalid verification code"}, FailureInvalidCode},
		{"expired session", "/auth/me", http.StatusUnauthorized, Envelope{}, FailureAuthExpired},
		{"bad code via 400", "/auth/login/2fa", http.StatusBadRequest, Envelope{}, FailureInvalidCode},
		{"validation default", "/auth/register", http.StatusBadRequest, Envelope{Error: "Password too short"}, FailureValidation},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := c.Classify(tc.path, tc.status, tc.env); got != tc.want {
				t.Fatalf("Classify(%s, %d) = %v, want %v", tc.path, tc.status, got, tc.want)
			}
		})
	}
}

func TestAPIErrorMatchesSentinelAndExposesMessage(t *testing.T) {
	err := error(&APIError{
		Kind:       FailureAccountLocked,
		StatusCode: http.StatusLocked,
		Endpoint:   "/auth/login",
		Message:    "Account locked due to too many failed login attempts",
	})

	if !errors.Is(err, ErrAccountLocked) {
		t.Fatal("expected errors.Is match on ErrAccountLocked")
	}
	if errors.Is(err, ErrInvalidCredentials) {
		t.Fatal("must not match unrelated sentinels")
	}
	if got := Message(err); got != "Account locked due to too many failed login attempts" {
		t.Fatalf("Message must surface the server text verbatim, got %q", got)
	}
}

func TestAPIErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := error(&APIError{Kind: FailureNetwork, Endpoint: "/auth/me", Message: "network failure", cause: cause})

	if !errors.Is(err, ErrNetworkFailure) {
		t.Fatal("expected sentinel match")
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected cause match")
	}
}

func TestMessageFallsBackToErrorText(t *testing.T) {
	plain := errors.New("plain failure")
	if got := Message(plain); got != "plain failure" {
		t.Fatalf("expected fallback to Error(), got %q", got)
	}
}
