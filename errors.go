package authclient

import (
	"github.com/LiterallyLink/twitter-clone-sub001/internal/flows"
	"github.com/LiterallyLink/twitter-clone-sub001/internal/transport"
)

// The failure taxonomy. Every error returned by a Client method matches
// exactly one of these under errors.Is; the envelope's error string, when
// the server supplied one, is carried verbatim on the wrapping error.
var (
	// ErrNetworkFailure marks a transport-level failure with no response.
	ErrNetworkFailure = transport.ErrNetworkFailure
	// ErrValidationFailure marks a 4xx rejection carrying a field-level
	// server message.
	ErrValidationFailure = transport.ErrValidationFailure
	// ErrCSRFRejected marks a CSRF-validation failure that survived its one
	// automatic repair.
	ErrCSRFRejected = transport.ErrCSRFRejected
	// ErrAuthExpired marks an expired access credential that survived its
	// one automatic refresh-retry.
	ErrAuthExpired = transport.ErrAuthExpired
	// ErrInvalidCredentials marks a rejected identifier/password pair.
	ErrInvalidCredentials = transport.ErrInvalidCredentials
	// ErrInvalidCode marks a rejected second-factor or backup code. The
	// server does not reveal whether the user ID was valid.
	ErrInvalidCode = transport.ErrInvalidCode
	// ErrAccountLocked marks a server-signalled lockout.
	ErrAccountLocked = transport.ErrAccountLocked
	// ErrServerFailure marks a 5xx response.
	ErrServerFailure = transport.ErrServerFailure

	// ErrNoPendingChallenge is returned by [Client.ConfirmLogin2FA] when no
	// first-factor success is awaiting a second factor.
	ErrNoPendingChallenge = flows.ErrNoPendingChallenge
)
