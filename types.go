package authclient

import (
	"errors"
	"io"

	internalaudit "github.com/LiterallyLink/twitter-clone-sub001/internal/audit"
	"github.com/LiterallyLink/twitter-clone-sub001/internal/flows"
	"github.com/LiterallyLink/twitter-clone-sub001/internal/transport"
	"github.com/LiterallyLink/twitter-clone-sub001/session"
)

// UserProfile is the server-issued identity projection. See
// [session.UserProfile]; the alias keeps call sites inside one import.
type UserProfile = session.UserProfile

// LoginState is a position in the login state machine.
type LoginState = flows.State

const (
	// LoginStateAnonymous is the machine's rest state: no login in flight.
	LoginStateAnonymous = flows.StateAnonymous
	// LoginStateAwaitingFirstFactor marks a credentials submission in flight.
	LoginStateAwaitingFirstFactor = flows.StateAwaitingFirstFactor
	// LoginStateAwaitingSecondFactor marks a first-factor success parked on
	// its second-factor challenge.
	LoginStateAwaitingSecondFactor = flows.StateAwaitingSecondFactor
	// LoginStateAuthenticated is terminal for the machine; logout re-arms it.
	LoginStateAuthenticated = flows.StateAuthenticated
)

// LoginResult is the outcome of a first-factor submission. Either User is
// set, or TwoFactorRequired is true and UserID identifies the pending
// challenge.
type LoginResult = flows.Result

// SecondFactor carries one second-factor submission: a time-based code or,
// with UseBackupCode set, a single-use backup code.
type SecondFactor = flows.SecondFactor

// PendingTwoFactorChallenge is the ephemeral challenge produced by a
// first-factor success that demands a second factor.
type PendingTwoFactorChallenge = flows.PendingChallenge

// RequestHook observes every dispatch attempt of the request pipeline.
type RequestHook = transport.Hook

// RequestHookFunc adapts a before-only function to [RequestHook].
type RequestHookFunc = transport.HookFunc

// AuditEvent is a structured audit record emitted by the client.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the client's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// APIErrorDetails extracts the HTTP status and verbatim server message from
// an error returned by a Client method. ok is false for errors that did not
// originate from an API response, such as ErrNoPendingChallenge.
func APIErrorDetails(err error) (status int, message string, ok bool) {
	var apiErr *transport.APIError
	if !errors.As(err, &apiErr) {
		return 0, "", false
	}
	return apiErr.StatusCode, apiErr.Message, true
}
