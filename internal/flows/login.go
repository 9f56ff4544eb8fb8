package flows

import (
	"context"
	"errors"
	"sync"

	"github.com/LiterallyLink/twitter-clone-sub001/session"
)

// ErrNoPendingChallenge is returned when a second factor is submitted while
// no first-factor success is awaiting one.
var ErrNoPendingChallenge = errors.New("no pending second-factor challenge")

// State is a position in the login state machine.
type State uint8

const (
	StateAnonymous State = iota
	StateAwaitingFirstFactor
	StateAwaitingSecondFactor
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAwaitingFirstFactor:
		return "awaiting_first_factor"
	case StateAwaitingSecondFactor:
		return "awaiting_second_factor"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// PendingChallenge is the ephemeral value produced by a first-factor success
// that demands a second factor. It lives only in the flow, never in the auth
// state store, until the second factor completes or the user abandons the
// flow. No client-side timeout applies; server-side expiry is authoritative.
type PendingChallenge struct {
	UserID int64
}

// PostFunc dispatches one POST through the request pipeline.
type PostFunc func(ctx context.Context, path string, body, out any) error

// Result is the outcome of a first-factor submission.
type Result struct {
	User              *session.UserProfile
	TwoFactorRequired bool
	UserID            int64
}

// SecondFactor carries one second-factor submission. The caller may flip
// UseBackupCode freely between attempts; the server-side challenge state is
// untouched until a code is actually submitted.
type SecondFactor struct {
	UserID         int64  `json:"userId"`
	Code           string `json:"code"`
	UseBackupCode  bool   `json:"useBackupCode"`
	RememberDevice bool   `json:"rememberDevice,omitempty"`
	DeviceID       string `json:"deviceId,omitempty"`
}

// Flow is the login state machine. Authenticated is terminal for the
// machine itself; logout re-arms it through Reset, driven by the auth state
// store owner.
type Flow struct {
	post          PostFunc
	store         *session.Store
	loginPath     string
	twoFactorPath string

	mu      sync.Mutex
	state   State
	pending *PendingChallenge
}

// New creates a Flow in the Anonymous state.
func New(post PostFunc, store *session.Store, loginPath, twoFactorPath string) *Flow {
	return &Flow{
		post:          post,
		store:         store,
		loginPath:     loginPath,
		twoFactorPath: twoFactorPath,
	}
}

// State returns the machine's current position.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Pending returns a copy of the pending challenge, or nil.
func (f *Flow) Pending() *PendingChallenge {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending == nil {
		return nil
	}
	p := *f.pending
	return &p
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginPayload struct {
	User              *session.UserProfile `json:"user"`
	RequiresTwoFactor bool                 `json:"requiresTwoFactor"`
	UserID            int64                `json:"userId"`
}

// SubmitCredentials runs the first factor. On success without a
// second-factor requirement the identity is forwarded to the auth state
// store and the machine completes; with one, the machine parks in
// AwaitingSecondFactor exposing the challenge's user ID and the store is not
// touched.
func (f *Flow) SubmitCredentials(ctx context.Context, identifier, secret string) (*Result, error) {
	f.mu.Lock()
	f.state = StateAwaitingFirstFactor
	f.pending = nil
	f.mu.Unlock()

	var payload loginPayload
	err := f.post(ctx, f.loginPath, credentialsRequest{Email: identifier, Password: secret}, &payload)
	if err != nil {
		f.setState(StateAnonymous, nil)
		return nil, err
	}

	if payload.RequiresTwoFactor {
		f.setState(StateAwaitingSecondFactor, &PendingChallenge{UserID: payload.UserID})
		return &Result{TwoFactorRequired: true, UserID: payload.UserID}, nil
	}

	f.store.SetUser(payload.User)
	f.setState(StateAuthenticated, nil)
	return &Result{User: payload.User}, nil
}

// SubmitSecondFactor completes a pending challenge. A rejected code leaves
// the machine in AwaitingSecondFactor so the user can try again or switch to
// a backup code; the server reveals nothing about whether the user ID was
// valid.
func (f *Flow) SubmitSecondFactor(ctx context.Context, sf SecondFactor) (*session.UserProfile, error) {
	f.mu.Lock()
	if f.state != StateAwaitingSecondFactor {
		f.mu.Unlock()
		return nil, ErrNoPendingChallenge
	}
	if sf.UserID == 0 && f.pending != nil {
		sf.UserID = f.pending.UserID
	}
	f.mu.Unlock()

	var payload loginPayload
	err := f.post(ctx, f.twoFactorPath, sf, &payload)
	if err != nil {
		// Stay parked: neither an invalid code nor a transient failure
		// resets the machine or mutates the store.
		return nil, err
	}

	f.store.SetUser(payload.User)
	f.setState(StateAuthenticated, nil)
	return payload.User, nil
}

// Abandon discards the pending challenge client-side, as when the user
// navigates away mid-challenge. The server-side challenge, if any, expires
// independently.
func (f *Flow) Abandon() {
	f.setState(StateAnonymous, nil)
}

// Reset returns the machine to Anonymous. Called on logout.
func (f *Flow) Reset() {
	f.setState(StateAnonymous, nil)
}

func (f *Flow) setState(s State, pending *PendingChallenge) {
	f.mu.Lock()
	f.state = s
	f.pending = pending
	f.mu.Unlock()
}
