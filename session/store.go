package session

import "sync"

// Snapshot is a point-in-time copy of the authentication state.
// IsAuthenticated always equals User != nil; the store enforces this on
// every transition rather than trusting callers to keep the pair in sync.
type Snapshot struct {
	User            *UserProfile
	IsAuthenticated bool
	IsLoading       bool
	Err             string
}

// Store holds the authoritative in-memory authentication state.
//
// All mutation goes through BeginCheck, FinishCheck, SetUser, and Clear.
// Subscribers are notified synchronously after each transition, outside the
// store lock.
type Store struct {
	mu      sync.Mutex
	snap    Snapshot
	subs    map[uint64]func(Snapshot)
	nextSub uint64
}

// NewStore creates an empty Store: no user, not loading, no error.
func NewStore() *Store {
	return &Store{
		subs: make(map[uint64]func(Snapshot)),
	}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Subscribe registers fn to run after every state transition. The returned
// cancel function removes the subscription and is safe to call more than once.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// BeginCheck marks an identity check as in flight. Only the identity check
// sets IsLoading; every other operation leaves it false.
func (s *Store) BeginCheck() {
	s.transition(func(snap *Snapshot) {
		snap.IsLoading = true
		snap.Err = ""
	})
}

// FinishCheck records the outcome of an identity check. A nil user with a
// message means the check failed (including a propagated refresh failure);
// the state becomes unauthenticated with the message surfaced. IsLoading is
// always cleared.
func (s *Store) FinishCheck(user *UserProfile, errMsg string) {
	s.transition(func(snap *Snapshot) {
		snap.User = user
		snap.IsLoading = false
		snap.Err = errMsg
	})
}

// SetUser is the synchronous completion hook used by the login flow on
// successful authentication. It never performs network calls.
func (s *Store) SetUser(user *UserProfile) {
	s.transition(func(snap *Snapshot) {
		snap.User = user
		snap.Err = ""
	})
}

// Clear drops the user and records an optional error message. Used by logout:
// the local state always ends unauthenticated regardless of what the server
// answered.
func (s *Store) Clear(errMsg string) {
	s.transition(func(snap *Snapshot) {
		snap.User = nil
		snap.IsLoading = false
		snap.Err = errMsg
	})
}

func (s *Store) transition(mutate func(*Snapshot)) {
	s.mu.Lock()
	mutate(&s.snap)
	s.snap.IsAuthenticated = s.snap.User != nil
	snap := s.snap
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
