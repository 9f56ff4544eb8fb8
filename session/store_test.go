package session

import "testing"

func user(id int64, username string) *UserProfile {
	return &UserProfile{ID: id, Username: username}
}

func TestAuthenticatedTracksUserOnEveryTransition(t *testing.T) {
	s := NewStore()

	if snap := s.Snapshot(); snap.IsAuthenticated || snap.User != nil {
		t.Fatalf("fresh store must be unauthenticated, got %+v", snap)
	}

	s.SetUser(user(1, "alice"))
	if snap := s.Snapshot(); !snap.IsAuthenticated || snap.User == nil {
		t.Fatalf("expected authenticated after SetUser, got %+v", snap)
	}

	s.Clear("session ended")
	snap := s.Snapshot()
	if snap.IsAuthenticated || snap.User != nil {
		t.Fatalf("expected unauthenticated after Clear, got %+v", snap)
	}
	if snap.Err != "session ended" {
		t.Fatalf("expected error message preserved, got %q", snap.Err)
	}

	// FinishCheck with a nil user must also end unauthenticated.
	s.FinishCheck(nil, "expired")
	if snap := s.Snapshot(); snap.IsAuthenticated {
		t.Fatal("FinishCheck(nil) must not leave IsAuthenticated set")
	}
}

func TestLoadingFlagCoversExactlyTheIdentityCheck(t *testing.T) {
	s := NewStore()

	s.BeginCheck()
	if snap := s.Snapshot(); !snap.IsLoading {
		t.Fatal("expected IsLoading after BeginCheck")
	}

	s.FinishCheck(user(2, "bob"), "")
	snap := s.Snapshot()
	if snap.IsLoading {
		t.Fatal("expected IsLoading cleared after FinishCheck")
	}
	if !snap.IsAuthenticated || snap.User.Username != "bob" {
		t.Fatalf("expected bob authenticated, got %+v", snap)
	}

	// Login completion must not touch the loading flag.
	s.SetUser(user(3, "carol"))
	if snap := s.Snapshot(); snap.IsLoading {
		t.Fatal("SetUser must not set IsLoading")
	}
}

func TestBeginCheckClearsStaleError(t *testing.T) {
	s := NewStore()
	s.FinishCheck(nil, "network failure")

	s.BeginCheck()
	if snap := s.Snapshot(); snap.Err != "" {
		t.Fatalf("expected error cleared at check start, got %q", snap.Err)
	}
}

func TestSubscribersSeeEveryTransitionUntilCancelled(t *testing.T) {
	s := NewStore()

	var seen []Snapshot
	cancel := s.Subscribe(func(snap Snapshot) {
		seen = append(seen, snap)
	})

	s.BeginCheck()
	s.FinishCheck(user(1, "alice"), "")

	if len(seen) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(seen))
	}
	if !seen[0].IsLoading {
		t.Fatal("first notification should carry the loading state")
	}
	if !seen[1].IsAuthenticated {
		t.Fatal("second notification should carry the authenticated state")
	}

	cancel()
	cancel() // safe to call twice
	s.Clear("")
	if len(seen) != 2 {
		t.Fatalf("cancelled subscriber still notified, got %d", len(seen))
	}
}

func TestSubscriberMayMutateStoreWithoutDeadlock(t *testing.T) {
	s := NewStore()

	first := true
	s.Subscribe(func(snap Snapshot) {
		if first && snap.IsAuthenticated {
			first = false
			s.Clear("")
		}
	})

	// Notification runs outside the lock, so a reentrant mutation must not
	// deadlock.
	s.SetUser(user(1, "alice"))
	if snap := s.Snapshot(); snap.IsAuthenticated {
		t.Fatal("reentrant Clear should have taken effect")
	}
}
