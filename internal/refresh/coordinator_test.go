package refresh

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestConcurrentCallersShareOneExchange(t *testing.T) {
	var exchanges atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})

	var coalesced atomic.Int32
	c := New(func(ctx context.Context) error {
		exchanges.Add(1)
		close(started)
		<-release
		return nil
	}, nil, func() {
		coalesced.Add(1)
	})

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)

	wg.Add(1)
	go func() {
		defer wg.Done()
		errs[0] = c.Refresh(context.Background())
	}()
	<-started

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = c.Refresh(context.Background())
		}(i)
	}

	// Give the joiners time to reach the in-flight check before releasing.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := exchanges.Load(); got != 1 {
		t.Fatalf("expected exactly 1 exchange, got %d", got)
	}
	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
	}
	if coalesced.Load() == 0 {
		t.Fatal("expected at least one coalesced caller")
	}
}

func TestJoinersShareTheOwnersFailure(t *testing.T) {
	wantErr := errors.New("refresh rejected")
	started := make(chan struct{})
	release := make(chan struct{})

	c := New(func(ctx context.Context) error {
		close(started)
		<-release
		return wantErr
	}, nil, nil)

	ownerDone := make(chan error, 1)
	go func() { ownerDone <- c.Refresh(context.Background()) }()
	<-started

	joinerDone := make(chan error, 1)
	go func() { joinerDone <- c.Refresh(context.Background()) }()

	time.Sleep(20 * time.Millisecond)
	close(release)

	if err := <-ownerDone; !errors.Is(err, wantErr) {
		t.Fatalf("owner: expected %v, got %v", wantErr, err)
	}
	if err := <-joinerDone; !errors.Is(err, wantErr) {
		t.Fatalf("joiner must share the outcome, got %v", err)
	}
}

func TestJoinerUnblocksOnContextCancellation(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	c := New(func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}, nil, nil)

	go func() { _ = c.Refresh(context.Background()) }()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Refresh(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSequentialRefreshesRunSeparately(t *testing.T) {
	var exchanges atomic.Int32
	var results []error
	c := New(func(ctx context.Context) error {
		exchanges.Add(1)
		return nil
	}, func(err error) {
		results = append(results, err)
	}, nil)

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	if got := exchanges.Load(); got != 2 {
		t.Fatalf("sequential calls must each exchange, got %d", got)
	}
	if len(results) != 2 {
		t.Fatalf("onResult should fire per exchange, got %d", len(results))
	}
}
