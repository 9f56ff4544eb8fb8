package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/LiterallyLink/twitter-clone-sub001/internal/retry"
)

const testCSRFHeader = "x-csrf-token"

type fakeCSRF struct {
	token   atomic.Value // string
	fetches atomic.Int32
	next    string
}

func newFakeCSRF(current, next string) *fakeCSRF {
	f := &fakeCSRF{next: next}
	f.token.Store(current)
	return f
}

func (f *fakeCSRF) Get() string {
	return f.token.Load().(string)
}

func (f *fakeCSRF) Fetch(context.Context) {
	f.fetches.Add(1)
	f.token.Store(f.next)
}

type fakeRefresher struct {
	calls atomic.Int32
	err   error
}

func (f *fakeRefresher) Refresh(context.Context) error {
	f.calls.Add(1)
	return f.err
}

func respond(w http.ResponseWriter, status int, env map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func newPipeline(t *testing.T, handler http.HandlerFunc, csrf CSRFSource, r Refresher) *Pipeline {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	base, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}

	p := New(Options{
		BaseURL:    base,
		Client:     srv.Client(),
		CSRF:       csrf,
		CSRFHeader: testCSRFHeader,
		CSRFPolicy: retry.Policy{MaxAttempts: 1},
		AuthPolicy: retry.Policy{
			MaxAttempts: 1,
			Exclude: func(path string) bool {
				return path == "/auth/refresh" || path == "/auth/login" || path == "/auth/register"
			},
		},
		Classifier: Classifier{
			LoginPath:     "/auth/login",
			TwoFactorPath: "/auth/login/2fa",
			RegisterPath:  "/auth/register",
		},
	})
	if r != nil {
		p.SetRefresher(r)
	}
	return p
}

func TestCSRFRejectionRefetchesAndResubmitsOnce(t *testing.T) {
	csrf := newFakeCSRF("stale", "fresh")

	var attempts atomic.Int32
	var secondToken atomic.Value
	p := newPipeline(t, func(w http.ResponseWriter, r *http.Request) {
		switch attempts.Add(1) {
		case 1:
			respond(w, http.StatusForbidden, map[string]any{"success": false, "error": "Invalid CSRF token"})
		default:
			secondToken.Store(r.Header.Get(testCSRFHeader))
			respond(w, http.StatusOK, map[string]any{"success": true})
		}
	}, csrf, nil)

	if err := p.Post(context.Background(), "/posts", map[string]string{"text": "hi"}, nil); err != nil {
		t.Fatalf("expected repaired request to succeed, got %v", err)
	}
	if got := attempts.Load(); got != 2 {
		t.Fatalf("expected exactly 2 dispatches, got %d", got)
	}
	if got := csrf.fetches.Load(); got != 1 {
		t.Fatalf("expected exactly 1 token refetch, got %d", got)
	}
	if got, _ := secondToken.Load().(string); got != "fresh" {
		t.Fatalf("resubmission must carry the refetched token, got %q", got)
	}
}

func TestAtMostOneCSRFRepairPerRequest(t *testing.T) {
	csrf := newFakeCSRF("stale", "fresh")

	var attempts atomic.Int32
	p := newPipeline(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		respond(w, http.StatusForbidden, map[string]any{"success": false, "error": "Invalid CSRF token"})
	}, csrf, nil)

	err := p.Post(context.Background(), "/posts", nil, nil)
	if !errors.Is(err, ErrCSRFRejected) {
		t.Fatalf("expected ErrCSRFRejected, got %v", err)
	}
	// Even though the repaired token was rejected too, the pipeline must
	// not loop.
	if got := attempts.Load(); got != 2 {
		t.Fatalf("expected exactly 2 dispatches, got %d", got)
	}
}

func TestCSRFRepairAbortsWhenRefetchYieldsNothing(t *testing.T) {
	csrf := newFakeCSRF("stale", "")

	var attempts atomic.Int32
	p := newPipeline(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		respond(w, http.StatusForbidden, map[string]any{"success": false, "error": "Invalid CSRF token"})
	}, csrf, nil)

	err := p.Post(context.Background(), "/posts", nil, nil)
	if !errors.Is(err, ErrCSRFRejected) {
		t.Fatalf("expected ErrCSRFRejected, got %v", err)
	}
	if got := attempts.Load(); got != 1 {
		t.Fatalf("no resubmission without a token, got %d dispatches", got)
	}
	if got := csrf.fetches.Load(); got != 1 {
		t.Fatalf("expected the repair refetch to have run, got %d", got)
	}
}

func TestExpiredSessionRefreshesAndResubmitsOnce(t *testing.T) {
	refresher := &fakeRefresher{}

	var attempts atomic.Int32
	p := newPipeline(t, func(w http.ResponseWriter, r *http.Request) {
		switch attempts.Add(1) {
		case 1:
			respond(w, http.StatusUnauthorized, map[string]any{"success": false, "error": "Authentication expired"})
		default:
			respond(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{"value": 7}})
		}
	}, newFakeCSRF("tok", "tok"), refresher)

	var out struct {
		Value int `json:"value"`
	}
	if err := p.Get(context.Background(), "/auth/me", &out); err != nil {
		t.Fatalf("expected refreshed request to succeed, got %v", err)
	}
	if out.Value != 7 {
		t.Fatalf("resubmission's result must be returned, got %+v", out)
	}
	if got := refresher.calls.Load(); got != 1 {
		t.Fatalf("expected exactly 1 refresh, got %d", got)
	}
	if got := attempts.Load(); got != 2 {
		t.Fatalf("expected exactly 2 dispatches, got %d", got)
	}
}

func TestAtMostOneRefreshRetryPerRequest(t *testing.T) {
	refresher := &fakeRefresher{}

	var attempts atomic.Int32
	p := newPipeline(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		respond(w, http.StatusUnauthorized, map[string]any{"success": false, "error": "Authentication expired"})
	}, newFakeCSRF("tok", "tok"), refresher)

	err := p.Get(context.Background(), "/auth/me", nil)
	if !errors.Is(err, ErrAuthExpired) {
		t.Fatalf("expected ErrAuthExpired, got %v", err)
	}
	if got := refresher.calls.Load(); got != 1 {
		t.Fatalf("expected exactly 1 refresh, got %d", got)
	}
	if got := attempts.Load(); got != 2 {
		t.Fatalf("expected exactly 2 dispatches, got %d", got)
	}
}

func TestRefreshFailurePropagatesOriginalError(t *testing.T) {
	refresher := &fakeRefresher{err: errors.New("refresh exploded")}

	var attempts atomic.Int32
	p := newPipeline(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		respond(w, http.StatusUnauthorized, map[string]any{"success": false, "error": "Authentication expired"})
	}, newFakeCSRF("tok", "tok"), refresher)

	err := p.Get(context.Background(), "/auth/me", nil)
	if !errors.Is(err, ErrAuthExpired) {
		t.Fatalf("caller must see the original failure, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Endpoint != "/auth/me" {
		t.Fatalf("error must reference the original request, got %v", err)
	}
	if got := attempts.Load(); got != 1 {
		t.Fatalf("no resubmission after a failed refresh, got %d dispatches", got)
	}
}

func TestRefreshNeverRunsForExcludedEndpoints(t *testing.T) {
	for _, path := range []string{"/auth/refresh", "/auth/login", "/auth/register"} {
		t.Run(path, func(t *testing.T) {
			refresher := &fakeRefresher{}

			var attempts atomic.Int32
			p := newPipeline(t, func(w http.ResponseWriter, r *http.Request) {
				attempts.Add(1)
				respond(w, http.StatusUnauthorized, map[string]any{"success": false, "error": "nope"})
			}, newFakeCSRF("tok", "tok"), refresher)

			err := p.Post(context.Background(), path, nil, nil)
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := refresher.calls.Load(); got != 0 {
				t.Fatalf("refresh must not run for %s, ran %d times", path, got)
			}
			if got := attempts.Load(); got != 1 {
				t.Fatalf("expected exactly 1 dispatch, got %d", got)
			}
		})
	}
}

func TestRepairsAreMutuallyExclusivePerAttempt(t *testing.T) {
	// First attempt fails CSRF, repaired attempt fails auth. Each category
	// consumes only its own budget, so both repairs run, one per attempt.
	csrf := newFakeCSRF("stale", "fresh")
	refresher := &fakeRefresher{}

	var attempts atomic.Int32
	p := newPipeline(t, func(w http.ResponseWriter, r *http.Request) {
		switch attempts.Add(1) {
		case 1:
			respond(w, http.StatusForbidden, map[string]any{"success": false, "error": "Invalid CSRF token"})
		case 2:
			respond(w, http.StatusUnauthorized, map[string]any{"success": false, "error": "Authentication expired"})
		default:
			respond(w, http.StatusOK, map[string]any{"success": true})
		}
	}, csrf, refresher)

	if err := p.Post(context.Background(), "/posts", nil, nil); err != nil {
		t.Fatalf("expected success after both repairs, got %v", err)
	}
	if got := attempts.Load(); got != 3 {
		t.Fatalf("expected 3 dispatches, got %d", got)
	}
	if got := csrf.fetches.Load(); got != 1 {
		t.Fatalf("expected 1 token refetch, got %d", got)
	}
	if got := refresher.calls.Load(); got != 1 {
		t.Fatalf("expected 1 refresh, got %d", got)
	}
}

func TestCSRFHeaderOnlyOnStateChangingRequests(t *testing.T) {
	var getToken, postToken atomic.Value
	p := newPipeline(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			getToken.Store(r.Header.Get(testCSRFHeader))
		case http.MethodPost:
			postToken.Store(r.Header.Get(testCSRFHeader))
		}
		respond(w, http.StatusOK, map[string]any{"success": true})
	}, newFakeCSRF("tok", "tok"), nil)

	if err := p.Get(context.Background(), "/auth/me", nil); err != nil {
		t.Fatal(err)
	}
	if err := p.Post(context.Background(), "/posts", nil, nil); err != nil {
		t.Fatal(err)
	}

	if got, _ := getToken.Load().(string); got != "" {
		t.Fatalf("GET must not carry the CSRF header, got %q", got)
	}
	if got, _ := postToken.Load().(string); got != "tok" {
		t.Fatalf("POST must carry the CSRF header, got %q", got)
	}
}

func TestEnvelopeErrorOnSuccessStatusIsValidationFailure(t *testing.T) {
	p := newPipeline(t, func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, map[string]any{"success": false, "error": "Username already taken"})
	}, newFakeCSRF("tok", "tok"), nil)

	err := p.Post(context.Background(), "/auth/register", nil, nil)
	if !errors.Is(err, ErrValidationFailure) {
		t.Fatalf("expected ErrValidationFailure, got %v", err)
	}
	if got := Message(err); got != "Username already taken" {
		t.Fatalf("server message must surface verbatim, got %q", got)
	}
}

func TestDoPlainNeverRepairs(t *testing.T) {
	csrf := newFakeCSRF("stale", "fresh")
	refresher := &fakeRefresher{}

	var attempts atomic.Int32
	p := newPipeline(t, func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		respond(w, http.StatusUnauthorized, map[string]any{"success": false, "error": "Authentication expired"})
	}, csrf, refresher)

	err := p.DoPlain(context.Background(), Call{Method: http.MethodPost, Path: "/anything"})
	if !errors.Is(err, ErrAuthExpired) {
		t.Fatalf("expected ErrAuthExpired, got %v", err)
	}
	if got := attempts.Load(); got != 1 {
		t.Fatalf("plain path must dispatch once, got %d", got)
	}
	if refresher.calls.Load() != 0 || csrf.fetches.Load() != 0 {
		t.Fatal("plain path must not trigger any repair")
	}
}

func TestNetworkFailureWrapsSentinelAndCause(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	base, _ := url.Parse(srv.URL)
	p := New(Options{
		BaseURL:    base,
		Client:     http.DefaultClient,
		CSRF:       newFakeCSRF("tok", "tok"),
		CSRFHeader: testCSRFHeader,
	})

	err := p.Get(context.Background(), "/auth/me", nil)
	if !errors.Is(err, ErrNetworkFailure) {
		t.Fatalf("expected ErrNetworkFailure, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Kind != FailureNetwork {
		t.Fatalf("expected a network APIError, got %v", err)
	}
}
