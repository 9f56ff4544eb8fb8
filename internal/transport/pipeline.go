package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/LiterallyLink/twitter-clone-sub001/internal/retry"
)

// CSRFSource supplies the anti-forgery token attached to state-changing
// requests and refetches it when the server rejects it.
type CSRFSource interface {
	Get() string
	Fetch(ctx context.Context)
}

// Refresher exchanges the expired access credential for a renewed one.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Call describes one logical API request. Out, when non-nil, receives the
// envelope's data payload on success.
type Call struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Out    any
}

// Options configures a Pipeline.
type Options struct {
	BaseURL    *url.URL
	Client     *http.Client
	CSRF       CSRFSource
	CSRFHeader string
	UserAgent  string
	CSRFPolicy retry.Policy
	AuthPolicy retry.Policy
	Classifier Classifier
	Hooks      []Hook

	// Observability callbacks, all optional.
	OnCSRFRepair   func()
	OnAuthRetry    func()
	ObserveLatency func(time.Duration)
}

// Pipeline dispatches API calls with token injection and bounded repair.
type Pipeline struct {
	client     *http.Client
	baseURL    *url.URL
	csrf       CSRFSource
	refresher  Refresher
	csrfHeader string
	userAgent  string
	csrfPolicy retry.Policy
	authPolicy retry.Policy
	classifier Classifier
	hooks      []Hook

	onCSRFRepair func()
	onAuthRetry  func()
	observe      func(time.Duration)
}

// New builds a Pipeline. The refresher is wired separately with SetRefresher
// because the refresh coordinator itself dispatches through the pipeline's
// plain path.
func New(opts Options) *Pipeline {
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	return &Pipeline{
		client:       client,
		baseURL:      opts.BaseURL,
		csrf:         opts.CSRF,
		csrfHeader:   opts.CSRFHeader,
		userAgent:    opts.UserAgent,
		csrfPolicy:   opts.CSRFPolicy,
		authPolicy:   opts.AuthPolicy,
		classifier:   opts.Classifier,
		hooks:        opts.Hooks,
		onCSRFRepair: opts.OnCSRFRepair,
		onAuthRetry:  opts.OnAuthRetry,
		observe:      opts.ObserveLatency,
	}
}

// SetRefresher installs the coordinator used for expired-credential repair.
func (p *Pipeline) SetRefresher(r Refresher) {
	p.refresher = r
}

// Do executes the call with full repair semantics.
func (p *Pipeline) Do(ctx context.Context, call Call) error {
	return p.run(ctx, call, p.csrfPolicy.Begin(), p.authPolicy.Begin())
}

// DoPlain executes the call without any repair. The refresh coordinator uses
// this path so a failing refresh can never recurse into another refresh.
func (p *Pipeline) DoPlain(ctx context.Context, call Call) error {
	return p.run(ctx, call, nil, nil)
}

// Get is shorthand for a GET call.
func (p *Pipeline) Get(ctx context.Context, apiPath string, out any) error {
	return p.Do(ctx, Call{Method: http.MethodGet, Path: apiPath, Out: out})
}

// Post is shorthand for a POST call.
func (p *Pipeline) Post(ctx context.Context, apiPath string, body, out any) error {
	return p.Do(ctx, Call{Method: http.MethodPost, Path: apiPath, Body: body, Out: out})
}

// Put is shorthand for a PUT call.
func (p *Pipeline) Put(ctx context.Context, apiPath string, body, out any) error {
	return p.Do(ctx, Call{Method: http.MethodPut, Path: apiPath, Body: body, Out: out})
}

// Delete is shorthand for a DELETE call.
func (p *Pipeline) Delete(ctx context.Context, apiPath string) error {
	return p.Do(ctx, Call{Method: http.MethodDelete, Path: apiPath})
}

// run is the attempt loop. Budgets are nil on the plain path. Exactly one
// repair branch can fire per attempt, and each branch consumes its own
// budget, so a logical request sees at most one CSRF repair and at most one
// refresh retry, never compounded.
func (p *Pipeline) run(ctx context.Context, call Call, csrfBudget, authBudget *retry.Budget) error {
	for {
		apiErr := p.dispatch(ctx, call)
		if apiErr == nil {
			return nil
		}

		switch {
		case apiErr.Kind == FailureCSRF && csrfBudget.Allow(call.Path):
			p.csrf.Fetch(ctx)
			if p.csrf.Get() == "" {
				// Token endpoint is broken too; surface the rejection.
				return apiErr
			}
			if p.onCSRFRepair != nil {
				p.onCSRFRepair()
			}
			continue

		case apiErr.Kind == FailureAuthExpired && p.refresher != nil && authBudget.Allow(call.Path):
			if err := p.refresher.Refresh(ctx); err != nil {
				// The caller sees the original authentication failure,
				// not the refresh failure.
				return apiErr
			}
			if p.onAuthRetry != nil {
				p.onAuthRetry()
			}
			continue
		}

		return apiErr
	}
}

// dispatch performs one attempt: build, send, decode. The request is rebuilt
// from the Call every time so a resubmission reads the current CSRF token.
func (p *Pipeline) dispatch(ctx context.Context, call Call) *APIError {
	req, err := p.newRequest(ctx, call)
	if err != nil {
		return &APIError{Kind: FailureNetwork, Endpoint: call.Path, Message: "request build failed", cause: err}
	}

	for _, h := range p.hooks {
		h.BeforeDispatch(req)
	}

	start := time.Now()
	res, err := p.client.Do(req)
	if p.observe != nil {
		p.observe(time.Since(start))
	}
	if err != nil {
		return &APIError{Kind: FailureNetwork, Endpoint: call.Path, Message: "network failure", cause: err}
	}
	defer res.Body.Close()

	for _, h := range p.hooks {
		h.AfterDispatch(req, res.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return &APIError{Kind: FailureNetwork, Endpoint: call.Path, StatusCode: res.StatusCode, Message: "response read failed", cause: err}
	}

	var env Envelope
	if len(body) > 0 {
		// A non-JSON body on a failure status still classifies by status.
		_ = json.Unmarshal(body, &env)
	}

	if res.StatusCode >= http.StatusBadRequest {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(res.StatusCode)
		}
		return &APIError{
			Kind:       p.classifier.Classify(call.Path, res.StatusCode, env),
			StatusCode: res.StatusCode,
			Endpoint:   call.Path,
			Message:    msg,
		}
	}

	if env.Error != "" && !env.Success {
		return &APIError{
			Kind:       FailureValidation,
			StatusCode: res.StatusCode,
			Endpoint:   call.Path,
			Message:    env.Error,
		}
	}

	if call.Out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, call.Out); err != nil {
			return &APIError{Kind: FailureNetwork, Endpoint: call.Path, StatusCode: res.StatusCode, Message: "response decode failed", cause: err}
		}
	}
	return nil
}

func (p *Pipeline) newRequest(ctx context.Context, call Call) (*http.Request, error) {
	u := *p.baseURL
	u.Path = path.Join(u.Path, call.Path)
	if call.Query != nil {
		u.RawQuery = call.Query.Encode()
	}

	var reader io.Reader
	if call.Body != nil {
		data, err := json.Marshal(call.Body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, call.Method, u.String(), reader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	if call.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}
	if stateChanging(call.Method) && p.csrf != nil {
		// Read at dispatch time: a repair or concurrent refetch must be
		// visible to the resubmission.
		if token := p.csrf.Get(); token != "" {
			req.Header.Set(p.csrfHeader, token)
		}
	}
	return req, nil
}

func stateChanging(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	default:
		return true
	}
}
