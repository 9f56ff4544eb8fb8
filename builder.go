package authclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"path"

	"github.com/google/uuid"

	internalaudit "github.com/LiterallyLink/twitter-clone-sub001/internal/audit"
	"github.com/LiterallyLink/twitter-clone-sub001/internal/csrf"
	"github.com/LiterallyLink/twitter-clone-sub001/internal/flows"
	"github.com/LiterallyLink/twitter-clone-sub001/internal/refresh"
	"github.com/LiterallyLink/twitter-clone-sub001/internal/retry"
	"github.com/LiterallyLink/twitter-clone-sub001/internal/transport"
	"github.com/LiterallyLink/twitter-clone-sub001/session"
)

// Builder assembles a [Client]. Configure it during initialization, call
// Build once, then discard it.
type Builder struct {
	config     Config
	httpClient *http.Client
	auditSink  AuditSink
	hooks      []RequestHook
	built      bool
}

// New creates a Builder with the default configuration.
func New() *Builder {
	return &Builder{config: defaultConfig()}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithBaseURL sets the API's base URL.
func (b *Builder) WithBaseURL(raw string) *Builder {
	b.config.API.BaseURL = raw
	return b
}

// WithHTTPClient supplies the HTTP client used for every call. A cookie jar
// is installed on it when it has none: cookie-carried credentials are the
// only credential storage the client has.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithAuditSink enables auditing into sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = sink != nil
	return b
}

// WithRequestHook appends a hook observing every dispatch attempt.
func (b *Builder) WithRequestHook(h RequestHook) *Builder {
	b.hooks = append(b.hooks, h)
	return b
}

// WithMetricsEnabled toggles the in-process metrics system.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the pipeline round-trip histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires the client together.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	b.built = true

	cfg := b.config
	if err := normalizeConfig(&cfg); err != nil {
		return nil, err
	}
	base, err := url.Parse(cfg.API.BaseURL)
	if err != nil {
		return nil, err
	}

	httpClient := b.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.API.Timeout}
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		httpClient.Jar = jar
	}

	c := &Client{
		config:   cfg,
		http:     httpClient,
		store:    session.NewStore(),
		metrics:  NewMetrics(cfg.Metrics),
		deviceID: uuid.NewString(),
	}
	c.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	c.csrf = csrf.New(httpClient, joinURL(base, cfg.Endpoints.CSRFToken), c.warnf, func(ok bool, errMsg string) {
		if ok {
			c.metricInc(MetricCSRFFetchSuccess)
			c.emitAudit(context.Background(), auditEventCSRFFetchSuccess, cfg.Endpoints.CSRFToken, 0, true, nil)
			return
		}
		c.metricInc(MetricCSRFFetchFailure)
		c.emitAudit(context.Background(), auditEventCSRFFetchFailure, cfg.Endpoints.CSRFToken, 0, false, errors.New(errMsg))
	})

	c.pipeline = transport.New(transport.Options{
		BaseURL:    base,
		Client:     httpClient,
		CSRF:       c.csrf,
		CSRFHeader: cfg.API.CSRFHeader,
		UserAgent:  cfg.API.UserAgent,
		CSRFPolicy: retry.Policy{MaxAttempts: cfg.Repair.CSRFRetries},
		AuthPolicy: retry.Policy{
			MaxAttempts: cfg.Repair.AuthRetries,
			// Refreshing before credentials exist is nonsensical, and
			// refreshing the refresh call would loop.
			Exclude: func(p string) bool {
				return p == cfg.Endpoints.Refresh || p == cfg.Endpoints.Login || p == cfg.Endpoints.Register
			},
		},
		Classifier: transport.Classifier{
			LoginPath:     cfg.Endpoints.Login,
			TwoFactorPath: cfg.Endpoints.TwoFactorLogin,
			RegisterPath:  cfg.Endpoints.Register,
		},
		Hooks: b.hooks,
		OnCSRFRepair: func() {
			c.metricInc(MetricCSRFRepair)
			c.emitAudit(context.Background(), auditEventCSRFRepair, "", 0, true, nil)
		},
		OnAuthRetry: func() {
			c.metricInc(MetricAuthRetry)
			c.emitAudit(context.Background(), auditEventRefreshRetry, "", 0, true, nil)
		},
		ObserveLatency: c.metrics.Observe,
	})

	c.refresher = refresh.New(
		func(ctx context.Context) error {
			return c.pipeline.DoPlain(ctx, transport.Call{Method: http.MethodPost, Path: cfg.Endpoints.Refresh})
		},
		func(err error) {
			if err == nil {
				c.metricInc(MetricRefreshSuccess)
				c.emitAudit(context.Background(), auditEventRefreshSuccess, cfg.Endpoints.Refresh, 0, true, nil)
				return
			}
			c.metricInc(MetricRefreshFailure)
			c.emitAudit(context.Background(), auditEventRefreshFailure, cfg.Endpoints.Refresh, 0, false, err)
		},
		func() {
			c.metricInc(MetricRefreshCoalesced)
		},
	)
	c.pipeline.SetRefresher(c.refresher)

	c.login = flows.New(c.pipeline.Post, c.store, cfg.Endpoints.Login, cfg.Endpoints.TwoFactorLogin)
	return c, nil
}

func joinURL(base *url.URL, p string) string {
	u := *base
	u.Path = path.Join(u.Path, p)
	return u.String()
}
