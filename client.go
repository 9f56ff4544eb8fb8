package authclient

import (
	"context"
	"log"
	"net/http"

	internalaudit "github.com/LiterallyLink/twitter-clone-sub001/internal/audit"
	"github.com/LiterallyLink/twitter-clone-sub001/internal/csrf"
	"github.com/LiterallyLink/twitter-clone-sub001/internal/flows"
	"github.com/LiterallyLink/twitter-clone-sub001/internal/refresh"
	"github.com/LiterallyLink/twitter-clone-sub001/internal/transport"
	"github.com/LiterallyLink/twitter-clone-sub001/session"
)

// Client is the authenticated-session manager. Build one with [Builder] and
// share it; all methods are safe for concurrent use.
type Client struct {
	config    Config
	http      *http.Client
	store     *session.Store
	csrf      *csrf.Cache
	pipeline  *transport.Pipeline
	refresher *refresh.Coordinator
	login     *flows.Flow
	audit     *internalaudit.Dispatcher
	metrics   *Metrics
	deviceID  string
}

// Session returns the auth state store UI code reads and subscribes to.
func (c *Client) Session() *session.Store {
	return c.store
}

// LoginState returns the login state machine's current position.
func (c *Client) LoginState() LoginState {
	return c.login.State()
}

// PendingChallenge returns the pending second-factor challenge, or nil.
func (c *Client) PendingChallenge() *PendingTwoFactorChallenge {
	return c.login.Pending()
}

// DeviceID returns the client's stable device identifier, sent when the
// user asks the server to remember this device across second factors.
func (c *Client) DeviceID() string {
	return c.deviceID
}

// Bootstrap runs the application-start sequence: fetch the anti-forgery
// token, then hydrate the auth state store with an identity check. The
// order is strict; the identity check never dispatches before the token
// fetch resolves. Both failures are absorbed into store state so the
// application always reaches a renderable state; only context cancellation
// is returned.
func (c *Client) Bootstrap(ctx context.Context) error {
	c.metricInc(MetricBootstrap)
	c.emitAudit(ctx, auditEventBootstrap, "", 0, true, nil)

	c.csrf.Fetch(ctx)
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := c.CheckAuth(ctx); err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

type mePayload struct {
	User *session.UserProfile `json:"user"`
}

// CheckAuth asks the server who the current identity is. The store's
// IsLoading flag is set for exactly the duration of the call; on any
// failure, including a propagated refresh failure, the store ends
// unauthenticated with the failure's message surfaced.
func (c *Client) CheckAuth(ctx context.Context) (*session.UserProfile, error) {
	c.store.BeginCheck()

	var payload mePayload
	if err := c.pipeline.Get(ctx, c.config.Endpoints.Me, &payload); err != nil {
		c.store.FinishCheck(nil, transport.Message(err))
		c.metricInc(MetricCheckAuthFailure)
		c.emitAudit(ctx, auditEventCheckAuthFailure, c.config.Endpoints.Me, 0, false, err)
		return nil, err
	}

	c.store.FinishCheck(payload.User, "")
	c.metricInc(MetricCheckAuthSuccess)
	c.emitAudit(ctx, auditEventCheckAuthSuccess, c.config.Endpoints.Me, userIDOf(payload.User), true, nil)
	return payload.User, nil
}

// Logout asks the server to invalidate the session, then unconditionally
// clears local state: whatever the server answered, the client ends logged
// out, with the server's error surfaced on the store when there was one.
func (c *Client) Logout(ctx context.Context) error {
	err := c.pipeline.Post(ctx, c.config.Endpoints.Logout, nil, nil)

	c.login.Reset()
	c.metricInc(MetricLogout)
	if err != nil {
		c.store.Clear(transport.Message(err))
		c.emitAudit(ctx, auditEventLogout, c.config.Endpoints.Logout, 0, false, err)
		return err
	}
	c.store.Clear("")
	c.emitAudit(ctx, auditEventLogout, c.config.Endpoints.Logout, 0, true, nil)
	return nil
}

// MetricsSnapshot returns a point-in-time copy of all metrics.
func (c *Client) MetricsSnapshot() MetricsSnapshot {
	if c == nil || c.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return c.metrics.Snapshot()
}

// AuditDropped returns the number of audit events lost to a full buffer.
func (c *Client) AuditDropped() uint64 {
	if c == nil || c.audit == nil {
		return 0
	}
	return c.audit.Dropped()
}

// Close stops the audit dispatcher after draining buffered events.
func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.audit != nil {
		c.audit.Close()
	}
}

func (c *Client) metricInc(id MetricID) {
	if c == nil || c.metrics == nil {
		return
	}
	c.metrics.Inc(id)
}

func (c *Client) warnf(format string, args ...any) {
	log.Printf("authclient: "+format, args...)
}

func userIDOf(user *session.UserProfile) int64 {
	if user == nil {
		return 0
	}
	return user.ID
}
