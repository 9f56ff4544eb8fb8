package authclient

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/LiterallyLink/twitter-clone-sub001/internal/transport"
	"github.com/LiterallyLink/twitter-clone-sub001/session"
)

const (
	pathAdminUsers          = "/admin/users"
	pathAdminStats          = "/admin/stats"
	pathAdminSecurityEvents = "/admin/security/events"
)

// UserPage is one page of the admin user listing.
type UserPage struct {
	Users      []session.UserProfile `json:"users"`
	Total      int                   `json:"total"`
	Page       int                   `json:"page"`
	TotalPages int                   `json:"totalPages"`
}

// AdminUserUpdate holds the mutable fields of an admin user edit. Nil fields
// are left unchanged.
type AdminUserUpdate struct {
	DisplayName *string `json:"displayName,omitempty"`
	IsVerified  *bool   `json:"isVerified,omitempty"`
	IsAdmin     *bool   `json:"isAdmin,omitempty"`
}

// AdminStats is the platform-wide aggregate the admin dashboard renders.
type AdminStats struct {
	TotalUsers        int64 `json:"totalUsers"`
	VerifiedUsers     int64 `json:"verifiedUsers"`
	TwoFactorUsers    int64 `json:"twoFactorUsers"`
	LockedAccounts    int64 `json:"lockedAccounts"`
	LoginsToday       int64 `json:"loginsToday"`
	FailedLoginsToday int64 `json:"failedLoginsToday"`
}

// SecurityEvent is one server-recorded security occurrence, such as a
// lockout or a burst of failed logins.
type SecurityEvent struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	EventType string    `json:"eventType"`
	IP        string    `json:"ip"`
	Detail    string    `json:"detail"`
	CreatedAt time.Time `json:"createdAt"`
}

// AdminListUsers pages through all accounts. page is 1-based; zero values
// take the server defaults. The caller needs the admin role or the server
// answers 403.
func (c *Client) AdminListUsers(ctx context.Context, page, limit int) (*UserPage, error) {
	call := transport.Call{Method: http.MethodGet, Path: pathAdminUsers}
	q := map[string][]string{}
	if page > 0 {
		q["page"] = []string{strconv.Itoa(page)}
	}
	if limit > 0 {
		q["limit"] = []string{strconv.Itoa(limit)}
	}
	if len(q) > 0 {
		call.Query = q
	}

	var result UserPage
	call.Out = &result
	if err := c.pipeline.Do(ctx, call); err != nil {
		return nil, err
	}
	return &result, nil
}

type adminUserPayload struct {
	User *session.UserProfile `json:"user"`
}

// AdminGetUser fetches one account by ID.
func (c *Client) AdminGetUser(ctx context.Context, userID int64) (*session.UserProfile, error) {
	var payload adminUserPayload
	if err := c.pipeline.Get(ctx, adminUserPath(userID), &payload); err != nil {
		return nil, err
	}
	return payload.User, nil
}

// AdminUpdateUser applies the non-nil fields of update to the account and
// returns its new state.
func (c *Client) AdminUpdateUser(ctx context.Context, userID int64, update AdminUserUpdate) (*session.UserProfile, error) {
	var payload adminUserPayload
	if err := c.pipeline.Put(ctx, adminUserPath(userID), update, &payload); err != nil {
		return nil, err
	}
	return payload.User, nil
}

// AdminDeleteUser removes the account and everything attached to it.
func (c *Client) AdminDeleteUser(ctx context.Context, userID int64) error {
	return c.pipeline.Delete(ctx, adminUserPath(userID))
}

// AdminStats fetches the platform-wide aggregate counters.
func (c *Client) AdminStats(ctx context.Context) (*AdminStats, error) {
	var stats AdminStats
	if err := c.pipeline.Get(ctx, pathAdminStats, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

type securityEventsPayload struct {
	Events []SecurityEvent `json:"events"`
}

// AdminSecurityEvents lists recent security events, newest first.
func (c *Client) AdminSecurityEvents(ctx context.Context, limit int) ([]SecurityEvent, error) {
	call := transport.Call{Method: http.MethodGet, Path: pathAdminSecurityEvents}
	if limit > 0 {
		call.Query = map[string][]string{"limit": {strconv.Itoa(limit)}}
	}

	var payload securityEventsPayload
	call.Out = &payload
	if err := c.pipeline.Do(ctx, call); err != nil {
		return nil, err
	}
	return payload.Events, nil
}

func adminUserPath(userID int64) string {
	return pathAdminUsers + "/" + strconv.FormatInt(userID, 10)
}
