package authclient

import (
	"context"

	"github.com/LiterallyLink/twitter-clone-sub001/session"
)

const (
	pathVerifyEmail        = "/auth/verify-email"
	pathResendVerification = "/auth/resend-verification"
)

// RegisterRequest is the input for [Client.Register].
type RegisterRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName,omitempty"`
}

type registerPayload struct {
	User *session.UserProfile `json:"user"`
}

// Register creates an account. Registration does not authenticate: the auth
// state store is untouched until the user verifies their email and logs in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*session.UserProfile, error) {
	var payload registerPayload
	if err := c.pipeline.Post(ctx, c.config.Endpoints.Register, req, &payload); err != nil {
		c.metricInc(MetricRegisterFailure)
		c.emitAudit(ctx, auditEventRegisterFailure, c.config.Endpoints.Register, 0, false, err)
		return nil, err
	}

	c.metricInc(MetricRegisterSuccess)
	c.emitAudit(ctx, auditEventRegisterSuccess, c.config.Endpoints.Register, userIDOf(payload.User), true, nil)
	return payload.User, nil
}

// VerifyEmail redeems an email-verification token.
func (c *Client) VerifyEmail(ctx context.Context, token string) error {
	body := struct {
		Token string `json:"token"`
	}{Token: token}
	return c.pipeline.Post(ctx, pathVerifyEmail, body, nil)
}

// ResendVerification asks the server to send a fresh verification email.
// The server answers identically whether or not the address exists.
func (c *Client) ResendVerification(ctx context.Context, email string) error {
	body := struct {
		Email string `json:"email"`
	}{Email: email}
	return c.pipeline.Post(ctx, pathResendVerification, body, nil)
}
