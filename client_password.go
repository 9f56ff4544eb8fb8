package authclient

import "context"

const (
	pathForgotPassword = "/auth/forgot-password"
	pathResetPassword  = "/auth/reset-password"
	pathChangePassword = "/auth/change-password"
)

// ForgotPassword starts the password-reset flow for email. The server
// answers identically whether or not the address exists.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	body := struct {
		Email string `json:"email"`
	}{Email: email}
	err := c.pipeline.Post(ctx, pathForgotPassword, body, nil)
	c.emitAudit(ctx, auditEventPasswordReset, pathForgotPassword, 0, err == nil, err)
	return err
}

// ResetPassword redeems a reset token for a new password.
func (c *Client) ResetPassword(ctx context.Context, token, newPassword string) error {
	body := struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}{Token: token, NewPassword: newPassword}
	err := c.pipeline.Post(ctx, pathResetPassword, body, nil)
	c.emitAudit(ctx, auditEventPasswordReset, pathResetPassword, 0, err == nil, err)
	return err
}

// ChangePassword replaces the authenticated user's password. The current
// password is re-verified server-side.
func (c *Client) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	body := struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}{CurrentPassword: currentPassword, NewPassword: newPassword}
	err := c.pipeline.Post(ctx, pathChangePassword, body, nil)
	c.emitAudit(ctx, auditEventPasswordChange, pathChangePassword, 0, err == nil, err)
	return err
}
