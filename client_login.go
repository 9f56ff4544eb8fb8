package authclient

import (
	"context"

	"github.com/LiterallyLink/twitter-clone-sub001/session"
)

// Login submits the first factor. On success without a second-factor
// requirement the identity lands in the auth state store and the result
// carries the user; with one, the result carries the challenge's user ID
// and the store is untouched until [Client.ConfirmLogin2FA] completes.
//
// Matches ErrInvalidCredentials when the server rejects the pair and
// ErrAccountLocked when it signals lockout.
func (c *Client) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	result, err := c.login.SubmitCredentials(ctx, identifier, password)
	if err != nil {
		c.metricInc(MetricLoginFailure)
		c.emitAudit(ctx, auditEventLoginFailure, c.config.Endpoints.Login, 0, false, err)
		return nil, err
	}

	if result.TwoFactorRequired {
		c.metricInc(MetricTwoFactorRequired)
		c.emitAudit(ctx, auditEventMFARequired, c.config.Endpoints.Login, result.UserID, true, nil)
		return result, nil
	}

	c.metricInc(MetricLoginSuccess)
	c.emitAudit(ctx, auditEventLoginSuccess, c.config.Endpoints.Login, userIDOf(result.User), true, nil)
	return result, nil
}

// ConfirmLogin2FA completes a pending second-factor challenge with a
// time-based code or, with UseBackupCode set, a single-use backup code. The
// caller may flip modes between attempts without resetting the server-side
// challenge. A rejected code matches ErrInvalidCode and leaves the
// challenge pending, so the user can retry.
//
// With RememberDevice set and no explicit DeviceID, the client's stable
// device identifier is sent so the server can waive the second factor for
// this device for a bounded period.
func (c *Client) ConfirmLogin2FA(ctx context.Context, sf SecondFactor) (*session.UserProfile, error) {
	if sf.RememberDevice && sf.DeviceID == "" {
		sf.DeviceID = c.deviceID
	}

	user, err := c.login.SubmitSecondFactor(ctx, sf)
	if err != nil {
		c.metricInc(MetricTwoFactorFailure)
		c.emitAudit(ctx, auditEventMFAFailure, c.config.Endpoints.TwoFactorLogin, sf.UserID, false, err)
		return nil, err
	}

	c.metricInc(MetricTwoFactorSuccess)
	if sf.UseBackupCode {
		c.metricInc(MetricBackupCodeUsed)
	}
	c.emitAudit(ctx, auditEventMFASuccess, c.config.Endpoints.TwoFactorLogin, userIDOf(user), true, nil)
	return user, nil
}

// AbandonLogin discards the pending second-factor challenge client-side, as
// when the user navigates away mid-challenge. Any server-side challenge
// expires on its own schedule.
func (c *Client) AbandonLogin() {
	c.login.Abandon()
}
