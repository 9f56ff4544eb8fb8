package authclient

import (
	"context"
	"strconv"

	internalaudit "github.com/LiterallyLink/twitter-clone-sub001/internal/audit"
)

const (
	auditEventBootstrap              = "bootstrap"
	auditEventCSRFFetchSuccess       = "csrf_fetch_success"
	auditEventCSRFFetchFailure       = "csrf_fetch_failure"
	auditEventCSRFRepair             = "csrf_repair"
	auditEventLoginSuccess           = "login_success"
	auditEventLoginFailure           = "login_failure"
	auditEventMFARequired            = "mfa_required"
	auditEventMFASuccess             = "mfa_success"
	auditEventMFAFailure             = "mfa_failure"
	auditEventRefreshSuccess         = "refresh_success"
	auditEventRefreshFailure         = "refresh_failure"
	auditEventRefreshRetry           = "refresh_retry"
	auditEventCheckAuthSuccess       = "check_auth_success"
	auditEventCheckAuthFailure       = "check_auth_failure"
	auditEventLogout                 = "logout"
	auditEventRegisterSuccess        = "register_success"
	auditEventRegisterFailure        = "register_failure"
	auditEventPasswordChange         = "password_change"
	auditEventPasswordReset          = "password_reset"
	auditEventTwoFactorEnabled       = "two_factor_enabled"
	auditEventTwoFactorDisabled      = "two_factor_disabled"
	auditEventBackupCodesRegenerated = "backup_codes_regenerated"
	auditEventDeviceRevoked          = "trusted_device_revoked"
)

func (c *Client) emitAudit(ctx context.Context, eventType, endpoint string, userID int64, success bool, err error) {
	if c == nil || c.audit == nil {
		return
	}

	event := internalaudit.NewEvent(eventType, success)
	event.Endpoint = endpoint
	if userID != 0 {
		event.UserID = strconv.FormatInt(userID, 10)
	}
	if err != nil {
		event.Error = err.Error()
	}
	c.audit.Emit(ctx, event)
}
