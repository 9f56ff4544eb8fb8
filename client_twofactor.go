package authclient

import "context"

const (
	pathTwoFactorSetup   = "/auth/2fa/setup"
	pathTwoFactorEnable  = "/auth/2fa/enable"
	pathTwoFactorDisable = "/auth/2fa/disable"
	pathTwoFactorStatus  = "/auth/2fa/status"
	pathRegenerateBackup = "/auth/2fa/regenerate-backup-codes"
)

// TwoFactorSetup is the provisioning material returned by
// [Client.BeginTwoFactorSetup]. The secret and otpauth URL feed an
// authenticator app; nothing is active until the first code is confirmed.
type TwoFactorSetup struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauthUrl"`
	QRCode     string `json:"qrCode,omitempty"`
}

// TwoFactorStatus reports whether the second factor is active and how many
// backup codes remain unused.
type TwoFactorStatus struct {
	Enabled              bool `json:"enabled"`
	BackupCodesRemaining int  `json:"backupCodesRemaining"`
}

// BeginTwoFactorSetup provisions a TOTP secret for the authenticated user.
// The second factor stays off until [Client.EnableTwoFactor] confirms a code
// generated from it.
func (c *Client) BeginTwoFactorSetup(ctx context.Context) (*TwoFactorSetup, error) {
	var setup TwoFactorSetup
	if err := c.pipeline.Post(ctx, pathTwoFactorSetup, nil, &setup); err != nil {
		return nil, err
	}
	return &setup, nil
}

type backupCodesPayload struct {
	BackupCodes []string `json:"backupCodes"`
}

// EnableTwoFactor confirms the provisioned secret with a code from the
// authenticator app and activates the second factor. The returned backup
// codes are shown once; the server stores only digests.
func (c *Client) EnableTwoFactor(ctx context.Context, code string) ([]string, error) {
	body := struct {
		Code string `json:"code"`
	}{Code: code}

	var payload backupCodesPayload
	if err := c.pipeline.Post(ctx, pathTwoFactorEnable, body, &payload); err != nil {
		return nil, err
	}
	c.emitAudit(ctx, auditEventTwoFactorEnabled, pathTwoFactorEnable, 0, true, nil)
	return payload.BackupCodes, nil
}

// DisableTwoFactor turns the second factor off. The server re-verifies the
// password before honoring the request.
func (c *Client) DisableTwoFactor(ctx context.Context, password string) error {
	body := struct {
		Password string `json:"password"`
	}{Password: password}
	if err := c.pipeline.Post(ctx, pathTwoFactorDisable, body, nil); err != nil {
		return err
	}
	c.emitAudit(ctx, auditEventTwoFactorDisabled, pathTwoFactorDisable, 0, true, nil)
	return nil
}

// TwoFactorStatus reports the authenticated user's second-factor state.
func (c *Client) TwoFactorStatus(ctx context.Context) (*TwoFactorStatus, error) {
	var status TwoFactorStatus
	if err := c.pipeline.Get(ctx, pathTwoFactorStatus, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// RegenerateBackupCodes replaces the full backup-code set. Previously issued
// codes stop working immediately.
func (c *Client) RegenerateBackupCodes(ctx context.Context) ([]string, error) {
	var payload backupCodesPayload
	if err := c.pipeline.Post(ctx, pathRegenerateBackup, nil, &payload); err != nil {
		return nil, err
	}
	c.emitAudit(ctx, auditEventBackupCodesRegenerated, pathRegenerateBackup, 0, true, nil)
	return payload.BackupCodes, nil
}
