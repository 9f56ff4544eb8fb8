package authclient

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/LiterallyLink/twitter-clone-sub001/internal/transport"
)

const (
	pathRecoveryCodes  = "/auth/recovery-codes"
	pathTrustedDevices = "/auth/trusted-devices"
	pathLoginHistory   = "/auth/login-history"
)

// RecoveryCode is a single account-recovery code with its consumption state.
type RecoveryCode struct {
	Code string `json:"code"`
	Used bool   `json:"used"`
}

// TrustedDevice is a device the server remembers across second factors.
type TrustedDevice struct {
	ID         int64     `json:"id"`
	DeviceName string    `json:"deviceName"`
	CreatedAt  time.Time `json:"createdAt"`
	LastUsedAt time.Time `json:"lastUsedAt"`
	Current    bool      `json:"current"`
}

// LoginHistoryEntry is one recorded sign-in attempt, successful or not.
type LoginHistoryEntry struct {
	ID        int64     `json:"id"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"userAgent"`
	Success   bool      `json:"success"`
	CreatedAt time.Time `json:"createdAt"`
}

type recoveryCodesPayload struct {
	RecoveryCodes []RecoveryCode `json:"recoveryCodes"`
}

// RecoveryCodes lists the authenticated user's recovery codes.
func (c *Client) RecoveryCodes(ctx context.Context) ([]RecoveryCode, error) {
	var payload recoveryCodesPayload
	if err := c.pipeline.Get(ctx, pathRecoveryCodes, &payload); err != nil {
		return nil, err
	}
	return payload.RecoveryCodes, nil
}

// ClearRecoveryCodes invalidates every outstanding recovery code.
func (c *Client) ClearRecoveryCodes(ctx context.Context) error {
	return c.pipeline.Delete(ctx, pathRecoveryCodes)
}

type trustedDevicesPayload struct {
	Devices []TrustedDevice `json:"devices"`
}

// TrustedDevices lists the devices the server will skip the second factor
// for. The entry matching this client carries Current.
func (c *Client) TrustedDevices(ctx context.Context) ([]TrustedDevice, error) {
	var payload trustedDevicesPayload
	if err := c.pipeline.Get(ctx, pathTrustedDevices, &payload); err != nil {
		return nil, err
	}
	return payload.Devices, nil
}

// RevokeTrustedDevice removes one trusted device. The next login from it
// requires the second factor again.
func (c *Client) RevokeTrustedDevice(ctx context.Context, deviceID int64) error {
	p := pathTrustedDevices + "/" + strconv.FormatInt(deviceID, 10)
	if err := c.pipeline.Delete(ctx, p); err != nil {
		c.emitAudit(ctx, auditEventDeviceRevoked, p, 0, false, err)
		return err
	}
	c.emitAudit(ctx, auditEventDeviceRevoked, p, 0, true, nil)
	return nil
}

type loginHistoryPayload struct {
	History []LoginHistoryEntry `json:"history"`
}

// LoginHistory returns recent sign-in attempts, newest first. limit caps the
// page size; zero takes the server default.
func (c *Client) LoginHistory(ctx context.Context, limit int) ([]LoginHistoryEntry, error) {
	call := transport.Call{Method: http.MethodGet, Path: pathLoginHistory}
	if limit > 0 {
		call.Query = map[string][]string{"limit": {strconv.Itoa(limit)}}
	}

	var payload loginHistoryPayload
	call.Out = &payload
	if err := c.pipeline.Do(ctx, call); err != nil {
		return nil, err
	}
	return payload.History, nil
}

// ClearLoginHistory deletes the authenticated user's sign-in records.
func (c *Client) ClearLoginHistory(ctx context.Context) error {
	return c.pipeline.Delete(ctx, pathLoginHistory)
}
