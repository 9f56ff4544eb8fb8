package apitest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/pquerna/otp/totp"
)

func (s *Server) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	token := randomToken()
	s.mu.Lock()
	s.csrfTokens[token] = true
	s.mu.Unlock()
	writeData(w, http.StatusOK, map[string]string{"csrfToken": token})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username    string `json:"username"`
		Email       string `json:"email"`
		Password    string `json:"password"`
		DisplayName string `json:"displayName"`
	}
	if err := decode(r, &req); err != nil || req.Username == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "Username and email are required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	s.mu.Lock()
	for _, u := range s.users {
		if u.Email == req.Email || u.Username == req.Username {
			s.mu.Unlock()
			writeError(w, http.StatusConflict, "Username or email already taken")
			return
		}
	}
	u := s.newUserLocked(req.Username, req.Email, req.Password)
	if req.DisplayName != "" {
		u.DisplayName = req.DisplayName
	}
	s.mu.Unlock()

	writeData(w, http.StatusCreated, map[string]any{"user": userJSON(u)})
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := decode(r, &req); err != nil || req.Token == "" {
		writeError(w, http.StatusBadRequest, "Verification token is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.verifyToken != "" && u.verifyToken == req.Token {
			u.IsVerified = true
			u.verifyToken = ""
			writeData(w, http.StatusOK, nil)
			return
		}
	}
	writeError(w, http.StatusBadRequest, "Invalid or expired verification token")
}

func (s *Server) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}

	s.mu.Lock()
	for _, u := range s.users {
		if u.Email == req.Email && !u.IsVerified {
			u.verifyToken = randomToken()
		}
	}
	s.mu.Unlock()

	// Same answer whether or not the address exists.
	writeData(w, http.StatusOK, nil)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		DeviceID string `json:"deviceId"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	s.mu.Lock()
	var user *User
	for _, u := range s.users {
		if u.Email == req.Email || u.Username == req.Email {
			user = u
			break
		}
	}

	if user == nil {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if user.Locked {
		s.recordEventLocked(user.ID, "login_blocked", r, "account locked")
		s.mu.Unlock()
		writeError(w, http.StatusLocked, "Account locked due to too many failed login attempts")
		return
	}
	if !passwordMatches(user, req.Password) {
		user.failedLogins++
		s.appendHistoryLocked(user, r, false)
		if user.failedLogins >= lockThreshold {
			user.Locked = true
			s.recordEventLocked(user.ID, "account_locked", r, "failed login threshold reached")
		}
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	user.failedLogins = 0
	if user.TwoFactorEnabled && !s.deviceTrustedLocked(user, req.DeviceID) {
		s.mu.Unlock()
		writeData(w, http.StatusOK, map[string]any{
			"requiresTwoFactor": true,
			"userId":            user.ID,
		})
		return
	}
	s.appendHistoryLocked(user, r, true)
	s.mu.Unlock()

	s.issueSession(w, user)
	writeData(w, http.StatusOK, map[string]any{"user": userJSON(user)})
}

func (s *Server) handleLogin2FA(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID         int64  `json:"userId"`
		Code           string `json:"code"`
		UseBackupCode  bool   `json:"useBackupCode"`
		RememberDevice bool   `json:"rememberDevice"`
		DeviceID       string `json:"deviceId"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Verification code is required")
		return
	}

	s.mu.Lock()
	user := s.users[req.UserID]
	if user == nil || !user.TwoFactorEnabled {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "Invalid verification code")
		return
	}

	ok := false
	if req.UseBackupCode {
		if used, exists := user.backupCodes[req.Code]; exists && !used {
			user.backupCodes[req.Code] = true
			ok = true
		}
	} else {
		ok = totp.Validate(req.Code, user.TOTPSecret)
	}
	if !ok {
		s.appendHistoryLocked(user, r, false)
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "Invalid verification code")
		return
	}

	if req.RememberDevice && req.DeviceID != "" {
		user.nextDeviceID++
		user.devices = append(user.devices, trustedDevice{
			ID:         user.nextDeviceID,
			Key:        req.DeviceID,
			DeviceName: r.UserAgent(),
			CreatedAt:  time.Now().UTC(),
			LastUsedAt: time.Now().UTC(),
		})
	}
	s.appendHistoryLocked(user, r, true)
	s.mu.Unlock()

	s.issueSession(w, user)
	writeData(w, http.StatusOK, map[string]any{"user": userJSON(user)})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	failing := s.failRefresh
	s.mu.Unlock()
	if failing {
		writeError(w, http.StatusUnauthorized, "Refresh token invalid")
		return
	}

	c, err := r.Cookie(refreshCookie)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Refresh token missing")
		return
	}
	uid, gen, err := s.parseToken(c.Value, "refresh")
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Refresh token invalid")
		return
	}

	s.mu.Lock()
	user := s.users[uid]
	current := s.refreshGen[uid]
	s.mu.Unlock()
	if user == nil || gen != current {
		writeError(w, http.StatusUnauthorized, "Refresh token invalid")
		return
	}

	s.issueSession(w, user)
	writeData(w, http.StatusOK, nil)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	for _, name := range []string{accessCookie, refreshCookie} {
		http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1})
	}
	writeData(w, http.StatusOK, nil)
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}

	s.mu.Lock()
	for _, u := range s.users {
		if u.Email == req.Email {
			u.resetToken = randomToken()
		}
	}
	s.mu.Unlock()

	// Same answer whether or not the address exists.
	writeData(w, http.StatusOK, nil)
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	if err := decode(r, &req); err != nil || req.Token == "" {
		writeError(w, http.StatusBadRequest, "Reset token is required")
		return
	}
	if len(req.NewPassword) < 8 {
		writeError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.resetToken != "" && u.resetToken == req.Token {
			u.passwordSalt = randomBytes(16)
			u.passwordHash = hashPassword(req.NewPassword, u.passwordSalt)
			u.resetToken = ""
			u.Locked = false
			u.failedLogins = 0
			writeData(w, http.StatusOK, nil)
			return
		}
	}
	writeError(w, http.StatusBadRequest, "Invalid or expired reset token")
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, u *User) {
	writeData(w, http.StatusOK, map[string]any{"user": userJSON(u)})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request, u *User) {
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Current and new password are required")
		return
	}
	if !passwordMatches(u, req.CurrentPassword) {
		writeError(w, http.StatusBadRequest, "Current password is incorrect")
		return
	}
	if len(req.NewPassword) < 8 {
		writeError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	s.mu.Lock()
	u.passwordSalt = randomBytes(16)
	u.passwordHash = hashPassword(req.NewPassword, u.passwordSalt)
	s.recordEventLocked(u.ID, "password_changed", r, "")
	s.mu.Unlock()

	writeData(w, http.StatusOK, nil)
}

func (s *Server) handle2FASetup(w http.ResponseWriter, r *http.Request, u *User) {
	key, err := totp.Generate(totp.GenerateOpts{Issuer: "twitter-clone", AccountName: u.Email})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not generate secret")
		return
	}

	s.mu.Lock()
	u.TOTPSecret = key.Secret()
	s.mu.Unlock()

	writeData(w, http.StatusOK, map[string]string{
		"secret":     key.Secret(),
		"otpauthUrl": key.URL(),
	})
}

func (s *Server) handle2FAEnable(w http.ResponseWriter, r *http.Request, u *User) {
	var req struct {
		Code string `json:"code"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Verification code is required")
		return
	}

	s.mu.Lock()
	secret := u.TOTPSecret
	s.mu.Unlock()
	if secret == "" || !totp.Validate(req.Code, secret) {
		writeError(w, http.StatusBadRequest, "Invalid verification code")
		return
	}

	s.mu.Lock()
	u.TwoFactorEnabled = true
	u.backupCodes = freshBackupCodes()
	codes := make([]string, 0, len(u.backupCodes))
	for code := range u.backupCodes {
		codes = append(codes, code)
	}
	s.recordEventLocked(u.ID, "2fa_enabled", r, "")
	s.mu.Unlock()

	writeData(w, http.StatusOK, map[string]any{"backupCodes": codes})
}

func (s *Server) handle2FADisable(w http.ResponseWriter, r *http.Request, u *User) {
	var req struct {
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil || !passwordMatches(u, req.Password) {
		writeError(w, http.StatusBadRequest, "Password is incorrect")
		return
	}

	s.mu.Lock()
	u.TwoFactorEnabled = false
	u.TOTPSecret = ""
	u.backupCodes = make(map[string]bool)
	s.recordEventLocked(u.ID, "2fa_disabled", r, "")
	s.mu.Unlock()

	writeData(w, http.StatusOK, nil)
}

func (s *Server) handle2FAStatus(w http.ResponseWriter, r *http.Request, u *User) {
	s.mu.Lock()
	remaining := 0
	for _, used := range u.backupCodes {
		if !used {
			remaining++
		}
	}
	enabled := u.TwoFactorEnabled
	s.mu.Unlock()

	writeData(w, http.StatusOK, map[string]any{
		"enabled":              enabled,
		"backupCodesRemaining": remaining,
	})
}

func (s *Server) handleRegenerateBackupCodes(w http.ResponseWriter, r *http.Request, u *User) {
	s.mu.Lock()
	if !u.TwoFactorEnabled {
		s.mu.Unlock()
		writeError(w, http.StatusBadRequest, "Two-factor authentication is not enabled")
		return
	}
	u.backupCodes = freshBackupCodes()
	codes := make([]string, 0, len(u.backupCodes))
	for code := range u.backupCodes {
		codes = append(codes, code)
	}
	s.mu.Unlock()

	writeData(w, http.StatusOK, map[string]any{"backupCodes": codes})
}

func (s *Server) handleRecoveryCodes(w http.ResponseWriter, r *http.Request, u *User) {
	s.mu.Lock()
	out := make([]map[string]any, 0, len(u.backupCodes))
	for code, used := range u.backupCodes {
		out = append(out, map[string]any{"code": code, "used": used})
	}
	s.mu.Unlock()

	writeData(w, http.StatusOK, map[string]any{"recoveryCodes": out})
}

func (s *Server) handleClearRecoveryCodes(w http.ResponseWriter, r *http.Request, u *User) {
	s.mu.Lock()
	u.backupCodes = make(map[string]bool)
	s.mu.Unlock()
	writeData(w, http.StatusOK, nil)
}

func (s *Server) handleTrustedDevices(w http.ResponseWriter, r *http.Request, u *User) {
	deviceKey := r.URL.Query().Get("deviceId")

	s.mu.Lock()
	out := make([]map[string]any, 0, len(u.devices))
	for _, d := range u.devices {
		out = append(out, map[string]any{
			"id":         d.ID,
			"deviceName": d.DeviceName,
			"createdAt":  d.CreatedAt,
			"lastUsedAt": d.LastUsedAt,
			"current":    deviceKey != "" && d.Key == deviceKey,
		})
	}
	s.mu.Unlock()

	writeData(w, http.StatusOK, map[string]any{"devices": out})
}

func (s *Server) handleRevokeTrustedDevice(w http.ResponseWriter, r *http.Request, u *User) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid device id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range u.devices {
		if d.ID == id {
			u.devices = append(u.devices[:i], u.devices[i+1:]...)
			writeData(w, http.StatusOK, nil)
			return
		}
	}
	writeError(w, http.StatusNotFound, "Device not found")
}

func (s *Server) handleLoginHistory(w http.ResponseWriter, r *http.Request, u *User) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	s.mu.Lock()
	entries := u.history
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	out := make([]map[string]any, 0, len(entries))
	// Newest first.
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		out = append(out, map[string]any{
			"id":        e.ID,
			"ip":        e.IP,
			"userAgent": e.UserAgent,
			"success":   e.Success,
			"createdAt": e.CreatedAt,
		})
	}
	s.mu.Unlock()

	writeData(w, http.StatusOK, map[string]any{"history": out})
}

func (s *Server) handleClearLoginHistory(w http.ResponseWriter, r *http.Request, u *User) {
	s.mu.Lock()
	u.history = nil
	s.mu.Unlock()
	writeData(w, http.StatusOK, nil)
}

func (s *Server) deviceTrustedLocked(u *User, deviceKey string) bool {
	if deviceKey == "" {
		return false
	}
	for i := range u.devices {
		if u.devices[i].Key == deviceKey {
			u.devices[i].LastUsedAt = time.Now().UTC()
			return true
		}
	}
	return false
}

func (s *Server) appendHistoryLocked(u *User, r *http.Request, success bool) {
	u.history = append(u.history, historyEntry{
		ID:        int64(len(u.history) + 1),
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
		Success:   success,
		CreatedAt: time.Now().UTC(),
	})
}

func (s *Server) recordEventLocked(userID int64, eventType string, r *http.Request, detail string) {
	s.nextEventID++
	s.events = append(s.events, securityEvent{
		ID:        s.nextEventID,
		UserID:    userID,
		EventType: eventType,
		IP:        r.RemoteAddr,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	})
}
