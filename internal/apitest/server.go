package apitest

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/argon2"
)

const (
	accessCookie  = "access_token"
	refreshCookie = "refresh_token"
	csrfHeader    = "x-csrf-token"

	accessTTL  = 15 * time.Minute
	refreshTTL = 7 * 24 * time.Hour

	lockThreshold = 5
)

// User is one seeded account with its server-side security state.
type User struct {
	ID               int64
	Username         string
	Email            string
	DisplayName      string
	IsVerified       bool
	IsAdmin          bool
	TwoFactorEnabled bool
	Locked           bool
	TOTPSecret       string
	CreatedAt        time.Time

	passwordSalt []byte
	passwordHash []byte
	verifyToken  string
	resetToken   string
	failedLogins int
	backupCodes  map[string]bool
	recovery     []recoveryCode
	devices      []trustedDevice
	history      []historyEntry
	nextDeviceID int64
}

type recoveryCode struct {
	Code string
	Used bool
}

type trustedDevice struct {
	ID         int64
	Key        string
	DeviceName string
	CreatedAt  time.Time
	LastUsedAt time.Time
}

type historyEntry struct {
	ID        int64
	IP        string
	UserAgent string
	Success   bool
	CreatedAt time.Time
}

type securityEvent struct {
	ID        int64
	UserID    int64
	EventType string
	IP        string
	Detail    string
	CreatedAt time.Time
}

// Server is the API double. All exported methods are safe for concurrent use
// with in-flight requests.
type Server struct {
	HTTP *httptest.Server

	signingKey []byte

	mu          sync.Mutex
	users       map[int64]*User
	nextUserID  int64
	nextEventID int64
	csrfTokens  map[string]bool
	accessGen   int
	refreshGen  map[int64]int
	events      []securityEvent
	counts      map[string]int

	rejectCSRF  int
	failRefresh bool
}

// New starts the double. Callers own shutdown via Close.
func New() *Server {
	s := &Server{
		signingKey: randomBytes(32),
		users:      make(map[int64]*User),
		csrfTokens: make(map[string]bool),
		refreshGen: make(map[int64]int),
		counts:     make(map[string]int),
	}

	r := mux.NewRouter()
	r.Use(s.countRequests, s.checkCSRF)

	r.HandleFunc("/csrf-token", s.handleCSRFToken).Methods(http.MethodGet)
	r.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/auth/verify-email", s.handleVerifyEmail).Methods(http.MethodPost)
	r.HandleFunc("/auth/resend-verification", s.handleResendVerification).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/auth/login/2fa", s.handleLogin2FA).Methods(http.MethodPost)
	r.HandleFunc("/auth/refresh", s.handleRefresh).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout", s.handleLogout).Methods(http.MethodPost)
	r.HandleFunc("/auth/forgot-password", s.handleForgotPassword).Methods(http.MethodPost)
	r.HandleFunc("/auth/reset-password", s.handleResetPassword).Methods(http.MethodPost)

	r.HandleFunc("/auth/me", s.authed(s.handleMe)).Methods(http.MethodGet)
	r.HandleFunc("/auth/change-password", s.authed(s.handleChangePassword)).Methods(http.MethodPost)
	r.HandleFunc("/auth/2fa/setup", s.authed(s.handle2FASetup)).Methods(http.MethodPost)
	r.HandleFunc("/auth/2fa/enable", s.authed(s.handle2FAEnable)).Methods(http.MethodPost)
	r.HandleFunc("/auth/2fa/disable", s.authed(s.handle2FADisable)).Methods(http.MethodPost)
	r.HandleFunc("/auth/2fa/status", s.authed(s.handle2FAStatus)).Methods(http.MethodGet)
	r.HandleFunc("/auth/2fa/regenerate-backup-codes", s.authed(s.handleRegenerateBackupCodes)).Methods(http.MethodPost)
	r.HandleFunc("/auth/recovery-codes", s.authed(s.handleRecoveryCodes)).Methods(http.MethodGet)
	r.HandleFunc("/auth/recovery-codes", s.authed(s.handleClearRecoveryCodes)).Methods(http.MethodDelete)
	r.HandleFunc("/auth/trusted-devices", s.authed(s.handleTrustedDevices)).Methods(http.MethodGet)
	r.HandleFunc("/auth/trusted-devices/{id}", s.authed(s.handleRevokeTrustedDevice)).Methods(http.MethodDelete)
	r.HandleFunc("/auth/login-history", s.authed(s.handleLoginHistory)).Methods(http.MethodGet)
	r.HandleFunc("/auth/login-history", s.authed(s.handleClearLoginHistory)).Methods(http.MethodDelete)

	r.HandleFunc("/admin/users", s.admin(s.handleAdminListUsers)).Methods(http.MethodGet)
	r.HandleFunc("/admin/users/{id}", s.admin(s.handleAdminGetUser)).Methods(http.MethodGet)
	r.HandleFunc("/admin/users/{id}", s.admin(s.handleAdminUpdateUser)).Methods(http.MethodPut)
	r.HandleFunc("/admin/users/{id}", s.admin(s.handleAdminDeleteUser)).Methods(http.MethodDelete)
	r.HandleFunc("/admin/stats", s.admin(s.handleAdminStats)).Methods(http.MethodGet)
	r.HandleFunc("/admin/security/events", s.admin(s.handleAdminSecurityEvents)).Methods(http.MethodGet)

	s.HTTP = httptest.NewServer(r)
	return s
}

// Close shuts the double down.
func (s *Server) Close() { s.HTTP.Close() }

// URL returns the double's base URL.
func (s *Server) URL() string { return s.HTTP.URL }

/* ==== SEEDING AND KNOBS ==== */

// Seed creates a verified account and returns it.
func (s *Server) Seed(username, email, password string) *User {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.newUserLocked(username, email, password)
	u.IsVerified = true
	return u
}

// SeedAdmin creates a verified account with the admin role.
func (s *Server) SeedAdmin(username, email, password string) *User {
	u := s.Seed(username, email, password)
	s.mu.Lock()
	defer s.mu.Unlock()
	u.IsAdmin = true
	return u
}

// EnableTOTP turns the second factor on for userID and returns the shared
// secret, so tests can mint valid codes with the totp package.
func (s *Server) EnableTOTP(userID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	u := s.users[userID]
	key, err := totp.Generate(totp.GenerateOpts{Issuer: "twitter-clone", AccountName: u.Email})
	if err != nil {
		panic(fmt.Sprintf("apitest: totp generate: %v", err))
	}
	u.TOTPSecret = key.Secret()
	u.TwoFactorEnabled = true
	u.backupCodes = freshBackupCodes()
	return u.TOTPSecret
}

// BackupCode returns one unused backup code for userID, or "".
func (s *Server) BackupCode(userID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	for code, used := range s.users[userID].backupCodes {
		if !used {
			return code
		}
	}
	return ""
}

// RejectNextCSRF makes the next n state-changing requests fail CSRF
// validation regardless of the token they carry.
func (s *Server) RejectNextCSRF(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectCSRF = n
}

// SetFailRefresh controls whether /auth/refresh rejects every attempt.
func (s *Server) SetFailRefresh(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failRefresh = fail
}

// ExpireAccessTokens invalidates every outstanding access token while
// leaving refresh tokens valid, simulating short-lived token expiry.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessGen++
}

// RevokeSession invalidates both tokens for userID, so even a refresh fails.
func (s *Server) RevokeSession(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessGen++
	s.refreshGen[userID]++
}

// Requests reports how many times method+path was dispatched.
func (s *Server) Requests(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[method+" "+path]
}

// VerifyTokenFor returns the pending email-verification token for userID.
func (s *Server) VerifyTokenFor(userID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[userID].verifyToken
}

// ResetTokenFor returns the pending password-reset token for userID.
func (s *Server) ResetTokenFor(userID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[userID].resetToken
}

func (s *Server) newUserLocked(username, email, password string) *User {
	s.nextUserID++
	salt := randomBytes(16)
	u := &User{
		ID:           s.nextUserID,
		Username:     username,
		Email:        email,
		DisplayName:  username,
		CreatedAt:    time.Now().UTC(),
		passwordSalt: salt,
		passwordHash: hashPassword(password, salt),
		verifyToken:  randomToken(),
		backupCodes:  make(map[string]bool),
	}
	s.users[u.ID] = u
	return u
}

/* ==== MIDDLEWARE ==== */

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.counts[r.Method+" "+r.URL.Path]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		s.mu.Lock()
		forced := s.rejectCSRF > 0
		if forced {
			s.rejectCSRF--
		}
		valid := s.csrfTokens[r.Header.Get(csrfHeader)]
		s.mu.Unlock()

		if forced || !valid {
			writeError(w, http.StatusForbidden, "Invalid CSRF token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authed resolves the access cookie to a user before running h.
func (s *Server) authed(h func(http.ResponseWriter, *http.Request, *User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := s.currentUser(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Authentication expired")
			return
		}
		h(w, r, u)
	}
}

func (s *Server) admin(h func(http.ResponseWriter, *http.Request, *User)) http.HandlerFunc {
	return s.authed(func(w http.ResponseWriter, r *http.Request, u *User) {
		if !u.IsAdmin {
			writeError(w, http.StatusForbidden, "Admin access required")
			return
		}
		h(w, r, u)
	})
}

func (s *Server) currentUser(r *http.Request) (*User, bool) {
	c, err := r.Cookie(accessCookie)
	if err != nil {
		return nil, false
	}
	uid, gen, err := s.parseToken(c.Value, "access")
	if err != nil {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.accessGen {
		return nil, false
	}
	u, ok := s.users[uid]
	return u, ok
}

/* ==== TOKENS ==== */

func (s *Server) issueSession(w http.ResponseWriter, u *User) {
	s.mu.Lock()
	accessGen := s.accessGen
	refreshGen := s.refreshGen[u.ID]
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     accessCookie,
		Value:    s.signToken(u.ID, accessGen, "access", accessTTL),
		Path:     "/",
		HttpOnly: true,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    s.signToken(u.ID, refreshGen, "refresh", refreshTTL),
		Path:     "/",
		HttpOnly: true,
	})
}

func (s *Server) signToken(uid int64, gen int, typ string, ttl time.Duration) string {
	claims := jwt.MapClaims{
		"sub": strconv.FormatInt(uid, 10),
		"gen": gen,
		"typ": typ,
		"exp": time.Now().Add(ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		panic(fmt.Sprintf("apitest: sign token: %v", err))
	}
	return signed
}

func (s *Server) parseToken(raw, wantType string) (int64, int, error) {
	parsed, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
		return s.signingKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return 0, 0, err
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected claims type %T", parsed.Claims)
	}
	if typ, _ := claims["typ"].(string); typ != wantType {
		return 0, 0, fmt.Errorf("token type %q, want %q", typ, wantType)
	}
	sub, _ := claims["sub"].(string)
	uid, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, 0, err
	}
	gen, _ := claims["gen"].(float64)
	return uid, int(gen), nil
}

/* ==== HELPERS ==== */

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: msg})
}

func decode(r *http.Request, out any) error {
	return json.NewDecoder(r.Body).Decode(out)
}

func hashPassword(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, 1, 64*1024, 4, 32)
}

func passwordMatches(u *User, password string) bool {
	candidate := hashPassword(password, u.passwordSalt)
	if len(candidate) != len(u.passwordHash) {
		return false
	}
	var diff byte
	for i := range candidate {
		diff |= candidate[i] ^ u.passwordHash[i]
	}
	return diff == 0
}

func randomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("apitest: rand: %v", err))
	}
	return b
}

func randomToken() string {
	return hex.EncodeToString(randomBytes(16))
}

func freshBackupCodes() map[string]bool {
	codes := make(map[string]bool, 8)
	for len(codes) < 8 {
		codes[hex.EncodeToString(randomBytes(4))] = false
	}
	return codes
}

func userJSON(u *User) map[string]any {
	return map[string]any{
		"id":               u.ID,
		"username":         u.Username,
		"email":            u.Email,
		"displayName":      u.DisplayName,
		"isVerified":       u.IsVerified,
		"isAdmin":          u.IsAdmin,
		"twoFactorEnabled": u.TwoFactorEnabled,
		"createdAt":        u.CreatedAt,
	}
}
