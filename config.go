package authclient

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config is the complete client configuration. Zero values are filled from
// defaultConfig during Build; instances are treated as immutable after
// Build.
type Config struct {
	API       APIConfig
	Endpoints EndpointConfig
	Repair    RepairConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig locates the REST API and tunes the HTTP layer.
type APIConfig struct {
	// BaseURL is the API's stable path prefix, e.g.
	// "https://example.com/api/v1". Required.
	BaseURL string

	Timeout   time.Duration
	UserAgent string

	// CSRFHeader names the header carrying the anti-forgery token on
	// state-changing requests.
	CSRFHeader string
}

/*
====================================
ENDPOINT CONFIG
====================================
*/

// EndpointConfig holds the paths, relative to BaseURL, of the endpoints the
// core session protocol touches. Paths of the wider API surface (2FA
// management, devices, history, admin) are fixed.
type EndpointConfig struct {
	CSRFToken      string
	Login          string
	TwoFactorLogin string
	Register       string
	Logout         string
	Refresh        string
	Me             string
}

/*
====================================
REPAIR CONFIG
====================================
*/

// RepairConfig bounds the pipeline's automatic repairs. Both budgets are
// capped at one resubmission per logical request; zero disables the
// category.
type RepairConfig struct {
	CSRFRetries int
	AuthRetries int
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls the in-process metrics system.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the configuration a fresh Builder starts from.
// Callers mutate the copy and pass it to [Builder.WithConfig].
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		API: APIConfig{
			Timeout:    15 * time.Second,
			UserAgent:  "twitter-clone-authclient/1",
			CSRFHeader: "x-csrf-token",
		},
		Endpoints: EndpointConfig{
			CSRFToken:      "/csrf-token",
			Login:          "/auth/login",
			TwoFactorLogin: "/auth/login/2fa",
			Register:       "/auth/register",
			Logout:         "/auth/logout",
			Refresh:        "/auth/refresh",
			Me:             "/auth/me",
		},
		Repair: RepairConfig{
			CSRFRetries: 1,
			AuthRetries: 1,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
	}
}

func normalizeConfig(cfg *Config) error {
	def := defaultConfig()

	if cfg.API.Timeout <= 0 {
		cfg.API.Timeout = def.API.Timeout
	}
	if cfg.API.UserAgent == "" {
		cfg.API.UserAgent = def.API.UserAgent
	}
	if cfg.API.CSRFHeader == "" {
		cfg.API.CSRFHeader = def.API.CSRFHeader
	}

	if cfg.API.BaseURL == "" {
		return errors.New("API.BaseURL is required")
	}
	u, err := url.Parse(cfg.API.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid API.BaseURL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return errors.New("API.BaseURL must be absolute")
	}

	endpoints := map[string]*string{
		"CSRFToken":      &cfg.Endpoints.CSRFToken,
		"Login":          &cfg.Endpoints.Login,
		"TwoFactorLogin": &cfg.Endpoints.TwoFactorLogin,
		"Register":       &cfg.Endpoints.Register,
		"Logout":         &cfg.Endpoints.Logout,
		"Refresh":        &cfg.Endpoints.Refresh,
		"Me":             &cfg.Endpoints.Me,
	}
	defaults := map[string]string{
		"CSRFToken":      def.Endpoints.CSRFToken,
		"Login":          def.Endpoints.Login,
		"TwoFactorLogin": def.Endpoints.TwoFactorLogin,
		"Register":       def.Endpoints.Register,
		"Logout":         def.Endpoints.Logout,
		"Refresh":        def.Endpoints.Refresh,
		"Me":             def.Endpoints.Me,
	}
	for name, p := range endpoints {
		if *p == "" {
			*p = defaults[name]
		}
		if !strings.HasPrefix(*p, "/") {
			return fmt.Errorf("Endpoints.%s must begin with /", name)
		}
	}

	if cfg.Repair.CSRFRetries < 0 || cfg.Repair.CSRFRetries > 1 {
		return errors.New("Repair.CSRFRetries must be 0 or 1")
	}
	if cfg.Repair.AuthRetries < 0 || cfg.Repair.AuthRetries > 1 {
		return errors.New("Repair.AuthRetries must be 0 or 1")
	}

	if cfg.Audit.Enabled && cfg.Audit.BufferSize <= 0 {
		cfg.Audit.BufferSize = def.Audit.BufferSize
	}
	return nil
}
