package trackd

import (
	"errors"
	"math"
	"net/http"
	"time"
)

// Config defines a public type used by trackd APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	JWT              JWTConfig
	Session          SessionConfig
	SessionHardening SessionHardeningConfig
	Password         PasswordConfig
	Account          AccountConfig
	Audit            AuditConfig
	Metrics          MetricsConfig
	Security         SecurityConfig
	Prefs            PrefsConfig
	Cookie           CookieConfig
	Result           ResultConfig
	ValidationMode   ValidationMode
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig defines a public type used by trackd APIs.
//
// JWTConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte

	// Issuer and Audience pin the iss/aud claims on issued tokens and are
	// enforced during validation when non-empty.
	Issuer   string
	Audience string

	// Leeway tolerates clock skew on exp/nbf checks, capped at two minutes.
	// RequireIAT rejects tokens without an iat claim.
	Leeway     time.Duration
	RequireIAT bool

	// KeyID is stamped into the kid header of issued tokens. VerifyKeys maps
	// kid values to still-trusted verification keys so tokens signed before a
	// key rotation keep validating.
	KeyID      string
	VerifyKeys map[string][]byte
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig defines a public type used by trackd APIs.
//
// SessionConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionConfig struct {
	RedisPrefix             string
	SlidingExpiration       bool
	AbsoluteSessionLifetime time.Duration
	JitterEnabled           bool
	JitterRange             time.Duration
	MaxSessionSize          int
}

// SessionHardeningConfig defines a public type used by trackd APIs.
//
// SessionHardeningConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SessionHardeningConfig struct {
	MaxSessionsPerUser int
	MaxClockSkew       time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig defines a public type used by trackd APIs.
//
// PasswordConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordConfig struct {
	Memory           uint32 // in KB
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MaxPasswordBytes int // 0 means password.DefaultMaxPasswordBytes
	UpgradeOnLogin   bool
}

// AccountConfig defines a public type used by trackd APIs.
//
// AccountConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AccountConfig struct {
	Enabled                    bool
	AutoLogin                  bool
	EnableIPThrottle           bool
	EnableIdentifierThrottle   bool
	AccountCreationMaxAttempts int
	AccountCreationCooldown    time.Duration
	DefaultRole                string
}

// AuditConfig defines a public type used by trackd APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled     bool
	BufferSize  int
	DropIfFull  bool
	LogCapacity int
}

// MetricsConfig defines a public type used by trackd APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig defines a public type used by trackd APIs.
//
// SecurityConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SecurityConfig struct {
	ProductionMode               bool
	EnableIPThrottle             bool
	EnableRefreshThrottle        bool
	EnforceRefreshRotation       bool
	EnforceRefreshReuseDetection bool
	MaxLoginAttempts             int
	LoginCooldownDuration        time.Duration
	MaxRefreshAttempts           int
	RefreshCooldownDuration      time.Duration
	EnablePermissionVersionCheck bool
	EnableAccountVersionCheck    bool
}

/*
====================================
PREFS CONFIG
====================================
*/

// PrefsConfig defines a public type used by trackd APIs.
//
// PrefsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PrefsConfig struct {
	Enabled     bool
	RedisPrefix string
	TTL         time.Duration
}

/*
====================================
COOKIE CONFIG
====================================
*/

// CookieConfig defines a public type used by trackd APIs.
//
// CookieConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CookieConfig struct {
	AccessName   string
	RefreshName  string
	Path         string
	Secure       bool
	SameSite     http.SameSite
	RedirectPath string
}

// ResultConfig defines a public type used by trackd APIs.
//
// ResultConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ResultConfig struct {
	IncludeRole        bool
	IncludePermissions bool
}

// ValidationMode defines a public type used by trackd APIs.
//
// ValidationMode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ValidationMode int

const (
	// ModeInherit is an exported constant or variable used by the traceability engine.
	ModeInherit ValidationMode = -1

	// ModeJWTOnly is an exported constant or variable used by the traceability engine.
	ModeJWTOnly ValidationMode = iota
	// ModeHybrid is an exported constant or variable used by the traceability engine.
	ModeHybrid
	// ModeStrict is an exported constant or variable used by the traceability engine.
	ModeStrict
)

// RouteMode is the per-route override mode for Engine.Validate.
// It intentionally reuses the ValidationMode constants: ModeInherit follows
// the engine default, the other three force that mode for the route.
type RouteMode = ValidationMode

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration used by the Builder.
// Callers adjust the returned value and pass it to Builder.WithConfig.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     5 * time.Minute,
			RefreshTTL:    7 * 24 * time.Hour,
			SigningMethod: "ed25519",
		},
		Session: SessionConfig{
			RedisPrefix:             "fot",
			SlidingExpiration:       true,
			AbsoluteSessionLifetime: 7 * 24 * time.Hour,
			JitterEnabled:           true,
			JitterRange:             30 * time.Second,
			MaxSessionSize:          512,
		},
		SessionHardening: SessionHardeningConfig{
			MaxSessionsPerUser: 0,
			MaxClockSkew:       30 * time.Second,
		},
		Password: PasswordConfig{
			Memory:         65536,
			Time:           3,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			UpgradeOnLogin: true,
		},
		Account: AccountConfig{
			Enabled:                    true,
			AutoLogin:                  false,
			EnableIPThrottle:           true,
			EnableIdentifierThrottle:   true,
			AccountCreationMaxAttempts: 5,
			AccountCreationCooldown:    15 * time.Minute,
			DefaultRole:                "customer",
		},
		Audit: AuditConfig{
			Enabled:     false,
			BufferSize:  1024,
			DropIfFull:  true,
			LogCapacity: 1000,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Security: SecurityConfig{
			ProductionMode:               false,
			EnableIPThrottle:             false,
			EnableRefreshThrottle:        true,
			EnforceRefreshRotation:       true,
			EnforceRefreshReuseDetection: true,
			MaxLoginAttempts:             5,
			LoginCooldownDuration:        15 * time.Minute,
			MaxRefreshAttempts:           20,
			RefreshCooldownDuration:      1 * time.Minute,
			EnablePermissionVersionCheck: true,
			EnableAccountVersionCheck:    true,
		},
		Prefs: PrefsConfig{
			Enabled:     true,
			RedisPrefix: "fotp",
			TTL:         0,
		},
		Cookie: CookieConfig{
			AccessName:   "fot_access",
			RefreshName:  "fot_refresh",
			Path:         "/",
			Secure:       true,
			SameSite:     http.SameSiteLaxMode,
			RedirectPath: "/login",
		},
		Result: ResultConfig{
			IncludeRole:        true,
			IncludePermissions: false,
		},
		ValidationMode: ModeHybrid,
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	if len(cfg.JWT.VerifyKeys) > 0 {
		keys := make(map[string][]byte, len(cfg.JWT.VerifyKeys))
		for kid, key := range cfg.JWT.VerifyKeys {
			keys[kid] = cloneBytes(key)
		}
		out.JWT.VerifyKeys = keys
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}

	if c.JWT.SigningMethod != "ed25519" && c.JWT.SigningMethod != "hs256" {
		return errors.New("unsupported JWT signing method")
	}

	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PrivateKey) == 0 {
		return errors.New("ed25519 requires PrivateKey")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PublicKey) == 0 {
		return errors.New("ed25519 requires PublicKey")
	}
	if c.JWT.SigningMethod == "hs256" && len(c.JWT.PrivateKey) == 0 {
		return errors.New("hs256 requires PrivateKey")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Session
	if c.Session.MaxSessionSize <= 0 {
		return errors.New("Session MaxSessionSize must be > 0")
	}

	if c.Session.AbsoluteSessionLifetime <= 0 {
		return errors.New("Session AbsoluteSessionLifetime must be > 0")
	}

	if c.Session.JitterRange < 0 {
		return errors.New("Session JitterRange must be >= 0")
	}
	if c.Session.JitterRange > time.Duration((math.MaxInt64-1)/2) {
		return errors.New("Session JitterRange is too large")
	}
	if c.Session.JitterEnabled && c.Session.JitterRange <= 0 {
		return errors.New("Session JitterRange must be > 0 when JitterEnabled is true")
	}

	if c.SessionHardening.MaxSessionsPerUser < 0 {
		return errors.New("SessionHardening MaxSessionsPerUser must be >= 0")
	}
	if c.SessionHardening.MaxClockSkew < 0 {
		return errors.New("SessionHardening MaxClockSkew must be >= 0")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}

	// Audit
	if c.Audit.Enabled {
		if c.Audit.BufferSize <= 0 {
			return errors.New("Audit BufferSize must be > 0 when audit is enabled")
		}
		if c.Audit.LogCapacity < 0 {
			return errors.New("Audit LogCapacity must be >= 0")
		}
	}

	// Account Creation
	if c.Account.Enabled {
		if c.Account.DefaultRole == "" {
			return errors.New("Account DefaultRole is required when account creation is enabled")
		}
		if !c.Account.EnableIPThrottle || !c.Account.EnableIdentifierThrottle {
			return errors.New("Account throttles must be enabled")
		}
		if c.Account.AccountCreationMaxAttempts <= 0 {
			return errors.New("Account AccountCreationMaxAttempts must be > 0")
		}
		if c.Account.AccountCreationCooldown <= 0 {
			return errors.New("Account AccountCreationCooldown must be > 0")
		}
		if c.Account.AutoLogin && c.JWT.RefreshTTL <= 0 {
			return errors.New("Account AutoLogin requires refresh system to be enabled")
		}
	}

	// Security
	if c.Security.MaxLoginAttempts <= 0 {
		return errors.New("MaxLoginAttempts must be > 0")
	}

	if c.Security.LoginCooldownDuration <= 0 {
		return errors.New("LoginCooldownDuration must be > 0")
	}
	if !c.Security.EnforceRefreshRotation {
		return errors.New("EnforceRefreshRotation must be true")
	}
	if !c.Security.EnforceRefreshReuseDetection {
		return errors.New("EnforceRefreshReuseDetection must be true")
	}
	if c.Security.EnableRefreshThrottle {
		if c.Security.MaxRefreshAttempts <= 0 {
			return errors.New("MaxRefreshAttempts must be > 0 when refresh throttle is enabled")
		}
		if c.Security.RefreshCooldownDuration <= 0 {
			return errors.New("RefreshCooldownDuration must be > 0 when refresh throttle is enabled")
		}
	}

	// Prefs
	if c.Prefs.Enabled {
		if c.Prefs.RedisPrefix == "" {
			return errors.New("Prefs RedisPrefix is required when preferences are enabled")
		}
		if c.Prefs.TTL < 0 {
			return errors.New("Prefs TTL must be >= 0")
		}
	}

	// Cookie
	if c.Cookie.AccessName == "" || c.Cookie.RefreshName == "" {
		return errors.New("Cookie AccessName and RefreshName are required")
	}
	if c.Cookie.Path == "" {
		return errors.New("Cookie Path is required")
	}
	if c.Cookie.RedirectPath == "" {
		return errors.New("Cookie RedirectPath is required")
	}

	switch c.ValidationMode {
	case ModeJWTOnly, ModeHybrid, ModeStrict:
		// valid
	default:
		return errors.New("invalid ValidationMode")
	}
	if c.ValidationMode == ModeJWTOnly && c.Security.EnableAccountVersionCheck {
		return errors.New("JWTOnly mode cannot enforce AccountVersion checks")
	}

	if c.Security.ProductionMode {
		if c.JWT.AccessTTL > 15*time.Minute {
			return errors.New("ProductionMode requires JWT AccessTTL <= 15m")
		}
		if c.JWT.RefreshTTL > 30*24*time.Hour {
			return errors.New("ProductionMode requires JWT RefreshTTL <= 30d")
		}
		if c.JWT.SigningMethod == "hs256" && len(c.JWT.PrivateKey) < 32 {
			return errors.New("ProductionMode requires hs256 key length >= 256 bits")
		}
		if c.Password.Memory < 64*1024 {
			return errors.New("ProductionMode requires Password Memory >= 65536 KB")
		}
		if c.Password.Time < 2 {
			return errors.New("ProductionMode requires Password Time >= 2")
		}
		if c.Password.KeyLength < 32 {
			return errors.New("ProductionMode requires Password KeyLength >= 32")
		}
		if c.Password.SaltLength < 16 {
			return errors.New("ProductionMode requires Password SaltLength >= 16")
		}
		if !c.Cookie.Secure {
			return errors.New("ProductionMode requires Secure cookies")
		}
	}

	return nil
}
