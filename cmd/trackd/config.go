package main

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	trackd "github.com/foodontracks/trackd"
)

// serverConfig is the environment-driven configuration of the trackd
// binary. Engine tuning beyond what is listed here keeps the library
// defaults.
type serverConfig struct {
	Addr            string        `env:"TRACKD_ADDR" envDefault:":8080"`
	DBPath          string        `env:"TRACKD_DB_PATH" envDefault:"trackd.db"`
	RedisAddr       string        `env:"TRACKD_REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	RedisPassword   string        `env:"TRACKD_REDIS_PASSWORD"`
	RedisDB         int           `env:"TRACKD_REDIS_DB" envDefault:"0"`
	SigningMethod   string        `env:"TRACKD_JWT_SIGNING_METHOD" envDefault:"hs256"`
	JWTSecret       string        `env:"TRACKD_JWT_SECRET"`
	JWTPrivateKey   string        `env:"TRACKD_JWT_PRIVATE_KEY"`
	JWTPublicKey    string        `env:"TRACKD_JWT_PUBLIC_KEY"`
	JWTIssuer       string        `env:"TRACKD_JWT_ISSUER"`
	JWTAudience     string        `env:"TRACKD_JWT_AUDIENCE"`
	AccessTTL       time.Duration `env:"TRACKD_ACCESS_TTL" envDefault:"5m"`
	RefreshTTL      time.Duration `env:"TRACKD_REFRESH_TTL" envDefault:"168h"`
	ValidationMode  string        `env:"TRACKD_VALIDATION_MODE" envDefault:"hybrid"`
	ProductionMode  bool          `env:"TRACKD_PRODUCTION" envDefault:"false"`
	CookieSecure    bool          `env:"TRACKD_COOKIE_SECURE" envDefault:"true"`
	AuditEnabled    bool          `env:"TRACKD_AUDIT_ENABLED" envDefault:"true"`
	MetricsEnabled  bool          `env:"TRACKD_METRICS_ENABLED" envDefault:"true"`
	LatencyEnabled  bool          `env:"TRACKD_LATENCY_HISTOGRAMS" envDefault:"false"`
	ShutdownTimeout time.Duration `env:"TRACKD_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	Verbose         bool          `env:"TRACKD_VERBOSE" envDefault:"false"`
}

func parseServerConfig() (serverConfig, error) {
	var cfg serverConfig
	if err := env.Parse(&cfg); err != nil {
		return serverConfig{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// engineConfig maps the environment settings onto the library config.
func (c serverConfig) engineConfig() (trackd.Config, error) {
	cfg := trackd.DefaultConfig()

	cfg.JWT.AccessTTL = c.AccessTTL
	cfg.JWT.RefreshTTL = c.RefreshTTL
	cfg.JWT.SigningMethod = c.SigningMethod
	cfg.JWT.Issuer = c.JWTIssuer
	cfg.JWT.Audience = c.JWTAudience

	switch c.SigningMethod {
	case "hs256":
		if c.JWTSecret == "" {
			return trackd.Config{}, fmt.Errorf("TRACKD_JWT_SECRET is required for hs256")
		}
		cfg.JWT.PrivateKey = []byte(c.JWTSecret)
	case "ed25519":
		priv, err := base64.StdEncoding.DecodeString(c.JWTPrivateKey)
		if err != nil {
			return trackd.Config{}, fmt.Errorf("decode TRACKD_JWT_PRIVATE_KEY: %w", err)
		}
		pub, err := base64.StdEncoding.DecodeString(c.JWTPublicKey)
		if err != nil {
			return trackd.Config{}, fmt.Errorf("decode TRACKD_JWT_PUBLIC_KEY: %w", err)
		}
		cfg.JWT.PrivateKey = priv
		cfg.JWT.PublicKey = pub
	default:
		return trackd.Config{}, fmt.Errorf("unsupported signing method %q", c.SigningMethod)
	}

	switch c.ValidationMode {
	case "jwt_only":
		cfg.ValidationMode = trackd.ModeJWTOnly
		cfg.Security.EnableAccountVersionCheck = false
	case "hybrid":
		cfg.ValidationMode = trackd.ModeHybrid
	case "strict":
		cfg.ValidationMode = trackd.ModeStrict
	default:
		return trackd.Config{}, fmt.Errorf("unsupported validation mode %q", c.ValidationMode)
	}

	cfg.Security.ProductionMode = c.ProductionMode
	cfg.Cookie.Secure = c.CookieSecure
	cfg.Audit.Enabled = c.AuditEnabled
	cfg.Metrics.Enabled = c.MetricsEnabled
	cfg.Metrics.EnableLatencyHistograms = c.LatencyEnabled

	return cfg, nil
}
