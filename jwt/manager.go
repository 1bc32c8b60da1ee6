package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the token signature algorithm.
type SigningMethod string

const (
	// MethodEd25519 signs with EdDSA. Preferred: verifiers only need the
	// public key.
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 signs with HMAC-SHA256. The shared secret both signs and
	// verifies, so it suits single-process deployments only.
	MethodHS256 SigningMethod = "hs256"
)

// Config controls issuance and verification. Leeway is capped at two
// minutes; MaxFutureIAT defaults to ten minutes when zero. VerifyKeys maps
// key IDs to still-trusted public keys for rotation.
type Config struct {
	AccessTTL     time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	RequireIAT    bool
	MaxFutureIAT  time.Duration
	KeyID         string
	VerifyKeys    map[string][]byte
}

// Manager issues and verifies access tokens. Safe for concurrent use.
type Manager struct {
	cfg Config
}

// AccessClaims is the payload of an access token. Mask, PermVersion and
// AccountVersion are optional; the engine decides per validation mode
// whether they are embedded.
type AccessClaims struct {
	UID            string `json:"uid"`
	SID            string `json:"sid"`
	Role           string `json:"role,omitempty"`
	Mask           []byte `json:"mask,omitempty"`
	PermVersion    uint32 `json:"pv,omitempty"`
	AccountVersion uint32 `json:"av,omitempty"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a Manager. Key material is parsed
// eagerly so a bad key fails at construction, not on the first request.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("hs256 requires private key")
		}
	case MethodEd25519:
		if len(cfg.PrivateKey) > 0 {
			if _, err := parseEdPrivateKey(cfg.PrivateKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.PublicKey) > 0 {
			if _, err := parseEdPublicKey(cfg.PublicKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.VerifyKeys) == 0 && len(cfg.PublicKey) == 0 {
			return nil, errors.New("ed25519 requires public key or verify key set")
		}
		for kid, key := range cfg.VerifyKeys {
			if strings.TrimSpace(kid) == "" {
				return nil, errors.New("verify key map contains empty kid")
			}
			if _, err := parseEdPublicKey(key); err != nil {
				return nil, fmt.Errorf("invalid ed25519 verify key for kid %q: %w", kid, err)
			}
		}
	default:
		return nil, errors.New("unsupported signing method")
	}
	if cfg.KeyID != "" && len(cfg.VerifyKeys) > 0 {
		if _, ok := cfg.VerifyKeys[cfg.KeyID]; !ok {
			return nil, errors.New("KeyID is not present in VerifyKeys")
		}
	}

	return &Manager{cfg: cfg}, nil
}

// CreateAccess signs a new access token for the given session. The include
// flags control which optional claims are embedded. Root sessions get a
// hard TTL ceiling regardless of the configured AccessTTL.
func (j *Manager) CreateAccess(
	uid string,
	sid string,
	role string,
	mask []byte,
	permVersion uint32,
	accountVersion uint32,
	includeMask bool,
	includePermVersion bool,
	includeAccountVersion bool,
	isRoot bool,
) (string, error) {

	ttl := j.cfg.AccessTTL

	if isRoot {
		// root TTL override: 2 minutes
		if ttl > 2*time.Minute {
			ttl = 2 * time.Minute
		}
	}

	claims := AccessClaims{
		UID:  uid,
		SID:  sid,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    j.cfg.Issuer,
		},
	}
	if j.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{j.cfg.Audience}
	}

	if includeMask {
		claims.Mask = mask
	}

	if includePermVersion {
		claims.PermVersion = permVersion
	}
	if includeAccountVersion {
		claims.AccountVersion = accountVersion
	}

	token := jwt.NewWithClaims(j.signingMethod(), claims)
	if j.cfg.KeyID != "" {
		token.Header["kid"] = j.cfg.KeyID
	}

	key, err := j.signKey()
	if err != nil {
		return "", err
	}

	return token.SignedString(key)
}

// ParseAccess verifies signature, algorithm, issuer, audience and time
// claims, then returns the decoded claims. When VerifyKeys is set the
// token's kid header selects the verification key, which is how old tokens
// stay valid across a key rotation.
func (j *Manager) ParseAccess(tokenStr string) (*AccessClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{j.signingMethod().Alg()}),
	}
	if j.cfg.Leeway > 0 {
		options = append(options, jwt.WithLeeway(j.cfg.Leeway))
	}
	if j.cfg.RequireIAT {
		options = append(options, jwt.WithIssuedAt())
	}
	if j.cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(j.cfg.Issuer))
	}
	if j.cfg.Audience != "" {
		options = append(options, jwt.WithAudience(j.cfg.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &AccessClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != j.signingMethod().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}

		if len(j.cfg.VerifyKeys) > 0 {
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("missing kid")
			}
			key, ok := j.cfg.VerifyKeys[kid]
			if !ok {
				return nil, errors.New("unknown kid")
			}
			return j.verifyKeyFromBytes(key)
		}

		if j.cfg.KeyID != "" {
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("missing kid")
			}
			if kid != j.cfg.KeyID {
				return nil, errors.New("unknown kid")
			}
		}

		return j.verifyKey()
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	// Leeway already tolerates small skew; a far-future iat is a forged or
	// badly misconfigured issuer.
	if claims.IssuedAt != nil && j.cfg.MaxFutureIAT > 0 {
		maxAllowed := time.Now().Add(j.cfg.MaxFutureIAT)
		if claims.IssuedAt.Time.After(maxAllowed) {
			return nil, errors.New("token iat too far in the future")
		}
	}

	return claims, nil
}

func (j *Manager) signingMethod() jwt.SigningMethod {
	switch j.cfg.SigningMethod {
	case MethodHS256:
		return jwt.SigningMethodHS256
	default:
		return jwt.SigningMethodEdDSA
	}
}

func (j *Manager) signKey() (any, error) {
	switch j.cfg.SigningMethod {
	case MethodHS256:
		return j.cfg.PrivateKey, nil
	default:
		return parseEdPrivateKey(j.cfg.PrivateKey)
	}
}

func (j *Manager) verifyKey() (any, error) {
	switch j.cfg.SigningMethod {
	case MethodHS256:
		return j.cfg.PrivateKey, nil
	default:
		return parseEdPublicKey(j.cfg.PublicKey)
	}
}

func (j *Manager) verifyKeyFromBytes(key []byte) (any, error) {
	switch j.cfg.SigningMethod {
	case MethodHS256:
		return key, nil
	default:
		return parseEdPublicKey(key)
	}
}

// parseEdPrivateKey accepts either a raw 64-byte seed+public key or a PEM
// encoded PKCS#8 key.
func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
