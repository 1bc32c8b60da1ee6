package trackd

import (
	"context"
	"time"

	"github.com/foodontracks/trackd/rbac"
)

// AccountStatus represents the lifecycle state of a user account.
type AccountStatus uint8

const (
	// AccountActive is an exported constant or variable used by the traceability engine.
	AccountActive AccountStatus = iota
	// AccountDisabledStatus is an exported constant or variable used by the traceability engine.
	AccountDisabledStatus
	// AccountLockedStatus is an exported constant or variable used by the traceability engine.
	AccountLockedStatus
	// AccountDeletedStatus is an exported constant or variable used by the traceability engine.
	AccountDeletedStatus
)

// AuthResult is returned by [Engine.Validate] and [Engine.ValidateAccess].
// It contains the authenticated user's ID, role, decoded permission mask,
// and optionally the permission name list.
type AuthResult struct {
	UserID    string
	SessionID string

	Role rbac.Role

	Mask rbac.Mask64

	Permissions []string
}

// UserProvider is the primary interface that callers must implement to
// integrate the engine with their user database. It covers credential
// lookup, account creation, password updates, and account lifecycle.
type UserProvider interface {
	GetUserByIdentifier(identifier string) (UserRecord, error)
	GetUserByID(userID string) (UserRecord, error)
	UpdatePasswordHash(userID string, newHash string) error
	CreateUser(ctx context.Context, input CreateUserInput) (UserRecord, error)
	UpdateAccountStatus(ctx context.Context, userID string, status AccountStatus) (UserRecord, error)
	UpdateRole(ctx context.Context, userID string, role rbac.Role) (UserRecord, error)
}

// UserRecord is the full account record returned by [UserProvider].
// It carries the credential hash, status, role, and versioning counters.
type UserRecord struct {
	UserID            string
	Identifier        string
	PasswordHash      string
	Status            AccountStatus
	Role              rbac.Role
	PermissionVersion uint32
	AccountVersion    uint32
	CreatedAt         time.Time
}

// CreateUserInput is the input for [UserProvider.CreateUser].
type CreateUserInput struct {
	Identifier        string
	PasswordHash      string
	Role              rbac.Role
	Status            AccountStatus
	PermissionVersion uint32
	AccountVersion    uint32
}

// LoginResult is returned by [Engine.LoginWithResult]. It carries the
// issued token pair.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
}

// CreateAccountRequest is the input for [Engine.CreateAccount].
// Identifier and Password are required; Role defaults to
// [Config.Account.DefaultRole] when empty.
type CreateAccountRequest struct {
	Identifier string
	Password   string
	Role       rbac.Role
}

// CreateAccountResult is returned by [Engine.CreateAccount]. It includes
// the new UserID and, when AutoLogin is enabled, access+refresh tokens.
type CreateAccountResult struct {
	UserID       string
	Role         rbac.Role
	AccessToken  string
	RefreshToken string
}

// SecurityReport is a read-only snapshot of the engine's security posture,
// returned by [Engine.SecurityReport].
type SecurityReport struct {
	ProductionMode               bool
	SigningAlgorithm             string
	ValidationMode               ValidationMode
	AccessTTL                    time.Duration
	RefreshTTL                   time.Duration
	Argon2                       PasswordConfigReport
	RefreshRotationEnabled       bool
	RefreshReuseDetectionEnabled bool
	SessionCapsActive            bool
	RateLimitingActive           bool
	AuditLogActive               bool
	PrefsActive                  bool
}

// PasswordConfigReport contains the Argon2 parameters active in the engine.
type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}
