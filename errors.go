package trackd

import "errors"

var (
	// ErrUnauthorized is an exported constant or variable used by the traceability engine.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials is an exported constant or variable used by the traceability engine.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is an exported constant or variable used by the traceability engine.
	ErrUserNotFound = errors.New("user not found")
	// ErrLoginRateLimited is an exported constant or variable used by the traceability engine.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrRefreshRateLimited is an exported constant or variable used by the traceability engine.
	ErrRefreshRateLimited = errors.New("refresh rate limited")
	// ErrAccountExists is an exported constant or variable used by the traceability engine.
	ErrAccountExists = errors.New("account already exists")
	// ErrAccountCreationDisabled is an exported constant or variable used by the traceability engine.
	ErrAccountCreationDisabled = errors.New("account creation disabled")
	// ErrAccountCreationRateLimited is an exported constant or variable used by the traceability engine.
	ErrAccountCreationRateLimited = errors.New("account creation rate limited")
	// ErrAccountCreationUnavailable is an exported constant or variable used by the traceability engine.
	ErrAccountCreationUnavailable = errors.New("account creation backend unavailable")
	// ErrAccountCreationInvalid is an exported constant or variable used by the traceability engine.
	ErrAccountCreationInvalid = errors.New("invalid account creation request")
	// ErrAccountRoleInvalid is an exported constant or variable used by the traceability engine.
	ErrAccountRoleInvalid = errors.New("invalid account role")
	// ErrAccountDisabled is an exported constant or variable used by the traceability engine.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrAccountLocked is an exported constant or variable used by the traceability engine.
	ErrAccountLocked = errors.New("account locked")
	// ErrAccountDeleted is an exported constant or variable used by the traceability engine.
	ErrAccountDeleted = errors.New("account deleted")
	// ErrAccountVersionNotAdvanced is an exported constant or variable used by the traceability engine.
	ErrAccountVersionNotAdvanced = errors.New("account version did not advance")
	// ErrPasswordPolicy is an exported constant or variable used by the traceability engine.
	ErrPasswordPolicy = errors.New("password policy violation")
	// ErrPasswordReuse is an exported constant or variable used by the traceability engine.
	ErrPasswordReuse = errors.New("new password must be different from current password")
	// ErrSessionCreationFailed is an exported constant or variable used by the traceability engine.
	ErrSessionCreationFailed = errors.New("session creation failed")
	// ErrSessionInvalidationFailed is an exported constant or variable used by the traceability engine.
	ErrSessionInvalidationFailed = errors.New("session invalidation failed")
	// ErrSessionLimitExceeded is an exported constant or variable used by the traceability engine.
	ErrSessionLimitExceeded = errors.New("session limit exceeded")
	// ErrSessionNotFound is an exported constant or variable used by the traceability engine.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTokenInvalid is an exported constant or variable used by the traceability engine.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenClockSkew is an exported constant or variable used by the traceability engine.
	ErrTokenClockSkew = errors.New("token clock skew exceeded")
	// ErrInvalidRouteMode is an exported constant or variable used by the traceability engine.
	ErrInvalidRouteMode = errors.New("invalid route validation mode")
	// ErrStrictBackendDown is an exported constant or variable used by the traceability engine.
	ErrStrictBackendDown = errors.New("strict validation backend unavailable")
	// ErrRefreshInvalid is an exported constant or variable used by the traceability engine.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrRefreshReuse is an exported constant or variable used by the traceability engine.
	ErrRefreshReuse = errors.New("refresh token reuse detected")
	// ErrPermissionDenied is an exported constant or variable used by the traceability engine.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrPrefsDisabled is an exported constant or variable used by the traceability engine.
	ErrPrefsDisabled = errors.New("preferences disabled")
	// ErrPrefsInvalid is an exported constant or variable used by the traceability engine.
	ErrPrefsInvalid = errors.New("invalid preferences payload")
	// ErrPrefsUnavailable is an exported constant or variable used by the traceability engine.
	ErrPrefsUnavailable = errors.New("preferences backend unavailable")
	// ErrEngineNotReady is an exported constant or variable used by the traceability engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrProviderDuplicateIdentifier is an exported constant or variable used by the traceability engine.
	ErrProviderDuplicateIdentifier = errors.New("provider duplicate identifier")
)
