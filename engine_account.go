package trackd

import (
	"context"
	"errors"
	"time"

	"github.com/foodontracks/trackd/internal"
	"github.com/foodontracks/trackd/rbac"
	"github.com/foodontracks/trackd/session"
)

// CreateAccount describes the createaccount operation and its observable behavior.
//
// CreateAccount may return an error when input validation, dependency calls, or security checks fail.
// CreateAccount does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) CreateAccount(ctx context.Context, req CreateAccountRequest) (*CreateAccountResult, error) {
	if !e.config.Account.Enabled {
		e.emitAudit(ctx, auditEventAccountCreationFailure, false, "", "", ErrAccountCreationDisabled, func() map[string]string {
			return map[string]string{
				"reason": "feature_disabled",
			}
		})
		return nil, ErrAccountCreationDisabled
	}
	if e.passwordHash == nil || e.userProvider == nil || e.accountLimiter == nil {
		return nil, ErrEngineNotReady
	}
	if e.config.Account.AutoLogin && e.config.JWT.RefreshTTL <= 0 {
		return nil, ErrAccountCreationUnavailable
	}

	if req.Identifier == "" {
		e.emitAudit(ctx, auditEventAccountCreationFailure, false, "", "", ErrAccountCreationInvalid, func() map[string]string {
			return map[string]string{
				"reason": "empty_identifier",
			}
		})
		return nil, ErrAccountCreationInvalid
	}
	if req.Password == "" {
		e.emitAudit(ctx, auditEventAccountCreationFailure, false, "", "", ErrPasswordPolicy, func() map[string]string {
			return map[string]string{
				"identifier": req.Identifier,
				"reason":     "empty_password",
			}
		})
		return nil, ErrPasswordPolicy
	}

	role := req.Role
	if role == "" {
		role = rbac.Role(e.config.Account.DefaultRole)
	}
	if role == "" {
		e.emitAudit(ctx, auditEventAccountCreationFailure, false, "", "", ErrAccountRoleInvalid, func() map[string]string {
			return map[string]string{
				"identifier": req.Identifier,
				"reason":     "role_missing",
			}
		})
		return nil, ErrAccountRoleInvalid
	}
	if e.matrix.MaskFor(role) == 0 {
		e.emitAudit(ctx, auditEventAccountCreationFailure, false, "", "", ErrAccountRoleInvalid, func() map[string]string {
			return map[string]string{
				"identifier": req.Identifier,
				"reason":     "role_invalid",
			}
		})
		return nil, ErrAccountRoleInvalid
	}

	if err := e.accountLimiter.Enforce(ctx, req.Identifier, clientIPFromContext(ctx)); err != nil {
		mapped := mapAccountLimiterError(err)
		if errors.Is(mapped, ErrAccountCreationRateLimited) {
			e.metricInc(MetricAccountCreationRateLimited)
			e.emitAudit(ctx, auditEventAccountCreationRateLimited, false, "", "", mapped, func() map[string]string {
				return map[string]string{
					"identifier": req.Identifier,
				}
			})
			e.emitRateLimit(ctx, "account_creation", func() map[string]string {
				return map[string]string{
					"identifier": req.Identifier,
				}
			})
		}
		return nil, mapped
	}

	passwordHash, err := e.passwordHash.Hash(req.Password)
	if err != nil {
		e.emitAudit(ctx, auditEventAccountCreationFailure, false, "", "", ErrPasswordPolicy, func() map[string]string {
			return map[string]string{
				"identifier": req.Identifier,
				"reason":     "hash_policy",
			}
		})
		return nil, ErrPasswordPolicy
	}

	created, err := e.userProvider.CreateUser(ctx, CreateUserInput{
		Identifier:        req.Identifier,
		PasswordHash:      passwordHash,
		Role:              role,
		Status:            AccountActive,
		PermissionVersion: 1,
		AccountVersion:    1,
	})
	if err != nil {
		if errors.Is(err, ErrProviderDuplicateIdentifier) {
			e.metricInc(MetricAccountCreationDuplicate)
			e.emitAudit(ctx, auditEventAccountCreationDuplicate, false, "", "", ErrAccountExists, func() map[string]string {
				return map[string]string{
					"identifier": req.Identifier,
				}
			})
			return nil, ErrAccountExists
		}
		e.emitAudit(ctx, auditEventAccountCreationFailure, false, "", "", err, func() map[string]string {
			return map[string]string{
				"identifier": req.Identifier,
				"reason":     "provider_create_failed",
			}
		})
		return nil, err
	}

	if created.UserID == "" {
		e.emitAudit(ctx, auditEventAccountCreationFailure, false, "", "", ErrAccountCreationUnavailable, func() map[string]string {
			return map[string]string{
				"identifier": req.Identifier,
				"reason":     "missing_user_id",
			}
		})
		return nil, ErrAccountCreationUnavailable
	}
	if created.Role == "" {
		created.Role = role
	}
	if created.PermissionVersion == 0 {
		created.PermissionVersion = 1
	}
	if created.AccountVersion == 0 {
		created.AccountVersion = 1
	}

	result := &CreateAccountResult{
		UserID: created.UserID,
		Role:   created.Role,
	}

	if e.config.Account.AutoLogin {
		accessToken, refreshToken, err := e.issueSessionTokens(ctx, created)
		if err != nil {
			e.emitAudit(ctx, auditEventAccountCreationSuccess, false, created.UserID, "", ErrSessionCreationFailed, func() map[string]string {
				return map[string]string{
					"identifier": req.Identifier,
					"reason":     "auto_login_failed",
				}
			})
			return result, errors.Join(ErrSessionCreationFailed, err)
		}
		result.AccessToken = accessToken
		result.RefreshToken = refreshToken
	}

	req.Password = ""
	e.metricInc(MetricAccountCreationSuccess)
	e.emitAudit(ctx, auditEventAccountCreationSuccess, true, created.UserID, "", nil, func() map[string]string {
		return map[string]string{
			"identifier": req.Identifier,
			"role":       string(created.Role),
		}
	})
	return result, nil
}

func (e *Engine) issueSessionTokens(ctx context.Context, user UserRecord) (string, string, error) {
	mask := e.matrix.MaskFor(user.Role)
	if mask == 0 {
		return "", "", ErrAccountRoleInvalid
	}

	sid, err := internal.NewSessionID()
	if err != nil {
		return "", "", err
	}
	sessionID := sid.String()

	refreshSecret, err := internal.NewRefreshSecret()
	if err != nil {
		return "", "", err
	}

	now := time.Now()
	sessionLifetime := e.sessionLifetime()
	accountVersion := user.AccountVersion
	if accountVersion == 0 {
		accountVersion = 1
	}

	sess := &session.Session{
		SessionID:         sessionID,
		UserID:            user.UserID,
		Role:              string(user.Role),
		Mask:              mask,
		PermissionVersion: user.PermissionVersion,
		AccountVersion:    accountVersion,
		Status:            uint8(user.Status),
		RefreshHash:       internal.HashRefreshSecret(refreshSecret),
		CreatedAt:         now.Unix(),
		ExpiresAt:         now.Add(sessionLifetime).Unix(),
	}

	if err := e.sessionStore.Save(ctx, sess, sessionLifetime); err != nil {
		return "", "", err
	}
	e.metricInc(MetricSessionCreated)

	accessToken, err := e.issueAccessToken(sess)
	if err != nil {
		return "", "", err
	}

	refreshToken, err := internal.EncodeRefreshToken(sessionID, refreshSecret)
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

func mapAccountLimiterError(err error) error {
	switch {
	case errors.Is(err, errAccountRateLimited):
		return ErrAccountCreationRateLimited
	case errors.Is(err, errAccountRedisUnavailable):
		return ErrAccountCreationUnavailable
	default:
		return ErrAccountCreationUnavailable
	}
}
