package trackd

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/foodontracks/trackd/internal"
	"github.com/foodontracks/trackd/internal/rate"
	"github.com/foodontracks/trackd/jwt"
	"github.com/foodontracks/trackd/password"
	"github.com/foodontracks/trackd/prefs"
	"github.com/foodontracks/trackd/rbac"
	"github.com/foodontracks/trackd/session"
	"github.com/redis/go-redis/v9"
)

// Engine defines a public type used by trackd APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config         Config
	matrix         *rbac.Matrix
	sessionStore   *session.Store
	rateLimiter    *rate.Limiter
	accountLimiter *accountCreationLimiter
	audit          *auditDispatcher
	auditLog       *RingSink
	metrics        *Metrics
	passwordHash   *password.Argon2
	jwtManager     *jwt.Manager
	userProvider   UserProvider
	prefsStore     *prefs.Store
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// AuditLog returns the in-memory audit ring, or nil when audit is disabled.
func (e *Engine) AuditLog() *RingSink {
	if e == nil {
		return nil
	}
	return e.auditLog
}

// Matrix returns the frozen role-permission matrix the engine was built with.
func (e *Engine) Matrix() *rbac.Matrix {
	if e == nil {
		return nil
	}
	return e.matrix
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Login describes the login operation and its observable behavior.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Login(ctx context.Context, identifier, password string) (string, string, error) {
	return e.loginInternal(ctx, identifier, password)
}

// LoginWithResult describes the loginwithresult operation and its observable behavior.
//
// LoginWithResult may return an error when input validation, dependency calls, or security checks fail.
// LoginWithResult does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) LoginWithResult(ctx context.Context, identifier, password string) (*LoginResult, error) {
	access, refresh, err := e.loginInternal(ctx, identifier, password)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

func (e *Engine) loginInternal(ctx context.Context, identifier, password string) (string, string, error) {
	ip := clientIPFromContext(ctx)
	if e.passwordHash == nil {
		return "", "", ErrEngineNotReady
	}
	if e.rateLimiter != nil {
		if err := e.rateLimiter.CheckLogin(ctx, identifier, ip); err != nil {
			e.metricInc(MetricLoginRateLimited)
			e.emitAudit(ctx, auditEventLoginRateLimited, false, "", "", ErrLoginRateLimited, func() map[string]string {
				return map[string]string{
					"identifier": identifier,
				}
			})
			e.emitRateLimit(ctx, "login", func() map[string]string {
				return map[string]string{
					"identifier": identifier,
				}
			})
			return "", "", ErrLoginRateLimited
		}
	}
	if password == "" {
		if err := e.recordLoginFailureAttempt(ctx, identifier, ip, ""); err != nil {
			return "", "", err
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
				"reason":     "empty_password",
			}
		})
		return "", "", ErrInvalidCredentials
	}

	user, err := e.userProvider.GetUserByIdentifier(identifier)
	if err != nil {
		if err := e.recordLoginFailureAttempt(ctx, identifier, ip, ""); err != nil {
			return "", "", err
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, "", "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
				"reason":     "user_not_found",
			}
		})
		return "", "", ErrInvalidCredentials
	}

	ok, err := e.passwordHash.Verify(password, user.PasswordHash)
	if err != nil || !ok {
		if err := e.recordLoginFailureAttempt(ctx, identifier, ip, user.UserID); err != nil {
			return "", "", err
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
				"reason":     "password_mismatch",
			}
		})
		return "", "", ErrInvalidCredentials
	}
	if statusErr := accountStatusToError(user.Status); statusErr != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, "", statusErr, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
				"reason":     "account_status",
			}
		})
		return "", "", statusErr
	}

	if e.config.Password.UpgradeOnLogin {
		if needsUpgrade, err := e.passwordHash.NeedsUpgrade(user.PasswordHash); err == nil && needsUpgrade {
			if upgradedHash, err := e.passwordHash.Hash(password); err == nil {
				// Rehash update is best-effort and must not block successful login.
				if err := e.userProvider.UpdatePasswordHash(user.UserID, upgradedHash); err != nil {
					log.Print("trackd: password hash upgrade update failed")
				}
			} else {
				log.Print("trackd: password hash upgrade generation failed")
			}
		}
	}
	password = ""

	mask := e.matrix.MaskFor(user.Role)
	if mask == 0 {
		if err := e.recordLoginFailureAttempt(ctx, identifier, ip, user.UserID); err != nil {
			return "", "", err
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
				"reason":     "role_mask_missing",
			}
		})
		return "", "", ErrInvalidCredentials
	}

	if err := e.enforceSessionHardeningOnLogin(ctx, user.UserID); err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, "", err, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
				"reason":     "session_hardening",
			}
		})
		return "", "", err
	}

	sid, err := internal.NewSessionID()
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, "", err, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
				"reason":     "session_id_generation",
			}
		})
		return "", "", err
	}
	sessionID := sid.String()
	refreshSecret, err := internal.NewRefreshSecret()
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, sessionID, err, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
				"reason":     "refresh_secret_generation",
			}
		})
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
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, sessionID, err, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
				"reason":     "session_save_failed",
			}
		})
		return "", "", err
	}

	access, err := e.issueAccessToken(sess)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, sessionID, err, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
				"reason":     "issue_access_failed",
			}
		})
		return "", "", err
	}

	refresh, err := internal.EncodeRefreshToken(sessionID, refreshSecret)
	if err != nil {
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, user.UserID, sessionID, err, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
				"reason":     "encode_refresh_failed",
			}
		})
		return "", "", err
	}

	if e.rateLimiter != nil {
		if err := e.rateLimiter.ResetLogin(ctx, identifier, ip); err != nil {
			e.metricInc(MetricLoginRateLimited)
			e.emitAudit(ctx, auditEventLoginRateLimited, false, user.UserID, sessionID, ErrLoginRateLimited, func() map[string]string {
				return map[string]string{
					"identifier": identifier,
					"reason":     "reset_limiter_failed",
				}
			})
			return "", "", ErrLoginRateLimited
		}
	}

	e.metricInc(MetricSessionCreated)
	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, user.UserID, sessionID, nil, func() map[string]string {
		return map[string]string{
			"identifier": identifier,
		}
	})

	return access, refresh, nil
}

func (e *Engine) recordLoginFailureAttempt(ctx context.Context, identifier, ip, userID string) error {
	if e.rateLimiter == nil {
		return nil
	}
	if err := e.rateLimiter.IncrementLogin(ctx, identifier, ip); err != nil {
		e.metricInc(MetricLoginRateLimited)
		e.emitAudit(ctx, auditEventLoginRateLimited, false, userID, "", ErrLoginRateLimited, func() map[string]string {
			return map[string]string{
				"identifier": identifier,
			}
		})
		e.emitRateLimit(ctx, "login", func() map[string]string {
			return map[string]string{
				"identifier": identifier,
			}
		})
		return ErrLoginRateLimited
	}
	return nil
}

// Refresh describes the refresh operation and its observable behavior.
//
// Refresh may return an error when input validation, dependency calls, or security checks fail.
// Refresh does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (string, string, error) {
	sessionID, providedSecret, err := internal.DecodeRefreshToken(refreshToken)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", "", ErrRefreshInvalid, func() map[string]string {
			return map[string]string{
				"reason": "decode_failed",
			}
		})
		return "", "", ErrRefreshInvalid
	}

	if e.rateLimiter != nil {
		if err := e.rateLimiter.CheckRefresh(ctx, sessionID); err != nil {
			e.metricInc(MetricRefreshRateLimited)
			e.emitAudit(ctx, auditEventRefreshRateLimited, false, "", sessionID, ErrRefreshRateLimited, nil)
			e.emitRateLimit(ctx, "refresh", func() map[string]string {
				return map[string]string{
					"session_id": sessionID,
				}
			})
			return "", "", ErrRefreshRateLimited
		}
	}

	nextSecret, err := internal.NewRefreshSecret()
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, "", sessionID, err, func() map[string]string {
			return map[string]string{
				"reason": "next_secret_generation",
			}
		})
		return "", "", err
	}

	sess, err := e.sessionStore.RotateRefreshHash(
		ctx,
		sessionID,
		internal.HashRefreshSecret(providedSecret),
		internal.HashRefreshSecret(nextSecret),
	)
	if err != nil {
		switch {
		case errors.Is(err, session.ErrRefreshHashMismatch):
			e.metricInc(MetricRefreshReuseDetected)
			e.metricInc(MetricSessionInvalidated)
			e.emitAudit(ctx, auditEventRefreshReuseDetected, false, "", sessionID, ErrRefreshReuse, nil)
			return "", "", ErrRefreshReuse
		case errors.Is(err, redis.Nil):
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, auditEventRefreshInvalid, false, "", sessionID, ErrSessionNotFound, func() map[string]string {
				return map[string]string{
					"reason": "session_not_found",
				}
			})
			return "", "", ErrSessionNotFound
		default:
			e.metricInc(MetricRefreshFailure)
			e.emitAudit(ctx, auditEventRefreshInvalid, false, "", sessionID, err, func() map[string]string {
				return map[string]string{
					"reason": "rotate_failed",
				}
			})
			return "", "", err
		}
	}
	if statusErr := accountStatusToError(AccountStatus(sess.Status)); statusErr != nil {
		_ = e.sessionStore.Delete(ctx, sess.SessionID)
		e.metricInc(MetricSessionInvalidated)
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, sess.UserID, sess.SessionID, statusErr, func() map[string]string {
			return map[string]string{
				"reason": "account_status",
			}
		})
		return "", "", statusErr
	}

	access, err := e.issueAccessToken(sess)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, sess.UserID, sess.SessionID, err, func() map[string]string {
			return map[string]string{
				"reason": "issue_access_failed",
			}
		})
		return "", "", err
	}

	refresh, err := internal.EncodeRefreshToken(sess.SessionID, nextSecret)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		e.emitAudit(ctx, auditEventRefreshInvalid, false, sess.UserID, sess.SessionID, err, func() map[string]string {
			return map[string]string{
				"reason": "encode_refresh_failed",
			}
		})
		return "", "", err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, sess.UserID, sess.SessionID, nil, nil)

	return access, refresh, nil
}

// ValidateAccess describes the validateaccess operation and its observable behavior.
//
// ValidateAccess may return an error when input validation, dependency calls, or security checks fail.
// ValidateAccess does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ValidateAccess(ctx context.Context, tokenStr string) (*AuthResult, error) {
	return e.Validate(ctx, tokenStr, ModeInherit)
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Validate(ctx context.Context, tokenStr string, routeMode RouteMode) (*AuthResult, error) {
	if e.metrics != nil && e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricValidateLatency, time.Since(start)) }()
	}

	claims, err := e.jwtManager.ParseAccess(tokenStr)
	if err != nil {
		e.metricInc(MetricValidateFailure)
		return nil, ErrUnauthorized
	}
	if e.config.SessionHardening.MaxClockSkew >= 0 && claims.IssuedAt != nil {
		if claims.IssuedAt.Time.After(time.Now().Add(e.config.SessionHardening.MaxClockSkew)) {
			e.metricInc(MetricValidateFailure)
			return nil, ErrTokenClockSkew
		}
	}

	effectiveMode, err := e.resolveRouteMode(routeMode)
	if err != nil {
		e.metricInc(MetricValidateFailure)
		return nil, err
	}

	// JWT-only and hybrid-default validation paths: no Redis.
	if effectiveMode == ModeJWTOnly || effectiveMode == ModeHybrid {
		e.metricInc(MetricValidateSuccess)
		return e.buildResultFromClaims(claims), nil
	}

	// Strict validation path: Redis is mandatory and fail-closed.
	sess, err := e.sessionStore.Get(ctx, claims.SID, e.sessionLifetime())
	if err != nil {
		e.metricInc(MetricValidateFailure)
		if errors.Is(err, session.ErrRedisUnavailable) {
			return nil, ErrUnauthorized
		}
		return nil, ErrSessionNotFound
	}

	if e.config.Security.EnablePermissionVersionCheck {
		if claims.PermVersion != sess.PermissionVersion {
			e.metricInc(MetricValidateFailure)
			return nil, ErrSessionNotFound
		}
	}
	if e.config.Security.EnableAccountVersionCheck {
		if claims.AccountVersion != 0 && sess.AccountVersion != 0 && claims.AccountVersion != sess.AccountVersion {
			_ = e.sessionStore.Delete(ctx, claims.SID)
			e.metricInc(MetricValidateFailure)
			return nil, ErrSessionNotFound
		}
	}
	if statusErr := accountStatusToError(AccountStatus(sess.Status)); statusErr != nil {
		_ = e.sessionStore.Delete(ctx, claims.SID)
		e.metricInc(MetricValidateFailure)
		return nil, statusErr
	}

	e.metricInc(MetricValidateSuccess)
	return e.buildResult(sess), nil
}

func (e *Engine) buildResult(s *session.Session) *AuthResult {
	res := &AuthResult{
		UserID:    s.UserID,
		SessionID: s.SessionID,
		Mask:      s.Mask,
	}

	if e.config.Result.IncludeRole {
		res.Role = rbac.Role(s.Role)
	}

	if e.config.Result.IncludePermissions {
		res.Permissions = e.matrix.PermissionsForMask(s.Mask)
	}

	return res
}

func (e *Engine) buildResultFromClaims(claims *jwt.AccessClaims) *AuthResult {
	var mask rbac.Mask64

	if claims.Mask != nil {
		if decoded, err := rbac.DecodeMask(claims.Mask); err == nil {
			mask = decoded
		}
	}

	res := &AuthResult{
		UserID:    claims.UID,
		SessionID: claims.SID,
		Mask:      mask,
	}

	if e.config.Result.IncludeRole {
		res.Role = rbac.Role(claims.Role)
	}

	if e.config.Result.IncludePermissions && mask != 0 {
		res.Permissions = e.matrix.PermissionsForMask(mask)
	}

	return res
}

func (e *Engine) issueAccessToken(sess *session.Session) (string, error) {
	// Always include JWT claims required for JWT-only route overrides.
	maskBytes := rbac.EncodeMask(sess.Mask)

	return e.jwtManager.CreateAccess(
		sess.UserID,
		sess.SessionID,
		sess.Role,
		maskBytes,
		sess.PermissionVersion,
		sess.AccountVersion,
		true,
		true,
		true,
		sess.Mask.IsRoot(),
	)
}

// Logout describes the logout operation and its observable behavior.
//
// Logout may return an error when input validation, dependency calls, or security checks fail.
// Logout does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Logout(ctx context.Context, sessionID string) error {
	err := e.sessionStore.Delete(ctx, sessionID)
	if err == nil {
		e.metricInc(MetricLogout)
		e.metricInc(MetricSessionInvalidated)
	}
	e.emitAudit(ctx, auditEventLogoutSession, err == nil, "", sessionID, err, nil)
	return err
}

// LogoutByAccessToken describes the logoutbyaccesstoken operation and its observable behavior.
//
// LogoutByAccessToken may return an error when input validation, dependency calls, or security checks fail.
// LogoutByAccessToken does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) LogoutByAccessToken(ctx context.Context, tokenStr string) error {
	claims, err := e.jwtManager.ParseAccess(tokenStr)
	if err != nil {
		e.emitAudit(ctx, auditEventLogoutSession, false, "", "", ErrTokenInvalid, func() map[string]string {
			return map[string]string{
				"reason": "invalid_access_token",
			}
		})
		return ErrTokenInvalid
	}

	return e.Logout(ctx, claims.SID)
}

// LogoutAll describes the logoutall operation and its observable behavior.
//
// LogoutAll may return an error when input validation, dependency calls, or security checks fail.
// LogoutAll does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) LogoutAll(ctx context.Context, userID string) error {
	err := e.sessionStore.DeleteAllForUser(ctx, userID)
	if err == nil {
		e.metricInc(MetricLogoutAll)
		e.metricInc(MetricSessionInvalidated)
	}
	e.emitAudit(ctx, auditEventLogoutAll, err == nil, userID, "", err, nil)
	return err
}

// InvalidateUserSessions describes the invalidateusersessions operation and its observable behavior.
//
// InvalidateUserSessions may return an error when input validation, dependency calls, or security checks fail.
// InvalidateUserSessions does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) InvalidateUserSessions(ctx context.Context, userID string) error {
	return e.LogoutAll(ctx, userID)
}

// ChangePassword describes the changepassword operation and its observable behavior.
//
// ChangePassword may return an error when input validation, dependency calls, or security checks fail.
// ChangePassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if e.passwordHash == nil {
		return ErrEngineNotReady
	}
	if userID == "" || oldPassword == "" || newPassword == "" {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, userID, "", ErrPasswordPolicy, func() map[string]string {
			return map[string]string{
				"reason": "invalid_input",
			}
		})
		return ErrPasswordPolicy
	}

	user, err := e.userProvider.GetUserByID(userID)
	if err != nil {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, userID, "", ErrUserNotFound, func() map[string]string {
			return map[string]string{
				"reason": "user_not_found",
			}
		})
		return ErrUserNotFound
	}
	if statusErr := accountStatusToError(user.Status); statusErr != nil {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, userID, "", statusErr, func() map[string]string {
			return map[string]string{
				"reason": "account_status",
			}
		})
		return statusErr
	}

	oldOK, err := e.passwordHash.Verify(oldPassword, user.PasswordHash)
	if err != nil || !oldOK {
		e.metricInc(MetricPasswordChangeInvalidOld)
		e.emitAudit(ctx, auditEventPasswordChangeInvalidOld, false, userID, "", ErrInvalidCredentials, nil)
		return ErrInvalidCredentials
	}

	samePassword, err := e.passwordHash.Verify(newPassword, user.PasswordHash)
	if err == nil && samePassword {
		e.metricInc(MetricPasswordChangeReuseRejected)
		e.emitAudit(ctx, auditEventPasswordChangeReuse, false, userID, "", ErrPasswordReuse, nil)
		return ErrPasswordReuse
	}

	newHash, err := e.passwordHash.Hash(newPassword)
	if err != nil {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, userID, "", ErrPasswordPolicy, func() map[string]string {
			return map[string]string{
				"reason": "hash_policy",
			}
		})
		return ErrPasswordPolicy
	}

	if err := e.userProvider.UpdatePasswordHash(userID, newHash); err != nil {
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, userID, "", err, func() map[string]string {
			return map[string]string{
				"reason": "update_hash_failed",
			}
		})
		return err
	}

	if err := e.LogoutAll(ctx, userID); err != nil {
		log.Print("trackd: session invalidation failed after password change")
		e.emitAudit(ctx, auditEventPasswordChangeFailure, false, userID, "", ErrSessionInvalidationFailed, func() map[string]string {
			return map[string]string{
				"reason": "session_invalidation_failed",
			}
		})
		return errors.Join(ErrSessionInvalidationFailed, err)
	}

	if e.rateLimiter != nil {
		identifier := user.Identifier
		if identifier == "" {
			identifier = userID
		}
		// Limiter reset is best-effort and must not block successful password change.
		if err := e.rateLimiter.ResetLogin(ctx, identifier, clientIPFromContext(ctx)); err != nil {
			log.Print("trackd: login limiter reset failed after password change")
		}
	}

	oldPassword = ""
	newPassword = ""
	e.metricInc(MetricPasswordChangeSuccess)
	e.emitAudit(ctx, auditEventPasswordChangeSuccess, true, userID, "", nil, nil)

	return nil
}

func (e *Engine) sessionLifetime() time.Duration {
	lifetime := e.config.Session.AbsoluteSessionLifetime
	if e.config.JWT.RefreshTTL > 0 && e.config.JWT.RefreshTTL < lifetime {
		return e.config.JWT.RefreshTTL
	}
	return lifetime
}

func (e *Engine) resolveRouteMode(routeMode RouteMode) (ValidationMode, error) {
	switch routeMode {
	case ModeInherit:
		switch e.config.ValidationMode {
		case ModeJWTOnly:
			return ModeJWTOnly, nil
		case ModeHybrid:
			return ModeHybrid, nil
		case ModeStrict:
			return ModeStrict, nil
		default:
			return 0, ErrInvalidRouteMode
		}
	case ModeJWTOnly:
		return ModeJWTOnly, nil
	case ModeHybrid:
		return ModeHybrid, nil
	case ModeStrict:
		return ModeStrict, nil
	default:
		return 0, ErrInvalidRouteMode
	}
}

func (e *Engine) enforceSessionHardeningOnLogin(ctx context.Context, userID string) error {
	h := e.config.SessionHardening
	if e.sessionStore == nil {
		return ErrEngineNotReady
	}
	if userID == "" {
		return ErrUserNotFound
	}
	if h.MaxSessionsPerUser <= 0 {
		return nil
	}

	currentUserSessions, err := e.sessionStore.ActiveSessionCount(ctx, userID)
	if err != nil {
		return err
	}
	if currentUserSessions >= h.MaxSessionsPerUser {
		return ErrSessionLimitExceeded
	}

	return nil
}
