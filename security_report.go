package trackd

// SecurityReport summarizes the engine's active security posture. It is a
// snapshot of configuration, not live state, and is safe to expose on
// diagnostic endpoints.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	rateLimiting := e.config.Security.MaxLoginAttempts > 0 &&
		e.config.Security.LoginCooldownDuration > 0

	return SecurityReport{
		ProductionMode:   e.config.Security.ProductionMode,
		SigningAlgorithm: e.config.JWT.SigningMethod,
		ValidationMode:   e.config.ValidationMode,
		AccessTTL:        e.config.JWT.AccessTTL,
		RefreshTTL:       e.config.JWT.RefreshTTL,
		Argon2: PasswordConfigReport{
			Memory:      e.config.Password.Memory,
			Time:        e.config.Password.Time,
			Parallelism: e.config.Password.Parallelism,
			SaltLength:  e.config.Password.SaltLength,
			KeyLength:   e.config.Password.KeyLength,
		},
		RefreshRotationEnabled:       e.config.Security.EnforceRefreshRotation,
		RefreshReuseDetectionEnabled: e.config.Security.EnforceRefreshReuseDetection,
		SessionCapsActive:            e.config.SessionHardening.MaxSessionsPerUser > 0,
		RateLimitingActive:           rateLimiting || e.config.Security.EnableRefreshThrottle,
		AuditLogActive:               e.auditLog != nil,
		PrefsActive:                  e.prefsStore != nil,
	}
}
