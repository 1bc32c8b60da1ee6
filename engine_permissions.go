package trackd

import (
	"context"

	"github.com/foodontracks/trackd/rbac"
)

// HasPermission reports whether the validated result grants the
// resource/action pair. A nil result always denies.
func (e *Engine) HasPermission(res *AuthResult, resource rbac.Resource, action rbac.Action) bool {
	if e == nil || e.matrix == nil || res == nil {
		return false
	}
	return e.matrix.MaskAllows(res.Mask, resource, action)
}

// HasAnyPermission reports whether the validated result grants at least one
// of the given permissions. An empty list denies.
func (e *Engine) HasAnyPermission(res *AuthResult, perms ...rbac.Permission) bool {
	if e == nil || e.matrix == nil || res == nil || len(perms) == 0 {
		return false
	}
	for _, p := range perms {
		if e.matrix.MaskAllows(res.Mask, p.Resource, p.Action) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether the validated result grants every one of
// the given permissions. An empty list allows.
func (e *Engine) HasAllPermissions(res *AuthResult, perms ...rbac.Permission) bool {
	if e == nil || e.matrix == nil || res == nil {
		return false
	}
	for _, p := range perms {
		if !e.matrix.MaskAllows(res.Mask, p.Resource, p.Action) {
			return false
		}
	}
	return true
}

// RecordPermissionDenied accounts a rejected permission check in metrics and
// the audit stream. Called by the HTTP layer after a 403.
func (e *Engine) RecordPermissionDenied(ctx context.Context, res *AuthResult, resource rbac.Resource, action rbac.Action) {
	if e == nil {
		return
	}
	userID := ""
	sessionID := ""
	if res != nil {
		userID = res.UserID
		sessionID = res.SessionID
	}
	e.metricInc(MetricPermissionDenied)
	e.emitAudit(ctx, auditEventPermissionDenied, false, userID, sessionID, ErrPermissionDenied, func() map[string]string {
		return map[string]string{
			"permission": rbac.Perm(resource, action).Name(),
		}
	})
}

// RecordRouteDenied accounts a route-table rejection. redirected marks the
// browser redirect variant as opposed to a plain 401/403.
func (e *Engine) RecordRouteDenied(ctx context.Context, res *AuthResult, path string, redirected bool) {
	if e == nil {
		return
	}
	userID := ""
	sessionID := ""
	if res != nil {
		userID = res.UserID
		sessionID = res.SessionID
	}
	if redirected {
		e.metricInc(MetricRouteRedirect)
	} else {
		e.metricInc(MetricRouteDenied)
	}
	e.emitAudit(ctx, auditEventRouteDenied, false, userID, sessionID, ErrPermissionDenied, func() map[string]string {
		m := map[string]string{
			"path": path,
		}
		if redirected {
			m["handling"] = "redirect"
		}
		return m
	})
}
