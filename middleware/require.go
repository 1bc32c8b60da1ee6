package middleware

import (
	"net/http"

	trackd "github.com/foodontracks/trackd"
	"github.com/foodontracks/trackd/rbac"
)

// RequirePermission rejects requests whose validated result does not grant
// the resource/action pair. Must run inside a [Guard].
func RequirePermission(engine *trackd.Engine, resource rbac.Resource, action rbac.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, ok := AuthResultFromContext(r.Context())
			if !ok || !engine.HasPermission(res, resource, action) {
				engine.RecordPermissionDenied(r.Context(), res, resource, action)
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAny rejects requests that hold none of the given permissions.
func RequireAny(engine *trackd.Engine, perms ...rbac.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, ok := AuthResultFromContext(r.Context())
			if !ok || !engine.HasAnyPermission(res, perms...) {
				denyFirst(engine, r, res, perms)
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAll rejects requests missing any of the given permissions.
func RequireAll(engine *trackd.Engine, perms ...rbac.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, ok := AuthResultFromContext(r.Context())
			if !ok || !engine.HasAllPermissions(res, perms...) {
				denyFirst(engine, r, res, perms)
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func denyFirst(engine *trackd.Engine, r *http.Request, res *trackd.AuthResult, perms []rbac.Permission) {
	if len(perms) == 0 {
		return
	}
	engine.RecordPermissionDenied(r.Context(), res, perms[0].Resource, perms[0].Action)
}
