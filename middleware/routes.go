package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	trackd "github.com/foodontracks/trackd"
	"github.com/foodontracks/trackd/rbac"
)

// Rule gates one path prefix. Public rules pass every request through.
// Protected rules require a validated token and, when Resource is set,
// the matching permission. API rules answer failures with JSON status
// codes; page rules answer with a redirect to the login route.
type Rule struct {
	Prefix     string
	Public     bool
	API        bool
	Resource   rbac.Resource
	Action     rbac.Action
	Mode       trackd.RouteMode
	RedirectTo string
}

// RouteTable is an ordered set of [Rule] values matched by longest prefix.
// It replaces per-handler wiring for applications that gate whole URL
// subtrees the same way.
type RouteTable struct {
	rules []Rule
}

// NewRouteTable builds a table from the given rules. Rule order does not
// matter; Match always picks the longest prefix.
func NewRouteTable(rules ...Rule) *RouteTable {
	return &RouteTable{rules: rules}
}

// Match returns the longest-prefix rule for path, or false when no rule
// covers it.
func (t *RouteTable) Match(path string) (Rule, bool) {
	var best Rule
	found := false
	for _, rule := range t.rules {
		if !pathHasPrefix(path, rule.Prefix) {
			continue
		}
		if !found || len(rule.Prefix) > len(best.Prefix) {
			best = rule
			found = true
		}
	}
	return best, found
}

// pathHasPrefix matches on path-segment boundaries, so "/order" does not
// capture "/orders".
func pathHasPrefix(path, prefix string) bool {
	if prefix == "" {
		return false
	}
	if prefix == "/" {
		return true
	}
	prefix = strings.TrimSuffix(prefix, "/")
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}

// RouteGuard applies the route table in front of next: public and
// unmatched paths pass, everything else is validated and permission
// checked. Deny handling is redirect (pages) or JSON status (API) and
// nothing else.
func RouteGuard(engine *trackd.Engine, table *RouteTable, loginPath, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rule, ok := table.Match(r.URL.Path)
			if !ok || rule.Public {
				next.ServeHTTP(w, r)
				return
			}
			if engine == nil {
				denyUnauthenticated(engine, w, r, rule, loginPath)
				return
			}

			token, ok := requestToken(r, cookieName)
			if !ok {
				denyUnauthenticated(engine, w, r, rule, loginPath)
				return
			}

			mode := rule.Mode
			if mode == 0 {
				mode = trackd.ModeInherit
			}
			res, err := engine.Validate(r.Context(), token, mode)
			if err != nil {
				denyUnauthenticated(engine, w, r, rule, loginPath)
				return
			}

			if rule.Resource != "" {
				if !engine.HasPermission(res, rule.Resource, rule.Action) {
					engine.RecordPermissionDenied(r.Context(), res, rule.Resource, rule.Action)
					denyForbidden(engine, w, r, rule, res)
					return
				}
			}

			ctx := context.WithValue(r.Context(), authResultContextKey{}, res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func denyUnauthenticated(engine *trackd.Engine, w http.ResponseWriter, r *http.Request, rule Rule, loginPath string) {
	if rule.API {
		if engine != nil {
			engine.RecordRouteDenied(r.Context(), nil, r.URL.Path, false)
		}
		writeJSONError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if engine != nil {
		engine.RecordRouteDenied(r.Context(), nil, r.URL.Path, true)
	}
	redirectToLogin(w, r, rule, loginPath)
}

func denyForbidden(engine *trackd.Engine, w http.ResponseWriter, r *http.Request, rule Rule, res *trackd.AuthResult) {
	if rule.API || rule.RedirectTo == "" {
		engine.RecordRouteDenied(r.Context(), res, r.URL.Path, false)
		if rule.API {
			writeJSONError(w, http.StatusForbidden, "forbidden")
		} else {
			http.Error(w, "forbidden", http.StatusForbidden)
		}
		return
	}
	engine.RecordRouteDenied(r.Context(), res, r.URL.Path, true)
	http.Redirect(w, r, rule.RedirectTo, http.StatusSeeOther)
}

func redirectToLogin(w http.ResponseWriter, r *http.Request, rule Rule, loginPath string) {
	target := rule.RedirectTo
	if target == "" {
		target = loginPath
	}
	if target == "" {
		target = "/login"
	}
	http.Redirect(w, r, target+"?next="+url.QueryEscape(r.URL.Path), http.StatusSeeOther)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
