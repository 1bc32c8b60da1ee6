package main

import (
	"net/http"

	"go.uber.org/zap"

	trackd "github.com/foodontracks/trackd"
	"github.com/foodontracks/trackd/metrics/export/prometheus"
	"github.com/foodontracks/trackd/middleware"
	"github.com/foodontracks/trackd/rbac"
	"github.com/foodontracks/trackd/store/sqlite"
)

type server struct {
	cfg       serverConfig
	engineCfg trackd.Config
	engine    *trackd.Engine
	store     *sqlite.Store
	log       *zap.Logger
}

// routes wires every endpoint behind the route guard. Auth endpoints,
// health, and metrics are public; everything else requires a validated
// token and, for gated subtrees, the matching permission.
func (s *server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/refresh", s.handleRefresh)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	mux.HandleFunc("POST /api/auth/signup", s.handleSignup)

	mux.HandleFunc("GET /api/me", s.handleMe)
	mux.HandleFunc("GET /api/me/sessions", s.handleListSessions)
	mux.HandleFunc("POST /api/me/password", s.handleChangePassword)

	mux.HandleFunc("GET /api/prefs", s.handleGetPrefs)
	mux.HandleFunc("PUT /api/prefs", s.handlePutPrefs)
	mux.HandleFunc("PATCH /api/prefs", s.handlePatchPrefs)
	mux.HandleFunc("DELETE /api/prefs", s.handleResetPrefs)

	mux.HandleFunc("GET /api/orders", s.handleListOrders)
	mux.HandleFunc("POST /api/orders", s.handleCreateOrder)
	mux.HandleFunc("GET /api/orders/{id}", s.handleGetOrder)
	mux.HandleFunc("POST /api/orders/{id}/status", s.handleAdvanceOrder)
	mux.HandleFunc("GET /api/orders/{id}/trace", s.handleGetTrace)
	mux.HandleFunc("POST /api/orders/{id}/trace", s.handleAppendTrace)

	mux.HandleFunc("GET /api/matrix", s.handleMatrix)
	mux.HandleFunc("GET /api/audit", s.handleAuditQuery)

	mux.HandleFunc("POST /api/admin/users/{id}/role", s.handleChangeRole)
	mux.HandleFunc("POST /api/admin/users/{id}/status", s.handleChangeStatus)

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", prometheus.NewPrometheusExporter(s.engine).Handler())

	table := middleware.NewRouteTable(
		middleware.Rule{Prefix: "/api/auth", Public: true, API: true},
		middleware.Rule{Prefix: "/healthz", Public: true},
		middleware.Rule{Prefix: "/metrics", Public: true},
		middleware.Rule{Prefix: "/api/me", API: true},
		middleware.Rule{Prefix: "/api/prefs", API: true},
		middleware.Rule{Prefix: "/api/matrix", API: true},
		middleware.Rule{Prefix: "/api/orders", API: true, Resource: rbac.ResourceOrders, Action: rbac.ActionView},
		middleware.Rule{Prefix: "/api/audit", API: true, Resource: rbac.ResourceUsers, Action: rbac.ActionView},
		middleware.Rule{Prefix: "/api/admin", API: true, Resource: rbac.ResourceUsers, Action: rbac.ActionEdit},
	)

	guarded := middleware.RouteGuard(
		s.engine,
		table,
		s.engineCfg.Cookie.RedirectPath,
		s.engineCfg.Cookie.AccessName,
	)(mux)

	return s.requestContext(guarded)
}

// requestContext stamps the client IP and user agent onto the request
// context so engine rate limiting and audit events can use them.
func (s *server) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := trackd.WithClientIP(r.Context(), clientIP(r))
		ctx = trackd.WithUserAgent(ctx, r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
