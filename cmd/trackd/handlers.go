package main

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	trackd "github.com/foodontracks/trackd"
)

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeEngineError maps library sentinels onto HTTP statuses without
// leaking internal detail in the body.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, trackd.ErrInvalidCredentials),
		errors.Is(err, trackd.ErrUnauthorized),
		errors.Is(err, trackd.ErrTokenInvalid),
		errors.Is(err, trackd.ErrTokenClockSkew),
		errors.Is(err, trackd.ErrSessionNotFound),
		errors.Is(err, trackd.ErrRefreshInvalid),
		errors.Is(err, trackd.ErrRefreshReuse):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, trackd.ErrAccountDisabled),
		errors.Is(err, trackd.ErrAccountLocked),
		errors.Is(err, trackd.ErrAccountDeleted),
		errors.Is(err, trackd.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, trackd.ErrLoginRateLimited),
		errors.Is(err, trackd.ErrRefreshRateLimited),
		errors.Is(err, trackd.ErrAccountCreationRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate limited")
	case errors.Is(err, trackd.ErrAccountExists):
		writeError(w, http.StatusConflict, "account already exists")
	case errors.Is(err, trackd.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, trackd.ErrPasswordPolicy),
		errors.Is(err, trackd.ErrPasswordReuse),
		errors.Is(err, trackd.ErrAccountCreationInvalid),
		errors.Is(err, trackd.ErrAccountRoleInvalid),
		errors.Is(err, trackd.ErrPrefsInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return false
	}
	return true
}

func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	health := s.engine.Health(r.Context())
	if !health.RedisAvailable {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "degraded",
			"redis":  false,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":           "ok",
		"redis":            true,
		"redis_latency_us": health.RedisLatency.Microseconds(),
	})
}
