package main

import (
	"net/http"
	"strconv"
	"time"

	trackd "github.com/foodontracks/trackd"
	"github.com/foodontracks/trackd/middleware"
	"github.com/foodontracks/trackd/rbac"
)

func (s *server) handleMatrix(w http.ResponseWriter, _ *http.Request) {
	matrix := s.engine.Matrix()
	out := make(map[string][]string, len(rbac.Roles()))
	for _, role := range rbac.Roles() {
		out[string(role)] = matrix.Permissions(role)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleAuditQuery(w http.ResponseWriter, r *http.Request) {
	log := s.engine.AuditLog()
	if log == nil {
		writeError(w, http.StatusNotFound, "audit log disabled")
		return
	}

	q := trackd.AuditQuery{
		UserID:    r.URL.Query().Get("user_id"),
		EventType: r.URL.Query().Get("type"),
	}
	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since timestamp")
			return
		}
		q.Since = since
	}
	if raw := r.URL.Query().Get("success"); raw != "" {
		success, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid success filter")
			return
		}
		q.Success = &success
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		q.Limit = limit
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total":  log.Total(),
		"events": log.Filter(q),
	})
}

func (s *server) handleChangeRole(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Role string `json:"role"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	userID := r.PathValue("id")
	if res, ok := middleware.AuthResultFromContext(r.Context()); ok && res.UserID == userID {
		writeError(w, http.StatusConflict, "cannot change own role")
		return
	}

	if err := s.engine.ChangeRole(r.Context(), userID, rbac.Role(body.Role)); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleChangeStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	userID := r.PathValue("id")
	if res, ok := middleware.AuthResultFromContext(r.Context()); ok && res.UserID == userID {
		writeError(w, http.StatusConflict, "cannot change own account status")
		return
	}

	var err error
	switch body.Status {
	case "active":
		err = s.engine.EnableAccount(r.Context(), userID)
	case "disabled":
		err = s.engine.DisableAccount(r.Context(), userID)
	case "locked":
		err = s.engine.LockAccount(r.Context(), userID)
	case "deleted":
		err = s.engine.DeleteAccount(r.Context(), userID)
	default:
		writeError(w, http.StatusBadRequest, "unsupported status")
		return
	}
	if err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
