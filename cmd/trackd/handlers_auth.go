package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	trackd "github.com/foodontracks/trackd"
	"github.com/foodontracks/trackd/middleware"
	"github.com/foodontracks/trackd/prefs"
)

func (s *server) setAuthCookies(w http.ResponseWriter, access, refresh string) {
	cookie := s.engineCfg.Cookie
	http.SetCookie(w, &http.Cookie{
		Name:     cookie.AccessName,
		Value:    access,
		Path:     cookie.Path,
		MaxAge:   int(s.engineCfg.JWT.AccessTTL.Seconds()),
		HttpOnly: true,
		Secure:   cookie.Secure,
		SameSite: cookie.SameSite,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     cookie.RefreshName,
		Value:    refresh,
		Path:     cookie.Path,
		MaxAge:   int(s.engineCfg.JWT.RefreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   cookie.Secure,
		SameSite: cookie.SameSite,
	})
}

func (s *server) clearAuthCookies(w http.ResponseWriter) {
	cookie := s.engineCfg.Cookie
	for _, name := range []string{cookie.AccessName, cookie.RefreshName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     cookie.Path,
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   cookie.Secure,
			SameSite: cookie.SameSite,
		})
	}
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	access, refresh, err := s.engine.Login(r.Context(), body.Identifier, body.Password)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	s.setAuthCookies(w, access, refresh)
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token":  access,
		"refresh_token": refresh,
	})
}

func (s *server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token := ""
	if cookie, err := r.Cookie(s.engineCfg.Cookie.RefreshName); err == nil {
		token = cookie.Value
	}
	if token == "" {
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		switch err := json.NewDecoder(r.Body).Decode(&body); {
		case err == nil:
			token = body.RefreshToken
		case errors.Is(err, io.EOF):
			// No cookie and no body: credential is absent, not malformed.
		default:
			writeError(w, http.StatusBadRequest, "bad request")
			return
		}
	}
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing refresh token")
		return
	}

	access, refresh, err := s.engine.Refresh(r.Context(), token)
	if err != nil {
		s.clearAuthCookies(w)
		writeEngineError(w, err)
		return
	}

	s.setAuthCookies(w, access, refresh)
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token":  access,
		"refresh_token": refresh,
	})
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := bearerOrCookieToken(r, s.engineCfg.Cookie.AccessName)
	if token == "" {
		writeError(w, http.StatusBadRequest, "missing token")
		return
	}

	if err := s.engine.LogoutByAccessToken(r.Context(), token); err != nil {
		writeEngineError(w, err)
		return
	}

	s.clearAuthCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	res, err := s.engine.CreateAccount(r.Context(), trackd.CreateAccountRequest{
		Identifier: body.Identifier,
		Password:   body.Password,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}

	out := map[string]string{
		"user_id": res.UserID,
		"role":    string(res.Role),
	}
	if res.AccessToken != "" {
		s.setAuthCookies(w, res.AccessToken, res.RefreshToken)
		out["access_token"] = res.AccessToken
		out["refresh_token"] = res.RefreshToken
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *server) handleMe(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":     res.UserID,
		"role":        string(res.Role),
		"permissions": s.engine.Matrix().PermissionsForMask(res.Mask),
	})
}

func (s *server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sessions, err := s.engine.ListActiveSessions(r.Context(), res.UserID)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	out := make([]map[string]any, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, map[string]any{
			"session_id": sess.SessionID,
			"role":       string(sess.Role),
			"created_at": sess.CreatedAt,
			"expires_at": sess.ExpiresAt,
			"current":    sess.SessionID == res.SessionID,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var body struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	if err := s.engine.ChangePassword(r.Context(), res.UserID, body.OldPassword, body.NewPassword); err != nil {
		writeEngineError(w, err)
		return
	}

	// All sessions are gone after a password change.
	s.clearAuthCookies(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleGetPrefs(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	p, err := s.engine.GetPreferences(r.Context(), res.UserID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *server) handlePutPrefs(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var p prefs.Preferences
	if !decodeBody(w, r, &p) {
		return
	}

	stored, err := s.engine.PutPreferences(r.Context(), res.UserID, p)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (s *server) handlePatchPrefs(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad request")
		return
	}
	patch, err := prefs.DecodePatch(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid preferences payload")
		return
	}

	stored, err := s.engine.PatchPreferences(r.Context(), res.UserID, patch)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (s *server) handleResetPrefs(w http.ResponseWriter, r *http.Request) {
	res, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := s.engine.ResetPreferences(r.Context(), res.UserID); err != nil {
		writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func bearerOrCookieToken(r *http.Request, cookieName string) string {
	const prefix = "Bearer "
	if h := r.Header.Get("Authorization"); len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	if cookie, err := r.Cookie(cookieName); err == nil {
		return cookie.Value
	}
	return ""
}
