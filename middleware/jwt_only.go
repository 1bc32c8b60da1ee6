package middleware

import (
	"net/http"

	trackd "github.com/foodontracks/trackd"
)

// RequireJWTOnly returns middleware that overrides the validation mode to
// [trackd.ModeJWTOnly] for the wrapped handler, skipping Redis entirely.
func RequireJWTOnly(engine *trackd.Engine, cookieName string) func(http.Handler) http.Handler {
	return Guard(engine, trackd.ModeJWTOnly, cookieName)
}
