package middleware

import (
	"net/http"

	trackd "github.com/foodontracks/trackd"
)

func RequireStrict(engine *trackd.Engine, cookieName string) func(http.Handler) http.Handler {
	return Guard(engine, trackd.ModeStrict, cookieName)
}
