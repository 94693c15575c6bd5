package auth

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	"ms-events/internal/logger"
	"ms-events/internal/utils"
)

// Middleware admits requests carrying the static admin bearer secret.
// An empty secret rejects everything.
func Middleware(secret string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := ExtractTokenFromRequest(r)
			if err != nil {
				log.LogSecurity("UNAUTHORIZED", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
				unauthorized(w, err.Error(), log)
				return
			}
			if secret == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				log.LogSecurity("UNAUTHORIZED", fmt.Sprintf("%s %s: bad token", r.Method, r.URL.Path))
				unauthorized(w, "invalid token", log)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, detail string, log *logger.Logger) {
	if err := utils.WriteError(w, http.StatusUnauthorized, "Unauthorized", detail); err != nil {
		log.Warn("AUTH", fmt.Sprintf("Failed to write 401 response: %v", err))
	}
}
