package api

import (
	"crypto/subtle"
	"net/http"
)

// RequireAPIKey rejects requests whose X-API-Key header does not match the
// configured service key. An empty configured key disables the check, for
// local development. The session core never evaluates authorization; it ends
// here at the transport boundary.
func RequireAPIKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key != "" {
				got := r.Header.Get("X-API-Key")
				if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
					writeErrorCode(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid API key")
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
