// Package auth guards the JSON API with a shared bearer token.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"fintrack/internal/log"
)

// RejectFunc writes the response for a request that failed authentication.
type RejectFunc func(w http.ResponseWriter, r *http.Request, message string)

// Bearer accepts only requests carrying "Authorization: Bearer <token>".
// An empty token rejects every request.
func Bearer(token string, reject RejectFunc) func(http.Handler) http.Handler {
	expected := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(expected) == 0 {
				log.FromContext(r.Context()).Warn("API request rejected, no API token configured",
					log.FieldPath, r.URL.Path)
				reject(w, r, "API access is disabled")
				return
			}

			got, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				reject(w, r, "missing bearer token")
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), expected) != 1 {
				log.FromContext(r.Context()).Warn("API request rejected, invalid token",
					log.FieldPath, r.URL.Path)
				reject(w, r, "invalid bearer token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
