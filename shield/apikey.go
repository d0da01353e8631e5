package shield

import (
	"net/http"
	"slices"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// APIKey returns middleware that requires "Authorization: Bearer <key>"
// where key matches the bcrypt hash. Paths listed in public pass through.
func APIKey(hash string, public ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(public, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			key, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || key == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) != nil {
				GetLogger(r.Context()).Warn("api key rejected")
				w.Header().Set("WWW-Authenticate", `Bearer realm="bookpress"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// HashAPIKey returns the bcrypt hash to put in server.api_key_hash.
func HashAPIKey(key string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
