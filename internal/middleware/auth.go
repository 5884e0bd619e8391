package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// TokenCookie is the cookie a browser viewer may carry instead of a header.
const TokenCookie = "agrovision_token"

// AuthMiddleware requires the shared preview token on every request except
// the health check. The token may arrive as a bearer header, a "token"
// query parameter (browsers cannot set headers on websockets) or a cookie.
// An empty token disables the check.
func AuthMiddleware(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}

		if !validToken(requestToken(r), token) {
			w.Header().Set("WWW-Authenticate", `Bearer realm="agrovision"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	if cookie, err := r.Cookie(TokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func validToken(got, want string) bool {
	return got != "" && subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
