package security

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/noah-isme/backend-zawadi/internal/common"
)

// AdminToken guards operator routes with a static bearer token. An empty
// token disables the routes entirely rather than leaving them open.
type AdminToken struct {
	Token string
}

// Middleware rejects requests without a matching Authorization header.
func (a AdminToken) Middleware(next http.Handler) http.Handler {
	want := strings.TrimSpace(a.Token)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if want == "" {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "not found", nil)
			return
		}
		auth := strings.TrimSpace(r.Header.Get("Authorization"))
		if len(auth) < 7 || !strings.EqualFold(auth[:7], "bearer ") {
			common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token", nil)
			return
		}
		got := strings.TrimSpace(auth[7:])
		if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
			common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "invalid token", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
