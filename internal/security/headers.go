package security

import (
	"net/http"
	"strconv"
	"time"
)

const defaultHSTSMaxAge = 365 * 24 * time.Hour

// apiHeaders is the fixed set sent with every response. Zawadi serves JSON
// only, so nothing is ever framed, embedded or sniffed.
var apiHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Referrer-Policy", "no-referrer"},
	{"Permissions-Policy", "geolocation=(), microphone=(), camera=()"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Cache-Control", "no-store"},
}

// Headers configures the security headers attached to every API response.
// HSTS is only sent over TLS; a zero HSTSMaxAge means one year.
type Headers struct {
	Enable     bool
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

func (h Headers) hsts() string {
	age := h.HSTSMaxAge
	if age <= 0 {
		age = defaultHSTSMaxAge
	}
	return "max-age=" + strconv.FormatInt(int64(age/time.Second), 10) + "; includeSubDomains"
}

// Middleware attaches the headers before the wrapped handler writes.
func (h Headers) Middleware(next http.Handler) http.Handler {
	if !h.Enable {
		return next
	}
	hsts := h.hsts()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dst := w.Header()
		for _, kv := range apiHeaders {
			dst.Set(kv[0], kv[1])
		}
		if h.EnableHSTS && r.TLS != nil {
			dst.Set("Strict-Transport-Security", hsts)
		}
		next.ServeHTTP(w, r)
	})
}
