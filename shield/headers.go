package shield

import "net/http"

// apiHeaders are set on every response. Nothing bookpress serves is meant to
// render as a page, so the content policy denies everything.
var apiHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Referrer-Policy", "no-referrer"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Cross-Origin-Resource-Policy", "same-origin"},
	{"Cache-Control", "no-store"},
}

// Headers returns middleware that writes the API security headers, then the
// overrides. An empty override value removes the header.
func Headers(overrides map[string]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for _, kv := range apiHeaders {
				h.Set(kv[0], kv[1])
			}
			for k, v := range overrides {
				if v == "" {
					h.Del(k)
					continue
				}
				h.Set(k, v)
			}
			next.ServeHTTP(w, r)
		})
	}
}
