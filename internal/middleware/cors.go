package middleware

import (
	"net/http"
	"slices"
)

// CORS lets a browser app on another origin call the API.
type CORS struct {
	origins  []string
	allowAll bool
}

// NewCORS allows the listed origins; "*" allows any origin.
func NewCORS(origins []string) *CORS {
	return &CORS{
		origins:  origins,
		allowAll: slices.Contains(origins, "*"),
	}
}

func (c *CORS) allowed(origin string) bool {
	return origin != "" && (c.allowAll || slices.Contains(c.origins, origin))
}

// Handler answers preflight requests itself and decorates every response
// from an allowed origin.
func (c *CORS) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if c.allowed(origin) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Trace-ID")
			h.Set("Access-Control-Expose-Headers", "X-Trace-ID")
			h.Set("Access-Control-Max-Age", "3600")
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
