package security

import (
	"net/http"
	"slices"
	"strings"
)

// CORS answers cross-origin requests from an allow list of origins.
type CORS struct {
	allowedOrigins []string
	// allowAny echoes every origin back; used in development.
	allowAny bool
}

func NewCORS(allowedOrigins []string, allowAny bool) *CORS {
	origins := make([]string, 0, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			origins = append(origins, o)
		}
	}
	return &CORS{allowedOrigins: origins, allowAny: allowAny}
}

// IsAllowedOrigin checks if the provided origin is in the allow list.
func (c *CORS) IsAllowedOrigin(origin string) bool {
	if origin == "" {
		return false
	}
	return c.allowAny || slices.Contains(c.allowedOrigins, origin)
}

// Middleware sets CORS headers for allowed origins and answers preflight
// requests directly.
func (c *CORS) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowed := c.IsAllowedOrigin(origin)
		if allowed {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, Accept, Origin")
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Max-Age", "3600")
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			if !allowed {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
