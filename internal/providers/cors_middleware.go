package providers

import (
	"net/http"
	"spd/internal/structures"
	"strconv"
	"strings"
)

// TokenHeader carries the collection fingerprint in both directions.
const TokenHeader = "Cache"

// CorsMiddleware answers preflight requests and decorates every response with
// the CORS headers browsers need to send and read the token header.
func CorsMiddleware(conf *structures.Config, next http.Handler) http.Handler {
	if !conf.Cors.Enabled {
		return next
	}
	origins := conf.Cors.AllowedOrigins
	maxAge := strconv.Itoa(conf.Cors.MaxAge)
	methods := strings.Join([]string{http.MethodGet, http.MethodPost}, ", ")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && isOriginAllowed(origin, origins) {
			if allowsAnyOrigin(origins) {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Expose-Headers", TokenHeader+", "+RequestIdHeader)
		}

		if r.Method == http.MethodOptions {
			if origin != "" && !isOriginAllowed(origin, origins) {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
			w.Header().Set("Access-Control-Allow-Methods", methods)
			w.Header().Set("Access-Control-Allow-Headers", TokenHeader)
			w.Header().Set("Access-Control-Max-Age", maxAge)
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func allowsAnyOrigin(allowed []string) bool {
	for _, a := range allowed {
		if a == "*" {
			return true
		}
	}
	return false
}

func isOriginAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}
