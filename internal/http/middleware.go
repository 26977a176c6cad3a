package http

import (
	"net/http"
	"strings"

	"github.com/nomadnest/nomadnest/internal/httputil"
	"github.com/nomadnest/nomadnest/internal/logging"
	"github.com/nomadnest/nomadnest/internal/ratelimit"
	"github.com/nomadnest/nomadnest/internal/session"
	"github.com/nomadnest/nomadnest/internal/web"
)

// Pages load Bootstrap and Font Awesome from CDNs and Mapbox GL on the
// listing page.
const contentSecurityPolicy = "default-src 'self'; " +
	"script-src 'self' https://cdn.jsdelivr.net https://api.mapbox.com; " +
	"style-src 'self' 'unsafe-inline' https://cdn.jsdelivr.net https://cdnjs.cloudflare.com https://api.mapbox.com; " +
	"font-src 'self' https://cdnjs.cloudflare.com; " +
	"img-src 'self' data: blob: https:; " +
	"connect-src 'self' https://api.mapbox.com https://events.mapbox.com; " +
	"worker-src blob:; " +
	"frame-ancestors 'none'"

// SecurityHeaders adds security-related headers to all responses.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", contentSecurityPolicy)

		next.ServeHTTP(w, r)
	})
}

// MethodOverride lets HTML forms send PUT, PATCH and DELETE as POST with a
// _method parameter in the query string or an urlencoded body. It must run
// before routing.
func MethodOverride(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			override := r.URL.Query().Get("_method")
			if override == "" && strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
				override = r.PostFormValue("_method")
			}

			switch m := strings.ToUpper(override); m {
			case http.MethodPut, http.MethodPatch, http.MethodDelete:
				r.Method = m
			}
		}

		next.ServeHTTP(w, r)
	})
}

// RateLimit throttles a form endpoint per client IP. Rejected requests are
// sent back to the form with a flash.
func RateLimit(buckets *ratelimit.IPBuckets) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := httputil.ClientIP(r)
			if !buckets.Allow(ip) {
				logging.GetLoggerFromContext(r.Context()).Warn("rate limit exceeded", "ip", ip)
				web.Flash(r, session.FlashError, "Too many requests, please try again later.")
				web.Redirect(w, r, r.URL.Path)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
