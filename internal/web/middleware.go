package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/mattjoyce/wikigate/internal/identity"
	"github.com/mattjoyce/wikigate/internal/policy"
)

// identityMiddleware resolves the caller's identity from trusted headers and
// stores it on the request context for handlers and the policy gate.
func (s *Server) identityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := identity.FromRequest(r)
		next.ServeHTTP(w, r.WithContext(identity.WithIdentity(r.Context(), id)))
	})
}

// policyMiddleware enforces the per-folder access policy. Requests that do
// not map onto a wiki path pass through untouched. A deny is final; an
// auth-required decision delegates to the configured authenticator and
// merges the proven claims under any proxy-supplied header identity.
func (s *Server) policyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wikiPath := policy.WikiPathForRequest(r.URL.Path, r.URL.Query())
		if wikiPath == "" {
			next.ServeHTTP(w, r)
			return
		}
		surface := policy.SurfaceFor(r.URL.Path)
		switch s.policy.Decide(wikiPath, surface) {
		case policy.Deny:
			s.logger.Warn("access denied", "page", wikiPath, "surface", surface.String())
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		case policy.AuthRequired:
			claims, err := s.auth.Authenticate(r)
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Basic realm="wikigate"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			// Proxy headers outrank claims per field.
			r = r.WithContext(identity.WithIdentity(r.Context(), identity.Resolve(r, claims)))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
