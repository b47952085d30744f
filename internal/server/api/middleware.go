package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/visadesk/internal/common"
	"github.com/dmitrijs2005/visadesk/internal/logging"
	"github.com/dmitrijs2005/visadesk/internal/server/auth"
	"github.com/dmitrijs2005/visadesk/internal/server/metrics"
	"github.com/dmitrijs2005/visadesk/internal/server/models"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// requestLogger logs one line per request. Bodies are never logged.
func requestLogger(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Info(r.Context(), "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start).String(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// instrument records request counts and latency by route pattern.
func instrument(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.ObserveHTTP(r.Method, route, status, time.Since(start).Seconds())
		})
	}
}

// authenticate requires a valid bearer token and stores the principal in the
// request context.
func (h *AuthHandler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.AuthorizationHeaderName)
		token := strings.TrimSpace(strings.TrimPrefix(header, common.BearerPrefix))
		if !strings.HasPrefix(header, common.BearerPrefix) || token == "" {
			respondError(w, http.StatusUnauthorized, "Not authorized, no token")
			return
		}

		p, err := h.svc.Authenticate(r.Context(), token)
		if err != nil {
			h.metrics.AuthEvent("token", false)
			h.fail(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
	})
}

// requireAdmin rejects principals whose token does not claim admin.
func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.PrincipalFromContext(r.Context())
		if !ok || p.Role != models.RoleAdmin {
			status, msg := statusFor(common.ErrForbidden)
			respondError(w, status, msg)
			return
		}
		next.ServeHTTP(w, r)
	})
}
