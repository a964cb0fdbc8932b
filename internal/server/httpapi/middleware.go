package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/keybox/internal/server/auth"
)

type ctxKey string

const namespaceKey ctxKey = "namespace"

func namespaceFrom(r *http.Request) string {
	ns, _ := r.Context().Value(namespaceKey).(string)
	return ns
}

// requireToken rejects requests without a valid bearer token and stores
// its subject as the namespace.
func (h *Handler) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || tok == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		ns, err := auth.SubjectFromToken(strings.TrimSpace(tok), h.jwtSecret)
		if err != nil {
			h.logger.Warn(r.Context(), "rejected access token", "error", err)
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), namespaceKey, ns)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.logger.Debug(r.Context(), "request",
			"method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}
