package httpapi

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/pageza/fleet-replanner/internal/authz"
)

type contextKey string

const operatorContextKey contextKey = "operator"

// Logging logs each request's method, path, status, and duration, grounded
// on the teacher's middleware.Logging response-writer-wrapping pattern.
func Logging(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			logger.Printf("%s %s %d %s", r.Method, r.URL.Path, wrapped.statusCode, time.Since(start))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.statusCode = code
	rec.ResponseWriter.WriteHeader(code)
}

// BearerAuth validates the Authorization header against svc, rejecting
// anything else with 401 (C15, grounded on the teacher's RequireAuth).
func BearerAuth(svc *authz.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			token := strings.TrimPrefix(header, "Bearer ")
			claims, err := svc.ValidateToken(token)
			if err != nil {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), operatorContextKey, claims.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func operatorFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(operatorContextKey).(string)
	return username, ok
}
