package web

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gorilla/mux"

	"joinnow/internal/common/logger"
	"joinnow/internal/common/observability"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// LoggingMiddleware logs every request with its status and duration.
func LoggingMiddleware(log logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			log.Info("request", map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"remote":   r.RemoteAddr,
				"duration": time.Since(start).String(),
			})
		})
	}
}

// MetricsMiddleware records request counts and latency per route template.
func MetricsMiddleware(obs *observability.Observability) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			obs.TrackActive(r.Context(), 1)
			defer obs.TrackActive(r.Context(), -1)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			obs.RecordRequest(r.Context(), r.Method, routeTemplate(r), rec.status, time.Since(start))
		})
	}
}

// RecoveryMiddleware turns a handler panic into a 500.
func RecoveryMiddleware(log logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error("panic", map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
						"stack": string(debug.Stack()),
					})
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
