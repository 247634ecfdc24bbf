package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// RequestIDHeader carries the trace id of a request in and out of the service
const RequestIDHeader = "X-Request-ID"

// SlowRequestThreshold is how long a request may take before it is logged as slow
const SlowRequestThreshold = 1 * time.Second

// HTTPObserver records the latency of a finished request
type HTTPObserver interface {
	ObserveHTTP(method, route string, code int, d time.Duration)
}

// MetricsMiddleware tags each request with a trace id and reports its latency
// by route template. The health and metrics routes are not observed.
func MetricsMiddleware(observer HTTPObserver) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.New().String()
			}
			w.Header().Set(RequestIDHeader, requestID)
			r = r.WithContext(WithRequestID(r.Context(), requestID))

			route := routeTemplate(r)
			if route == "/health" || route == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			startTime := time.Now()
			wrappedWriter := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}
			next.ServeHTTP(wrappedWriter, r)
			totalDuration := time.Since(startTime)

			if observer != nil {
				observer.ObserveHTTP(r.Method, route, wrappedWriter.statusCode, totalDuration)
			}
			if totalDuration > SlowRequestThreshold {
				zap.S().Warnw("Slow request detected",
					"requestId", requestID,
					"method", r.Method,
					"route", route,
					"duration", totalDuration,
					"status", wrappedWriter.statusCode,
				)
			}
		})
	}
}

// routeTemplate returns the matched mux path template so that path variables
// do not explode label cardinality
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}
