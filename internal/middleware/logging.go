package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"rgbmonitor/internal/logger"
)

// quietPaths are polled by the page every second; they are only logged on failure.
var quietPaths = map[string]bool{
	"/api/chart.png": true,
	"/api/session":   true,
	"/metrics":       true,
}

// RequestLogger writes one line per request to the leveled logs.
func RequestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			duration := time.Since(start)
			reqID := chimw.GetReqID(r.Context())

			switch {
			case status >= http.StatusInternalServerError:
				log.Error("%s %s -> %d (%s) req=%s", r.Method, r.URL.Path, status, duration, reqID)
			case status >= http.StatusBadRequest:
				log.Warning("%s %s -> %d (%s) req=%s", r.Method, r.URL.Path, status, duration, reqID)
			case !quietPaths[r.URL.Path]:
				log.Info("%s %s -> %d (%s, %dB) req=%s", r.Method, r.URL.Path, status, duration, ww.BytesWritten(), reqID)
			}
		})
	}
}
