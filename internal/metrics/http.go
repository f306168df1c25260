package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

const transformsPath = "/v1/transforms/"

type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.size += n
	return n, err
}

func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// NormalizePath replaces request ids in a path with ":id". Ids under
// /v1/transforms/ are client-chosen and not always UUIDs, so that segment
// is collapsed whatever it holds.
func NormalizePath(path string) string {
	if rest, ok := strings.CutPrefix(path, transformsPath); ok && rest != "" {
		id, tail, hasTail := strings.Cut(rest, "/")
		if id != "" {
			if !hasTail {
				return transformsPath + ":id"
			}
			return transformsPath + ":id/" + tail
		}
	}
	return uuidRegex.ReplaceAllString(path, ":id")
}

func skipHTTPMetrics(path string) bool {
	return path == "/metrics" || strings.HasPrefix(path, "/health")
}

// HTTPMetricsMiddleware records request counts, latency and body sizes per
// normalized route. Uploads are observed from Content-Length when the
// client sends one.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if skipHTTPMetrics(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		route := NormalizePath(r.URL.Path)

		inFlight := HTTPRequestsInFlight.WithLabelValues(r.Method)
		inFlight.Inc()
		defer inFlight.Dec()

		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		status := strconv.Itoa(rw.status)
		HTTPRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, route, status).Observe(time.Since(start).Seconds())
		HTTPResponseSize.WithLabelValues(r.Method, route, status).Observe(float64(rw.size))
		if r.Method == http.MethodPost && r.ContentLength > 0 {
			HTTPRequestSize.WithLabelValues(route).Observe(float64(r.ContentLength))
		}
	})
}
