package tracing

import (
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTPMiddleware wraps handlers in otelhttp server spans. Probe and scrape
// endpoints are not traced.
func HTTPMiddleware(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, serviceName,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + spanRoute(r.URL.Path)
			}),
			otelhttp.WithFilter(func(r *http.Request) bool {
				return !isProbePath(r.URL.Path)
			}),
		)
	}
}

// spanRoute keeps span names bounded by replacing the request id segment
// of /v1/transforms/{id} routes. The id itself is on the span attributes
// set by the job and transform spans.
func spanRoute(path string) string {
	const prefix = "/v1/transforms/"
	rest, ok := strings.CutPrefix(path, prefix)
	if !ok || rest == "" {
		return path
	}
	if _, tail, found := strings.Cut(rest, "/"); found {
		return prefix + "{id}/" + tail
	}
	return prefix + "{id}"
}

func isProbePath(path string) bool {
	return path == "/metrics" || strings.HasPrefix(path, "/health")
}
