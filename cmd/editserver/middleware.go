package main

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/editcompositor/internal/metrics"
)

// originVerifySecret gates requests when the server sits behind a
// reverse proxy that injects a shared header. Empty means origin
// verification is disabled — only safe for local/dev use.
var originVerifySecret string

// withOriginVerify rejects requests lacking the correct x-origin-verify
// header when originVerifySecret is configured. Fail-open when unset,
// since this server is also meant to run standalone in local dev
// without a reverse proxy in front of it.
func withOriginVerify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if originVerifySecret == "" {
			next.ServeHTTP(w, r)
			return
		}
		if r.Header.Get("x-origin-verify") != originVerifySecret {
			log.Warn().Str("path", r.URL.Path).Msg("blocked request: missing or invalid x-origin-verify header")
			httpError(w, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

var coldStart = true

// withMetrics emits per-request EMF metrics (consumed when running
// under Lambda) and request logging, and stamps every response with
// the build's commit hash.
func withMetrics(reg *metrics.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if coldStart {
				coldStart = false
				log.Info().Str("function", "editserver").Str("commitHash", commitHash).Msg("cold start: first invocation")
			}
			w.Header().Set("X-App-Version", commitHash)

			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			elapsed := time.Since(start)
			endpoint := normalizeEndpoint(r.URL.Path)

			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", sr.statusCode).
				Dur("duration", elapsed).
				Msg("request handled")

			metrics.New(metrics.Namespace).
				Dimension("Endpoint", endpoint).
				Metric("RequestLatencyMs", float64(elapsed.Milliseconds()), metrics.UnitMilliseconds).
				Count("RequestCount").
				Property("method", r.Method).
				Property("statusCode", sr.statusCode).
				Flush()

			if reg != nil {
				reg.ObserveRequest(endpoint, statusTag(sr.statusCode), start)
			}
		})
	}
}

func statusTag(status int) string {
	switch {
	case status < 300:
		return "ok"
	case status < 500:
		return "client_error"
	default:
		return "server_error"
	}
}

// normalizeEndpoint maps request paths to low-cardinality endpoint
// names, avoiding high-cardinality CloudWatch/Prometheus dimensions.
func normalizeEndpoint(path string) string {
	switch path {
	case "/api/health":
		return "/api/health"
	case "/api/edit":
		return "/api/edit"
	case "/api/edit/revise":
		return "/api/edit/revise"
	case "/metrics":
		return "/metrics"
	default:
		return "/other"
	}
}
