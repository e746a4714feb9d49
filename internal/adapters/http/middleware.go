package httpadapter

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-Id"

	// Client-supplied request ids longer than this are replaced, not
	// truncated, so log lines stay bounded and correlate cleanly.
	maxRequestIDLen = 64
)

type requestIDContextKey struct{}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	requestID, _ := ctx.Value(requestIDContextKey{}).(string)
	return requestID
}

// requestIDMiddleware accepts a caller-provided X-Request-Id when it
// is short and printable, and mints a UUID otherwise. The id rides the
// request context so access logs and error payloads line up with the
// gateway's own correlation ids.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" || len(requestID) > maxRequestIDLen || !printableASCII(requestID) {
			requestID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), requestIDContextKey{}, requestID)
		w.Header().Set(requestIDHeader, requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func printableASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x21 || s[i] > 0x7e {
			return false
		}
	}
	return true
}

// accessLogMiddleware emits one structured line per request. The route
// attr groups paths by API surface (documents, query, queries) so the
// ingestion and retrieval sides can be filtered apart without regexes
// over raw paths.
func accessLogMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		trace := &responseTrace{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(trace, r)

		remoteAddr := r.RemoteAddr
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			remoteAddr = host
		}

		attrs := []any{
			"request_id", requestIDFromContext(r.Context()),
			"route", routeLabel(r.URL.Path),
			"method", r.Method,
			"path", r.URL.Path,
			"status", trace.status,
			"duration_ms", float64(time.Since(start).Microseconds()) / 1000.0,
			"bytes", trace.bytes,
			"remote_addr", remoteAddr,
			"user_agent", r.UserAgent(),
		}

		switch {
		case trace.status >= 500:
			logger.Error("http_request", attrs...)
		case trace.status >= 400:
			logger.Warn("http_request", attrs...)
		default:
			logger.Info("http_request", attrs...)
		}
	})
}

// routeLabel collapses a request path to its API surface. Document and
// query ids never reach the logs through this attr.
func routeLabel(path string) string {
	switch {
	case path == "/healthz":
		return "healthz"
	case path == "/metrics":
		return "metrics"
	case path == "/v1/query":
		return "query"
	case path == "/v1/documents" || strings.HasPrefix(path, "/v1/documents/"):
		return "documents"
	case path == "/v1/queries" || strings.HasPrefix(path, "/v1/queries/"):
		return "queries"
	case path == "/v1/domains":
		return "domains"
	default:
		return "other"
	}
}

// responseTrace records what the handlers wrote. The API serves plain
// JSON, so only Flush is forwarded for the metrics endpoint; there is
// no hijacking or push to pass through.
type responseTrace struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *responseTrace) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *responseTrace) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func (w *responseTrace) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
