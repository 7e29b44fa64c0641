package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/collabhub/server/internal/server"
)

// NewRouter builds the complete HTTP handler: every endpoint in spec.md
// §4.5/§6.2, CORS, request logging, and (if Config.UIDir is set) static
// UI file serving as the fallback route.
func NewRouter(srv *server.Server) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", withServer(srv, handleHealth))
	mux.HandleFunc("/api/project", withServer(srv, handleProject))
	mux.HandleFunc("/api/glyph", withServer(srv, handleGlyph))
	mux.HandleFunc("/api/syntax", withServer(srv, handleSyntax))
	mux.HandleFunc("/api/metrics", withServer(srv, handleMetrics))
	mux.HandleFunc("/api/events", withServer(srv, handleEvents))

	if srv.Config.UIDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(srv.Config.UIDir)))
	}

	return requestLogger(srv, mux)
}

// withServer curries srv into a handler that also needs it, so route
// registration above stays a flat list of paths.
func withServer(srv *server.Server, fn func(*server.Server, http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeCORS(w, r, srv.Config.AllowOrigin)
		if handlePreflight(w, r) {
			return
		}
		fn(srv, w, r)
	}
}

// requestLogger logs method, path, status, and latency for every request
// under a per-request correlation id, mirroring the hub's own
// request-id convention for mutations.
func requestLogger(srv *server.Server, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := uuid.NewString()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		srv.Logger.Debug("request",
			"request_id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start),
		)
	})
}

// statusWriter captures the status code a handler wrote, for logging.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Flush forwards to the wrapped writer so the SSE handler can still
// stream through the logging middleware.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
