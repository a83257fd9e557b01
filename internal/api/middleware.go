package api

import (
	"log/slog"
	"net/http"

	"github.com/felixge/httpsnoop"
)

// accessLog records one line per request with the status and duration.
// httpsnoop keeps the Hijacker interface intact for websocket upgrades.
func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)

		level := slog.LevelInfo
		switch {
		case m.Code >= http.StatusInternalServerError:
			level = slog.LevelError
		case r.URL.Path == "/health":
			level = slog.LevelDebug
		}

		s.requestLogger(r.Context()).Log(r.Context(), level, "handled request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", m.Code),
			slog.Int64("bytes", m.Written),
			slog.Duration("duration", m.Duration),
			slog.String("remote_addr", r.RemoteAddr))
	})
}
