package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// NewRequestLogger logs every incoming request and, once the handler
// returns, how long it was held. For websocket upgrades that is the lifetime
// of the connection.
func NewRequestLogger(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqMeta, ok := ReqMetadataFrom(r.Context())
			if !ok {
				reqMeta = &RequestMetadata{}
			}
			logger.Debug("Incoming HTTP request",
				slog.String("method", r.Method),
				slog.String("uri", r.URL.Path),
				slog.String("ip", reqMeta.IP),
			)

			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Info("HTTP request finished",
				slog.String("uri", r.URL.Path),
				slog.String("ip", reqMeta.IP),
				slog.String("userID", reqMeta.UserID),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}
