package middleware

import (
	"log/slog"
	"net/http"

	"github.com/a-essam23/go-devicehub/pkg/config"
)

type UserConnectionCounter func(userID string) (int, error)
type UserConnectionCycler func(userID string)

// NewConnectionLimiter caps live connections per user. In "cycle" mode the
// oldest connection is closed to make room for the new one.
// Must run after the auth middleware.
func NewConnectionLimiter(
	logger *slog.Logger,
	counter UserConnectionCounter,
	cycler UserConnectionCycler,
	limits config.ConnectionLimitConfig,
) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limits.MaxPerUser <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			reqMeta, ok := ReqMetadataFrom(r.Context())
			if !ok {
				logger.Error("Connection limiter could not find request metadata in context. Check middleware order.")
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			if reqMeta.UserID == "" {
				logger.Warn("Connection limiter could not determine userID from metadata; blocking request.")
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			count, err := counter(reqMeta.UserID)
			if err != nil {
				logger.Error("Connection limiter failed to get connection count", slog.Any("error", err))
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}
			if count < limits.MaxPerUser {
				next.ServeHTTP(w, r)
				return
			}

			logger.Warn("User connection limit reached", slog.String("userID", reqMeta.UserID), slog.Int("count", count))
			switch limits.Mode {
			case "reject":
				http.Error(w, "Too Many Active Connections", http.StatusTooManyRequests)
			case "cycle":
				cycler(reqMeta.UserID)
				next.ServeHTTP(w, r)
			default:
				logger.Error("Invalid connection limit mode configured", slog.String("mode", limits.Mode))
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		})
	}
}
