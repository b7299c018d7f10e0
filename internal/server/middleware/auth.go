package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-essam23/go-devicehub/pkg/state"
	"github.com/golang-jwt/jwt/v5"
)

const sessionCookie = "session-token"

type RoleParser func(name string) (state.Role, error)

// AppClaims defines our custom JWT claims structure. Hardware tokens carry
// the dashboard the device is bound to; app tokens may carry shared
// dashboard tokens.
type AppClaims struct {
	Role         string   `json:"role"`
	DashID       int      `json:"dash,omitempty"`
	SharedTokens []string `json:"shared,omitempty"`
	jwt.RegisteredClaims
}

// bearer token first, then the session cookie.
func tokenFrom(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func NewAuthMiddleware(logger *slog.Logger, jwtSecret string, parseRole RoleParser) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

			// couldn't extract metadata from request so something went wrong with previous middlewares
			reqMeta, ok := ReqMetadataFrom(r.Context())
			if !ok {
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			tokenString := tokenFrom(r)
			if tokenString == "" {
				logger.Warn("JWT token missing in request", slog.String("ip", reqMeta.IP))
				http.Error(w, "Missing token", http.StatusUnauthorized)
				return
			}

			// Parse and validate the JWT token with HMAC signing
			token, err := jwt.ParseWithClaims(tokenString, &AppClaims{}, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !token.Valid {
				logger.Warn("Invalid JWT token presented", slog.String("ip", reqMeta.IP), slog.Any("error", err))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(*AppClaims)
			if !ok {
				logger.Error("Failed to parse custom JWT claims", slog.String("ip", reqMeta.IP))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			if claims.Subject == "" {
				logger.Warn("Valid token missing 'sub' claim", slog.String("ip", reqMeta.IP))
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			role, err := parseRole(claims.Role)
			if err != nil {
				logger.Warn("Token carries an unknown role",
					slog.String("ip", reqMeta.IP),
					slog.Any("error", err),
				)
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			reqMeta.UserID = claims.Subject
			reqMeta.Binding = state.Binding{
				Role:         role,
				DashID:       claims.DashID,
				SharedTokens: claims.SharedTokens,
			}
			next.ServeHTTP(w, r)
		})
	}
}
