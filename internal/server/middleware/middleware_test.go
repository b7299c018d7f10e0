package middleware_test

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/a-essam23/go-devicehub/internal/server/middleware"
	"github.com/a-essam23/go-devicehub/pkg/config"
	"github.com/a-essam23/go-devicehub/pkg/state"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "s3cret"

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sign(t *testing.T, claims middleware.AppClaims, key string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return s
}

// captures the metadata the chain produced.
func capture(meta **middleware.RequestMetadata) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*meta, _ = middleware.ReqMetadataFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func authChain(h http.Handler) http.Handler {
	return middleware.Chain(h,
		middleware.RequestMetadataMiddleware(),
		middleware.NewAuthMiddleware(newTestLogger(), secret, state.ParseRole),
	)
}

func TestAuthBindsHardwareFromBearer(t *testing.T) {
	var meta *middleware.RequestMetadata
	tok := sign(t, middleware.AppClaims{
		Role: "hardware", DashID: 4,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "alice"},
	}, secret)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	authChain(capture(&meta)).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, meta)
	assert.Equal(t, "10.0.0.1", meta.IP)
	assert.Equal(t, "alice", meta.UserID)
	assert.Equal(t, state.Binding{Role: state.RoleHardware, DashID: 4}, meta.Binding)
}

func TestAuthReadsSessionCookie(t *testing.T) {
	var meta *middleware.RequestMetadata
	tok := sign(t, middleware.AppClaims{
		Role: "app", SharedTokens: []string{"share"},
		RegisteredClaims: jwt.RegisteredClaims{Subject: "bob"},
	}, secret)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.AddCookie(&http.Cookie{Name: "session-token", Value: tok})
	w := httptest.NewRecorder()
	authChain(capture(&meta)).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, state.RoleApp, meta.Binding.Role)
	assert.Equal(t, []string{"share"}, meta.Binding.SharedTokens)
}

func TestAuthRejectsWrongKey(t *testing.T) {
	var meta *middleware.RequestMetadata
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Authorization", "Bearer "+sign(t, middleware.AppClaims{
		Role: "app", RegisteredClaims: jwt.RegisteredClaims{Subject: "bob"},
	}, "other"))
	w := httptest.NewRecorder()
	authChain(capture(&meta)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Nil(t, meta)
}

func TestConnectionLimiter(t *testing.T) {
	counts := map[string]int{"alice": 2, "bob": 0}
	var cycled []string
	counter := func(userID string) (int, error) {
		if userID == "broken" {
			return 0, errors.New("store down")
		}
		return counts[userID], nil
	}
	cycler := func(userID string) { cycled = append(cycled, userID) }

	run := func(mode, userID string) int {
		withUser := func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				meta, _ := middleware.ReqMetadataFrom(r.Context())
				meta.UserID = userID
				next.ServeHTTP(w, r)
			})
		}
		h := middleware.Chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }),
			middleware.RequestMetadataMiddleware(),
			withUser,
			middleware.NewConnectionLimiter(newTestLogger(), counter, cycler, config.ConnectionLimitConfig{MaxPerUser: 2, Mode: mode}),
		)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
		return w.Code
	}

	assert.Equal(t, http.StatusOK, run("reject", "bob"))
	assert.Equal(t, http.StatusTooManyRequests, run("reject", "alice"))
	assert.Equal(t, http.StatusOK, run("cycle", "alice"))
	assert.Equal(t, []string{"alice"}, cycled)
	assert.Equal(t, http.StatusForbidden, run("reject", ""))
	assert.Equal(t, http.StatusInternalServerError, run("reject", "broken"))
}
