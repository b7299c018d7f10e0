package admin_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/a-essam23/go-devicehub/internal/admin"
	"github.com/a-essam23/go-devicehub/pkg/graph"
	"github.com/a-essam23/go-devicehub/pkg/model"
	"github.com/a-essam23/go-devicehub/pkg/state"
	"github.com/a-essam23/go-devicehub/pkg/state/statemanager"
	"github.com/a-essam23/go-devicehub/pkg/state/statetest"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pin(p byte) *byte { return &p }

type fixture struct {
	router  *gin.Engine
	manager *statemanager.InMemoryManager
	graphs  *graph.Store
	hw, app *statetest.Transport
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := statemanager.NewInMemoryManager(logger)
	g := graph.NewStore(time.Hour, 10)
	f := &fixture{router: admin.NewRouter(logger, m, g), manager: m, graphs: g}

	f.hw, f.app = statetest.NewTransport(), statetest.NewTransport()
	f.hw.Rate = 2.6
	f.app.Rate = 1.2
	for tr, b := range map[*statetest.Transport]state.Binding{
		f.hw:  {Role: state.RoleHardware, DashID: 1},
		f.app: {Role: state.RoleApp},
	} {
		_, err := m.RegisterConnection(tr, "127.0.0.1")
		require.NoError(t, err)
		_, err = m.AssociateUser(tr.ID(), "alice", b)
		require.NoError(t, err)
	}
	return f
}

func (f *fixture) do(method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/api/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestListUsers(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/api/users")
	require.Equal(t, http.StatusOK, w.Code)

	var users []admin.UserSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	assert.Equal(t, []admin.UserSummary{{ID: "alice", Connections: 2}}, users)
}

func TestSessionSummary(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/api/users/alice/session")
	require.Equal(t, http.StatusOK, w.Code)

	var s admin.SessionSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	assert.Equal(t, admin.SessionSummary{
		UserID: "alice", Hardware: 1, Apps: 1,
		HardwareRequestRate: 2, AppRequestRate: 1,
	}, s)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/users/bob/session").Code)
}

func TestHardwareOnline(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/users/alice/dashboards/1/online")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"dashId":1,"online":true}`, w.Body.String())

	w = f.do(http.MethodGet, "/api/users/alice/dashboards/2/online")
	assert.JSONEq(t, `{"dashId":2,"online":false}`, w.Body.String())

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/users/alice/dashboards/x/online").Code)
}

func TestGraphSamples(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.manager.Profile("alice").Update(func(m *model.Mutator) error {
		m.Put(&model.Dashboard{ID: 1, Widgets: []*model.Widget{{Kind: model.KindGraph, Pin: pin(5), PinType: model.PinVirtual}}})
		return nil
	}))
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f.graphs.Append("alice", model.GraphKey{DashID: 1, Pin: 5, PinType: model.PinVirtual}, "7", ts)

	w := f.do(http.MethodGet, "/api/users/alice/graph/1/virtual/5")
	require.Equal(t, http.StatusOK, w.Code)
	var samples []graph.Sample
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &samples))
	require.Len(t, samples, 1)
	assert.Equal(t, "7", samples[0].Value)
	assert.True(t, ts.Equal(samples[0].Ts))

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/users/alice/graph/1/virtual/6").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/users/alice/graph/1/virtual/999").Code)
}

func TestGraphSamplesDoesNotCreateProfiles(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/users/mallory/graph/1/virtual/5").Code)
	_, ok := f.manager.FindProfile("mallory")
	assert.False(t, ok)
}

func TestCloseSession(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/api/users/alice/close")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, f.hw.Closed())
	assert.True(t, f.app.Closed())

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/api/users/bob/close").Code)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/users", nil)
	req.Header.Set("Origin", "http://dashboard.local")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
