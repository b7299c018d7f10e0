package timers_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/a-essam23/go-devicehub/internal/timers"
	"github.com/a-essam23/go-devicehub/pkg/model"
	"github.com/a-essam23/go-devicehub/pkg/protocol"
	"github.com/a-essam23/go-devicehub/pkg/state"
	"github.com/a-essam23/go-devicehub/pkg/state/statemanager"
	"github.com/a-essam23/go-devicehub/pkg/state/statetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sec(s int) *int   { return &s }
func pin(p byte) *byte { return &p }

// 00:01:40 UTC
var at100 = time.Date(2024, 5, 1, 0, 1, 40, 0, time.UTC)

func setup(t *testing.T, active bool) (*statemanager.InMemoryManager, *statetest.Transport, *statetest.Transport) {
	t.Helper()
	return setupTimer(t, active, 100, 200)
}

func setupTimer(t *testing.T, active bool, start, stop int) (*statemanager.InMemoryManager, *statetest.Transport, *statetest.Transport) {
	t.Helper()
	m := statemanager.NewInMemoryManager(newTestLogger())
	hw := statetest.NewTransport()
	app := statetest.NewTransport()
	for _, c := range []struct {
		tr *statetest.Transport
		b  state.Binding
	}{
		{hw, state.Binding{Role: state.RoleHardware, DashID: 1}},
		{app, state.Binding{Role: state.RoleApp}},
	} {
		_, err := m.RegisterConnection(c.tr, "127.0.0.1")
		require.NoError(t, err)
		_, err = m.AssociateUser(c.tr.ID(), "alice", c.b)
		require.NoError(t, err)
	}

	require.NoError(t, m.Profile("alice").Update(func(mu *model.Mutator) error {
		mu.Put(&model.Dashboard{ID: 1, IsActive: active, Widgets: []*model.Widget{{
			ID: 9, Kind: model.KindTimer, Pin: pin(2), PinType: model.PinDigital,
			StartTime: sec(start), StartValue: "1",
			StopTime: sec(stop), StopValue: "0",
		}}})
		return nil
	}))
	return m, hw, app
}

func TestTickFiresStartAndStop(t *testing.T) {
	m, hw, app := setup(t, true)
	w := timers.NewWorker(newTestLogger(), m, time.Second)

	assert.Equal(t, 1, w.Tick(at100))
	got := hw.Last()
	require.NotNil(t, got)
	assert.Equal(t, protocol.CmdHardware, got.Command)
	var cmd timers.Command
	require.NoError(t, json.Unmarshal(got.Body, &cmd))
	assert.Equal(t, "1", cmd.Value)
	require.NotNil(t, cmd.Pin)
	assert.EqualValues(t, 2, *cmd.Pin)

	assert.Equal(t, 0, w.Tick(at100.Add(time.Second)))
	assert.Equal(t, 1, w.Tick(at100.Add(100*time.Second)))
	require.NoError(t, json.Unmarshal(hw.Last().Body, &cmd))
	assert.Equal(t, "0", cmd.Value)

	assert.Len(t, hw.Messages(), 2)
	assert.Empty(t, app.Messages())
}

func TestTickCatchesUpSkippedSeconds(t *testing.T) {
	m, hw, _ := setup(t, true)
	w := timers.NewWorker(newTestLogger(), m, time.Second)

	// the tick for second 100 never arrives
	assert.Equal(t, 0, w.Tick(at100.Add(-time.Second)))
	assert.Equal(t, 1, w.Tick(at100.Add(time.Second)))

	var cmd timers.Command
	require.Len(t, hw.Messages(), 1)
	require.NoError(t, json.Unmarshal(hw.Last().Body, &cmd))
	assert.Equal(t, "1", cmd.Value)

	// the same second is never fired twice
	assert.Equal(t, 0, w.Tick(at100.Add(time.Second)))
	assert.Equal(t, 0, w.Tick(at100))
	assert.Len(t, hw.Messages(), 1)
}

func TestTickCatchesUpAcrossMidnight(t *testing.T) {
	m, hw, _ := setupTimer(t, true, 86399, 0)
	w := timers.NewWorker(newTestLogger(), m, time.Second)

	beforeMidnight := time.Date(2024, 5, 1, 23, 59, 58, 0, time.UTC)
	assert.Equal(t, 0, w.Tick(beforeMidnight))
	assert.Equal(t, 2, w.Tick(beforeMidnight.Add(3*time.Second)))

	msgs := hw.Messages()
	require.Len(t, msgs, 2)
	var start, stop timers.Command
	require.NoError(t, json.Unmarshal(msgs[0].Body, &start))
	require.NoError(t, json.Unmarshal(msgs[1].Body, &stop))
	assert.Equal(t, "1", start.Value)
	assert.Equal(t, "0", stop.Value)
}

func TestTickSkipsInactiveDashboards(t *testing.T) {
	m, hw, _ := setup(t, false)
	w := timers.NewWorker(newTestLogger(), m, time.Second)

	assert.Equal(t, 0, w.Tick(at100))
	assert.Empty(t, hw.Messages())
}

func TestTickSkipsSessionsWithoutHardware(t *testing.T) {
	m, hw, _ := setup(t, true)
	require.NoError(t, m.DeregisterConnection(hw.ID()))
	w := timers.NewWorker(newTestLogger(), m, time.Second)

	assert.Equal(t, 0, w.Tick(at100))
}

type failingSource struct{}

func (failingSource) GetAllUsers() ([]*state.User, error) { return nil, errors.New("down") }

func TestTickSurvivesSourceError(t *testing.T) {
	w := timers.NewWorker(newTestLogger(), failingSource{}, time.Second)
	assert.Equal(t, 0, w.Tick(at100))
}

func TestRunStopsOnCancel(t *testing.T) {
	m, _, _ := setup(t, true)
	w := timers.NewWorker(newTestLogger(), m, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
