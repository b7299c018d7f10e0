package bridge_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/a-essam23/go-devicehub/internal/bridge"
	"github.com/a-essam23/go-devicehub/pkg/config"
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

func newBridge(t *testing.T) (*bridge.Bridge, *statetest.Transport) {
	t.Helper()
	m := statemanager.NewInMemoryManager(newTestLogger())
	hw := statetest.NewTransport()
	_, err := m.RegisterConnection(hw, "127.0.0.1")
	require.NoError(t, err)
	_, err = m.AssociateUser(hw.ID(), "alice", state.Binding{Role: state.RoleHardware, DashID: 3})
	require.NoError(t, err)

	b := bridge.New(newTestLogger(), config.MQTTConfig{TopicPrefix: "devicehub"}, m)
	return b, hw
}

func TestForwardDeliversToHardware(t *testing.T) {
	b, hw := newBridge(t)

	require.NoError(t, b.Forward("devicehub/alice/3/cmd", []byte(`{"pin":4,"value":"1"}`)))

	got := hw.Last()
	require.NotNil(t, got)
	assert.Equal(t, protocol.CmdHardware, got.Command)
	assert.JSONEq(t, `{"pin":4,"value":"1"}`, string(got.Body))
}

func TestForwardErrors(t *testing.T) {
	b, hw := newBridge(t)

	tests := []struct {
		name    string
		topic   string
		payload string
		want    error
	}{
		{"foreign prefix", "other/alice/3/cmd", `{}`, bridge.ErrBadTopic},
		{"short topic", "devicehub/alice/cmd", `{}`, bridge.ErrBadTopic},
		{"bad dashboard", "devicehub/alice/x/cmd", `{}`, bridge.ErrBadTopic},
		{"wrong suffix", "devicehub/alice/3/state", `{}`, bridge.ErrBadTopic},
		{"bad payload", "devicehub/alice/3/cmd", `{`, bridge.ErrBadPayload},
		{"unknown user", "devicehub/bob/3/cmd", `{}`, bridge.ErrUnknownUser},
		{"offline dashboard", "devicehub/alice/4/cmd", `{}`, bridge.ErrDeviceOffline},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, b.Forward(tc.topic, []byte(tc.payload)), tc.want)
		})
	}
	assert.Empty(t, hw.Messages())
}

func TestTopic(t *testing.T) {
	b, _ := newBridge(t)
	assert.Equal(t, "devicehub/+/+/cmd", b.Topic())
}
