package protocol_test

import (
	"testing"

	"github.com/a-essam23/go-devicehub/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	msg, err := protocol.Decode([]byte(`{"id":7,"cmd":"hardware","body":{"pin":5,"value":"1"}}`))
	require.NoError(t, err)
	assert.Equal(t, 7, msg.ID)
	assert.Equal(t, "hardware", msg.Command)
	assert.JSONEq(t, `{"pin":5,"value":"1"}`, string(msg.Body))
}

func TestDecodeRejectsMissingCommand(t *testing.T) {
	_, err := protocol.Decode([]byte(`{"id":1}`))
	assert.ErrorIs(t, err, protocol.ErrIllegalCommand)

	_, err = protocol.Decode([]byte(`not json`))
	assert.Error(t, err)
}

func TestNewResponseEncoding(t *testing.T) {
	raw, err := protocol.NewResponse(12, protocol.DeviceNotInNetwork).Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":12,"cmd":"response","code":3}`, string(raw))
}
