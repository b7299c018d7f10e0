package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Commands the server itself produces. Inbound command names are
// configuration driven and are not listed here.
const (
	CmdResponse = "response"
	CmdHardware = "hardware"
	CmdSync     = "sync"
)

// Response codes carried by CmdResponse messages.
const (
	OK                 = 200
	QuotaLimit         = 1
	IllegalCommand     = 2
	DeviceNotInNetwork = 3
	NotAllowed         = 6
	ServerError        = 500
)

var (
	ErrQuotaLimit     = errors.New("request quota exceeded")
	ErrIllegalCommand = errors.New("illegal command")
	ErrNotAllowed     = errors.New("command not allowed for this connection")
)

// Message is the envelope exchanged with hardware and app connections.
type Message struct {
	ID      int             `json:"id"`
	Command string          `json:"cmd"`
	Body    json.RawMessage `json:"body,omitempty"`
	Code    int             `json:"code,omitempty"`
}

func NewResponse(msgID, code int) *Message {
	return &Message{ID: msgID, Command: CmdResponse, Code: code}
}

// NewMessage builds a message whose body is the JSON encoding of body.
func NewMessage(msgID int, cmd string, body any) (*Message, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal body for '%s': %w", cmd, err)
	}
	return &Message{ID: msgID, Command: cmd, Body: raw}, nil
}

func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

func Decode(raw []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("malformed message: %w", err)
	}
	if msg.Command == "" {
		return nil, fmt.Errorf("message %d has no command: %w", msg.ID, ErrIllegalCommand)
	}
	return &msg, nil
}

func (m *Message) String() string {
	return fmt.Sprintf("{id=%d cmd=%s code=%d body=%s}", m.ID, m.Command, m.Code, string(m.Body))
}
