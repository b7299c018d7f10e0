// Package bridge forwards commands published on an MQTT broker to the
// hardware connected to this server.
package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/a-essam23/go-devicehub/pkg/config"
	"github.com/a-essam23/go-devicehub/pkg/protocol"
	"github.com/a-essam23/go-devicehub/pkg/state"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

var (
	ErrBadTopic      = errors.New("topic is not <prefix>/<user>/<dash>/cmd")
	ErrBadPayload    = errors.New("payload is not valid JSON")
	ErrUnknownUser   = errors.New("user has no live session")
	ErrDeviceOffline = errors.New("no hardware online for dashboard")
)

// UserFinder looks up live user sessions.
type UserFinder interface {
	FindUser(userID string) (*state.User, bool)
}

type Bridge struct {
	logger *slog.Logger
	users  UserFinder
	cfg    config.MQTTConfig
	client mqtt.Client
	msgID  atomic.Int32
}

func New(logger *slog.Logger, cfg config.MQTTConfig, users UserFinder) *Bridge {
	return &Bridge{
		logger: logger.With(slog.String("component", "mqtt_bridge")),
		users:  users,
		cfg:    cfg,
	}
}

// Topic is the subscription filter for inbound commands.
func (b *Bridge) Topic() string {
	return b.cfg.TopicPrefix + "/+/+/cmd"
}

// Start connects to the broker. Subscriptions are (re)made on every
// connect so they survive reconnects.
func (b *Bridge) Start() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(b.cfg.Broker)
	opts.SetClientID(b.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(b.onConnect)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		b.logger.Warn("Lost connection to MQTT broker", slog.Any("error", err))
	})

	b.client = mqtt.NewClient(opts)
	if token := b.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker %s: %w", b.cfg.Broker, token.Error())
	}
	return nil
}

func (b *Bridge) Stop() {
	if b.client != nil && b.client.IsConnected() {
		b.client.Disconnect(250)
		b.logger.Info("Disconnected from MQTT broker")
	}
}

func (b *Bridge) onConnect(client mqtt.Client) {
	b.logger.Info("Connected to MQTT broker", slog.String("broker", b.cfg.Broker))
	if token := client.Subscribe(b.Topic(), 0, b.handle); token.Wait() && token.Error() != nil {
		b.logger.Error("Failed to subscribe", slog.String("topic", b.Topic()), slog.Any("error", token.Error()))
	}
}

func (b *Bridge) handle(_ mqtt.Client, msg mqtt.Message) {
	if err := b.Forward(msg.Topic(), msg.Payload()); err != nil {
		b.logger.Warn("Dropped MQTT command", slog.String("topic", msg.Topic()), slog.Any("error", err))
	}
}

func (b *Bridge) parseTopic(topic string) (string, int, error) {
	rest, ok := strings.CutPrefix(topic, b.cfg.TopicPrefix+"/")
	if !ok {
		return "", 0, ErrBadTopic
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[0] == "" || parts[2] != "cmd" {
		return "", 0, ErrBadTopic
	}
	dashID, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, fmt.Errorf("%w: dashboard '%s'", ErrBadTopic, parts[1])
	}
	return parts[0], dashID, nil
}

// Forward delivers payload as a hardware command to the dashboard named by
// the topic.
func (b *Bridge) Forward(topic string, payload []byte) error {
	userID, dashID, err := b.parseTopic(topic)
	if err != nil {
		return err
	}
	if !json.Valid(payload) {
		return ErrBadPayload
	}
	user, ok := b.users.FindUser(userID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownUser, userID)
	}

	msg := &protocol.Message{
		ID:      int(b.msgID.Add(1)),
		Command: protocol.CmdHardware,
		Body:    json.RawMessage(payload),
	}
	if noDevice := user.Session.SendToHardware(dashID, msg); noDevice {
		return fmt.Errorf("%w: %d", ErrDeviceOffline, dashID)
	}
	b.logger.Debug("Forwarded MQTT command", slog.String("userID", userID), slog.Int("dashID", dashID))
	return nil
}
