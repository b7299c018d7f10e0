package config

import (
	"time"

	"github.com/a-essam23/go-devicehub/pkg/pipeline"
)

type Config struct {
	Log       LogConfig
	Server    ServerConfig
	Transport TransportConfig
	Quota     QuotaConfig
	Graph     GraphConfig
	Timers    TimersConfig
	MQTT      MQTTConfig             `mapstructure:"mqtt"`
	Events    map[string]EventConfig `mapstructure:"events"`

	// filled by CompilePipelines
	Pipelines map[string]pipeline.Pipeline `mapstructure:"-"`
}

type LogConfig struct {
	Level string
}

type ServerConfig struct {
	Address         string
	AdminAddress    string `mapstructure:"adminAddress"`
	Auth            AuthConfig
	ConnectionLimit ConnectionLimitConfig `mapstructure:"connectionLimit"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwtSecret"`
}

type ConnectionLimitConfig struct {
	MaxPerUser int    `mapstructure:"maxPerUser"`
	Mode       string `mapstructure:"mode"` // "reject" or "cycle"
}

type TransportConfig struct {
	ReadTimeout time.Duration `mapstructure:"readTimeout"`
	SendBuffer  int           `mapstructure:"sendBuffer"`
}

type QuotaConfig struct {
	RequestsPerSecond float64 `mapstructure:"requestsPerSecond"`
	Burst             int     `mapstructure:"burst"`
}

type GraphConfig struct {
	TTL        time.Duration `mapstructure:"ttl"`
	MaxSamples int           `mapstructure:"maxSamples"`
}

type TimersConfig struct {
	Enabled  bool
	Interval time.Duration
}

type MQTTConfig struct {
	Enabled     bool
	Broker      string
	ClientID    string `mapstructure:"clientID"`
	TopicPrefix string `mapstructure:"topicPrefix"`
}

type EventConfig struct {
	Roles     []string       `mapstructure:"roles"`
	Modifiers []ActionConfig `mapstructure:"modifiers"`
	Actions   []ActionConfig `mapstructure:"actions"`
}

type ActionConfig struct {
	Name   string   `mapstructure:"name"`
	Params []string `mapstructure:"params"`
}
