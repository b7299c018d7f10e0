package config

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from a file and environment variables. An empty
// path looks for config.yaml in the working directory.
func Load(logger *slog.Logger, path string) (*Config, error) {
	v := viper.New()

	// 1. Set default values
	v.SetDefault("log.level", "info")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.adminAddress", "127.0.0.1:8081")
	v.SetDefault("server.auth.jwtSecret", "default-secret-key-change-me")
	v.SetDefault("server.connectionLimit.maxPerUser", 10)
	v.SetDefault("server.connectionLimit.mode", "reject")
	v.SetDefault("transport.readTimeout", "60s")
	v.SetDefault("transport.sendBuffer", 256)
	v.SetDefault("quota.requestsPerSecond", 100)
	v.SetDefault("quota.burst", 100)
	v.SetDefault("graph.ttl", "1h")
	v.SetDefault("graph.maxSamples", 1000)
	v.SetDefault("timers.enabled", true)
	v.SetDefault("timers.interval", "1s")
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.clientID", "devicehub")
	v.SetDefault("mqtt.topicPrefix", "devicehub")

	// 2. Set config file details
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".") // look for config in the working directory
	}

	// 3. Set up environment variable handling
	v.SetEnvPrefix("DEVICEHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Read the configuration file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, err
		}
		logger.Warn("Config file not found. ignoring error and relying on defaults/env vars")
	}

	// 5. Unmarshal the configuration into our struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if len(cfg.Events) == 0 {
		cfg.Events = DefaultEvents()
		logger.Info("No events configured, using built-in command set", slog.Int("events", len(cfg.Events)))
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.Server.ConnectionLimit.Mode {
	case "reject", "cycle":
	default:
		return errors.New("server.connectionLimit.mode must be 'reject' or 'cycle'")
	}
	if cfg.Transport.ReadTimeout <= 0 {
		return errors.New("transport.readTimeout must be positive")
	}
	if cfg.Timers.Enabled && cfg.Timers.Interval <= 0 {
		return errors.New("timers.interval must be positive")
	}
	return nil
}
