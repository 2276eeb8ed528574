package config

import (
	"fmt"
	"net"
	"strings"
)

// validate validates the configuration
func validate(cfg *Config) error {
	switch cfg.Mode {
	case ModeDecoy, ModeRelay:
	default:
		return fmt.Errorf("mode must be %s or %s, got %q", ModeDecoy, ModeRelay, cfg.Mode)
	}

	if err := validateAddress("protocol.listen", cfg.Protocol.Listen); err != nil {
		return err
	}
	if cfg.Protocol.SessionTimeout < 0 {
		return fmt.Errorf("protocol.session_timeout must not be negative")
	}

	switch cfg.Mode {
	case ModeDecoy:
		if cfg.Decoy.TelemetryInterval <= 0 {
			return fmt.Errorf("decoy.telemetry_interval must be positive")
		}
		for i, p := range cfg.Decoy.Params {
			if p.ID == "" || len(p.ID) > 16 {
				return fmt.Errorf("decoy.params[%d]: id must be 1 to 16 characters", i)
			}
		}

	case ModeRelay:
		network := strings.ToLower(cfg.Relay.Backend.Network)
		if network != "tcp" && network != "udp" {
			return fmt.Errorf("relay.backend.network must be tcp or udp, got %q", cfg.Relay.Backend.Network)
		}
		if err := validateAddress("relay.backend.address", cfg.Relay.Backend.Address); err != nil {
			return err
		}
	}

	if cfg.Events.BufferSize <= 0 {
		return fmt.Errorf("events.buffer_size must be positive")
	}
	if cfg.Events.File.Enabled && cfg.Events.File.Path == "" {
		return fmt.Errorf("events.file.path is required when the event file is enabled")
	}

	if cfg.Database.Enabled {
		if cfg.Database.Path == "" {
			return fmt.Errorf("database.path is required when database is enabled")
		}
		if cfg.Database.Retention < 0 {
			return fmt.Errorf("database.retention must not be negative")
		}
		if cfg.Database.Retention > 0 && cfg.Database.PruneInterval <= 0 {
			return fmt.Errorf("database.prune_interval must be positive when retention is set")
		}
	}

	if cfg.Postgres.Enabled && cfg.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn is required when postgres is enabled")
	}

	// Validate web config
	if cfg.Web.Enabled {
		if cfg.Web.Port <= 0 || cfg.Web.Port > 65535 {
			return fmt.Errorf("web.port must be between 1 and 65535")
		}
	}

	// Validate MQTT config
	if cfg.MQTT.Enabled {
		if cfg.MQTT.Broker == "" {
			return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
		}
		if cfg.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2")
		}
	}

	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", cfg.Logging.Level)
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json")
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Prometheus.Enabled {
		if cfg.Metrics.Prometheus.Port < 0 || cfg.Metrics.Prometheus.Port > 65535 {
			return fmt.Errorf("metrics.prometheus.port must be between 0 and 65535")
		}
	}

	return nil
}

func validateAddress(key, addr string) error {
	if addr == "" {
		return fmt.Errorf("%s is required", key)
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}
