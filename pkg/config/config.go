package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Operating modes
const (
	ModeDecoy = "decoy"
	ModeRelay = "relay"
)

// Config represents the application configuration
type Config struct {
	Mode     string         `mapstructure:"mode"`
	Protocol ProtocolConfig `mapstructure:"protocol"`
	Decoy    DecoyConfig    `mapstructure:"decoy"`
	Relay    RelayConfig    `mapstructure:"relay"`
	Events   EventsConfig   `mapstructure:"events"`
	Database DatabaseConfig `mapstructure:"database"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Web      WebConfig      `mapstructure:"web"`
	MQTT     MQTTConfig     `mapstructure:"mqtt"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ProtocolConfig holds settings shared by both modes
type ProtocolConfig struct {
	Listen         string        `mapstructure:"listen"`          // external UDP endpoint
	VerifyChecksum bool          `mapstructure:"verify_checksum"` // drop events of frames failing CRC
	SessionTimeout time.Duration `mapstructure:"session_timeout"` // 0 keeps a session until replaced
}

// DecoyConfig describes the simulated vehicle
type DecoyConfig struct {
	SystemID          uint8         `mapstructure:"system_id"`
	ComponentID       uint8         `mapstructure:"component_id"`
	TelemetryInterval time.Duration `mapstructure:"telemetry_interval"`
	Vehicle           VehicleConfig `mapstructure:"vehicle"`
	Params            []ParamConfig `mapstructure:"params"` // empty serves the built-in table
}

// VehicleConfig is the fixed vehicle state reported in telemetry
type VehicleConfig struct {
	Latitude         float64 `mapstructure:"latitude"`
	Longitude        float64 `mapstructure:"longitude"`
	Altitude         float64 `mapstructure:"altitude"`
	VehicleType      uint8   `mapstructure:"vehicle_type"`
	Autopilot        uint8   `mapstructure:"autopilot"`
	CustomMode       uint32  `mapstructure:"custom_mode"`
	Armed            bool    `mapstructure:"armed"`
	Satellites       uint8   `mapstructure:"satellites"`
	BatteryVoltage   uint16  `mapstructure:"battery_voltage"`
	BatteryRemaining int8    `mapstructure:"battery_remaining"`
}

// ParamConfig is one fake parameter
type ParamConfig struct {
	ID    string  `mapstructure:"id"`
	Value float32 `mapstructure:"value"`
}

// RelayConfig holds relay mode settings
type RelayConfig struct {
	Backend       BackendConfig `mapstructure:"backend"`
	NoiseFilter   bool          `mapstructure:"noise_filter"`
	StatsInterval time.Duration `mapstructure:"stats_interval"`
}

// BackendConfig describes the link to the real vehicle or simulator
type BackendConfig struct {
	Network     string        `mapstructure:"network"` // tcp or udp
	Address     string        `mapstructure:"address"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

// EventsConfig holds event pipeline settings
type EventsConfig struct {
	BufferSize int             `mapstructure:"buffer_size"`
	Console    bool            `mapstructure:"console"`
	File       EventFileConfig `mapstructure:"file"`
}

// EventFileConfig holds the JSON-lines event log settings
type EventFileConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// DatabaseConfig holds the sqlite event store settings
type DatabaseConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Path          string        `mapstructure:"path"`
	Retention     time.Duration `mapstructure:"retention"` // 0 keeps events forever
	PruneInterval time.Duration `mapstructure:"prune_interval"`
}

// PostgresConfig holds the PostgreSQL event sink settings
type PostgresConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
	Table   string `mapstructure:"table"`
}

// WebConfig holds web dashboard configuration
type WebConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

// MQTTConfig holds MQTT client configuration
type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	QoS         byte   `mapstructure:"qos"`
	Retained    bool   `mapstructure:"retained"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled    bool             `mapstructure:"enabled"`
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig holds Prometheus metrics configuration
type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// Load loads configuration from file and environment variables
func Load(configFile string) (*Config, error) {
	// Set defaults
	setDefaults()

	// Set config file
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath("/etc/mavtrap")
	}

	// Environment variables, e.g. MAVTRAP_RELAY_BACKEND_ADDRESS
	viper.SetEnvPrefix("MAVTRAP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found is OK, use defaults
		} else if os.IsNotExist(err) {
			// File explicitly specified but doesn't exist - that's also OK
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.Mode = strings.ToLower(strings.TrimSpace(config.Mode))

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("mode", ModeDecoy)

	// Protocol defaults
	viper.SetDefault("protocol.listen", "0.0.0.0:14550")
	viper.SetDefault("protocol.verify_checksum", false)
	viper.SetDefault("protocol.session_timeout", "0s")

	// Decoy defaults
	viper.SetDefault("decoy.system_id", 1)
	viper.SetDefault("decoy.component_id", 1)
	viper.SetDefault("decoy.telemetry_interval", "1s")
	viper.SetDefault("decoy.vehicle.latitude", 39.9042)
	viper.SetDefault("decoy.vehicle.longitude", 116.4074)
	viper.SetDefault("decoy.vehicle.altitude", 100.0)
	viper.SetDefault("decoy.vehicle.vehicle_type", 2)
	viper.SetDefault("decoy.vehicle.autopilot", 3)
	viper.SetDefault("decoy.vehicle.satellites", 12)
	viper.SetDefault("decoy.vehicle.battery_voltage", 12600)
	viper.SetDefault("decoy.vehicle.battery_remaining", 80)

	// Relay defaults
	viper.SetDefault("relay.backend.network", "tcp")
	viper.SetDefault("relay.backend.address", "127.0.0.1:14551")
	viper.SetDefault("relay.backend.dial_timeout", "5s")
	viper.SetDefault("relay.noise_filter", true)
	viper.SetDefault("relay.stats_interval", "10s")

	// Event defaults
	viper.SetDefault("events.buffer_size", 1024)
	viper.SetDefault("events.console", true)
	viper.SetDefault("events.file.enabled", false)
	viper.SetDefault("events.file.path", "logs/mavtrap-events.jsonl")
	viper.SetDefault("events.file.max_size", 100)
	viper.SetDefault("events.file.max_backups", 3)
	viper.SetDefault("events.file.max_age", 30)
	viper.SetDefault("events.file.compress", true)

	// Database defaults
	viper.SetDefault("database.enabled", true)
	viper.SetDefault("database.path", "data/mavtrap.db")
	viper.SetDefault("database.retention", "0s")
	viper.SetDefault("database.prune_interval", "1h")

	// Postgres defaults
	viper.SetDefault("postgres.enabled", false)
	viper.SetDefault("postgres.table", "mavtrap_events")

	// Web defaults
	viper.SetDefault("web.enabled", true)
	viper.SetDefault("web.host", "0.0.0.0")
	viper.SetDefault("web.port", 8080)

	// MQTT defaults
	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.topic_prefix", "mavtrap")
	viper.SetDefault("mqtt.client_id", "mavtrap")
	viper.SetDefault("mqtt.qos", 1)
	viper.SetDefault("mqtt.retained", false)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.max_size", 100)
	viper.SetDefault("logging.max_backups", 3)
	viper.SetDefault("logging.max_age", 7)

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.prometheus.enabled", true)
	viper.SetDefault("metrics.prometheus.port", 9090)
	viper.SetDefault("metrics.prometheus.path", "/metrics")
}
