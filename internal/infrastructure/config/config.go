package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Protocol versions accepted in mqtt.version.
const (
	MQTTVersion31  = "3.1"
	MQTTVersion311 = "3.1.1"
)

// Config is the root configuration structure for mqtt-cli.
// Values come from defaults, then the YAML file, then environment variables.
// Command-line flags are applied on top by the command layer.
type Config struct {
	MQTT     MQTTConfig     `yaml:"mqtt"`
	DataHub  DataHubConfig  `yaml:"datahub"`
	Logging  LoggingConfig  `yaml:"logging"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
}

// MQTTConfig contains MQTT broker connection defaults.
type MQTTConfig struct {
	Broker MQTTBrokerConfig `yaml:"broker"`
	Auth   MQTTAuthConfig   `yaml:"auth"`
	QoS    int              `yaml:"qos"`
	Store  MQTTStoreConfig  `yaml:"store"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	TLS            bool   `yaml:"tls"`
	Version        string `yaml:"version"`
	ClientIDPrefix string `yaml:"client_id_prefix"`
	KeepAlive      int    `yaml:"keep_alive"`
	ConnectTimeout int    `yaml:"connect_timeout"`
	CleanSession   bool   `yaml:"clean_session"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTStoreConfig controls the SQLite store for in-flight QoS 1/2 messages.
type MQTTStoreConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// DataHubConfig contains HiveMQ Data Hub REST API settings.
type DataHubConfig struct {
	URL       string  `yaml:"url"`
	RateLimit float64 `yaml:"rate_limit"`
	Timeout   int     `yaml:"timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings.
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// InfluxDBConfig contains settings for the InfluxDB subscription sink.
// Each received message becomes one point in Measurement.
type InfluxDBConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Token   string `yaml:"token"`
	Org     string `yaml:"org"`
	Bucket  string `yaml:"bucket"`

	Measurement string `yaml:"measurement"`
	// MaxPayload caps the bytes of payload stored per point; 0 stores none.
	MaxPayload int `yaml:"max_payload"`

	// BatchSize is the number of messages sent per write request.
	BatchSize int `yaml:"batch_size"`
	// FlushInterval is the longest a received message waits to be sent, in milliseconds.
	FlushInterval int `yaml:"flush_interval"`
	MaxRetries    int `yaml:"max_retries"`
}

// ErrNoConfigFile is returned by Read when the file does not exist.
var ErrNoConfigFile = errors.New("config: file not found")

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// If path is empty the default location ($HOME/.mqtt-cli/config.yaml) is used,
// and a missing default file is not an error. A missing file that was named
// explicitly is.
//
// Environment variables follow the pattern: MQTT_CLI_SECTION_KEY
// For example: MQTT_CLI_MQTT_HOST, MQTT_CLI_DATAHUB_URL
//
// Parameters:
//   - path: Path to the YAML configuration file, or "" for the default location
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If the file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	if err := Read(path, cfg); err != nil {
		if !errors.Is(err, ErrNoConfigFile) || explicit {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Read parses the YAML file at path into cfg.
func Read(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNoConfigFile, path)
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// DefaultPath returns the default config file location.
// MQTT_CLI_CONFIG takes precedence over $HOME/.mqtt-cli/config.yaml.
func DefaultPath() string {
	if path := os.Getenv("MQTT_CLI_CONFIG"); path != "" {
		return path
	}
	return filepath.Join(HomeDir(), "config.yaml")
}

// HomeDir returns the mqtt-cli state directory ($HOME/.mqtt-cli).
func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".mqtt-cli")
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:           "localhost",
				Port:           1883,
				Version:        MQTTVersion311,
				ClientIDPrefix: "mqttClient",
				KeepAlive:      60,
				ConnectTimeout: 10,
				CleanSession:   true,
			},
			QoS: 0,
			Store: MQTTStoreConfig{
				Path:        filepath.Join(HomeDir(), "inflight.db"),
				BusyTimeout: 5,
			},
		},
		DataHub: DataHubConfig{
			URL:       "http://localhost:8888",
			RateLimit: 1500,
			Timeout:   30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
			File: FileLoggingConfig{
				Path:       filepath.Join(HomeDir(), "logs", "mqtt-cli.log"),
				MaxSize:    10,
				MaxBackups: 3,
				MaxAge:     28,
			},
		},
		InfluxDB: InfluxDBConfig{
			URL:           "http://localhost:8086",
			Bucket:        "mqtt",
			Measurement:   "mqtt_messages",
			MaxPayload:    64 * 1024,
			BatchSize:     100,
			FlushInterval: 1000,
			MaxRetries:    3,
		},
	}
}

// Default returns the built-in defaults with environment overrides applied.
// Used when no config file should be consulted (tests, early startup).
func Default() *Config {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	return cfg
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: MQTT_CLI_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// MQTT
	if v := os.Getenv("MQTT_CLI_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("MQTT_CLI_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("MQTT_CLI_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("MQTT_CLI_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Data Hub
	if v := os.Getenv("MQTT_CLI_DATAHUB_URL"); v != "" {
		cfg.DataHub.URL = v
	}
	if v := os.Getenv("MQTT_CLI_DATAHUB_RATE"); v != "" {
		if r, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.DataHub.RateLimit = r
		}
	}

	// Logging
	if v := os.Getenv("MQTT_CLI_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// InfluxDB
	if v := os.Getenv("MQTT_CLI_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// MQTT validation
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.Broker.Version != MQTTVersion31 && c.MQTT.Broker.Version != MQTTVersion311 {
		errs = append(errs, "mqtt.broker.version must be 3.1 or 3.1.1")
	}
	if c.MQTT.Broker.KeepAlive < 0 {
		errs = append(errs, "mqtt.broker.keep_alive must not be negative")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Store.Enabled && c.MQTT.Store.Path == "" {
		errs = append(errs, "mqtt.store.path is required when the store is enabled")
	}

	// Data Hub validation
	if c.DataHub.RateLimit <= 0 {
		errs = append(errs, "datahub.rate_limit must be greater than 0")
	}
	if u, err := url.Parse(c.DataHub.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, "datahub.url must be an absolute http or https URL")
	}

	// InfluxDB validation
	if c.InfluxDB.BatchSize < 0 || c.InfluxDB.FlushInterval < 0 || c.InfluxDB.MaxRetries < 0 {
		errs = append(errs, "influxdb.batch_size, flush_interval and max_retries must not be negative")
	}
	if c.InfluxDB.MaxPayload < 0 {
		errs = append(errs, "influxdb.max_payload must not be negative")
	}

	// Logging validation
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, "logging.level must be one of trace, debug, info, warn, error")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ProtocolVersion returns the paho protocol version number for mqtt.version
// (3 for MQTT 3.1, 4 for MQTT 3.1.1).
func (c MQTTBrokerConfig) ProtocolVersion() uint {
	if c.Version == MQTTVersion31 {
		return 3
	}
	return 4
}

// GetKeepAlive returns the keep-alive interval as a Duration.
func (c MQTTBrokerConfig) GetKeepAlive() time.Duration {
	return time.Duration(c.KeepAlive) * time.Second
}

// GetConnectTimeout returns the connect timeout as a Duration.
func (c MQTTBrokerConfig) GetConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeout) * time.Second
}

// GetTimeout returns the REST request timeout as a Duration.
func (c DataHubConfig) GetTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}
