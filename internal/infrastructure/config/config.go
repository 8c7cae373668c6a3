package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for minercore.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Node     NodeConfig     `yaml:"node"`
	SafeMode SafeModeConfig `yaml:"safe_mode"`
	Poller   PollerConfig   `yaml:"poller"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
	Output string `yaml:"output"` // stdout, stderr
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings for the optional
// hashrate/status time-series recorder.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"` // seconds
}

// NodeConfig describes the supervised quantus-node process.
type NodeConfig struct {
	// Chain selects the network: "resonance", "heisenberg", or any
	// other chain identifier the node binary accepts.
	Chain string `yaml:"chain"`

	// Binary is the path to an already-installed quantus-node executable.
	// Installation itself is handled by an external collaborator.
	Binary string `yaml:"binary"`

	// RewardsAddress is passed to the node as the mining rewards target.
	RewardsAddress string `yaml:"rewards_address"`

	// ExtraArgs are appended, in order, after the supervisor-built arguments.
	ExtraArgs []string `yaml:"extra_args"`

	// LogToFile mirrors node output to a file under <base_path>/logs.
	LogToFile bool `yaml:"log_to_file"`

	// BasePath is the node data directory. Empty means the platform
	// default (e.g. ~/.local/share/quantus-node on Linux).
	BasePath string `yaml:"base_path"`

	// LocalRPC is the WebSocket JSON-RPC endpoint of the local node.
	// Default: ws://127.0.0.1:9944
	LocalRPC string `yaml:"local_rpc"`

	// Bootnodes maps a chain identifier to the remote bootnode WebSocket
	// endpoint used for the best-effort remote height sample.
	Bootnodes map[string]string `yaml:"bootnodes"`

	// GracePeriodMS is how long to wait after SIGINT before SIGKILL,
	// in milliseconds. Default: 2000
	GracePeriodMS int `yaml:"grace_period_ms"`
}

// GetGracePeriod returns the SIGINT-to-SIGKILL grace as a Duration.
func (n NodeConfig) GetGracePeriod() time.Duration {
	return time.Duration(n.GracePeriodMS) * time.Millisecond
}

// BlockRange is a closed interval of block heights.
type BlockRange struct {
	Start uint64 `yaml:"start"`
	End   uint64 `yaml:"end"`
}

// SafeModeConfig configures the troublesome-range workaround.
type SafeModeConfig struct {
	// Flag is the restrictive node flag injected while safe mode is active.
	// Default: --max-blocks-per-request
	Flag string `yaml:"flag"`

	// Value is the flag's value token. Default: "1"
	Value string `yaml:"value"`

	// Ranges maps a chain identifier to its troublesome block ranges.
	// Chains absent from the map fall back to built-in defaults.
	Ranges map[string][]BlockRange `yaml:"ranges"`
}

// PollerConfig contains status poller timing settings.
type PollerConfig struct {
	// HealthInterval is how often to issue a system_health request (seconds).
	HealthInterval int `yaml:"health_interval"`

	// RemoteInterval is how often to sample the remote bootnode (seconds).
	RemoteInterval int `yaml:"remote_interval"`

	// ReadTimeoutMS bounds a single RPC read per iteration (milliseconds).
	ReadTimeoutMS int `yaml:"read_timeout_ms"`

	// ReconnectBackoff is the delay after a failed local connect (seconds).
	ReconnectBackoff int `yaml:"reconnect_backoff"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: MINERCORE_SECTION_KEY
// For example: MINERCORE_MQTT_HOST, MINERCORE_NODE_BINARY
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "minercore",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Node: NodeConfig{
			Chain:    "resonance",
			LocalRPC: "ws://127.0.0.1:9944",
			Bootnodes: map[string]string{
				"resonance":  "wss://a.t.res.fm",
				"heisenberg": "wss://a.i.res.fm",
			},
			GracePeriodMS: 2000,
		},
		SafeMode: SafeModeConfig{
			Flag:  "--max-blocks-per-request",
			Value: "1",
		},
		Poller: PollerConfig{
			HealthInterval:   5,
			RemoteInterval:   30,
			ReadTimeoutMS:    750,
			ReconnectBackoff: 3,
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: MINERCORE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// MQTT
	if v := os.Getenv("MINERCORE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("MINERCORE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("MINERCORE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("MINERCORE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Node
	if v := os.Getenv("MINERCORE_NODE_BINARY"); v != "" {
		cfg.Node.Binary = v
	}
	if v := os.Getenv("MINERCORE_NODE_CHAIN"); v != "" {
		cfg.Node.Chain = v
	}
	if v := os.Getenv("MINERCORE_NODE_REWARDS_ADDRESS"); v != "" {
		cfg.Node.RewardsAddress = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.Node.Chain == "" {
		errs = append(errs, "node.chain is required")
	}
	if c.Node.LocalRPC == "" {
		errs = append(errs, "node.local_rpc is required")
	}
	if !strings.HasPrefix(c.Node.LocalRPC, "ws://") && !strings.HasPrefix(c.Node.LocalRPC, "wss://") {
		errs = append(errs, "node.local_rpc must be a ws:// or wss:// URL")
	}

	if c.SafeMode.Flag == "" {
		errs = append(errs, "safe_mode.flag is required")
	}
	for chain, ranges := range c.SafeMode.Ranges {
		for _, r := range ranges {
			if r.End < r.Start {
				errs = append(errs, fmt.Sprintf("safe_mode.ranges[%s]: end %d before start %d", chain, r.End, r.Start))
			}
		}
	}

	if c.Poller.HealthInterval < 1 {
		errs = append(errs, "poller.health_interval must be at least 1 second")
	}
	if c.Poller.RemoteInterval < 1 {
		errs = append(errs, "poller.remote_interval must be at least 1 second")
	}
	if c.Poller.ReadTimeoutMS < 1 {
		errs = append(errs, "poller.read_timeout_ms must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetHealthInterval returns the health request cadence as a Duration.
func (p PollerConfig) GetHealthInterval() time.Duration {
	return time.Duration(p.HealthInterval) * time.Second
}

// GetRemoteInterval returns the remote sample cadence as a Duration.
func (p PollerConfig) GetRemoteInterval() time.Duration {
	return time.Duration(p.RemoteInterval) * time.Second
}

// GetReadTimeout returns the per-iteration read timeout as a Duration.
func (p PollerConfig) GetReadTimeout() time.Duration {
	return time.Duration(p.ReadTimeoutMS) * time.Millisecond
}

// GetReconnectBackoff returns the reconnect backoff as a Duration.
func (p PollerConfig) GetReconnectBackoff() time.Duration {
	return time.Duration(p.ReconnectBackoff) * time.Second
}
