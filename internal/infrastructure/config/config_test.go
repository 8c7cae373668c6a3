package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
node:
  chain: resonance
  binary: /usr/local/bin/quantus-node
  rewards_address: qzABC
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}
	if cfg.Node.LocalRPC != "ws://127.0.0.1:9944" {
		t.Errorf("Node.LocalRPC = %q, want ws://127.0.0.1:9944", cfg.Node.LocalRPC)
	}
	if cfg.SafeMode.Flag != "--max-blocks-per-request" {
		t.Errorf("SafeMode.Flag = %q", cfg.SafeMode.Flag)
	}
	if cfg.SafeMode.Value != "1" {
		t.Errorf("SafeMode.Value = %q, want 1", cfg.SafeMode.Value)
	}
	if cfg.Node.GetGracePeriod() != 2*time.Second {
		t.Errorf("Node.GetGracePeriod = %v, want 2s", cfg.Node.GetGracePeriod())
	}
	if cfg.InfluxDB.Enabled {
		t.Error("InfluxDB.Enabled = true, want false by default")
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: debug
  format: text
mqtt:
  broker:
    host: broker.local
    port: 8883
    tls: true
node:
  chain: heisenberg
  local_rpc: ws://127.0.0.1:19944
safe_mode:
  ranges:
    heisenberg:
      - start: 100
        end: 200
poller:
  health_interval: 10
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.MQTT.Broker.Host != "broker.local" || cfg.MQTT.Broker.Port != 8883 || !cfg.MQTT.Broker.TLS {
		t.Errorf("MQTT.Broker = %+v", cfg.MQTT.Broker)
	}
	if cfg.Node.Chain != "heisenberg" {
		t.Errorf("Node.Chain = %q, want heisenberg", cfg.Node.Chain)
	}
	ranges := cfg.SafeMode.Ranges["heisenberg"]
	if len(ranges) != 1 || ranges[0].Start != 100 || ranges[0].End != 200 {
		t.Errorf("SafeMode.Ranges[heisenberg] = %+v", ranges)
	}
	if cfg.Poller.HealthInterval != 10 {
		t.Errorf("Poller.HealthInterval = %d, want 10", cfg.Poller.HealthInterval)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("MINERCORE_MQTT_HOST", "env-broker")
	t.Setenv("MINERCORE_MQTT_PASSWORD", "secret")
	t.Setenv("MINERCORE_NODE_BINARY", "/opt/quantus-node")
	t.Setenv("MINERCORE_NODE_REWARDS_ADDRESS", "qzENV")

	path := writeConfig(t, `
mqtt:
  broker:
    host: file-broker
node:
  chain: resonance
  binary: /usr/bin/quantus-node
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.MQTT.Broker.Host != "env-broker" {
		t.Errorf("MQTT.Broker.Host = %q, want env-broker", cfg.MQTT.Broker.Host)
	}
	if cfg.MQTT.Auth.Password != "secret" {
		t.Errorf("MQTT.Auth.Password = %q", cfg.MQTT.Auth.Password)
	}
	if cfg.Node.Binary != "/opt/quantus-node" {
		t.Errorf("Node.Binary = %q", cfg.Node.Binary)
	}
	if cfg.Node.RewardsAddress != "qzENV" {
		t.Errorf("Node.RewardsAddress = %q", cfg.Node.RewardsAddress)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load succeeded on a missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(c *Config) {},
		},
		{
			name:    "bad qos",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name:    "empty chain",
			mutate:  func(c *Config) { c.Node.Chain = "" },
			wantErr: "node.chain",
		},
		{
			name:    "non-ws rpc url",
			mutate:  func(c *Config) { c.Node.LocalRPC = "http://127.0.0.1:9944" },
			wantErr: "node.local_rpc",
		},
		{
			name: "inverted range",
			mutate: func(c *Config) {
				c.SafeMode.Ranges = map[string][]BlockRange{
					"resonance": {{Start: 200, End: 100}},
				}
			},
			wantErr: "safe_mode.ranges",
		},
		{
			name:    "zero health interval",
			mutate:  func(c *Config) { c.Poller.HealthInterval = 0 },
			wantErr: "poller.health_interval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestPollerDurations(t *testing.T) {
	p := PollerConfig{
		HealthInterval:   5,
		RemoteInterval:   30,
		ReadTimeoutMS:    750,
		ReconnectBackoff: 3,
	}

	if got := p.GetHealthInterval(); got != 5*time.Second {
		t.Errorf("GetHealthInterval = %v", got)
	}
	if got := p.GetRemoteInterval(); got != 30*time.Second {
		t.Errorf("GetRemoteInterval = %v", got)
	}
	if got := p.GetReadTimeout(); got != 750*time.Millisecond {
		t.Errorf("GetReadTimeout = %v", got)
	}
	if got := p.GetReconnectBackoff(); got != 3*time.Second {
		t.Errorf("GetReconnectBackoff = %v", got)
	}
}
