package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validYAML = `environment: production
server:
  port: 8080
  read_timeout: 10s
  write_timeout: 10s
  shutdown_timeout: 15s
backend:
  type: timescale
  batch_size: 100
  batch_timeout: 2s
  op_timeout: 10s
postgres:
  host: localhost
  port: 5432
  database: trading
  user: trader
  password: secret
upstox:
  access_token: token-from-yaml
  websocket_url: wss://api.upstox.com/v2/feed
  instrument_keys:
    - NSE_INDEX|Nifty 50
    - NSE_FO|NIFTY25MAY23000CE
strategy:
  interval: 1m
  lookback: 24h
  bucket: 1m
executor:
  interval: 30s
  quantity: 25
  key_prefix: NSE_FO
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Backend.Type != "timescale" {
		t.Errorf("backend = %q, want timescale", cfg.Backend.Type)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Strategy.Lookback != 24*time.Hour {
		t.Errorf("lookback = %v, want 24h", cfg.Strategy.Lookback)
	}
	if len(cfg.Upstox.InstrumentKeys) != 2 {
		t.Errorf("instrument keys = %d, want 2", len(cfg.Upstox.InstrumentKeys))
	}
	if cfg.Executor.KeyPrefix != "NSE_FO" {
		t.Errorf("key prefix = %q", cfg.Executor.KeyPrefix)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for a missing file")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "environment: [unclosed")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("UPSTOX_ACCESS_TOKEN", "token-from-env")
	t.Setenv("INSTRUMENT_KEYS", "NSE_INDEX|Nifty 50,NSE_FO|BANKNIFTY24DEC51000PE,NSE_EQ|INE002A01018")

	cfg, err := LoadWithEnv(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("LoadWithEnv() error = %v", err)
	}
	if cfg.Upstox.AccessToken != "token-from-env" {
		t.Errorf("access token = %q, want env value", cfg.Upstox.AccessToken)
	}
	if len(cfg.Upstox.InstrumentKeys) != 3 {
		t.Errorf("instrument keys = %d, want 3 from env", len(cfg.Upstox.InstrumentKeys))
	}
}

func TestLoadWithEnvBackendSwitch(t *testing.T) {
	t.Setenv("BACKEND", "kafka")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092,broker-2:9092")
	t.Setenv("KAFKA_TOPIC", "market.ticks")

	cfg, err := LoadWithEnv(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("LoadWithEnv() error = %v", err)
	}
	if cfg.Backend.Type != "kafka" {
		t.Errorf("backend = %q, want kafka", cfg.Backend.Type)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Topic != "market.ticks" {
		t.Errorf("kafka config not overridden: %+v", cfg.Kafka)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing environment",
			mutate:  func(c *Config) { c.Environment = "" },
			wantErr: "environment",
		},
		{
			name:    "missing backend type",
			mutate:  func(c *Config) { c.Backend.Type = "" },
			wantErr: "backend.type",
		},
		{
			name:    "unknown backend type",
			mutate:  func(c *Config) { c.Backend.Type = "cassandra" },
			wantErr: "backend.type",
		},
		{
			name:    "no instruments",
			mutate:  func(c *Config) { c.Upstox.InstrumentKeys = nil },
			wantErr: "instrument_keys",
		},
		{
			name:    "missing token",
			mutate:  func(c *Config) { c.Upstox.AccessToken = "" },
			wantErr: "access_token",
		},
		{
			name: "kafka backend without brokers",
			mutate: func(c *Config) {
				c.Backend.Type = "kafka"
				c.Kafka.Brokers = nil
			},
			wantErr: "kafka.brokers",
		},
		{
			name:    "negative quantity",
			mutate:  func(c *Config) { c.Executor.Quantity = -1 },
			wantErr: "quantity",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, validYAML))
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			tt.mutate(cfg)

			err = cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
