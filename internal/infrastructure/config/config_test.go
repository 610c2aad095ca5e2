package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfigFile(t, `
hub:
  server_id: "srv-1"
  install_id: "inst-1"
security:
  jwt:
    secret: "`+testSecret+`"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Local.Port != 38736 {
		t.Errorf("Local.Port = %d, want default 38736", cfg.Local.Port)
	}
	if cfg.Dispatch.ResponseTimeout != 5000 {
		t.Errorf("Dispatch.ResponseTimeout = %d, want default 5000", cfg.Dispatch.ResponseTimeout)
	}
	if cfg.Cloud.QoS != 1 {
		t.Errorf("Cloud.QoS = %d, want default 1", cfg.Cloud.QoS)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfigFile(t, `
hub:
  server_id: "srv-1"
  install_id: "inst-1"
security:
  jwt:
    secret: "`+testSecret+`"
`)

	t.Setenv("HEARTH_DATABASE_PATH", "/tmp/override.db")
	t.Setenv("HEARTH_CLOUD_HOST", "relay.example.net")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Database.Path != "/tmp/override.db" {
		t.Errorf("Database.Path = %q, want env override", cfg.Database.Path)
	}
	if cfg.Cloud.Broker.Host != "relay.example.net" {
		t.Errorf("Cloud.Broker.Host = %q, want env override", cfg.Cloud.Broker.Host)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "valid",
			mutate:  func(*Config) {},
			wantErr: "",
		},
		{
			name:    "missing server id",
			mutate:  func(c *Config) { c.Hub.ServerID = "" },
			wantErr: "hub.server_id",
		},
		{
			name:    "missing install id",
			mutate:  func(c *Config) { c.Hub.InstallID = "" },
			wantErr: "hub.install_id",
		},
		{
			name:    "bad qos",
			mutate:  func(c *Config) { c.Cloud.QoS = 3 },
			wantErr: "cloud.qos",
		},
		{
			name:    "zero response timeout",
			mutate:  func(c *Config) { c.Dispatch.ResponseTimeout = 0 },
			wantErr: "dispatch.response_timeout",
		},
		{
			name:    "short jwt secret",
			mutate:  func(c *Config) { c.Security.JWT.Secret = "short" },
			wantErr: "at least 32 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Hub.ServerID = "srv-1"
			cfg.Hub.InstallID = "inst-1"
			cfg.Security.JWT.Secret = testSecret
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
