package authcore

import (
	"errors"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := defaultConfig()
	cfg.Token.AccessKey = []byte("config-access-key-0123456789abcd")
	cfg.Token.RefreshKey = []byte("config-refresh-key-0123456789abc")
	return cfg
}

func TestValidateDefaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults with keys must validate: %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero access ttl", func(c *Config) { c.Token.AccessTTL = 0 }},
		{"negative refresh ttl", func(c *Config) { c.Token.RefreshTTL = -time.Hour }},
		{"short access key", func(c *Config) { c.Token.AccessKey = []byte("short") }},
		{"short refresh key", func(c *Config) { c.Token.RefreshKey = []byte("short") }},
		{"zero lockout threshold", func(c *Config) { c.Lockout.Threshold = 0 }},
		{"zero lock duration", func(c *Config) { c.Lockout.LockDuration = 0 }},
		{"empty default role", func(c *Config) { c.Account.DefaultRole = "" }},
		{"audit enabled without buffer", func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = 0
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestValidateBootstrapAdmin(t *testing.T) {
	cfg := validConfig()
	cfg.Account.BootstrapAdminEnabled = true
	if err := cfg.Validate(); !errors.Is(err, ErrBootstrapAdminConfig) {
		t.Fatalf("expected ErrBootstrapAdminConfig, got %v", err)
	}

	cfg.Account.BootstrapAdminEmail = "root@x.com"
	if err := cfg.Validate(); !errors.Is(err, ErrBootstrapAdminConfig) {
		t.Fatalf("email alone is not enough, got %v", err)
	}

	cfg.Account.BootstrapAdminPassword = "bootstrap pass phrase"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("complete bootstrap config must validate: %v", err)
	}
}

func TestCloneConfigIsolatesKeys(t *testing.T) {
	cfg := validConfig()
	clone := cloneConfig(cfg)

	cfg.Token.AccessKey[0] ^= 0xFF
	if clone.Token.AccessKey[0] == cfg.Token.AccessKey[0] {
		t.Fatal("clone must not share key backing arrays")
	}
}
