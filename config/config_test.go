package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadParsesSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `ListenAddress = "0.0.0.0:9000"
NodeURL = "http://localhost:8980"
NodeAuthToken = "node-token"
DataDir = "./data"
AppID = 746822940
AppAddress = "tfw1qqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqqzcss5t"
SettlementAssetID = 31566704
FeeBps = 30
MicroUnitsPerUSD = 10
ValidityWindowSecs = 86400
RPCAuthToken = "api-token"
RateLimitPerMinute = 120.0
RateBurst = 10
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ListenAddress != "0.0.0.0:9000" {
		t.Fatalf("unexpected listen address: %s", cfg.ListenAddress)
	}
	if cfg.NodeURL != "http://localhost:8980" {
		t.Fatalf("unexpected node url: %s", cfg.NodeURL)
	}
	if cfg.AppID != 746822940 {
		t.Fatalf("unexpected app id: %d", cfg.AppID)
	}
	if cfg.SettlementAssetID != 31566704 {
		t.Fatalf("unexpected settlement asset: %d", cfg.SettlementAssetID)
	}
	if cfg.FeeBps != 30 {
		t.Fatalf("unexpected fee bps: %d", cfg.FeeBps)
	}
	if cfg.RateLimitPerMinute != 120 {
		t.Fatalf("unexpected rate limit: %f", cfg.RateLimitPerMinute)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `AppID = 1
AppAddress = "tfw1example"
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ListenAddress != ":8080" {
		t.Fatalf("unexpected default listen address: %s", cfg.ListenAddress)
	}
	if cfg.FeeBps != DefaultFeeBps {
		t.Fatalf("unexpected default fee bps: %d", cfg.FeeBps)
	}
	if cfg.MicroUnitsPerUSD != DefaultMicroUnitsPerUSD {
		t.Fatalf("unexpected default rate: %d", cfg.MicroUnitsPerUSD)
	}
	if cfg.ValidityWindowSecs != DefaultValidityWindowSecs {
		t.Fatalf("unexpected default validity window: %d", cfg.ValidityWindowSecs)
	}
}

func TestLoadCreatesDefaultFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.FeeBps != DefaultFeeBps {
		t.Fatalf("unexpected fee bps: %d", cfg.FeeBps)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}

	// The written defaults are incomplete on purpose: the operator must
	// supply AppID and AppAddress before a reload succeeds.
	if _, err := Load(path); err == nil {
		t.Fatal("expected reload of bare defaults to fail validation")
	}
}

func TestValidateRejectsBadSettings(t *testing.T) {
	base := func() *Config {
		return &Config{
			ListenAddress:      ":8080",
			AppID:              1,
			AppAddress:         "tfw1example",
			FeeBps:             25,
			MicroUnitsPerUSD:   10,
			ValidityWindowSecs: 3600,
		}
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing app id", func(c *Config) { c.AppID = 0 }},
		{"missing app address", func(c *Config) { c.AppAddress = " " }},
		{"fee above cap", func(c *Config) { c.FeeBps = 10_001 }},
		{"zero conversion rate", func(c *Config) { c.MicroUnitsPerUSD = 0 }},
		{"negative rate limit", func(c *Config) { c.RateLimitPerMinute = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
