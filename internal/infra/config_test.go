package infra

import (
	"os"
	"path/filepath"
	"testing"

	"gmx_go/internal/domain"
)

const testConfigYAML = `
app:
  name: gmx-go
  version: 0.1.0
trading:
  mode: PAPER
  paper_funding:
    USDC: "1000000000000"
risk:
  maintenance_margin_bps:
    arbitrum: 50
    avalanche: 100
  price_impact_cap_bps: 100
  deposit_imbalance_bps: 500
  default_slippage_bps: 50
  deadline_seconds: 60
api:
  arbitrum:
    rest_url: https://arbitrum-api.gmxinfra.io
  avalanche:
    rest_url: https://avalanche-api.gmxinfra.io
  timeout_ms: 5000
  rate_per_sec: 5
journal:
  path: _workspace/plans.db
logging:
  level: info
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, testConfigYAML))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Trading.Mode != "PAPER" {
		t.Errorf("Mode = %s", cfg.Trading.Mode)
	}
	if got := cfg.RestURL(domain.ChainAvalanche); got != "https://avalanche-api.gmxinfra.io" {
		t.Errorf("RestURL(avalanche) = %s", got)
	}

	mm := cfg.MaintenanceMargin()
	if mm[domain.ChainArbitrum] != 5_000 {
		t.Errorf("arbitrum mmr = %d, want 5000 micros", mm[domain.ChainArbitrum])
	}
	if mm[domain.ChainAvalanche] != 10_000 {
		t.Errorf("avalanche mmr = %d, want 10000 micros", mm[domain.ChainAvalanche])
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("GMX_TRADING_MODE", "LIVE")
	t.Setenv("GMX_ARBITRUM_REST", "https://staging.example.com")

	cfg, err := LoadConfig(writeConfig(t, testConfigYAML))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Trading.Mode != "LIVE" {
		t.Errorf("Mode = %s, env must win", cfg.Trading.Mode)
	}
	if cfg.API.Arbitrum.RestURL != "https://staging.example.com" {
		t.Errorf("RestURL = %s, env must win", cfg.API.Arbitrum.RestURL)
	}
}

func TestConfigValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := LoadConfig(writeConfig(t, testConfigYAML))
		if err != nil {
			t.Fatal(err)
		}
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad mode", func(c *Config) { c.Trading.Mode = "YOLO" }},
		{"missing rest url", func(c *Config) { c.API.Arbitrum.RestURL = "" }},
		{"rest url without scheme", func(c *Config) { c.API.Avalanche.RestURL = "avalanche-api.gmxinfra.io" }},
		{"ws url with http scheme", func(c *Config) { c.API.Arbitrum.WSURL = "https://stream.example.com" }},
		{"unknown chain in margins", func(c *Config) { c.Risk.MaintenanceMarginBps["solana"] = 50 }},
		{"slippage over 100%", func(c *Config) { c.Risk.DefaultSlippageBps = 10_000 }},
		{"negative deadline", func(c *Config) { c.Risk.DeadlineSeconds = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadSecretConfig_EnvOverrides(t *testing.T) {
	t.Setenv("GMX_WALLET_ADDRESS", "0xabc")
	t.Setenv("GMX_WALLET_KEY", "deadbeef")

	cfg, err := LoadSecretConfig("")
	if err != nil {
		t.Fatalf("LoadSecretConfig: %v", err)
	}
	if cfg.Wallet.Address != "0xabc" || cfg.Wallet.PrivateKey != "deadbeef" {
		t.Errorf("wallet = %+v", cfg.Wallet)
	}
}
