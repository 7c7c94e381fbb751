package infra

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"gmx_go/internal/domain"
	"gmx_go/pkg/quant"
)

// UserAgent identifies this client to the oracle hosts.
const UserAgent = "gmx-go/0.1"

// Config holds every application setting. Loaded from yaml, then overridden
// by environment variables for the sensitive and deployment-specific parts.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Trading struct {
		Mode string `yaml:"mode"` // PAPER or LIVE
		// PaperFunding seeds the paper signer: token symbol -> base units
		// as a decimal string (18-decimal amounts overflow int64).
		PaperFunding map[string]string `yaml:"paper_funding"`
	} `yaml:"trading"`

	Risk struct {
		// MaintenanceMarginBps is keyed by chain name.
		MaintenanceMarginBps map[string]int64 `yaml:"maintenance_margin_bps"`
		PriceImpactCapBps    int64            `yaml:"price_impact_cap_bps"`
		DepositImbalanceBps  int64            `yaml:"deposit_imbalance_bps"`
		DefaultSlippageBps   int64            `yaml:"default_slippage_bps"`
		DeadlineSeconds      int64            `yaml:"deadline_seconds"`
	} `yaml:"risk"`

	API struct {
		Arbitrum struct {
			RestURL string `yaml:"rest_url"`
			WSURL   string `yaml:"ws_url"`
		} `yaml:"arbitrum"`
		Avalanche struct {
			RestURL string `yaml:"rest_url"`
			WSURL   string `yaml:"ws_url"`
		} `yaml:"avalanche"`
		TimeoutMS  int `yaml:"timeout_ms"`
		RatePerSec int `yaml:"rate_per_sec"`
	} `yaml:"api"`

	Journal struct {
		Path string `yaml:"path"`
	} `yaml:"journal"`

	Metrics struct {
		Addr string `yaml:"addr"` // empty disables the exporter
	} `yaml:"metrics"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the config file, applies environment
// overrides, and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv applies environment variables over file values.
// Environment wins: deployment and CI set these without editing yaml.
func overrideWithEnv(cfg *Config) {
	if mode := os.Getenv("GMX_TRADING_MODE"); mode != "" {
		cfg.Trading.Mode = mode
	}
	if url := os.Getenv("GMX_ARBITRUM_REST"); url != "" {
		cfg.API.Arbitrum.RestURL = url
	}
	if url := os.Getenv("GMX_AVALANCHE_REST"); url != "" {
		cfg.API.Avalanche.RestURL = url
	}
	if path := os.Getenv("GMX_JOURNAL_PATH"); path != "" {
		cfg.Journal.Path = path
	}
	if level := os.Getenv("GMX_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}

// Validate checks configuration validity. Fail fast: a bad config never
// reaches the pipeline.
func (c *Config) Validate() error {
	switch c.Trading.Mode {
	case "PAPER", "LIVE":
	default:
		return fmt.Errorf("trading mode must be PAPER or LIVE, got %q", c.Trading.Mode)
	}

	for name, url := range map[string]string{
		"arbitrum":  c.API.Arbitrum.RestURL,
		"avalanche": c.API.Avalanche.RestURL,
	} {
		if url == "" || !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
			return fmt.Errorf("invalid %s REST URL: %q", name, url)
		}
	}
	for name, url := range map[string]string{
		"arbitrum":  c.API.Arbitrum.WSURL,
		"avalanche": c.API.Avalanche.WSURL,
	} {
		if url != "" && !strings.HasPrefix(url, "ws://") && !strings.HasPrefix(url, "wss://") {
			return fmt.Errorf("invalid %s WS URL: %q", name, url)
		}
	}

	for chain := range c.Risk.MaintenanceMarginBps {
		if _, err := domain.ParseChain(chain); err != nil {
			return fmt.Errorf("maintenance_margin_bps: %w", err)
		}
	}
	for _, bps := range []struct {
		name  string
		value int64
	}{
		{"price_impact_cap_bps", c.Risk.PriceImpactCapBps},
		{"deposit_imbalance_bps", c.Risk.DepositImbalanceBps},
		{"default_slippage_bps", c.Risk.DefaultSlippageBps},
	} {
		if bps.value < 0 || bps.value >= 10_000 {
			return fmt.Errorf("%s must be in [0, 10000), got %d", bps.name, bps.value)
		}
	}
	if c.Risk.DeadlineSeconds < 0 {
		return fmt.Errorf("deadline_seconds must not be negative")
	}
	if c.API.TimeoutMS < 0 || c.API.RatePerSec < 0 {
		return fmt.Errorf("api timings must not be negative")
	}

	return nil
}

// RestURL returns the REST base URL for a chain.
func (c *Config) RestURL(chain domain.Chain) string {
	if chain == domain.ChainAvalanche {
		return c.API.Avalanche.RestURL
	}
	return c.API.Arbitrum.RestURL
}

// WSURL returns the websocket URL for a chain; empty when streaming is off.
func (c *Config) WSURL(chain domain.Chain) string {
	if chain == domain.ChainAvalanche {
		return c.API.Avalanche.WSURL
	}
	return c.API.Arbitrum.WSURL
}

// MaintenanceMargin converts the per-chain bps table to micros fractions.
func (c *Config) MaintenanceMargin() map[domain.Chain]quant.FracMicros {
	out := make(map[domain.Chain]quant.FracMicros, len(c.Risk.MaintenanceMarginBps))
	for name, bps := range c.Risk.MaintenanceMarginBps {
		chain, err := domain.ParseChain(name)
		if err != nil {
			continue // Validate already rejected unknown chains
		}
		out[chain] = quant.ToFracMicros(bps)
	}
	return out
}
