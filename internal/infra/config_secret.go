package infra

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SecretConfig carries wallet credentials for live signing. It lives in a
// separate file (secrets/live.yaml) so the main config can be committed.
type SecretConfig struct {
	Wallet struct {
		Address    string `yaml:"address"`
		PrivateKey string `yaml:"private_key"`
	} `yaml:"wallet"`
}

// LoadSecretConfig loads wallet credentials from a yaml file, then applies
// environment overrides. Environment variables are the recommended channel;
// the file exists for air-gapped setups.
func LoadSecretConfig(path string) (*SecretConfig, error) {
	var cfg SecretConfig

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read secret config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse secret config: %w", err)
		}
	}

	if addr := os.Getenv("GMX_WALLET_ADDRESS"); addr != "" {
		cfg.Wallet.Address = addr
	}
	if key := os.Getenv("GMX_WALLET_KEY"); key != "" {
		cfg.Wallet.PrivateKey = key
	}

	return &cfg, nil
}
