package execution

import (
	"fmt"
	"log/slog"
	"math/big"
	"os"

	"gmx_go/internal/domain"
	"gmx_go/internal/infra"
)

// Mode represents the execution backend behind commits.
type Mode string

const (
	ModePaper Mode = "PAPER"
	ModeLive  Mode = "LIVE"
)

// Factory creates the signer matching the configured trading mode.
// A live signer is an external capability (a wallet integration); the
// factory only gates and wires it.
type Factory struct {
	config *infra.Config
	secret *infra.SecretConfig
	live   domain.Signer
}

// NewFactory creates a factory. secret and live may be nil when only
// paper trading is configured.
func NewFactory(cfg *infra.Config, secret *infra.SecretConfig, live domain.Signer) *Factory {
	return &Factory{config: cfg, secret: secret, live: live}
}

// CreateSigner returns the signer for the configured mode.
func (f *Factory) CreateSigner() (domain.Signer, error) {
	mode := Mode(f.config.Trading.Mode)

	slog.Info("Initializing Execution System", "mode", mode)

	switch mode {
	case ModePaper:
		signer := NewPaperSigner()
		for token, raw := range f.config.Trading.PaperFunding {
			amount, ok := new(big.Int).SetString(raw, 10)
			if !ok || amount.Sign() < 0 {
				return nil, fmt.Errorf("invalid paper funding for %s: %q", token, raw)
			}
			signer.Fund(token, amount)
		}
		return signer, nil

	case ModeLive:
		// SAFETY LATCH: live signing moves real funds.
		if os.Getenv("GMX_CONFIRM_LIVE") != "true" {
			err := fmt.Errorf("SAFETY_GUARD: live trading requires 'GMX_CONFIRM_LIVE=true' environment variable")
			slog.Error(err.Error())
			panic(err) // Fail Fast
		}
		if f.secret == nil || f.secret.Wallet.Address == "" || f.secret.Wallet.PrivateKey == "" {
			return nil, fmt.Errorf("live mode configured but wallet credentials are missing")
		}
		if f.live == nil {
			return nil, fmt.Errorf("live mode configured but no wallet signer is wired")
		}
		slog.Info("🚨🚨🚨 LIVE signing enabled 🚨🚨🚨")
		return f.live, nil

	default:
		return nil, fmt.Errorf("unknown execution mode: %s", f.config.Trading.Mode)
	}
}
