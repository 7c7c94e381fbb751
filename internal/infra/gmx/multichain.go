package gmx

import (
	"context"
	"time"

	"gmx_go/internal/domain"
	"gmx_go/internal/infra"
)

// MultiChain routes snapshot requests to the per-chain client.
// Implements domain.MarketData for both supported chains at once.
type MultiChain struct {
	clients map[domain.Chain]*Client
}

// NewMultiChain builds one client per configured chain.
func NewMultiChain(cfg *infra.Config) *MultiChain {
	timeout := time.Duration(cfg.API.TimeoutMS) * time.Millisecond
	rate := float64(cfg.API.RatePerSec)
	return &MultiChain{
		clients: map[domain.Chain]*Client{
			domain.ChainArbitrum:  NewClient(domain.ChainArbitrum, cfg.API.Arbitrum.RestURL, timeout, rate),
			domain.ChainAvalanche: NewClient(domain.ChainAvalanche, cfg.API.Avalanche.RestURL, timeout, rate),
		},
	}
}

// Client returns the underlying per-chain client.
func (m *MultiChain) Client(chain domain.Chain) (*Client, bool) {
	c, ok := m.clients[chain]
	return c, ok
}

// GetSnapshot routes to the chain's client.
func (m *MultiChain) GetSnapshot(ctx context.Context, chain domain.Chain, symbol string) (*domain.MarketSnapshot, error) {
	c, ok := m.clients[chain]
	if !ok {
		return nil, domain.Reasonf(domain.ReasonDataUnavailable, "unsupported chain %q", chain)
	}
	return c.GetSnapshot(ctx, chain, symbol)
}
