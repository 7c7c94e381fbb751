package domain

import "fmt"

// Chain identifies a supported settlement chain.
type Chain string

const (
	ChainArbitrum  Chain = "arbitrum"
	ChainAvalanche Chain = "avalanche"
)

// ParseChain validates and normalizes a chain identifier.
func ParseChain(s string) (Chain, error) {
	switch Chain(s) {
	case ChainArbitrum, ChainAvalanche:
		return Chain(s), nil
	default:
		return "", fmt.Errorf("unsupported chain: %q", s)
	}
}

// ChainID returns the EVM chain ID.
func (c Chain) ChainID() int64 {
	switch c {
	case ChainArbitrum:
		return 42161
	case ChainAvalanche:
		return 43114
	default:
		return 0
	}
}
