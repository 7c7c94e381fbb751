package domain

import "context"

// MarketData supplies fresh market snapshots. Implementations own their
// retry policy; the engine performs none and treats any error as
// DataUnavailable. Callers bound the fetch with ctx.
type MarketData interface {
	GetSnapshot(ctx context.Context, chain Chain, symbol string) (*MarketSnapshot, error)
}

// Signer dispatches a committed descriptor to the signing/broadcast
// capability. Consumed only when a plan reaches the Committed state.
type Signer interface {
	// Submit signs and broadcasts the order. A non-nil error means the
	// submission itself failed; a result with Success=false means the
	// venue rejected it. Neither is retried by the engine.
	Submit(ctx context.Context, order *OrderDescriptor) (*ExecutionResult, error)

	// Close releases resources and wipes key material.
	Close() error
}
