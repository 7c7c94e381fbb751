package domain

import "gmx_go/pkg/quant"

// MarketSnapshot is a point-in-time view of one market on one chain.
// Fetched fresh for every pipeline call; a snapshot must never be reused
// across calls whose financial correctness depends on current prices.
type MarketSnapshot struct {
	Chain  Chain
	Symbol string

	// Oracle prices. Mid is the working price; Min/Max bound the spread.
	PriceMicros    quant.PriceMicros
	MinPriceMicros quant.PriceMicros
	MaxPriceMicros quant.PriceMicros

	// Index token metadata.
	Decimals int

	// Collateral routing for this market.
	LongCollateralToken     string
	ShortCollateralToken    string
	LongCollateralDecimals  int
	ShortCollateralDecimals int

	// Leverage bounds enforced before order construction.
	MinLeverage quant.LeverageMicros
	MaxLeverage quant.LeverageMicros

	// Pool composition and share pricing for liquidity operations.
	PoolLongUsd       quant.UsdMicros
	PoolShortUsd      quant.UsdMicros
	PoolTokenPrice    quant.PriceMicros
	PoolTokenDecimals int

	// Fee tier for opening positions, basis points.
	OpenFeeBps int64

	FetchedUnixM quant.TimeStamp
}

// PoolLiquidityUsd is the total USD liquidity backing this market.
func (s *MarketSnapshot) PoolLiquidityUsd() quant.UsdMicros {
	return s.PoolLongUsd + s.PoolShortUsd
}

// RiskProfile is the derived, read-only risk view of one intent against one
// snapshot. Produced by the risk calculator, attached to exactly one plan.
type RiskProfile struct {
	Leverage         quant.LeverageMicros `json:"leverage"`
	LiquidationPrice quant.PriceMicros    `json:"liquidation_price"`
	MarginRatio      quant.FracMicros     `json:"margin_ratio"`
	PriceImpact      quant.FracMicros     `json:"price_impact"`

	// OpenCostUsd is the estimated total cost of entry: open fee, price
	// impact and gas. Populated for increases only.
	OpenCostUsd quant.UsdMicros `json:"open_cost_usd,omitempty"`
}
