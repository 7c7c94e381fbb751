package gmx

import (
	"gmx_go/internal/domain"
	"gmx_go/pkg/quant"
)

// Market describes one GMX v2 market: the index token and its collateral
// routing, leverage bounds, and pool composition. Prices come from the
// oracle API per request; everything here is market structure, which
// changes on governance timescales, not per tick.
type Market struct {
	Symbol          string
	IndexDecimals   int
	LongCollateral  string
	LongDecimals    int
	ShortCollateral string
	ShortDecimals   int

	MinLeverage quant.LeverageMicros
	MaxLeverage quant.LeverageMicros
	OpenFeeBps  int64

	// Pool composition estimates for impact and deposit-ratio checks.
	PoolLongUsd       quant.UsdMicros
	PoolShortUsd      quant.UsdMicros
	PoolTokenPrice    quant.PriceMicros
	PoolTokenDecimals int
}

// Token is a tradable asset without its own perp market (stables, swap-only
// legs). Snapshot requests for these carry price and decimals only.
type Token struct {
	Symbol   string
	Decimals int
}

func perp(symbol string, decimals int, maxLev quant.LeverageMicros, poolLong, poolShort quant.UsdMicros) Market {
	return Market{
		Symbol:            symbol,
		IndexDecimals:     decimals,
		LongCollateral:    symbol,
		LongDecimals:      decimals,
		ShortCollateral:   "USDC",
		ShortDecimals:     6,
		MinLeverage:       1_100_000, // 1.1x
		MaxLeverage:       maxLev,
		OpenFeeBps:        6,
		PoolLongUsd:       poolLong,
		PoolShortUsd:      poolShort,
		PoolTokenPrice:    1_250_000,
		PoolTokenDecimals: 18,
	}
}

// Catalog is the per-chain market structure.
type Catalog struct {
	markets map[string]Market
	tokens  map[string]Token
}

// Markets returns the catalog for a chain.
func Markets(chain domain.Chain) *Catalog {
	switch chain {
	case domain.ChainAvalanche:
		return avalancheCatalog
	default:
		return arbitrumCatalog
	}
}

// Market looks up a perp market by index symbol.
func (c *Catalog) Market(symbol string) (Market, bool) {
	m, ok := c.markets[symbol]
	return m, ok
}

// Token looks up any known asset, market index tokens included.
func (c *Catalog) Token(symbol string) (Token, bool) {
	if t, ok := c.tokens[symbol]; ok {
		return t, true
	}
	if m, ok := c.markets[symbol]; ok {
		return Token{Symbol: m.Symbol, Decimals: m.IndexDecimals}, true
	}
	return Token{}, false
}

func newCatalog(markets []Market, tokens []Token) *Catalog {
	c := &Catalog{
		markets: make(map[string]Market, len(markets)),
		tokens:  make(map[string]Token, len(tokens)),
	}
	for _, m := range markets {
		c.markets[m.Symbol] = m
	}
	for _, t := range tokens {
		c.tokens[t.Symbol] = t
	}
	return c
}

var arbitrumCatalog = newCatalog(
	[]Market{
		perp("ETH", 18, 50_000_000, 60_000_000_000_000, 40_000_000_000_000),
		perp("BTC", 8, 50_000_000, 80_000_000_000_000, 55_000_000_000_000),
		perp("ARB", 18, 20_000_000, 8_000_000_000_000, 6_000_000_000_000),
		perp("SOL", 9, 20_000_000, 12_000_000_000_000, 9_000_000_000_000),
		perp("LINK", 18, 20_000_000, 5_000_000_000_000, 4_000_000_000_000),
	},
	[]Token{
		{Symbol: "USDC", Decimals: 6},
		{Symbol: "USDT", Decimals: 6},
		{Symbol: "DAI", Decimals: 18},
		{Symbol: "WBTC", Decimals: 8},
	},
)

var avalancheCatalog = newCatalog(
	[]Market{
		perp("AVAX", 18, 50_000_000, 15_000_000_000_000, 11_000_000_000_000),
		perp("ETH", 18, 50_000_000, 20_000_000_000_000, 14_000_000_000_000),
		perp("BTC", 8, 50_000_000, 25_000_000_000_000, 17_000_000_000_000),
	},
	[]Token{
		{Symbol: "USDC", Decimals: 6},
		{Symbol: "USDT", Decimals: 6},
	},
)
