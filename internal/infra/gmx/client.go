// Package gmx implements the MarketData provider over the public GMX v2
// info API. One client per chain; prices come from the oracle keepers,
// market structure from the static catalog.
package gmx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"gmx_go/internal/domain"
	"gmx_go/internal/infra"
	"gmx_go/internal/infra/metrics"
	"gmx_go/pkg/quant"
)

// Default REST hosts. Overridable via config for staging and tests.
const (
	ArbitrumURL  = "https://arbitrum-api.gmxinfra.io"
	AvalancheURL = "https://avalanche-api.gmxinfra.io"
)

// Oracle prices arrive scaled to 30 minus token decimals. Converting to
// micros shifts by decimals-24.
const oraclePriceExponent = 30

// Client fetches oracle prices for one chain.
type Client struct {
	chain   domain.Chain
	baseURL string
	http    *http.Client
	limiter *infra.RateLimiter
	breaker *infra.HostBreaker
	catalog *Catalog

	// Retries bounds provider-side retry attempts beyond the first call.
	Retries int
}

// NewClient creates a provider for a chain. baseURL empty selects the
// public host; ratePerSec <= 0 selects the limiter default.
func NewClient(chain domain.Chain, baseURL string, timeout time.Duration, ratePerSec float64) *Client {
	if baseURL == "" {
		if chain == domain.ChainAvalanche {
			baseURL = AvalancheURL
		} else {
			baseURL = ArbitrumURL
		}
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		chain:   chain,
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		limiter: infra.GetOracleLimiter(string(chain), ratePerSec),
		breaker: infra.NewHostBreaker(infra.DefaultBreakerConfig("gmx-" + string(chain))),
		catalog: Markets(chain),
		Retries: 2,
	}
}

// tickerEntry is one row of /prices/tickers.
type tickerEntry struct {
	TokenSymbol  string `json:"tokenSymbol"`
	TokenAddress string `json:"tokenAddress"`
	MinPrice     string `json:"minPrice"`
	MaxPrice     string `json:"maxPrice"`
}

// TickerPrice is a parsed oracle quote in micros.
type TickerPrice struct {
	Symbol    string
	MinMicros quant.PriceMicros
	MidMicros quant.PriceMicros
	MaxMicros quant.PriceMicros
}

// Candle is one OHLCV bar from /prices/candles, prices in micros.
type Candle struct {
	TsUnix int64
	Open   quant.PriceMicros
	High   quant.PriceMicros
	Low    quant.PriceMicros
	Close  quant.PriceMicros
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	if !c.breaker.Allow() {
		return fmt.Errorf("gmx %s: circuit open", c.chain)
	}
	c.limiter.Wait()
	metrics.ProviderRequestsTotal.WithLabelValues(string(c.chain), endpoint).Inc()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", infra.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		return fmt.Errorf("gmx %s%s: %w", c.chain, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.breaker.RecordFailure()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gmx %s%s: status %d: %s", c.chain, endpoint, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.breaker.RecordFailure()
		return fmt.Errorf("gmx %s%s: decode: %w", c.chain, endpoint, err)
	}

	c.breaker.RecordSuccess()
	return nil
}

// getWithRetry wraps get with bounded exponential backoff. Retries stop as
// soon as the context is done.
func (c *Client) getWithRetry(ctx context.Context, endpoint string, out any) error {
	var err error
	for attempt := 0; ; attempt++ {
		if err = c.get(ctx, endpoint, out); err == nil {
			return nil
		}
		if attempt >= c.Retries {
			return err
		}
		slog.Warn("gmx request failed, retrying",
			slog.String("chain", string(c.chain)),
			slog.String("endpoint", endpoint),
			slog.Int("attempt", attempt),
			slog.Any("error", err))
		select {
		case <-ctx.Done():
			return err
		case <-time.After(infra.RetryDelay(attempt)):
		}
	}
}

// Ping checks oracle reachability.
func (c *Client) Ping(ctx context.Context) error {
	var out map[string]any
	return c.getWithRetry(ctx, "/ping", &out)
}

// TokenInfo is the upstream token registry entry from /tokens.
type TokenInfo struct {
	Symbol   string `json:"symbol"`
	Address  string `json:"address"`
	Decimals int    `json:"decimals"`
}

// Tokens fetches the upstream token registry. Used for catalog
// cross-checks and the smoke utility; snapshot decimals always come from
// the catalog.
func (c *Client) Tokens(ctx context.Context) ([]TokenInfo, error) {
	var out struct {
		Tokens []TokenInfo `json:"tokens"`
	}
	if err := c.getWithRetry(ctx, "/tokens", &out); err != nil {
		return nil, err
	}
	return out.Tokens, nil
}

// Tickers fetches and parses the latest oracle quotes for every token the
// catalog knows. Unknown symbols are skipped: their decimals are unknown,
// so their prices cannot be descaled.
func (c *Client) Tickers(ctx context.Context) (map[string]TickerPrice, error) {
	var entries []tickerEntry
	if err := c.getWithRetry(ctx, "/prices/tickers", &entries); err != nil {
		return nil, err
	}

	out := make(map[string]TickerPrice, len(entries))
	for _, e := range entries {
		token, ok := c.catalog.Token(e.TokenSymbol)
		if !ok {
			continue
		}
		minP, err := ParseOraclePrice(e.MinPrice, token.Decimals)
		if err != nil {
			return nil, fmt.Errorf("gmx %s ticker %s: %w", c.chain, e.TokenSymbol, err)
		}
		maxP, err := ParseOraclePrice(e.MaxPrice, token.Decimals)
		if err != nil {
			return nil, fmt.Errorf("gmx %s ticker %s: %w", c.chain, e.TokenSymbol, err)
		}
		out[e.TokenSymbol] = TickerPrice{
			Symbol:    e.TokenSymbol,
			MinMicros: minP,
			MidMicros: (minP + maxP) / 2,
			MaxMicros: maxP,
		}
	}
	return out, nil
}

// signedPriceEntry is one row of /signed_prices/latest.
type signedPriceEntry struct {
	TokenSymbol  string `json:"tokenSymbol"`
	MinPriceFull string `json:"minPriceFull"`
	MaxPriceFull string `json:"maxPriceFull"`
}

// SignedPrice is a parsed keeper-attested quote in micros. Signed prices
// are what the keepers actually settle against on-chain; the tickers feed
// may lag them slightly.
type SignedPrice struct {
	Symbol    string
	MinMicros quant.PriceMicros
	MaxMicros quant.PriceMicros
}

// SignedPrices fetches the latest keeper-signed quotes for every token the
// catalog knows. Unknown symbols are skipped as in Tickers.
func (c *Client) SignedPrices(ctx context.Context) (map[string]SignedPrice, error) {
	var out struct {
		SignedPrices []signedPriceEntry `json:"signedPrices"`
	}
	if err := c.getWithRetry(ctx, "/signed_prices/latest", &out); err != nil {
		return nil, err
	}

	res := make(map[string]SignedPrice, len(out.SignedPrices))
	for _, e := range out.SignedPrices {
		token, ok := c.catalog.Token(e.TokenSymbol)
		if !ok {
			continue
		}
		minP, err := ParseOraclePrice(e.MinPriceFull, token.Decimals)
		if err != nil {
			return nil, fmt.Errorf("gmx %s signed price %s: %w", c.chain, e.TokenSymbol, err)
		}
		maxP, err := ParseOraclePrice(e.MaxPriceFull, token.Decimals)
		if err != nil {
			return nil, fmt.Errorf("gmx %s signed price %s: %w", c.chain, e.TokenSymbol, err)
		}
		res[e.TokenSymbol] = SignedPrice{Symbol: e.TokenSymbol, MinMicros: minP, MaxMicros: maxP}
	}
	return res, nil
}

// Candles fetches recent OHLCV bars for a symbol. period is an API period
// string such as "1m", "15m", "1h", "1d".
func (c *Client) Candles(ctx context.Context, symbol, period string, limit int) ([]Candle, error) {
	token, ok := c.catalog.Token(symbol)
	if !ok {
		return nil, domain.Reasonf(domain.ReasonDataUnavailable,
			"unknown symbol %s on %s", symbol, c.chain)
	}

	var out struct {
		Candles [][]json.Number `json:"candles"`
	}
	endpoint := fmt.Sprintf("/prices/candles?tokenSymbol=%s&period=%s&limit=%d", symbol, period, limit)
	if err := c.getWithRetry(ctx, endpoint, &out); err != nil {
		return nil, err
	}

	candles := make([]Candle, 0, len(out.Candles))
	for _, row := range out.Candles {
		// Rows are [timestamp, open, high, low, close].
		if len(row) < 5 {
			continue
		}
		ts, err := row[0].Int64()
		if err != nil {
			return nil, fmt.Errorf("gmx %s candles: bad timestamp %q", c.chain, row[0])
		}
		var prices [4]quant.PriceMicros
		for i := range prices {
			p, err := ParseOraclePrice(row[i+1].String(), token.Decimals)
			if err != nil {
				return nil, fmt.Errorf("gmx %s candles: %w", c.chain, err)
			}
			prices[i] = p
		}
		candles = append(candles, Candle{
			TsUnix: ts,
			Open:   prices[0],
			High:   prices[1],
			Low:    prices[2],
			Close:  prices[3],
		})
	}
	return candles, nil
}

// GetSnapshot composes a market snapshot from the live oracle quote and the
// static catalog. Fetched fresh on every call; never cached.
func (c *Client) GetSnapshot(ctx context.Context, chain domain.Chain, symbol string) (*domain.MarketSnapshot, error) {
	if chain != c.chain {
		return nil, domain.Reasonf(domain.ReasonDataUnavailable,
			"client serves %s, snapshot requested for %s", c.chain, chain)
	}

	token, ok := c.catalog.Token(symbol)
	if !ok {
		return nil, domain.Reasonf(domain.ReasonDataUnavailable,
			"unknown symbol %s on %s", symbol, c.chain)
	}

	tickers, err := c.Tickers(ctx)
	if err != nil {
		return nil, domain.Reasonf(domain.ReasonDataUnavailable, "%v", err)
	}
	quote, ok := tickers[symbol]
	if !ok {
		return nil, domain.Reasonf(domain.ReasonDataUnavailable,
			"no oracle quote for %s on %s", symbol, c.chain)
	}

	snap := &domain.MarketSnapshot{
		Chain:          c.chain,
		Symbol:         symbol,
		PriceMicros:    quote.MidMicros,
		MinPriceMicros: quote.MinMicros,
		MaxPriceMicros: quote.MaxMicros,
		Decimals:       token.Decimals,
		FetchedUnixM:   quant.TimeStamp(time.Now().UnixMicro()),
	}

	if m, ok := c.catalog.Market(symbol); ok {
		snap.LongCollateralToken = m.LongCollateral
		snap.LongCollateralDecimals = m.LongDecimals
		snap.ShortCollateralToken = m.ShortCollateral
		snap.ShortCollateralDecimals = m.ShortDecimals
		snap.MinLeverage = m.MinLeverage
		snap.MaxLeverage = m.MaxLeverage
		snap.PoolLongUsd = m.PoolLongUsd
		snap.PoolShortUsd = m.PoolShortUsd
		snap.PoolTokenPrice = m.PoolTokenPrice
		snap.PoolTokenDecimals = m.PoolTokenDecimals
		snap.OpenFeeBps = m.OpenFeeBps
	}

	return snap, nil
}

// ParseOraclePrice converts an oracle price string, scaled to
// 10^(30-decimals), into micros. Decimal string math only; the value never
// passes through a float.
func ParseOraclePrice(raw string, decimals int) (quant.PriceMicros, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, fmt.Errorf("bad oracle price %q: %w", raw, err)
	}
	if d.Sign() < 0 {
		return 0, fmt.Errorf("negative oracle price %q", raw)
	}
	// 10^(30-decimals) scaled -> micros: shift by -(30-decimals)+6.
	micros := d.Shift(int32(decimals) - oraclePriceExponent + quant.QuantDecimals).Truncate(0)
	v := micros.IntPart()
	if !decimal.NewFromInt(v).Equal(micros) {
		return 0, fmt.Errorf("oracle price %q overflows micros", raw)
	}
	return quant.PriceMicros(v), nil
}
