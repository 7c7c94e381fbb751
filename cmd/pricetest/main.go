package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"gmx_go/internal/domain"
	"gmx_go/internal/infra/gmx"
)

// Smoke-tests the oracle API on both chains: ping, tokens, tickers,
// signed prices, candles.
// Every price stays int64 micros end to end.
func main() {
	fmt.Println("=== gmx-go Oracle Price Fetcher ===")
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	failed := false
	for _, chain := range []domain.Chain{domain.ChainArbitrum, domain.ChainAvalanche} {
		if !checkChain(ctx, chain) {
			failed = true
		}
	}

	if failed {
		os.Exit(1)
	}
	fmt.Println("✅ All prices handled as int64 micros, no float64 in sight.")
}

func checkChain(ctx context.Context, chain domain.Chain) bool {
	fmt.Printf("📊 %s (chain id %d)\n", chain, chain.ChainID())
	client := gmx.NewClient(chain, "", 10*time.Second, 0)

	if err := client.Ping(ctx); err != nil {
		fmt.Printf("   ping: FAILED (%v)\n\n", err)
		return false
	}
	fmt.Println("   ping: ok")

	tokens, err := client.Tokens(ctx)
	if err != nil {
		fmt.Printf("   tokens: FAILED (%v)\n\n", err)
		return false
	}
	fmt.Printf("   tokens: %d registered upstream\n", len(tokens))

	tickers, err := client.Tickers(ctx)
	if err != nil {
		fmt.Printf("   tickers: FAILED (%v)\n\n", err)
		return false
	}
	for _, symbol := range []string{"ETH", "BTC", "USDC"} {
		q, ok := tickers[symbol]
		if !ok {
			fmt.Printf("   %-5s no quote\n", symbol)
			continue
		}
		fmt.Printf("   %-5s mid=%d micros ($%s)  spread=[%s, %s]\n",
			symbol, q.MidMicros, q.MidMicros, q.MinMicros, q.MaxMicros)
	}

	signed, err := client.SignedPrices(ctx)
	if err != nil {
		fmt.Printf("   signed prices: FAILED (%v)\n\n", err)
		return false
	}
	if q, ok := signed["ETH"]; ok {
		fmt.Printf("   ETH signed spread=[%s, %s]\n", q.MinMicros, q.MaxMicros)
	}

	candles, err := client.Candles(ctx, "ETH", "1h", 3)
	if err != nil {
		fmt.Printf("   candles: FAILED (%v)\n\n", err)
		return false
	}
	for _, c := range candles {
		fmt.Printf("   ETH 1h @%d  o=%s h=%s l=%s c=%s\n",
			c.TsUnix, c.Open, c.High, c.Low, c.Close)
	}

	fmt.Println()
	return true
}
