// Package tickerstream maintains a live price monitor over the oracle
// websocket stream. Display and alerting only: the validation pipeline
// always fetches its own fresh snapshot and never reads from here.
package tickerstream

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"gmx_go/internal/domain"
	"gmx_go/internal/infra"
	"gmx_go/internal/infra/gmx"
	"gmx_go/pkg/quant"
)

// Quote is the latest streamed price for one symbol.
type Quote struct {
	Symbol       string
	PriceMicros  quant.PriceMicros
	UpdatedUnixM int64
}

// streamEntry mirrors the REST ticker row shape pushed by the stream.
// json.Number keeps raw price strings out of float64.
type streamEntry struct {
	TokenSymbol string `json:"tokenSymbol"`
	MinPrice    string `json:"minPrice"`
	MaxPrice    string `json:"maxPrice"`
}

// Monitor is a websocket worker tracking a set of symbols on one chain.
type Monitor struct {
	base    *infra.StreamWorker
	chain   domain.Chain
	url     string
	symbols []string
	catalog *gmx.Catalog

	mu     sync.RWMutex
	quotes map[string]Quote
}

// NewMonitor creates a price monitor. symbols must exist in the chain's
// catalog; unknown symbols are ignored on arrival.
func NewMonitor(chain domain.Chain, url string, symbols []string) *Monitor {
	m := &Monitor{
		chain:   chain,
		url:     url,
		symbols: symbols,
		catalog: gmx.Markets(chain),
		quotes:  make(map[string]Quote),
	}
	m.base = infra.NewStreamWorker(m)
	return m
}

// Start begins the connect/read loop. Reconnects with backoff on failure.
func (m *Monitor) Start(ctx context.Context) {
	m.base.Start(ctx)
}

// Stop terminates the stream.
func (m *Monitor) Stop() {
	m.base.Stop()
}

// ID returns the worker identifier.
func (m *Monitor) ID() string { return "GMX-" + string(m.chain) }

// URL returns the stream endpoint.
func (m *Monitor) URL() string { return m.url }

// OnConnect subscribes to price pushes for the tracked symbols.
func (m *Monitor) OnConnect(ctx context.Context, conn *websocket.Conn) error {
	sub := map[string]any{
		"type":   "subscribe",
		"topic":  "prices",
		"tokens": m.symbols,
	}
	b, _ := json.Marshal(sub)
	return m.base.Write(websocket.TextMessage, b)
}

// OnMessage parses a pushed batch of ticker rows and updates the quote map.
func (m *Monitor) OnMessage(ctx context.Context, msg []byte) {
	var entries []streamEntry
	if err := json.Unmarshal(msg, &entries); err != nil {
		return
	}

	now := time.Now().UnixMicro()
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		token, ok := m.catalog.Token(e.TokenSymbol)
		if !ok {
			continue
		}
		minP, err := gmx.ParseOraclePrice(e.MinPrice, token.Decimals)
		if err != nil {
			continue
		}
		maxP, err := gmx.ParseOraclePrice(e.MaxPrice, token.Decimals)
		if err != nil {
			continue
		}
		m.quotes[e.TokenSymbol] = Quote{
			Symbol:       e.TokenSymbol,
			PriceMicros:  (minP + maxP) / 2,
			UpdatedUnixM: now,
		}
	}
}

// OnPing keeps the connection alive.
func (m *Monitor) OnPing(ctx context.Context, conn *websocket.Conn) error {
	return m.base.Write(websocket.PingMessage, nil)
}

// Quote returns the latest streamed price for a symbol.
func (m *Monitor) Quote(symbol string) (Quote, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.quotes[symbol]
	return q, ok
}

// Quotes returns a copy of every tracked quote for display.
func (m *Monitor) Quotes() map[string]Quote {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Quote, len(m.quotes))
	for k, v := range m.quotes {
		out[k] = v
	}
	return out
}
