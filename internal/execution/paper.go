package execution

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"gmx_go/internal/domain"
)

// Fill is one simulated execution.
type Fill struct {
	OrderID      string
	Kind         domain.OrderKind
	Symbol       string
	TokenIn      string
	TokenOut     string
	TsUnixMicros int64
}

// PaperSigner simulates order execution against virtual token balances.
// Used for pre-production validation: commits succeed or fail on the same
// balance checks a wallet would apply, without touching a chain.
//
// Balances are kept in on-chain base units, so funding amounts must already
// be scaled to each token's decimals. Outputs are credited at the
// descriptor's minimum, the worst fill the order would accept.
type PaperSigner struct {
	mu       sync.Mutex
	balances map[string]*big.Int
	fills    []Fill
	seq      int
}

// NewPaperSigner creates an unfunded paper signer. Seed balances with Fund.
func NewPaperSigner() *PaperSigner {
	return &PaperSigner{balances: make(map[string]*big.Int)}
}

// Fund credits the virtual account with base units of a token.
func (p *PaperSigner) Fund(token string, baseUnits *big.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.credit(token, baseUnits)
}

func (p *PaperSigner) balance(token string) *big.Int {
	b, ok := p.balances[token]
	if !ok {
		b = new(big.Int)
		p.balances[token] = b
	}
	return b
}

func (p *PaperSigner) credit(token string, amount *big.Int) {
	if token == "" || amount == nil {
		return
	}
	b := p.balance(token)
	b.Add(b, amount)
}

func (p *PaperSigner) debit(token string, amount *big.Int) error {
	if token == "" || amount == nil {
		return nil
	}
	b := p.balance(token)
	if b.Cmp(amount) < 0 {
		return fmt.Errorf("insufficient %s balance: need %s, have %s", token, amount, b)
	}
	b.Sub(b, amount)
	return nil
}

// Submit fills the order immediately: input legs are debited, output legs
// credited at the descriptor minimums. Insufficient balance fails the
// submission without partial effects.
func (p *PaperSigner) Submit(_ context.Context, desc *domain.OrderDescriptor) (*domain.ExecutionResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Check both debits before applying either.
	if desc.TokenIn != "" && desc.AmountIn != nil {
		if p.balance(desc.TokenIn).Cmp(desc.AmountIn) < 0 {
			return nil, fmt.Errorf("insufficient %s balance: need %s, have %s",
				desc.TokenIn, desc.AmountIn, p.balance(desc.TokenIn))
		}
	}
	if desc.SecondaryTokenIn != "" && desc.SecondaryAmountIn != nil {
		if p.balance(desc.SecondaryTokenIn).Cmp(desc.SecondaryAmountIn) < 0 {
			return nil, fmt.Errorf("insufficient %s balance: need %s, have %s",
				desc.SecondaryTokenIn, desc.SecondaryAmountIn, p.balance(desc.SecondaryTokenIn))
		}
	}

	if err := p.debit(desc.TokenIn, desc.AmountIn); err != nil {
		return nil, err
	}
	if err := p.debit(desc.SecondaryTokenIn, desc.SecondaryAmountIn); err != nil {
		return nil, err
	}
	p.credit(desc.TokenOut, desc.MinAmountOut)
	p.credit(desc.SecondaryTokenOut, desc.MinSecondaryOut)

	p.seq++
	txRef := fmt.Sprintf("paper-%d", p.seq)
	p.fills = append(p.fills, Fill{
		OrderID:      desc.ID,
		Kind:         desc.Kind,
		Symbol:       desc.Symbol,
		TokenIn:      desc.TokenIn,
		TokenOut:     desc.TokenOut,
		TsUnixMicros: time.Now().UnixMicro(),
	})

	slog.Info("PAPER EXECUTION: order filled",
		slog.String("id", desc.ID),
		slog.String("kind", string(desc.Kind)),
		slog.String("symbol", desc.Symbol),
		slog.String("tx", txRef))

	return &domain.ExecutionResult{Success: true, TxRef: txRef}, nil
}

// Close is a no-op; the paper signer holds no external resources.
func (p *PaperSigner) Close() error { return nil }

// Fills returns a copy of all simulated executions.
func (p *PaperSigner) Fills() []Fill {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Fill, len(p.fills))
	copy(out, p.fills)
	return out
}

// Balance returns the current virtual balance of a token in base units.
func (p *PaperSigner) Balance(token string) *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return new(big.Int).Set(p.balance(token))
}
