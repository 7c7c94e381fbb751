package execution

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"gmx_go/internal/domain"
)

func bigFromString(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		t.Fatalf("bad big.Int literal %q", s)
	}
	return v
}

func TestPaperSigner_SwapMovesBalances(t *testing.T) {
	p := NewPaperSigner()
	p.Fund("USDC", big.NewInt(2_000_000_000)) // 2000 USDC

	res, err := p.Submit(context.Background(), &domain.OrderDescriptor{
		ID:           "plan-1",
		Kind:         domain.OrderKindSwap,
		Symbol:       "ETH",
		TokenIn:      "USDC",
		AmountIn:     big.NewInt(1_000_000_000), // 1000 USDC
		TokenOut:     "ETH",
		MinAmountOut: bigFromString(t, "497500000000000000"), // 0.4975 ETH
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !res.Success || res.TxRef != "paper-1" {
		t.Errorf("result = %+v", res)
	}

	if got := p.Balance("USDC"); got.Int64() != 1_000_000_000 {
		t.Errorf("USDC balance = %s, want 1000000000", got)
	}
	if got := p.Balance("ETH"); got.Cmp(bigFromString(t, "497500000000000000")) != 0 {
		t.Errorf("ETH balance = %s", got)
	}
	if fills := p.Fills(); len(fills) != 1 || fills[0].OrderID != "plan-1" {
		t.Errorf("fills = %+v", fills)
	}
}

func TestPaperSigner_InsufficientBalance(t *testing.T) {
	p := NewPaperSigner()
	p.Fund("USDC", big.NewInt(500_000_000)) // 500 USDC

	_, err := p.Submit(context.Background(), &domain.OrderDescriptor{
		ID:       "plan-1",
		Kind:     domain.OrderKindSwap,
		TokenIn:  "USDC",
		AmountIn: big.NewInt(1_000_000_000),
		TokenOut: "ETH",
	})
	if err == nil {
		t.Fatal("expected insufficient balance error")
	}
	if !strings.Contains(err.Error(), "insufficient USDC") {
		t.Errorf("err = %v", err)
	}
	// Failed submission must leave balances untouched.
	if got := p.Balance("USDC"); got.Int64() != 500_000_000 {
		t.Errorf("USDC balance = %s, want 500000000", got)
	}
	if len(p.Fills()) != 0 {
		t.Error("failed submission recorded a fill")
	}
}

func TestPaperSigner_DepositDebitsBothLegs(t *testing.T) {
	p := NewPaperSigner()
	p.Fund("ETH", bigFromString(t, "1000000000000000000")) // 1 ETH
	p.Fund("USDC", big.NewInt(2_000_000_000))

	_, err := p.Submit(context.Background(), &domain.OrderDescriptor{
		ID:                "plan-1",
		Kind:              domain.OrderKindDeposit,
		Symbol:            "ETH",
		TokenIn:           "ETH",
		AmountIn:          bigFromString(t, "500000000000000000"), // 0.5 ETH
		SecondaryTokenIn:  "USDC",
		SecondaryAmountIn: big.NewInt(1_000_000_000),
		TokenOut:          "GM-ETH",
		MinAmountOut:      bigFromString(t, "1590000000000000000000"),
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got := p.Balance("ETH"); got.Cmp(bigFromString(t, "500000000000000000")) != 0 {
		t.Errorf("ETH balance = %s", got)
	}
	if got := p.Balance("USDC"); got.Int64() != 1_000_000_000 {
		t.Errorf("USDC balance = %s", got)
	}
	if got := p.Balance("GM-ETH"); got.Cmp(bigFromString(t, "1590000000000000000000")) != 0 {
		t.Errorf("GM-ETH balance = %s", got)
	}
}

// A deposit short on its second leg must not debit the first.
func TestPaperSigner_DepositAtomicOnSecondLegShortfall(t *testing.T) {
	p := NewPaperSigner()
	p.Fund("ETH", bigFromString(t, "1000000000000000000"))
	// No USDC funded.

	_, err := p.Submit(context.Background(), &domain.OrderDescriptor{
		ID:                "plan-1",
		Kind:              domain.OrderKindDeposit,
		TokenIn:           "ETH",
		AmountIn:          bigFromString(t, "500000000000000000"),
		SecondaryTokenIn:  "USDC",
		SecondaryAmountIn: big.NewInt(1_000_000_000),
		TokenOut:          "GM-ETH",
	})
	if err == nil {
		t.Fatal("expected insufficient balance error")
	}
	if got := p.Balance("ETH"); got.Cmp(bigFromString(t, "1000000000000000000")) != 0 {
		t.Errorf("ETH balance = %s, want untouched", got)
	}
}

func TestPaperSigner_WithdrawCreditsBothLegs(t *testing.T) {
	p := NewPaperSigner()
	p.Fund("GM-ETH", bigFromString(t, "2000000000000000000000")) // 2000 shares

	_, err := p.Submit(context.Background(), &domain.OrderDescriptor{
		ID:                "plan-1",
		Kind:              domain.OrderKindWithdraw,
		Symbol:            "ETH",
		TokenIn:           "GM-ETH",
		AmountIn:          bigFromString(t, "2000000000000000000000"),
		TokenOut:          "ETH",
		MinAmountOut:      bigFromString(t, "746250000000000000"), // 0.74625 ETH
		SecondaryTokenOut: "USDC",
		MinSecondaryOut:   big.NewInt(995_000_000),
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got := p.Balance("GM-ETH"); got.Sign() != 0 {
		t.Errorf("GM-ETH balance = %s, want 0", got)
	}
	if got := p.Balance("ETH"); got.Cmp(bigFromString(t, "746250000000000000")) != 0 {
		t.Errorf("ETH balance = %s", got)
	}
	if got := p.Balance("USDC"); got.Int64() != 995_000_000 {
		t.Errorf("USDC balance = %s", got)
	}
}

func TestPaperSigner_SequentialTxRefs(t *testing.T) {
	p := NewPaperSigner()
	p.Fund("USDC", big.NewInt(10_000_000_000))

	for i, want := range []string{"paper-1", "paper-2", "paper-3"} {
		res, err := p.Submit(context.Background(), &domain.OrderDescriptor{
			ID:       "plan",
			Kind:     domain.OrderKindSwap,
			TokenIn:  "USDC",
			AmountIn: big.NewInt(1_000_000),
			TokenOut: "ETH",
		})
		if err != nil {
			t.Fatalf("Submit %d: %v", i, err)
		}
		if res.TxRef != want {
			t.Errorf("TxRef = %s, want %s", res.TxRef, want)
		}
	}
}
