package domain

import (
	"errors"
	"testing"

	"gmx_go/pkg/quant"
)

func validSwap() SwapIntent {
	return SwapIntent{
		Chain:    ChainArbitrum,
		TokenIn:  "USDC",
		TokenOut: "ETH",
		AmountIn: 1_000_000_000,
		Slippage: 5_000,
	}
}

func TestSwapIntent_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SwapIntent)
		wantErr bool
	}{
		{"Valid", func(i *SwapIntent) {}, false},
		{"ZeroSlippageOK", func(i *SwapIntent) { i.Slippage = 0 }, false},
		{"BadChain", func(i *SwapIntent) { i.Chain = "solana" }, true},
		{"MissingTokenOut", func(i *SwapIntent) { i.TokenOut = "" }, true},
		{"SameToken", func(i *SwapIntent) { i.TokenOut = "USDC" }, true},
		{"ZeroAmount", func(i *SwapIntent) { i.AmountIn = 0 }, true},
		{"NegativeSlippage", func(i *SwapIntent) { i.Slippage = -1 }, true},
		{"FullSlippage", func(i *SwapIntent) { i.Slippage = quant.Scale }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			i := validSwap()
			tt.mutate(&i)
			if err := i.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIncreaseIntent_Validate(t *testing.T) {
	base := IncreaseIntent{
		Chain:         ChainArbitrum,
		Symbol:        "ETH",
		Direction:     DirectionLong,
		SizeUsd:       2_000_000_000,
		CollateralUsd: 1_000_000_000,
		Slippage:      3_000,
	}

	if err := base.Validate(); err != nil {
		t.Fatalf("valid intent rejected: %v", err)
	}

	noFunding := base
	noFunding.CollateralUsd = 0
	if err := noFunding.Validate(); err == nil {
		t.Error("intent without collateral or leverage should be rejected")
	}

	leverageOnly := base
	leverageOnly.CollateralUsd = 0
	leverageOnly.Leverage = 5_000_000
	if err := leverageOnly.Validate(); err != nil {
		t.Errorf("leverage-only intent rejected: %v", err)
	}

	negCollateral := base
	negCollateral.CollateralUsd = -1
	err := negCollateral.Validate()
	if !errors.Is(err, ErrInvalidCollateral) {
		t.Errorf("negative collateral error = %v, want ErrInvalidCollateral", err)
	}

	badDir := base
	badDir.Direction = "SIDEWAYS"
	if err := badDir.Validate(); err == nil {
		t.Error("invalid direction should be rejected")
	}
}

func TestDecreaseIntent_Validate(t *testing.T) {
	base := DecreaseIntent{
		Chain:                 ChainAvalanche,
		Symbol:                "BTC",
		Direction:             DirectionShort,
		PositionSizeUsd:       5_000_000_000,
		PositionCollateralUsd: 1_000_000_000,
		CloseFraction:         500_000,
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid intent rejected: %v", err)
	}

	noPos := base
	noPos.PositionSizeUsd = 0
	if err := noPos.Validate(); err == nil {
		t.Error("zero position size should be rejected")
	}
}

func TestMode_Defaults(t *testing.T) {
	var m Mode
	if m.IsCommit() {
		t.Error("zero-value mode must not be commit")
	}
	if Mode("commit").IsCommit() {
		t.Error("mode matching is exact; lowercase is not an opt-in")
	}
	if !ModeCommit.IsCommit() {
		t.Error("explicit commit mode not recognized")
	}
}
