package risk

import (
	"errors"
	"testing"

	"gmx_go/internal/domain"
	"gmx_go/pkg/quant"
)

func TestDeriveLeverage(t *testing.T) {
	tests := []struct {
		name       string
		size       quant.UsdMicros
		collateral quant.UsdMicros
		want       quant.LeverageMicros
		wantErr    error
	}{
		{"TwoX", 2_000_000_000, 1_000_000_000, 2_000_000, nil},
		{"ExactDivision", 10_000_000_000, 1_000_000_000, 10_000_000, nil},
		{"FractionalLeverage", 3_000_000_000, 2_000_000_000, 1_500_000, nil},
		{"SubOneLeverage", 500_000_000, 1_000_000_000, 500_000, nil},
		{"ZeroCollateral", 1_000_000, 0, 0, domain.ErrInvalidCollateral},
		{"NegativeCollateral", 1_000_000, -5, 0, domain.ErrInvalidCollateral},
		{"ZeroSize", 0, 1_000_000, 0, domain.ErrInvalidIntent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DeriveLeverage(tt.size, tt.collateral)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("leverage = %d, want %d", got, tt.want)
			}
		})
	}
}

// Scenario: size 2000 USD, collateral 1000 USD, maintenance margin 0.5%.
// Expected liquidation at entry * (1 - 0.5 + 0.005) = entry * 0.505.
func TestLiquidationPrice_LongTwoX(t *testing.T) {
	entry := quant.PriceMicros(2_000_000_000) // $2000
	lev := quant.LeverageMicros(2_000_000)
	mmr := quant.FracMicros(5_000) // 0.5%

	got, err := LiquidationPrice(entry, lev, domain.DirectionLong, mmr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := quant.PriceMicros(1_010_000_000) // $1010
	if got != want {
		t.Errorf("liquidation = %s, want %s", got, want)
	}
}

func TestLiquidationPrice_ShortMirrorsLong(t *testing.T) {
	entry := quant.PriceMicros(2_000_000_000)
	lev := quant.LeverageMicros(2_000_000)
	mmr := quant.FracMicros(5_000)

	long, err := LiquidationPrice(entry, lev, domain.DirectionLong, mmr)
	if err != nil {
		t.Fatal(err)
	}
	short, err := LiquidationPrice(entry, lev, domain.DirectionShort, mmr)
	if err != nil {
		t.Fatal(err)
	}

	if short <= entry {
		t.Errorf("short liquidation %s must sit above entry %s", short, entry)
	}
	if long >= entry {
		t.Errorf("long liquidation %s must sit below entry %s", long, entry)
	}
	// Distances from entry are symmetric for the same leverage and mmr.
	if entry-long != short-entry {
		t.Errorf("asymmetric distances: long %d, short %d", entry-long, short-entry)
	}
}

func TestLiquidationPrice_Deterministic(t *testing.T) {
	a, _ := LiquidationPrice(1_234_567, 3_300_000, domain.DirectionShort, 7_500)
	b, _ := LiquidationPrice(1_234_567, 3_300_000, domain.DirectionShort, 7_500)
	if a != b {
		t.Errorf("identical inputs produced %d and %d", a, b)
	}
}

func TestPriceImpact(t *testing.T) {
	cap := quant.FracMicros(50_000) // 5%

	deep := PriceImpact(1_000_000_000, 1_000_000_000_000, cap)
	shallow := PriceImpact(1_000_000_000, 10_000_000_000, cap)
	if deep >= shallow {
		t.Errorf("impact must fall with liquidity: deep=%d shallow=%d", deep, shallow)
	}

	small := PriceImpact(1_000_000_000, 100_000_000_000, cap)
	large := PriceImpact(50_000_000_000, 100_000_000_000, cap)
	if small >= large {
		t.Errorf("impact must rise with size: small=%d large=%d", small, large)
	}

	if got := PriceImpact(1_000_000_000, 0, cap); got != cap {
		t.Errorf("zero liquidity must saturate at cap, got %d", got)
	}
	if got := PriceImpact(1_000_000_000, 1, cap); got > cap {
		t.Errorf("impact %d exceeded cap %d", got, cap)
	}
	if got := PriceImpact(0, 1_000_000, cap); got != 0 {
		t.Errorf("zero size must have zero impact, got %d", got)
	}
}

func TestValidateBounds(t *testing.T) {
	tests := []struct {
		name     string
		lev      quant.LeverageMicros
		min, max quant.LeverageMicros
		want     bool
	}{
		{"Inside", 2_000_000, 1_000_000, 10_000_000, true},
		{"AtMin", 1_000_000, 1_000_000, 10_000_000, true},
		{"AtMax", 10_000_000, 1_000_000, 10_000_000, true},
		{"BelowMin", 900_000, 1_000_000, 10_000_000, false},
		{"AboveMax", 15_000_000, 1_000_000, 10_000_000, false},
		{"NoUpper", 150_000_000, 1_000_000, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateBounds(tt.lev, tt.min, tt.max); got != tt.want {
				t.Errorf("ValidateBounds(%d, %d, %d) = %v, want %v", tt.lev, tt.min, tt.max, got, tt.want)
			}
		})
	}
}

func TestMarginRatio(t *testing.T) {
	got, err := MarginRatio(2_000_000_000, 1_000_000_000)
	if err != nil {
		t.Fatal(err)
	}
	if got != 500_000 {
		t.Errorf("margin ratio = %d, want 500000", got)
	}
	if _, err := MarginRatio(0, 1); err == nil {
		t.Error("zero size must fail")
	}
}

func TestEstimateOpenCost(t *testing.T) {
	// $10,000 position, 6 bps open fee, 0.1% impact, arbitrum gas $15.
	cost := EstimateOpenCost(10_000_000_000, 6, 1_000, domain.ChainArbitrum)

	if cost.OpenFeeUsd != 6_000_000 {
		t.Errorf("open fee = %s, want $6", cost.OpenFeeUsd)
	}
	if cost.PriceImpactUsd != 10_000_000 {
		t.Errorf("impact cost = %s, want $10", cost.PriceImpactUsd)
	}
	if cost.GasUsd != 15_000_000 {
		t.Errorf("gas = %s, want $15", cost.GasUsd)
	}
	if cost.TotalUsd != cost.OpenFeeUsd+cost.PriceImpactUsd+cost.GasUsd {
		t.Error("total must equal the sum of parts")
	}

	avax := EstimateOpenCost(10_000_000_000, 6, 1_000, domain.ChainAvalanche)
	if avax.GasUsd != 2_000_000 {
		t.Errorf("avalanche gas = %s, want $2", avax.GasUsd)
	}
}
