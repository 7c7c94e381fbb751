package order

import (
	"errors"
	"math/big"
	"reflect"
	"testing"

	"gmx_go/internal/domain"
	"gmx_go/pkg/quant"
)

func testBuilder() *Builder {
	return NewBuilder(Config{
		DepositImbalanceTolerance: 50_000, // 5%
		DeadlineSeconds:           60,
	})
}

func usdcSnapshot() *domain.MarketSnapshot {
	return &domain.MarketSnapshot{
		Chain:        domain.ChainArbitrum,
		Symbol:       "USDC",
		PriceMicros:  1_000_000,
		Decimals:     6,
		FetchedUnixM: 1_700_000_000_000_000,
	}
}

func ethSnapshot() *domain.MarketSnapshot {
	return &domain.MarketSnapshot{
		Chain:                   domain.ChainArbitrum,
		Symbol:                  "ETH",
		PriceMicros:             2_000_000_000, // $2000
		Decimals:                18,
		LongCollateralToken:     "ETH",
		LongCollateralDecimals:  18,
		ShortCollateralToken:    "USDC",
		ShortCollateralDecimals: 6,
		MinLeverage:             1_100_000,
		MaxLeverage:             10_000_000,
		PoolLongUsd:             60_000_000_000_000, // $60M
		PoolShortUsd:            40_000_000_000_000, // $40M
		PoolTokenPrice:          1_250_000,          // $1.25 per share
		PoolTokenDecimals:       18,
		OpenFeeBps:              6,
		FetchedUnixM:            1_700_000_000_000_000,
	}
}

// Swap 1000 USDC -> ETH at $2000, slippage 0.5%, no price impact:
// expected minOutput 0.4975 ETH.
func TestSwap_ScenarioA(t *testing.T) {
	b := testBuilder()
	intent := domain.SwapIntent{
		Chain:    domain.ChainArbitrum,
		TokenIn:  "USDC",
		TokenOut: "ETH",
		AmountIn: 1_000_000_000, // 1000 USDC
		Slippage: 5_000,         // 0.5%
	}

	desc, err := b.Swap(intent, usdcSnapshot(), ethSnapshot(), domain.RiskProfile{})
	if err != nil {
		t.Fatalf("Swap: %v", err)
	}

	wantMinOut, _ := new(big.Int).SetString("497500000000000000", 10) // 0.4975 ETH in wei
	if desc.MinAmountOut.Cmp(wantMinOut) != 0 {
		t.Errorf("MinAmountOut = %s, want %s", desc.MinAmountOut, wantMinOut)
	}
	wantIn := big.NewInt(1_000_000_000) // 1000 USDC, 6 decimals
	if desc.AmountIn.Cmp(wantIn) != 0 {
		t.Errorf("AmountIn = %s, want %s", desc.AmountIn, wantIn)
	}
	if desc.Mode.IsCommit() {
		t.Error("mode must default to simulate")
	}
	if desc.DeadlineUnix != 1_700_000_000+60 {
		t.Errorf("DeadlineUnix = %d", desc.DeadlineUnix)
	}
}

// minOutput / (1 - slippage) recovers the estimated output within one
// base-unit rounding step.
func TestSwap_MinOutputRoundTrip(t *testing.T) {
	b := testBuilder()
	slippage := quant.FracMicros(5_000)
	intent := domain.SwapIntent{
		Chain:    domain.ChainArbitrum,
		TokenIn:  "USDC",
		TokenOut: "ETH",
		AmountIn: 1_234_560_000,
		Slippage: slippage,
	}

	desc, err := b.Swap(intent, usdcSnapshot(), ethSnapshot(), domain.RiskProfile{})
	if err != nil {
		t.Fatal(err)
	}

	// Recover output = minOut * Scale / (Scale - slippage).
	recovered := new(big.Int).Mul(desc.MinAmountOut, big.NewInt(quant.Scale))
	recovered.Quo(recovered, big.NewInt(quant.Scale-int64(slippage)))

	// Estimated output before the slippage floor: 1234.56 / 2000 ETH.
	estimated, _ := quant.ToBaseUnits(617_280, 18)

	diff := new(big.Int).Sub(recovered, estimated)
	diff.Abs(diff)
	// One micros step at 18 decimals.
	if diff.Cmp(big.NewInt(1_000_000_000_000)) > 0 {
		t.Errorf("round trip off by %s base units", diff)
	}
}

func TestSwap_PriceImpactTightensOutput(t *testing.T) {
	b := testBuilder()
	intent := domain.SwapIntent{
		Chain:    domain.ChainArbitrum,
		TokenIn:  "USDC",
		TokenOut: "ETH",
		AmountIn: 1_000_000_000,
		Slippage: 5_000,
	}

	clean, err := b.Swap(intent, usdcSnapshot(), ethSnapshot(), domain.RiskProfile{})
	if err != nil {
		t.Fatal(err)
	}
	impacted, err := b.Swap(intent, usdcSnapshot(), ethSnapshot(), domain.RiskProfile{PriceImpact: 10_000})
	if err != nil {
		t.Fatal(err)
	}
	if impacted.MinAmountOut.Cmp(clean.MinAmountOut) >= 0 {
		t.Error("price impact must reduce the output floor")
	}
}

func TestSwap_Idempotent(t *testing.T) {
	b := testBuilder()
	intent := domain.SwapIntent{
		Chain:    domain.ChainArbitrum,
		TokenIn:  "USDC",
		TokenOut: "ETH",
		AmountIn: 1_000_000_000,
		Slippage: 5_000,
	}

	a, err := b.Swap(intent, usdcSnapshot(), ethSnapshot(), domain.RiskProfile{})
	if err != nil {
		t.Fatal(err)
	}
	c, err := b.Swap(intent, usdcSnapshot(), ethSnapshot(), domain.RiskProfile{})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a, c) {
		t.Errorf("identical inputs produced different descriptors:\n%+v\n%+v", a, c)
	}
	if a.ID != c.ID {
		t.Errorf("descriptor IDs differ: %s vs %s", a.ID, c.ID)
	}
}

func TestIncrease_LongCollateralRouting(t *testing.T) {
	b := testBuilder()
	intent := domain.IncreaseIntent{
		Chain:         domain.ChainArbitrum,
		Symbol:        "ETH",
		Direction:     domain.DirectionLong,
		SizeUsd:       2_000_000_000, // $2000
		CollateralUsd: 1_000_000_000, // $1000
		Slippage:      3_000,         // 0.3%
	}

	desc, err := b.Increase(intent, ethSnapshot(), intent.CollateralUsd, domain.RiskProfile{Leverage: 2_000_000})
	if err != nil {
		t.Fatal(err)
	}

	if desc.TokenIn != "ETH" {
		t.Errorf("long collateral token = %s, want ETH", desc.TokenIn)
	}
	// $1000 of ETH at $2000 = 0.5 ETH in wei.
	wantIn, _ := new(big.Int).SetString("500000000000000000", 10)
	if desc.AmountIn.Cmp(wantIn) != 0 {
		t.Errorf("AmountIn = %s, want %s", desc.AmountIn, wantIn)
	}
	// Long acceptable price sits above oracle: 2000 * 1.003.
	if desc.AcceptablePrice != 2_006_000_000 {
		t.Errorf("AcceptablePrice = %s", desc.AcceptablePrice)
	}
	if desc.SizeDeltaUsd != intent.SizeUsd {
		t.Errorf("SizeDeltaUsd = %s", desc.SizeDeltaUsd)
	}
}

func TestIncrease_ShortUsesStableCollateral(t *testing.T) {
	b := testBuilder()
	intent := domain.IncreaseIntent{
		Chain:         domain.ChainArbitrum,
		Symbol:        "ETH",
		Direction:     domain.DirectionShort,
		SizeUsd:       2_000_000_000,
		CollateralUsd: 1_000_000_000,
		Slippage:      3_000,
	}

	desc, err := b.Increase(intent, ethSnapshot(), intent.CollateralUsd, domain.RiskProfile{Leverage: 2_000_000})
	if err != nil {
		t.Fatal(err)
	}
	if desc.TokenIn != "USDC" {
		t.Errorf("short collateral token = %s, want USDC", desc.TokenIn)
	}
	// $1000 USDC at 6 decimals.
	if desc.AmountIn.Cmp(big.NewInt(1_000_000_000)) != 0 {
		t.Errorf("AmountIn = %s", desc.AmountIn)
	}
	// Short acceptable price sits below oracle.
	if desc.AcceptablePrice >= 2_000_000_000 {
		t.Errorf("short AcceptablePrice = %s, want below oracle", desc.AcceptablePrice)
	}
}

func TestDecrease_OverClose(t *testing.T) {
	b := testBuilder()
	intent := domain.DecreaseIntent{
		Chain:                 domain.ChainArbitrum,
		Symbol:                "ETH",
		Direction:             domain.DirectionLong,
		PositionSizeUsd:       2_000_000_000,
		PositionCollateralUsd: 1_000_000_000,
		CloseFraction:         1_500_000, // 1.5
	}

	_, err := b.Decrease(intent, ethSnapshot(), domain.RiskProfile{})
	if !errors.Is(err, domain.ErrOverClose) {
		t.Errorf("error = %v, want ErrOverClose", err)
	}
}

func TestDecrease_ProportionalDefault(t *testing.T) {
	b := testBuilder()
	intent := domain.DecreaseIntent{
		Chain:                 domain.ChainArbitrum,
		Symbol:                "ETH",
		Direction:             domain.DirectionLong,
		PositionSizeUsd:       2_000_000_000,
		PositionCollateralUsd: 1_000_000_000,
		CloseFraction:         500_000, // 50%
	}

	desc, err := b.Decrease(intent, ethSnapshot(), domain.RiskProfile{})
	if err != nil {
		t.Fatal(err)
	}
	if desc.SizeDeltaUsd != 1_000_000_000 {
		t.Errorf("SizeDeltaUsd = %s, want $1000", desc.SizeDeltaUsd)
	}
	// Half the collateral ($500) in ETH at $2000 = 0.25 ETH.
	wantOut, _ := new(big.Int).SetString("250000000000000000", 10)
	if desc.MinAmountOut.Cmp(wantOut) != 0 {
		t.Errorf("MinAmountOut = %s, want %s (no slippage set)", desc.MinAmountOut, wantOut)
	}
}

func TestDecrease_ExplicitCollateralOverride(t *testing.T) {
	b := testBuilder()
	intent := domain.DecreaseIntent{
		Chain:                 domain.ChainArbitrum,
		Symbol:                "ETH",
		Direction:             domain.DirectionShort,
		PositionSizeUsd:       2_000_000_000,
		PositionCollateralUsd: 1_000_000_000,
		CloseFraction:         500_000,
		CollateralWithdrawUsd: 200_000_000, // $200 overrides the $500 default
	}

	desc, err := b.Decrease(intent, ethSnapshot(), domain.RiskProfile{})
	if err != nil {
		t.Fatal(err)
	}
	// $200 USDC at 6 decimals.
	if desc.MinAmountOut.Cmp(big.NewInt(200_000_000)) != 0 {
		t.Errorf("MinAmountOut = %s, want 200000000", desc.MinAmountOut)
	}

	tooMuch := intent
	tooMuch.CollateralWithdrawUsd = 2_000_000_000
	if _, err := b.Decrease(tooMuch, ethSnapshot(), domain.RiskProfile{}); !errors.Is(err, domain.ErrOverClose) {
		t.Errorf("excess withdrawal error = %v, want ErrOverClose", err)
	}
}

func TestDeposit_BalancedAccepted(t *testing.T) {
	b := testBuilder()
	// Pool is 60/40; a matching deposit passes.
	intent := domain.DepositIntent{
		Chain:    domain.ChainArbitrum,
		Symbol:   "ETH",
		LongUsd:  600_000_000, // $600
		ShortUsd: 400_000_000, // $400
		Slippage: 5_000,
	}

	desc, err := b.Deposit(intent, ethSnapshot(), domain.RiskProfile{})
	if err != nil {
		t.Fatal(err)
	}
	if desc.TokenOut != "GM-ETH" {
		t.Errorf("TokenOut = %s", desc.TokenOut)
	}
	// $1000 at $1.25/share = 800 shares; floor 800 * 0.995 = 796.
	wantShares, _ := quant.ToBaseUnits(796_000_000, 18)
	if desc.MinAmountOut.Cmp(wantShares) != 0 {
		t.Errorf("MinAmountOut = %s, want %s", desc.MinAmountOut, wantShares)
	}
	if desc.SecondaryTokenIn != "USDC" {
		t.Errorf("SecondaryTokenIn = %s", desc.SecondaryTokenIn)
	}
}

func TestDeposit_UnbalancedRejected(t *testing.T) {
	b := testBuilder()
	// 50/50 against a 60/40 pool with 5% tolerance: 10% deviation.
	intent := domain.DepositIntent{
		Chain:    domain.ChainArbitrum,
		Symbol:   "ETH",
		LongUsd:  500_000_000,
		ShortUsd: 500_000_000,
	}

	_, err := b.Deposit(intent, ethSnapshot(), domain.RiskProfile{})
	if !errors.Is(err, domain.ErrUnbalancedDeposit) {
		t.Errorf("error = %v, want ErrUnbalancedDeposit", err)
	}
}

func TestWithdraw_SplitsAtPoolRatio(t *testing.T) {
	b := testBuilder()
	intent := domain.WithdrawIntent{
		Chain:  domain.ChainArbitrum,
		Symbol: "ETH",
		Shares: 800_000_000, // 800 shares at $1.25 = $1000
	}

	desc, err := b.Withdraw(intent, ethSnapshot(), domain.RiskProfile{})
	if err != nil {
		t.Fatal(err)
	}
	// $600 long leg in ETH at $2000 = 0.3 ETH.
	wantLong, _ := new(big.Int).SetString("300000000000000000", 10)
	if desc.MinAmountOut.Cmp(wantLong) != 0 {
		t.Errorf("long leg = %s, want %s", desc.MinAmountOut, wantLong)
	}
	// $400 short leg in USDC.
	if desc.MinSecondaryOut.Cmp(big.NewInt(400_000_000)) != 0 {
		t.Errorf("short leg = %s, want 400000000", desc.MinSecondaryOut)
	}
	if desc.TokenIn != "GM-ETH" {
		t.Errorf("TokenIn = %s", desc.TokenIn)
	}
}
