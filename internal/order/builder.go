// Package order maps risk-validated intents into canonical OrderDescriptors.
// All descriptor amounts leave this package in base units; the conversion
// from display-scale fixed point happens here exactly once.
package order

import (
	"fmt"

	"github.com/google/uuid"

	"gmx_go/internal/domain"
	"gmx_go/pkg/quant"
	"gmx_go/pkg/safe"
)

// Config are the builder's injected tunables.
type Config struct {
	// DepositImbalanceTolerance is the maximum allowed deviation between
	// the deposit's long-side share and the pool's current long-side share.
	DepositImbalanceTolerance quant.FracMicros

	// DeadlineSeconds is the descriptor validity window, anchored to the
	// snapshot fetch time so identical inputs yield identical deadlines.
	DeadlineSeconds int64
}

// Builder assembles OrderDescriptors. Stateless and safe for concurrent use.
type Builder struct {
	cfg Config
}

// descriptor IDs are name-based UUIDs over the plan inputs, so the same
// intent against the same snapshot reproduces the same descriptor bit for
// bit.
var idNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8") // uuid.NameSpaceDNS

func NewBuilder(cfg Config) *Builder {
	if cfg.DeadlineSeconds <= 0 {
		cfg.DeadlineSeconds = 60
	}
	return &Builder{cfg: cfg}
}

func planID(key string) string {
	return uuid.NewSHA1(idNamespace, []byte(key)).String()
}

func (b *Builder) deadline(snap *domain.MarketSnapshot) int64 {
	return int64(snap.FetchedUnixM)/quant.Scale + b.cfg.DeadlineSeconds
}

// applyFrac scales v by (1 - f), truncating toward zero. The truncation
// direction keeps minimum-output floors at or below the exact value, never
// above: the guard is never looser than the caller's tolerance.
func applyFrac(v int64, f quant.FracMicros) int64 {
	return safe.MulDiv(v, quant.Scale-int64(f), quant.Scale)
}

// collateralToken resolves which token backs a position and its oracle
// price. Long positions post the index asset, shorts post the stable side
// (priced at exactly 1 USD).
func collateralToken(snap *domain.MarketSnapshot, dir domain.Direction) (symbol string, decimals int, price quant.PriceMicros) {
	if dir == domain.DirectionLong {
		return snap.LongCollateralToken, snap.LongCollateralDecimals, snap.PriceMicros
	}
	return snap.ShortCollateralToken, snap.ShortCollateralDecimals, quant.PriceMicros(quant.Scale)
}

// Swap builds a swap descriptor from snapshots of both legs.
//
//	out    = in * priceIn/priceOut * (1 - impact)
//	minOut = out * (1 - slippage)
func (b *Builder) Swap(intent domain.SwapIntent, snapIn, snapOut *domain.MarketSnapshot, profile domain.RiskProfile) (*domain.OrderDescriptor, error) {
	if snapIn.PriceMicros <= 0 || snapOut.PriceMicros <= 0 {
		return nil, domain.Reasonf(domain.ReasonDataUnavailable,
			"missing oracle price for %s/%s", intent.TokenIn, intent.TokenOut)
	}

	valueUsd := safe.MulDiv(int64(intent.AmountIn), int64(snapIn.PriceMicros), quant.Scale)
	outQty := safe.MulDiv(valueUsd, quant.Scale, int64(snapOut.PriceMicros))
	outQty = applyFrac(outQty, profile.PriceImpact)
	minOutQty := applyFrac(outQty, intent.Slippage)

	amountIn, err := quant.ToBaseUnits(intent.AmountIn, snapIn.Decimals)
	if err != nil {
		return nil, fmt.Errorf("convert input amount: %w", err)
	}
	minOut, err := quant.ToBaseUnits(quant.QtyMicros(minOutQty), snapOut.Decimals)
	if err != nil {
		return nil, fmt.Errorf("convert min output: %w", err)
	}

	key := fmt.Sprintf("swap|%s|%s>%s|%d|%d|%d|%d|%d",
		intent.Chain, intent.TokenIn, intent.TokenOut,
		intent.AmountIn, intent.Slippage,
		snapIn.PriceMicros, snapOut.PriceMicros, snapOut.FetchedUnixM)

	return &domain.OrderDescriptor{
		ID:           planID(key),
		Kind:         domain.OrderKindSwap,
		Chain:        intent.Chain,
		Symbol:       intent.TokenOut,
		Mode:         intent.Mode,
		TokenIn:      intent.TokenIn,
		TokenOut:     intent.TokenOut,
		AmountIn:     amountIn,
		MinAmountOut: minOut,
		DeadlineUnix: b.deadline(snapOut),
		Risk:         profile,
		CreatedUnixM: snapOut.FetchedUnixM,
	}, nil
}

// Increase builds a position-opening descriptor. collateralUsd is the
// resolved collateral (explicit or derived from leverage upstream).
// The acceptable entry price moves with slippage against the trader:
// above oracle for longs, below for shorts.
func (b *Builder) Increase(intent domain.IncreaseIntent, snap *domain.MarketSnapshot, collateralUsd quant.UsdMicros, profile domain.RiskProfile) (*domain.OrderDescriptor, error) {
	if snap.PriceMicros <= 0 {
		return nil, domain.Reasonf(domain.ReasonDataUnavailable,
			"missing oracle price for %s", intent.Symbol)
	}

	token, decimals, price := collateralToken(snap, intent.Direction)
	collateralQty := safe.MulDiv(int64(collateralUsd), quant.Scale, int64(price))
	amountIn, err := quant.ToBaseUnits(quant.QtyMicros(collateralQty), decimals)
	if err != nil {
		return nil, fmt.Errorf("convert collateral amount: %w", err)
	}

	var acceptable quant.PriceMicros
	if intent.Direction == domain.DirectionLong {
		acceptable = quant.PriceMicros(safe.MulDiv(int64(snap.PriceMicros), quant.Scale+int64(intent.Slippage), quant.Scale))
	} else {
		acceptable = quant.PriceMicros(applyFrac(int64(snap.PriceMicros), intent.Slippage))
	}

	key := fmt.Sprintf("increase|%s|%s|%s|%d|%d|%d|%d|%d",
		intent.Chain, intent.Symbol, intent.Direction,
		intent.SizeUsd, collateralUsd, intent.Slippage,
		snap.PriceMicros, snap.FetchedUnixM)

	return &domain.OrderDescriptor{
		ID:              planID(key),
		Kind:            domain.OrderKindIncrease,
		Chain:           intent.Chain,
		Symbol:          intent.Symbol,
		Mode:            intent.Mode,
		TokenIn:         token,
		TokenOut:        intent.Symbol,
		AmountIn:        amountIn,
		Direction:       intent.Direction,
		SizeDeltaUsd:    intent.SizeUsd,
		AcceptablePrice: acceptable,
		DeadlineUnix:    b.deadline(snap),
		Risk:            profile,
		CreatedUnixM:    snap.FetchedUnixM,
	}, nil
}

// Decrease builds a partial or full close. Collateral removal defaults to
// the close fraction; an explicit CollateralWithdrawUsd overrides it.
func (b *Builder) Decrease(intent domain.DecreaseIntent, snap *domain.MarketSnapshot, profile domain.RiskProfile) (*domain.OrderDescriptor, error) {
	if intent.CloseFraction <= 0 || intent.CloseFraction > quant.Scale {
		return nil, domain.Reasonf(domain.ReasonOverClose,
			"close fraction %s must be in (0, 1]", intent.CloseFraction)
	}

	closeSizeUsd := quant.UsdMicros(safe.MulDiv(int64(intent.PositionSizeUsd), int64(intent.CloseFraction), quant.Scale))
	if closeSizeUsd <= 0 || closeSizeUsd > intent.PositionSizeUsd {
		return nil, domain.Reasonf(domain.ReasonOverClose,
			"close size %s USD exceeds position %s USD", closeSizeUsd, intent.PositionSizeUsd)
	}

	collateralOutUsd := quant.UsdMicros(safe.MulDiv(int64(intent.PositionCollateralUsd), int64(intent.CloseFraction), quant.Scale))
	if intent.CollateralWithdrawUsd > 0 {
		if intent.CollateralWithdrawUsd > intent.PositionCollateralUsd {
			return nil, domain.Reasonf(domain.ReasonOverClose,
				"collateral withdrawal %s USD exceeds position collateral %s USD",
				intent.CollateralWithdrawUsd, intent.PositionCollateralUsd)
		}
		collateralOutUsd = intent.CollateralWithdrawUsd
	}

	token, decimals, price := collateralToken(snap, intent.Direction)
	outQty := safe.MulDiv(int64(collateralOutUsd), quant.Scale, int64(price))
	minOutQty := applyFrac(outQty, intent.Slippage)
	minOut, err := quant.ToBaseUnits(quant.QtyMicros(minOutQty), decimals)
	if err != nil {
		return nil, fmt.Errorf("convert collateral output: %w", err)
	}

	// Closing a long sells the index: the floor is below oracle. Closing a
	// short buys it back: the cap is above oracle.
	var acceptable quant.PriceMicros
	if intent.Direction == domain.DirectionLong {
		acceptable = quant.PriceMicros(applyFrac(int64(snap.PriceMicros), intent.Slippage))
	} else {
		acceptable = quant.PriceMicros(safe.MulDiv(int64(snap.PriceMicros), quant.Scale+int64(intent.Slippage), quant.Scale))
	}

	key := fmt.Sprintf("decrease|%s|%s|%s|%d|%d|%d|%d|%d|%d",
		intent.Chain, intent.Symbol, intent.Direction,
		intent.PositionSizeUsd, intent.CloseFraction, intent.CollateralWithdrawUsd,
		intent.Slippage, snap.PriceMicros, snap.FetchedUnixM)

	return &domain.OrderDescriptor{
		ID:              planID(key),
		Kind:            domain.OrderKindDecrease,
		Chain:           intent.Chain,
		Symbol:          intent.Symbol,
		Mode:            intent.Mode,
		TokenOut:        token,
		MinAmountOut:    minOut,
		Direction:       intent.Direction,
		SizeDeltaUsd:    closeSizeUsd,
		AcceptablePrice: acceptable,
		DeadlineUnix:    b.deadline(snap),
		Risk:            profile,
		CreatedUnixM:    snap.FetchedUnixM,
	}, nil
}

// Deposit builds a liquidity-add descriptor. The long/short legs must track
// the pool's current composition within the configured tolerance; skewed
// deposits lose value to rebalancing and are rejected instead of corrected.
func (b *Builder) Deposit(intent domain.DepositIntent, snap *domain.MarketSnapshot, profile domain.RiskProfile) (*domain.OrderDescriptor, error) {
	if snap.PoolTokenPrice <= 0 || snap.PoolLiquidityUsd() <= 0 {
		return nil, domain.Reasonf(domain.ReasonDataUnavailable,
			"missing pool pricing for %s", intent.Symbol)
	}

	totalUsd := intent.LongUsd + intent.ShortUsd
	depositLongShare := quant.FracMicros(safe.MulDiv(int64(intent.LongUsd), quant.Scale, int64(totalUsd)))
	poolLongShare := quant.FracMicros(safe.MulDiv(int64(snap.PoolLongUsd), quant.Scale, int64(snap.PoolLiquidityUsd())))

	deviation := depositLongShare - poolLongShare
	if deviation < 0 {
		deviation = -deviation
	}
	if deviation > b.cfg.DepositImbalanceTolerance {
		return nil, domain.Reasonf(domain.ReasonUnbalancedDeposit,
			"deposit long share %s deviates from pool long share %s beyond tolerance %s",
			depositLongShare, poolLongShare, b.cfg.DepositImbalanceTolerance)
	}

	longQty := safe.MulDiv(int64(intent.LongUsd), quant.Scale, int64(snap.PriceMicros))
	longIn, err := quant.ToBaseUnits(quant.QtyMicros(longQty), snap.LongCollateralDecimals)
	if err != nil {
		return nil, fmt.Errorf("convert long leg: %w", err)
	}
	shortIn, err := quant.ToBaseUnits(quant.QtyMicros(intent.ShortUsd), snap.ShortCollateralDecimals)
	if err != nil {
		return nil, fmt.Errorf("convert short leg: %w", err)
	}

	sharesQty := safe.MulDiv(int64(totalUsd), quant.Scale, int64(snap.PoolTokenPrice))
	minSharesQty := applyFrac(sharesQty, intent.Slippage)
	minShares, err := quant.ToBaseUnits(quant.QtyMicros(minSharesQty), snap.PoolTokenDecimals)
	if err != nil {
		return nil, fmt.Errorf("convert pool shares: %w", err)
	}

	key := fmt.Sprintf("deposit|%s|%s|%d|%d|%d|%d|%d",
		intent.Chain, intent.Symbol, intent.LongUsd, intent.ShortUsd,
		intent.Slippage, snap.PoolTokenPrice, snap.FetchedUnixM)

	return &domain.OrderDescriptor{
		ID:                planID(key),
		Kind:              domain.OrderKindDeposit,
		Chain:             intent.Chain,
		Symbol:            intent.Symbol,
		Mode:              intent.Mode,
		TokenIn:           snap.LongCollateralToken,
		AmountIn:          longIn,
		SecondaryTokenIn:  snap.ShortCollateralToken,
		SecondaryAmountIn: shortIn,
		TokenOut:          poolToken(intent.Symbol),
		MinAmountOut:      minShares,
		DeadlineUnix:      b.deadline(snap),
		Risk:              profile,
		CreatedUnixM:      snap.FetchedUnixM,
	}, nil
}

// Withdraw builds a liquidity-removal descriptor, splitting the redeemed
// value across both pool legs at the current composition.
func (b *Builder) Withdraw(intent domain.WithdrawIntent, snap *domain.MarketSnapshot, profile domain.RiskProfile) (*domain.OrderDescriptor, error) {
	if snap.PoolTokenPrice <= 0 || snap.PoolLiquidityUsd() <= 0 || snap.PriceMicros <= 0 {
		return nil, domain.Reasonf(domain.ReasonDataUnavailable,
			"missing pool pricing for %s", intent.Symbol)
	}

	totalUsd := safe.MulDiv(int64(intent.Shares), int64(snap.PoolTokenPrice), quant.Scale)
	longUsd := safe.MulDiv(totalUsd, int64(snap.PoolLongUsd), int64(snap.PoolLiquidityUsd()))
	shortUsd := totalUsd - longUsd

	longQty := safe.MulDiv(longUsd, quant.Scale, int64(snap.PriceMicros))
	minLong, err := quant.ToBaseUnits(quant.QtyMicros(applyFrac(longQty, intent.Slippage)), snap.LongCollateralDecimals)
	if err != nil {
		return nil, fmt.Errorf("convert long output: %w", err)
	}
	minShort, err := quant.ToBaseUnits(quant.QtyMicros(applyFrac(shortUsd, intent.Slippage)), snap.ShortCollateralDecimals)
	if err != nil {
		return nil, fmt.Errorf("convert short output: %w", err)
	}
	shares, err := quant.ToBaseUnits(intent.Shares, snap.PoolTokenDecimals)
	if err != nil {
		return nil, fmt.Errorf("convert shares: %w", err)
	}

	key := fmt.Sprintf("withdraw|%s|%s|%d|%d|%d|%d",
		intent.Chain, intent.Symbol, intent.Shares,
		intent.Slippage, snap.PoolTokenPrice, snap.FetchedUnixM)

	return &domain.OrderDescriptor{
		ID:                planID(key),
		Kind:              domain.OrderKindWithdraw,
		Chain:             intent.Chain,
		Symbol:            intent.Symbol,
		Mode:              intent.Mode,
		TokenIn:           poolToken(intent.Symbol),
		AmountIn:          shares,
		TokenOut:          snap.LongCollateralToken,
		MinAmountOut:      minLong,
		SecondaryTokenOut: snap.ShortCollateralToken,
		MinSecondaryOut:   minShort,
		DeadlineUnix:      b.deadline(snap),
		Risk:              profile,
		CreatedUnixM:      snap.FetchedUnixM,
	}, nil
}

// poolToken names the market's liquidity share token.
func poolToken(symbol string) string {
	return "GM-" + symbol
}
