package domain

import (
	"gmx_go/pkg/quant"
)

// Direction of a perpetual position.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Mode selects the pipeline exit: validation-only or dispatch to the signer.
// The zero value is simulate; commit always requires an explicit opt-in.
type Mode string

const (
	ModeSimulate Mode = "SIMULATE"
	ModeCommit   Mode = "COMMIT"
)

// IsCommit reports whether the caller explicitly opted into execution.
// Empty or unknown values are simulate.
func (m Mode) IsCommit() bool {
	return m == ModeCommit
}

// SwapIntent requests exchanging AmountIn of TokenIn for TokenOut.
// Immutable once submitted to the pipeline.
type SwapIntent struct {
	Chain     Chain
	TokenIn   string
	TokenOut  string
	AmountIn  quant.QtyMicros // quantity of TokenIn, display scale
	Slippage  quant.FracMicros
	Mode      Mode
}

// IncreaseIntent requests opening or growing a leveraged position.
// Leverage is optional; when zero it is derived as size/collateral.
// When Leverage is set and CollateralUsd is zero, the required collateral
// is derived as size/leverage.
type IncreaseIntent struct {
	Chain         Chain
	Symbol        string // index token, e.g. "ETH"
	Direction     Direction
	SizeUsd       quant.UsdMicros
	CollateralUsd quant.UsdMicros
	Leverage      quant.LeverageMicros
	Slippage      quant.FracMicros
	Mode          Mode
}

// DecreaseIntent requests a partial or full close of an existing position.
// CloseFraction is micros-scaled: quant.Scale means full close.
// CollateralWithdrawUsd, when nonzero, overrides the proportional default.
type DecreaseIntent struct {
	Chain                 Chain
	Symbol                string
	Direction             Direction
	PositionSizeUsd       quant.UsdMicros
	PositionCollateralUsd quant.UsdMicros
	CloseFraction         quant.FracMicros
	CollateralWithdrawUsd quant.UsdMicros
	Slippage              quant.FracMicros
	Mode                  Mode
}

// DepositIntent requests adding paired liquidity to a market's pool.
type DepositIntent struct {
	Chain    Chain
	Symbol   string
	LongUsd  quant.UsdMicros
	ShortUsd quant.UsdMicros
	Slippage quant.FracMicros
	Mode     Mode
}

// WithdrawIntent requests redeeming pool shares into the paired assets.
type WithdrawIntent struct {
	Chain    Chain
	Symbol   string
	Shares   quant.QtyMicros
	Slippage quant.FracMicros
	Mode     Mode
}

func validSlippage(s quant.FracMicros) bool {
	return s >= 0 && s < quant.Scale
}

// Validate checks structural intent fields. Market-dependent checks
// (leverage bounds, pool ratios) happen later in the pipeline.
func (i SwapIntent) Validate() error {
	if _, err := ParseChain(string(i.Chain)); err != nil {
		return err
	}
	if i.TokenIn == "" || i.TokenOut == "" {
		return ErrInvalidIntent.withDetail("swap requires both token symbols")
	}
	if i.TokenIn == i.TokenOut {
		return ErrInvalidIntent.withDetail("swap input and output must differ")
	}
	if i.AmountIn <= 0 {
		return ErrInvalidIntent.withDetail("swap amount must be positive")
	}
	if !validSlippage(i.Slippage) {
		return ErrInvalidIntent.withDetail("slippage tolerance must be in [0, 1)")
	}
	return nil
}

// Validate checks structural intent fields.
func (i IncreaseIntent) Validate() error {
	if _, err := ParseChain(string(i.Chain)); err != nil {
		return err
	}
	if i.Symbol == "" {
		return ErrInvalidIntent.withDetail("symbol is required")
	}
	if i.Direction != DirectionLong && i.Direction != DirectionShort {
		return ErrInvalidIntent.withDetail("direction must be LONG or SHORT")
	}
	if i.SizeUsd <= 0 {
		return ErrInvalidIntent.withDetail("position size must be positive")
	}
	if i.CollateralUsd == 0 && i.Leverage == 0 {
		return ErrInvalidIntent.withDetail("either collateral or leverage is required")
	}
	if i.CollateralUsd < 0 {
		return ErrInvalidCollateral.withDetail("collateral must not be negative")
	}
	if i.Leverage < 0 {
		return ErrInvalidIntent.withDetail("leverage must not be negative")
	}
	if !validSlippage(i.Slippage) {
		return ErrInvalidIntent.withDetail("slippage tolerance must be in [0, 1)")
	}
	return nil
}

// Validate checks structural intent fields. Fraction bounds are enforced by
// the order builder so the OverClose rejection carries position context.
func (i DecreaseIntent) Validate() error {
	if _, err := ParseChain(string(i.Chain)); err != nil {
		return err
	}
	if i.Symbol == "" {
		return ErrInvalidIntent.withDetail("symbol is required")
	}
	if i.Direction != DirectionLong && i.Direction != DirectionShort {
		return ErrInvalidIntent.withDetail("direction must be LONG or SHORT")
	}
	if i.PositionSizeUsd <= 0 {
		return ErrInvalidIntent.withDetail("existing position size must be positive")
	}
	if i.PositionCollateralUsd <= 0 {
		return ErrInvalidCollateral.withDetail("existing collateral must be positive")
	}
	if !validSlippage(i.Slippage) {
		return ErrInvalidIntent.withDetail("slippage tolerance must be in [0, 1)")
	}
	return nil
}

// Validate checks structural intent fields.
func (i DepositIntent) Validate() error {
	if _, err := ParseChain(string(i.Chain)); err != nil {
		return err
	}
	if i.Symbol == "" {
		return ErrInvalidIntent.withDetail("symbol is required")
	}
	if i.LongUsd < 0 || i.ShortUsd < 0 {
		return ErrInvalidIntent.withDetail("deposit legs must not be negative")
	}
	if i.LongUsd+i.ShortUsd <= 0 {
		return ErrInvalidIntent.withDetail("deposit must carry positive total value")
	}
	if !validSlippage(i.Slippage) {
		return ErrInvalidIntent.withDetail("slippage tolerance must be in [0, 1)")
	}
	return nil
}

// Validate checks structural intent fields.
func (i WithdrawIntent) Validate() error {
	if _, err := ParseChain(string(i.Chain)); err != nil {
		return err
	}
	if i.Symbol == "" {
		return ErrInvalidIntent.withDetail("symbol is required")
	}
	if i.Shares <= 0 {
		return ErrInvalidIntent.withDetail("share amount must be positive")
	}
	if !validSlippage(i.Slippage) {
		return ErrInvalidIntent.withDetail("slippage tolerance must be in [0, 1)")
	}
	return nil
}
