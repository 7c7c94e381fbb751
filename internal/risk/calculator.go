// Package risk computes leverage, liquidation, margin, and price-impact
// figures for trade intents. Every function is pure fixed-point int64 math:
// no floats, no I/O, no clock. Identical inputs produce identical outputs.
package risk

import (
	"gmx_go/internal/domain"
	"gmx_go/pkg/quant"
	"gmx_go/pkg/safe"
)

// Params are the tunable constants of the risk math, injected from config.
type Params struct {
	// MaintenanceMarginRate is the fraction of position size that must
	// remain as margin before liquidation.
	MaintenanceMarginRate quant.FracMicros

	// PriceImpactCap saturates the impact estimate for thin pools.
	PriceImpactCap quant.FracMicros
}

// DeriveLeverage returns size/collateral. Fails on collateral <= 0.
func DeriveLeverage(sizeUsd, collateralUsd quant.UsdMicros) (quant.LeverageMicros, error) {
	if collateralUsd <= 0 {
		return 0, domain.Reasonf(domain.ReasonInvalidCollateral,
			"collateral must be positive, got %s USD", collateralUsd)
	}
	if sizeUsd <= 0 {
		return 0, domain.Reasonf(domain.ReasonInvalidIntent,
			"position size must be positive, got %s USD", sizeUsd)
	}
	return quant.LeverageMicros(safe.MulDiv(int64(sizeUsd), quant.Scale, int64(collateralUsd))), nil
}

// RequiredCollateral returns size/leverage, the collateral a position of the
// given size needs at the given leverage.
func RequiredCollateral(sizeUsd quant.UsdMicros, leverage quant.LeverageMicros) (quant.UsdMicros, error) {
	if leverage <= 0 {
		return 0, domain.Reasonf(domain.ReasonInvalidIntent,
			"leverage must be positive, got %s", leverage)
	}
	return quant.UsdMicros(safe.MulDiv(int64(sizeUsd), quant.Scale, int64(leverage))), nil
}

// LiquidationPrice estimates the oracle price at which the position's margin
// is fully consumed.
//
//	long:  entry * (1 - 1/leverage + mmr)
//	short: entry * (1 + 1/leverage - mmr)
//
// Longs lose value as price falls, shorts as price rises; the sign of the
// 1/leverage term reflects that.
func LiquidationPrice(entry quant.PriceMicros, leverage quant.LeverageMicros, dir domain.Direction, mmr quant.FracMicros) (quant.PriceMicros, error) {
	if leverage <= 0 {
		return 0, domain.Reasonf(domain.ReasonInvalidIntent,
			"leverage must be positive, got %s", leverage)
	}
	if entry <= 0 {
		return 0, domain.Reasonf(domain.ReasonDataUnavailable,
			"entry price must be positive, got %s", entry)
	}

	invLeverage := safe.MulDiv(quant.Scale, quant.Scale, int64(leverage))

	var factor int64
	if dir == domain.DirectionLong {
		factor = safe.Add(safe.Sub(quant.Scale, invLeverage), int64(mmr))
		if factor < 0 {
			factor = 0 // 1x or below with tiny mmr: cannot be liquidated by price alone
		}
	} else {
		factor = safe.Sub(safe.Add(quant.Scale, invLeverage), int64(mmr))
	}

	return quant.PriceMicros(safe.MulDiv(int64(entry), factor, quant.Scale)), nil
}

// MarginRatio returns collateral/size as a fraction.
func MarginRatio(sizeUsd, collateralUsd quant.UsdMicros) (quant.FracMicros, error) {
	if sizeUsd <= 0 {
		return 0, domain.Reasonf(domain.ReasonInvalidIntent,
			"position size must be positive, got %s USD", sizeUsd)
	}
	if collateralUsd < 0 {
		return 0, domain.Reasonf(domain.ReasonInvalidCollateral,
			"collateral must fit in [0, size], got %s USD", collateralUsd)
	}
	return quant.FracMicros(safe.MulDiv(int64(collateralUsd), quant.Scale, int64(sizeUsd))), nil
}

// PriceImpact estimates execution price degradation as a fraction of the
// trade. Monotonically increasing in size, decreasing in liquidity, and
// saturating at cap instead of diverging for thin pools:
//
//	impact = cap * size / (size + liquidity)
func PriceImpact(sizeUsd, poolLiquidityUsd quant.UsdMicros, cap quant.FracMicros) quant.FracMicros {
	if sizeUsd <= 0 || cap <= 0 {
		return 0
	}
	if poolLiquidityUsd <= 0 {
		return cap
	}
	denom := safe.Add(int64(sizeUsd), int64(poolLiquidityUsd))
	return quant.FracMicros(safe.MulDiv(int64(cap), int64(sizeUsd), denom))
}

// ValidateBounds reports whether leverage falls within [min, max].
// A zero max means the market imposes no upper bound.
func ValidateBounds(leverage, minLeverage, maxLeverage quant.LeverageMicros) bool {
	if leverage < minLeverage {
		return false
	}
	if maxLeverage > 0 && leverage > maxLeverage {
		return false
	}
	return true
}

// OpenCost is the estimated USD cost of opening a position.
type OpenCost struct {
	OpenFeeUsd     quant.UsdMicros
	PriceImpactUsd quant.UsdMicros
	GasUsd         quant.UsdMicros
	TotalUsd       quant.UsdMicros
}

// gas estimates per chain, flat USD
var gasEstimate = map[domain.Chain]quant.UsdMicros{
	domain.ChainArbitrum:  15 * quant.Scale,
	domain.ChainAvalanche: 2 * quant.Scale,
}

// EstimateOpenCost totals opening fee, price impact, and a flat per-chain
// gas estimate for a position of the given size.
func EstimateOpenCost(sizeUsd quant.UsdMicros, openFeeBps int64, impact quant.FracMicros, chain domain.Chain) OpenCost {
	fee := quant.UsdMicros(safe.MulDiv(int64(sizeUsd), openFeeBps, 10_000))
	impactUsd := quant.UsdMicros(safe.MulDiv(int64(sizeUsd), int64(impact), quant.Scale))
	gas := gasEstimate[chain]
	return OpenCost{
		OpenFeeUsd:     fee,
		PriceImpactUsd: impactUsd,
		GasUsd:         gas,
		TotalUsd:       fee + impactUsd + gas,
	}
}
