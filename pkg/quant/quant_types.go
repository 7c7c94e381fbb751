package quant

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// UsdMicros represents a USD value multiplied by 1,000,000 (10^6).
// E.g., 1.23 USD = 1,230,000 UsdMicros.
type UsdMicros int64

// PriceMicros represents a USD price per token multiplied by 10^6.
type PriceMicros int64

// QtyMicros represents a token quantity multiplied by 10^6.
// Display-scale only; descriptors carry base units (see ToBaseUnits).
type QtyMicros int64

// LeverageMicros represents leverage multiplied by 10^6.
// E.g., 2x = 2,000,000.
type LeverageMicros int64

// FracMicros represents a dimensionless fraction multiplied by 10^6.
// E.g., 0.5% = 5,000.
type FracMicros int64

// TimeStamp represents Unix Microseconds.
type TimeStamp int64

const (
	// Scale is the shared fixed-point denominator (10^6).
	Scale = 1_000_000

	// QuantDecimals is the decimal precision of all micros-scaled types.
	QuantDecimals = 6
)

var (
	// ErrNegativeAmount rejects negative values at base-unit conversion.
	ErrNegativeAmount = errors.New("amount must not be negative")
	// ErrBadDecimals rejects asset decimals outside the supported range.
	ErrBadDecimals = errors.New("asset decimals out of range")
)

// ToUsdMicros converts a float64 (from external input only) to UsdMicros.
func ToUsdMicros(f float64) UsdMicros {
	return UsdMicros(math.Round(f * Scale))
}

// ToPriceMicros converts a float64 (from external input only) to PriceMicros.
func ToPriceMicros(f float64) PriceMicros {
	return PriceMicros(math.Round(f * Scale))
}

// ToFracMicros converts basis points to FracMicros. 1 bp = 100 micros.
func ToFracMicros(bps int64) FracMicros {
	return FracMicros(bps * 100)
}

func (u UsdMicros) String() string      { return fmt.Sprintf("%.6f", float64(u)/Scale) }
func (p PriceMicros) String() string    { return fmt.Sprintf("%.6f", float64(p)/Scale) }
func (q QtyMicros) String() string      { return fmt.Sprintf("%.6f", float64(q)/Scale) }
func (l LeverageMicros) String() string { return fmt.Sprintf("%.2fx", float64(l)/Scale) }
func (f FracMicros) String() string     { return fmt.Sprintf("%.4f%%", float64(f)/Scale*100) }

// ToBaseUnits converts a micros-scaled quantity into the asset's smallest
// indivisible unit given its decimals. This is the single crossing point from
// display-scale fixed point to on-chain integer amounts; callers must not
// convert anywhere else.
//
// decimals >= 6: exact (multiply by 10^(decimals-6)).
// decimals < 6:  truncates toward zero (divide by 10^(6-decimals)).
func ToBaseUnits(q QtyMicros, decimals int) (*big.Int, error) {
	if q < 0 {
		return nil, ErrNegativeAmount
	}
	if decimals < 0 || decimals > 30 {
		return nil, ErrBadDecimals
	}
	v := big.NewInt(int64(q))
	if decimals >= QuantDecimals {
		shift := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals-QuantDecimals)), nil)
		return v.Mul(v, shift), nil
	}
	shift := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(QuantDecimals-decimals)), nil)
	return v.Quo(v, shift), nil
}

// FromBaseUnits converts smallest-unit amounts back to QtyMicros, truncating
// any sub-micro precision. Used for reporting, never for order construction.
func FromBaseUnits(v *big.Int, decimals int) (QtyMicros, error) {
	if v == nil || v.Sign() < 0 {
		return 0, ErrNegativeAmount
	}
	if decimals < 0 || decimals > 30 {
		return 0, ErrBadDecimals
	}
	out := new(big.Int).Set(v)
	if decimals >= QuantDecimals {
		shift := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals-QuantDecimals)), nil)
		out.Quo(out, shift)
	} else {
		shift := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(QuantDecimals-decimals)), nil)
		out.Mul(out, shift)
	}
	if !out.IsInt64() {
		return 0, fmt.Errorf("base units overflow micros scale: %s", v.String())
	}
	return QtyMicros(out.Int64()), nil
}

// ParseUsdMicros parses a decimal string into UsdMicros without float64.
func ParseUsdMicros(s string) (UsdMicros, error) {
	v, err := parseFixedPoint(s, QuantDecimals)
	return UsdMicros(v), err
}

// ParsePriceMicros parses a decimal string into PriceMicros without float64.
func ParsePriceMicros(s string) (PriceMicros, error) {
	v, err := parseFixedPoint(s, QuantDecimals)
	return PriceMicros(v), err
}

// ParseQtyMicros parses a decimal string into QtyMicros without float64.
func ParseQtyMicros(s string) (QtyMicros, error) {
	v, err := parseFixedPoint(s, QuantDecimals)
	return QtyMicros(v), err
}

// parseFixedPoint parses a decimal string into an int64 scaled by 10^decimals.
// Extra fractional precision is truncated toward zero.
// E.g., parseFixedPoint("1.23", 6) -> 1,230,000.
func parseFixedPoint(s string, decimals int) (int64, error) {
	if s == "" {
		return 0, nil
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, errors.New("invalid decimal format: multiple dots")
	}

	integerPart := parts[0]
	fractionalPart := ""
	if len(parts) == 2 {
		fractionalPart = parts[1]
	}

	sign := int64(1)
	switch {
	case strings.HasPrefix(integerPart, "-"):
		sign = -1
		integerPart = integerPart[1:]
	case strings.HasPrefix(integerPart, "+"):
		integerPart = integerPart[1:]
	}

	// Past the single leading sign, both parts are bare digit runs.
	// ParseInt alone would accept a second sign ("--5", "1.-5").
	if !allDigits(integerPart) || !allDigits(fractionalPart) {
		return 0, fmt.Errorf("invalid decimal format: %q", s)
	}
	if integerPart == "" && fractionalPart == "" {
		return 0, fmt.Errorf("invalid decimal format: %q", s)
	}

	intVal := int64(0)
	if integerPart != "" {
		var err error
		intVal, err = strconv.ParseInt(integerPart, 10, 64)
		if err != nil {
			return 0, err
		}
	}

	if len(fractionalPart) > decimals {
		fractionalPart = fractionalPart[:decimals]
	} else {
		fractionalPart += strings.Repeat("0", decimals-len(fractionalPart))
	}

	fracVal, err := strconv.ParseInt(fractionalPart, 10, 64)
	if err != nil {
		return 0, err
	}

	multiplier := int64(1)
	for i := 0; i < decimals; i++ {
		multiplier *= 10
	}

	return sign * (intVal*multiplier + fracVal), nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
