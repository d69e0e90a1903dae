/*
This file contains common utility functions for converting between chain-side
representations (raw base-unit amounts, LegacyDec oracle prices) and the
18-decimal scaled integers the valuation engine works in.
*/

package utils

import (
	"errors"
	"fmt"
	"math"

	sdkmath "cosmossdk.io/math"
)

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidPrecision = errors.New("precision is invalid")
	ErrAmountNil        = errors.New("amount is nil")
	ErrAmountNegative   = errors.New("amount is negative")
	ErrPriceNil         = errors.New("price is nil")
	ErrPriceNegative    = errors.New("price is negative")
	ErrNotFinite        = errors.New("value is not finite")
	ErrConversionFailed = errors.New("conversion failed")
)

// engineDecimals is the fixed-point precision the engine works in.
const engineDecimals = 18

// NormalizeAmount converts a raw on-chain amount with the given token
// precision into an 18-decimal scaled integer (e.g., 1500000 uatom at
// precision 6 becomes 1.5 * 1e18).
func NormalizeAmount(amount sdkmath.Int, precision int) (sdkmath.Int, error) {
	if precision < 0 || precision > engineDecimals {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %d (must be between 0 and %d)", ErrInvalidPrecision, precision, engineDecimals)
	}
	if amount.IsNil() {
		return sdkmath.ZeroInt(), ErrAmountNil
	}
	if amount.IsNegative() {
		return sdkmath.ZeroInt(), ErrAmountNegative
	}

	factor := sdkmath.NewIntWithDecimal(1, engineDecimals-precision)
	return amount.Mul(factor), nil
}

// PriceToScaled converts a LegacyDec USD price (as the oracle reports it)
// into an 18-decimal scaled integer, truncating beyond 18 decimal places.
func PriceToScaled(price sdkmath.LegacyDec) (sdkmath.Int, error) {
	if price.IsNil() {
		return sdkmath.ZeroInt(), ErrPriceNil
	}
	if price.IsNegative() {
		return sdkmath.ZeroInt(), ErrPriceNegative
	}
	return price.MulInt(sdkmath.NewIntWithDecimal(1, engineDecimals)).TruncateInt(), nil
}

// ScaledToFloat64 converts an 18-decimal scaled integer to float64 for
// display and logging only; it must never feed back into engine math.
func ScaledToFloat64(amount sdkmath.Int) (float64, error) {
	if amount.IsNil() {
		return 0, ErrAmountNil
	}
	if amount.IsNegative() {
		return 0, ErrAmountNegative
	}

	decAmount := sdkmath.LegacyNewDecFromInt(amount)
	result := decAmount.QuoInt(sdkmath.NewIntWithDecimal(1, engineDecimals))
	resultFloat, err := result.Float64()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}

	if math.IsNaN(resultFloat) || math.IsInf(resultFloat, 0) {
		return 0, fmt.Errorf("%w: result is %f", ErrNotFinite, resultFloat)
	}

	return resultFloat, nil
}
