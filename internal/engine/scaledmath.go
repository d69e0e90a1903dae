/*

This file contains the scaled-arithmetic primitive every other part of the
engine is built on. All engine quantities are non-negative integers scaled by
1e18; multiplying two of them always goes through MulDiv so the product is
taken at full width before the divide.

*/

package engine

import (
	"errors"
	"fmt"
	"math/big"

	sdkmath "cosmossdk.io/math"
)

// BpsDenominator is the basis points denominator (100% = 10000 bps).
const BpsDenominator = 10_000

// Scale is the fixed-point scaling factor: a scaled value V represents the
// real number V / 1e18.
var Scale = sdkmath.NewIntWithDecimal(1, 18)

// Error definitions for zero-tolerance error handling
var (
	ErrDivideByZero  = errors.New("division by zero")
	ErrOperandNil    = errors.New("operand is nil")
	ErrNegative      = errors.New("operand is negative")
	ErrResultTooWide = errors.New("result exceeds 256 bits")
	ErrBpsOutOfRange = errors.New("basis points out of range")
)

// MulDiv computes floor(a * b / denom) exactly. The product is taken on
// big.Int so it can never overflow before the divide, whatever the magnitude
// of a and b. Returns ErrDivideByZero when denom is zero; the caller decides
// whether a zero denominator is a defined business outcome or a failure.
func MulDiv(a, b, denom sdkmath.Int) (sdkmath.Int, error) {
	for _, v := range []sdkmath.Int{a, b, denom} {
		if v.IsNil() {
			return sdkmath.ZeroInt(), ErrOperandNil
		}
		if v.IsNegative() {
			return sdkmath.ZeroInt(), fmt.Errorf("%w: %s", ErrNegative, v.String())
		}
	}
	if denom.IsZero() {
		return sdkmath.ZeroInt(), ErrDivideByZero
	}

	product := new(big.Int).Mul(a.BigInt(), b.BigInt())
	quotient := product.Quo(product, denom.BigInt())

	// sdkmath.Int caps out at 256 bits; the quotient can exceed that only if
	// the inputs were already far outside any token-amount range.
	if quotient.BitLen() > sdkmath.MaxBitLen {
		return sdkmath.ZeroInt(), ErrResultTooWide
	}
	return sdkmath.NewIntFromBigInt(quotient), nil
}

// BpsToFraction converts basis points to a 1e18-scaled fraction
// (e.g., 1000 bps -> 0.1 * 1e18). This is the single place the bps/scaled
// duality is crossed; rejects values above 10000.
func BpsToFraction(bps uint64) (sdkmath.Int, error) {
	if bps > BpsDenominator {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %d (must be between 0 and %d)", ErrBpsOutOfRange, bps, BpsDenominator)
	}
	return MulDiv(sdkmath.NewIntFromUint64(bps), Scale, sdkmath.NewInt(BpsDenominator))
}
