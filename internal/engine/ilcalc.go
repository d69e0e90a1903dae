/*

This file contains the impermanent-loss calculation: the loss fraction of the
hypothetical holding value, scaled by 1e18. The engine never reports a
negative IL; a gain and an empty original deposit both come out as zero.

*/

package engine

import (
	sdkmath "cosmossdk.io/math"
)

// ILFraction returns the loss fraction in [0, 1e18]. Zero when there was no
// original deposit (nothing to measure against) and zero when the position is
// worth at least the deposit. Strictly decreasing in lpValue otherwise, and
// equal to Scale only when lpValue is zero.
func ILFraction(lpValue, holdingValue sdkmath.Int) (sdkmath.Int, error) {
	if lpValue.IsNil() || holdingValue.IsNil() {
		return sdkmath.ZeroInt(), ErrOperandNil
	}
	if lpValue.IsNegative() || holdingValue.IsNegative() {
		return sdkmath.ZeroInt(), ErrNegative
	}
	if holdingValue.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	if lpValue.GTE(holdingValue) {
		return sdkmath.ZeroInt(), nil
	}
	return MulDiv(holdingValue.Sub(lpValue), Scale, holdingValue)
}
