/*

This file contains the LP valuation routine: it turns a pool snapshot, oracle
prices and a user position into the two USD values the IL calculation
compares. Each price multiplication is divided by Scale before summing so the
rounding profile stays fixed.

*/

package engine

import (
	sdkmath "cosmossdk.io/math"

	"github.com/elys-network/ilshield/internal/types"
)

// UserShare returns the position's fractional ownership of the pool, scaled
// by 1e18 (1e18 = 100%). An empty pool is a legitimate "no pool yet" state
// and yields a zero share rather than a division error.
func UserShare(pool types.PoolState, position types.UserPosition) (sdkmath.Int, error) {
	if pool.LpTotalSupply.IsNil() || pool.LpTotalSupply.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	return MulDiv(position.LpAmount, Scale, pool.LpTotalSupply)
}

// LpValue returns the current USD value of the position: the pro-rata share
// of both reserves priced at the oracle snapshot.
func LpValue(pool types.PoolState, prices types.OraclePrices, position types.UserPosition) (sdkmath.Int, error) {
	valuation, err := Value(pool, prices, position)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	return valuation.LpValue, nil
}

// HoldingValue returns the USD value the user would hold had they kept the
// original deposit instead of providing liquidity.
func HoldingValue(prices types.OraclePrices, position types.UserPosition) (sdkmath.Int, error) {
	valueA, err := MulDiv(position.OriginalA, prices.PriceA, Scale)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	valueB, err := MulDiv(position.OriginalB, prices.PriceB, Scale)
	if err != nil {
		return sdkmath.ZeroInt(), err
	}
	return valueA.Add(valueB), nil
}

// Value computes the full valuation in one pass: share, pro-rata token
// amounts, current LP value and the hypothetical holding value.
func Value(pool types.PoolState, prices types.OraclePrices, position types.UserPosition) (types.Valuation, error) {
	share, err := UserShare(pool, position)
	if err != nil {
		return types.Valuation{}, err
	}

	currentA, err := MulDiv(pool.ReserveA, share, Scale)
	if err != nil {
		return types.Valuation{}, err
	}
	currentB, err := MulDiv(pool.ReserveB, share, Scale)
	if err != nil {
		return types.Valuation{}, err
	}

	valueA, err := MulDiv(currentA, prices.PriceA, Scale)
	if err != nil {
		return types.Valuation{}, err
	}
	valueB, err := MulDiv(currentB, prices.PriceB, Scale)
	if err != nil {
		return types.Valuation{}, err
	}

	holding, err := HoldingValue(prices, position)
	if err != nil {
		return types.Valuation{}, err
	}

	return types.Valuation{
		UserShare:    share,
		CurrentA:     currentA,
		CurrentB:     currentB,
		LpValue:      valueA.Add(valueB),
		HoldingValue: holding,
	}, nil
}
