package engine

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/require"
)

func TestUserShareEmptyPool(t *testing.T) {
	snapshot := referenceSnapshot()
	snapshot.Pool.LpTotalSupply = sdkmath.ZeroInt()

	share, err := UserShare(snapshot.Pool, snapshot.Position)
	require.NoError(t, err, "empty pool is a defined zero-share state, not an error")
	require.True(t, share.IsZero())
}

func TestUserShareFullOwnership(t *testing.T) {
	snapshot := referenceSnapshot()
	snapshot.Position.LpAmount = snapshot.Pool.LpTotalSupply

	share, err := UserShare(snapshot.Pool, snapshot.Position)
	require.NoError(t, err)
	require.Equal(t, Scale, share, "owning the whole supply should be exactly 100%")
}

func TestUserShareReferenceScenario(t *testing.T) {
	snapshot := referenceSnapshot()

	share, err := UserShare(snapshot.Pool, snapshot.Position)
	require.NoError(t, err)
	// 1000 / 1,000,000 = 0.1% = 1e15 scaled
	require.Equal(t, sdkmath.NewIntWithDecimal(1, 15), share)
}

func TestUserShareAboveFullSupply(t *testing.T) {
	// lpAmount > lpTotalSupply is the upstream bookkeeper's bug, but the
	// engine must stay defined: the share simply exceeds 100%.
	snapshot := referenceSnapshot()
	snapshot.Position.LpAmount = snapshot.Pool.LpTotalSupply.MulRaw(2)

	share, err := UserShare(snapshot.Pool, snapshot.Position)
	require.NoError(t, err)
	require.Equal(t, Scale.MulRaw(2), share)
}

func TestValueReferenceScenario(t *testing.T) {
	snapshot := referenceSnapshot()

	valuation, err := Value(snapshot.Pool, snapshot.Prices, snapshot.Position)
	require.NoError(t, err)

	// 0.1% of 500 ETH = 0.5 ETH, 0.1% of 1M USDC = 1000 USDC.
	require.Equal(t, Scale.QuoRaw(2), valuation.CurrentA)
	require.Equal(t, scaled(1000), valuation.CurrentB)

	// 0.5 ETH * $2000 + 1000 USDC * $1 = $2000.
	require.Equal(t, scaled(2000), valuation.LpValue)

	// 1 ETH * $2000 + 2000 USDC * $1 = $4000.
	require.Equal(t, scaled(4000), valuation.HoldingValue)
}

func TestHoldingValueZeroDeposit(t *testing.T) {
	snapshot := referenceSnapshot()
	snapshot.Position.OriginalA = sdkmath.ZeroInt()
	snapshot.Position.OriginalB = sdkmath.ZeroInt()

	holding, err := HoldingValue(snapshot.Prices, snapshot.Position)
	require.NoError(t, err)
	require.True(t, holding.IsZero())
}

func TestLpValueMatchesValuation(t *testing.T) {
	snapshot := referenceSnapshot()

	lpValue, err := LpValue(snapshot.Pool, snapshot.Prices, snapshot.Position)
	require.NoError(t, err)

	valuation, err := Value(snapshot.Pool, snapshot.Prices, snapshot.Position)
	require.NoError(t, err)
	require.Equal(t, valuation.LpValue, lpValue)
}

func TestValuePerTokenRounding(t *testing.T) {
	// Each price multiplication is divided by Scale before summing. With a
	// price of 1 wei the per-token conversions truncate to zero individually,
	// which pins the per-term rounding profile.
	snapshot := referenceSnapshot()
	snapshot.Prices.PriceA = sdkmath.NewInt(1)
	snapshot.Prices.PriceB = sdkmath.NewInt(1)
	snapshot.Position.OriginalA = sdkmath.NewInt(1)
	snapshot.Position.OriginalB = sdkmath.NewInt(1)

	holding, err := HoldingValue(snapshot.Prices, snapshot.Position)
	require.NoError(t, err)
	require.True(t, holding.IsZero(), "1 wei * 1 wei price truncates per term, not after summing")
}
