package engine

import (
	sdkmath "cosmossdk.io/math"

	"github.com/elys-network/ilshield/internal/types"
)

// scaled returns n whole units as a 1e18-scaled integer.
func scaled(n int64) sdkmath.Int {
	return sdkmath.NewInt(n).Mul(Scale)
}

// referenceSnapshot is the ETH/USDC scenario used throughout the tests:
// a 500 ETH / 1,000,000 USDC pool with 1,000,000 LP shares, the user holding
// 1,000 shares (0.1%) against an original deposit of 1 ETH + 2,000 USDC,
// priced at ETH = $2,000 and USDC = $1.
func referenceSnapshot() types.Snapshot {
	return types.Snapshot{
		Pool: types.PoolState{
			PoolID:        1,
			ReserveA:      scaled(500),
			ReserveB:      scaled(1_000_000),
			LpTotalSupply: scaled(1_000_000),
		},
		Prices: types.OraclePrices{
			PriceA: scaled(2000),
			PriceB: scaled(1),
		},
		Position: types.UserPosition{
			Address:   "elys1qexampleaddress",
			LpAmount:  scaled(1000),
			OriginalA: scaled(1),
			OriginalB: scaled(2000),
		},
	}
}

// referencePolicy is the 10% threshold / 20% cap / 80% ratio policy the
// reference scenario settles under.
func referencePolicy() types.Policy {
	return types.Policy{
		ThresholdBps:   1000,
		UpperCapBps:    2000,
		PayoutRatioBps: 8000,
	}
}
