/*

This file contains the types describing the covered AMM pool: the reserve
snapshot the engine values positions against, and the oracle price pair.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

type PoolID uint64

// PoolState is a snapshot of the covered pool's reserves. All amounts are
// normalized to 18 decimals regardless of the token's on-chain precision.
type PoolState struct {
	PoolID        PoolID      `json:"pool_id"`
	ReserveA      sdkmath.Int `json:"reserve_a"`       // Reserve of token A (e.g., ATOM)
	ReserveB      sdkmath.Int `json:"reserve_b"`       // Reserve of token B (e.g., USDC)
	LpTotalSupply sdkmath.Int `json:"lp_total_supply"` // Total LP share supply
}

// OraclePrices holds the USD prices for the pool's token pair, scaled by 1e18.
type OraclePrices struct {
	PriceA sdkmath.Int `json:"price_a"` // USD price of token A
	PriceB sdkmath.Int `json:"price_b"` // USD price of token B
}

// PoolSnapshot is a persisted observation of pool state plus the oracle
// prices in effect when it was taken.
type PoolSnapshot struct {
	SnapshotID int64        `json:"snapshot_id,omitempty"` // Auto-incremented by DB
	Pool       PoolState    `json:"pool"`
	Prices     OraclePrices `json:"prices"`
	Timestamp  time.Time    `json:"timestamp"`
}
