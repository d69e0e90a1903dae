/*

This file contains the coverage policy type and the combined snapshot the
engine computes over. Policy parameters are expressed in basis points
(10000 = 100%); everything else in the engine uses 1e18 scaling.

*/

package types

// Policy holds the banded coverage parameters.
type Policy struct {
	ThresholdBps   uint64 `json:"threshold_bps"`    // Minimum IL before any payout (e.g., 1000 = 10%)
	UpperCapBps    uint64 `json:"upper_cap_bps"`    // Maximum covered IL (e.g., 2000 = 20%)
	PayoutRatioBps uint64 `json:"payout_ratio_bps"` // Fraction of the covered loss paid out (e.g., 8000 = 80%)
}

// Snapshot bundles the three inputs a single computation runs over. The host
// assembles a fresh Snapshot per call; the engine never reaches into storage.
type Snapshot struct {
	Pool     PoolState    `json:"pool"`
	Prices   OraclePrices `json:"prices"`
	Position UserPosition `json:"position"`
}
