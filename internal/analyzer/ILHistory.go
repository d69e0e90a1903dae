/*
This file contains the historical analysis of a user's position across the
persisted pool snapshots. For every stored observation it replays the pure
valuation pipeline, producing a time series of LP value, holding value and
impermanent-loss fraction. The series backs the position history API and the
price-ratio volatility estimate.
*/
package analyzer

import (
	"errors"
	"fmt"
	"time"

	sdkmath "cosmossdk.io/math"

	"github.com/elys-network/ilshield/internal/engine"
	"github.com/elys-network/ilshield/internal/types"
	"github.com/elys-network/ilshield/internal/utils"
)

// ErrNoSnapshots indicates that no persisted pool observations were available
// to build a history from.
var ErrNoSnapshots = errors.New("no pool snapshots available for history")

// HistoryPoint is one replayed observation: the valuation of the position at
// the moment the snapshot was taken.
type HistoryPoint struct {
	SnapshotID int64       `json:"snapshot_id"`
	Timestamp  time.Time   `json:"timestamp"`
	PriceRatio float64     `json:"price_ratio"`
	LpValue    sdkmath.Int `json:"lp_value"`
	HoldingVal sdkmath.Int `json:"holding_value"`
	ILFraction sdkmath.Int `json:"il_fraction"`
}

// BuildILHistory replays the valuation pipeline for the position against each
// snapshot and returns the resulting series, oldest first. It is strict: a
// snapshot that fails valuation aborts the whole history rather than producing
// a partial series with silent gaps.
func BuildILHistory(snapshots []types.PoolSnapshot, position types.UserPosition) ([]HistoryPoint, error) {
	if len(snapshots) == 0 {
		return nil, ErrNoSnapshots
	}

	points := make([]HistoryPoint, 0, len(snapshots))
	for _, snapshot := range snapshots {
		valuation, err := engine.Value(snapshot.Pool, snapshot.Prices, position)
		if err != nil {
			return nil, fmt.Errorf("valuation failed for snapshot %d: %w", snapshot.SnapshotID, err)
		}

		ilFraction, err := engine.ILFraction(valuation.LpValue, valuation.HoldingValue)
		if err != nil {
			return nil, fmt.Errorf("IL calculation failed for snapshot %d: %w", snapshot.SnapshotID, err)
		}

		ratio, err := priceRatio(snapshot.Prices)
		if err != nil {
			return nil, fmt.Errorf("price ratio failed for snapshot %d: %w", snapshot.SnapshotID, err)
		}

		points = append(points, HistoryPoint{
			SnapshotID: snapshot.SnapshotID,
			Timestamp:  snapshot.Timestamp,
			PriceRatio: ratio,
			LpValue:    valuation.LpValue,
			HoldingVal: valuation.HoldingValue,
			ILFraction: ilFraction,
		})
	}

	// Snapshots arrive most recent first from storage; the series reads
	// oldest first.
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}

	return points, nil
}

// priceRatio converts the scaled oracle prices to a display-precision A/B
// ratio. Float precision is acceptable here: the ratio feeds volatility
// estimation and charts, never settlement arithmetic.
func priceRatio(prices types.OraclePrices) (float64, error) {
	priceA, err := utils.ScaledToFloat64(prices.PriceA)
	if err != nil {
		return 0, fmt.Errorf("price A: %w", err)
	}
	priceB, err := utils.ScaledToFloat64(prices.PriceB)
	if err != nil {
		return 0, fmt.Errorf("price B: %w", err)
	}
	if priceB <= 0 {
		return 0, fmt.Errorf("price B must be positive, got %f", priceB)
	}
	return priceA / priceB, nil
}
