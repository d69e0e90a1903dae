// ./internal/state/snapshot_store.go
package state

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/elys-network/ilshield/internal/types"
)

// SavePoolSnapshot persists an observation of pool reserves and the oracle
// prices in effect when it was taken.
func SavePoolSnapshot(snapshot types.PoolSnapshot) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	query := `
		INSERT INTO pool_snapshots (
			pool_id, snapshot_timestamp,
			reserve_a, reserve_b, lp_total_supply,
			price_a, price_b
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING snapshot_id;
	`

	var snapshotID int64
	err := DB.QueryRow(
		query,
		uint64(snapshot.Pool.PoolID), snapshot.Timestamp,
		snapshot.Pool.ReserveA.String(), snapshot.Pool.ReserveB.String(), snapshot.Pool.LpTotalSupply.String(),
		snapshot.Prices.PriceA.String(), snapshot.Prices.PriceB.String(),
	).Scan(&snapshotID)

	if err != nil {
		return 0, fmt.Errorf("failed to save pool snapshot: %w", err)
	}

	log.Info().
		Int64("snapshot_id", snapshotID).
		Uint64("pool_id", uint64(snapshot.Pool.PoolID)).
		Msg("Pool snapshot saved to database")

	return snapshotID, nil
}

// GetLatestPoolSnapshot returns the most recent snapshot for the pool.
func GetLatestPoolSnapshot(poolID types.PoolID) (*types.PoolSnapshot, error) {
	snapshots, err := GetRecentPoolSnapshots(poolID, 1)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, fmt.Errorf("no snapshots found for pool %d: %w", poolID, sql.ErrNoRows)
	}
	return &snapshots[0], nil
}

// GetRecentPoolSnapshots returns up to limit snapshots for the pool, most
// recent first.
func GetRecentPoolSnapshots(poolID types.PoolID, limit int) ([]types.PoolSnapshot, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := DB.Query(`
		SELECT snapshot_id, pool_id, snapshot_timestamp,
		       reserve_a, reserve_b, lp_total_supply,
		       price_a, price_b
		FROM pool_snapshots
		WHERE pool_id = $1
		ORDER BY snapshot_timestamp DESC
		LIMIT $2;`, uint64(poolID), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pool snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []types.PoolSnapshot
	for rows.Next() {
		var snapshot types.PoolSnapshot
		var rawPoolID uint64
		var reserveA, reserveB, lpSupply, priceA, priceB string
		if err := rows.Scan(
			&snapshot.SnapshotID, &rawPoolID, &snapshot.Timestamp,
			&reserveA, &reserveB, &lpSupply, &priceA, &priceB,
		); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}

		snapshot.Pool.PoolID = types.PoolID(rawPoolID)
		if snapshot.Pool.ReserveA, err = scanScaledInt(reserveA); err != nil {
			return nil, fmt.Errorf("snapshot %d reserve_a: %w", snapshot.SnapshotID, err)
		}
		if snapshot.Pool.ReserveB, err = scanScaledInt(reserveB); err != nil {
			return nil, fmt.Errorf("snapshot %d reserve_b: %w", snapshot.SnapshotID, err)
		}
		if snapshot.Pool.LpTotalSupply, err = scanScaledInt(lpSupply); err != nil {
			return nil, fmt.Errorf("snapshot %d lp_total_supply: %w", snapshot.SnapshotID, err)
		}
		if snapshot.Prices.PriceA, err = scanScaledInt(priceA); err != nil {
			return nil, fmt.Errorf("snapshot %d price_a: %w", snapshot.SnapshotID, err)
		}
		if snapshot.Prices.PriceB, err = scanScaledInt(priceB); err != nil {
			return nil, fmt.Errorf("snapshot %d price_b: %w", snapshot.SnapshotID, err)
		}
		snapshots = append(snapshots, snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snapshot row iteration failed: %w", err)
	}

	return snapshots, nil
}
