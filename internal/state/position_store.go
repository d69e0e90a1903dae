// ./internal/state/position_store.go
package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/elys-network/ilshield/internal/types"
)

// UpsertPosition inserts or replaces the insured position for an address.
// Positions are keyed by address so multiple users can be covered against the
// same pool.
func UpsertPosition(position types.UserPosition) error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}
	if position.Address == "" {
		return fmt.Errorf("position address cannot be empty")
	}
	if position.LpAmount.IsNil() || position.OriginalA.IsNil() || position.OriginalB.IsNil() {
		return fmt.Errorf("position amounts cannot be nil")
	}

	stmt := `
		INSERT INTO user_positions (address, lp_amount, original_a, original_b, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (address) DO UPDATE SET
			lp_amount = EXCLUDED.lp_amount,
			original_a = EXCLUDED.original_a,
			original_b = EXCLUDED.original_b,
			updated_at = EXCLUDED.updated_at;`

	_, err := DB.Exec(stmt,
		position.Address,
		position.LpAmount.String(),
		position.OriginalA.String(),
		position.OriginalB.String(),
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert position for %s: %w", position.Address, err)
	}

	log.Info().
		Str("address", position.Address).
		Str("lp_amount", position.LpAmount.String()).
		Msg("Upserted insured position")
	return nil
}

// GetPosition loads the insured position for an address.
func GetPosition(address string) (*types.UserPosition, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT address, lp_amount, original_a, original_b, updated_at
		FROM user_positions
		WHERE address = $1;`

	var position types.UserPosition
	var lpAmount, originalA, originalB string
	err := DB.QueryRow(query, address).Scan(
		&position.Address, &lpAmount, &originalA, &originalB, &position.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no position found for address %s: %w", address, err)
		}
		return nil, fmt.Errorf("failed to load position for %s: %w", address, err)
	}

	if position.LpAmount, err = scanScaledInt(lpAmount); err != nil {
		return nil, fmt.Errorf("position %s lp_amount: %w", address, err)
	}
	if position.OriginalA, err = scanScaledInt(originalA); err != nil {
		return nil, fmt.Errorf("position %s original_a: %w", address, err)
	}
	if position.OriginalB, err = scanScaledInt(originalB); err != nil {
		return nil, fmt.Errorf("position %s original_b: %w", address, err)
	}

	return &position, nil
}

// ListPositions returns all insured positions ordered by last update.
func ListPositions() ([]types.UserPosition, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	rows, err := DB.Query(`
		SELECT address, lp_amount, original_a, original_b, updated_at
		FROM user_positions
		ORDER BY updated_at DESC;`)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	defer rows.Close()

	var positions []types.UserPosition
	for rows.Next() {
		var position types.UserPosition
		var lpAmount, originalA, originalB string
		if err := rows.Scan(&position.Address, &lpAmount, &originalA, &originalB, &position.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan position row: %w", err)
		}
		if position.LpAmount, err = scanScaledInt(lpAmount); err != nil {
			return nil, fmt.Errorf("position %s lp_amount: %w", position.Address, err)
		}
		if position.OriginalA, err = scanScaledInt(originalA); err != nil {
			return nil, fmt.Errorf("position %s original_a: %w", position.Address, err)
		}
		if position.OriginalB, err = scanScaledInt(originalB); err != nil {
			return nil, fmt.Errorf("position %s original_b: %w", position.Address, err)
		}
		positions = append(positions, position)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("position row iteration failed: %w", err)
	}

	return positions, nil
}
