// ./internal/state/policy_store.go
package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/elys-network/ilshield/internal/types"
)

// SavePolicy saves a new version of the coverage policy. When makeActive is
// true, any currently active policy for the config is deactivated in the same
// transaction so exactly one version is ever active.
func SavePolicy(policy types.Policy, configName string, version int, makeActive bool) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	tx, err := DB.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p) // Re-panic after rollback
		} else if err != nil {
			tx.Rollback() // Rollback if error occurred
		}
	}()

	if makeActive {
		stmtDeactivate := `UPDATE coverage_policies SET is_active = FALSE WHERE config_name = $1 AND is_active = TRUE;`
		_, err = tx.Exec(stmtDeactivate, configName)
		if err != nil {
			return 0, fmt.Errorf("failed to deactivate existing active policy for %s: %w", configName, err)
		}
	}

	stmt := `
        INSERT INTO coverage_policies (
            version, config_name, is_active, activated_at, created_at,
            threshold_bps, upper_cap_bps, payout_ratio_bps
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING policy_id;`

	var policyID int64
	currentTime := time.Now()
	err = tx.QueryRow(
		stmt,
		version, configName, makeActive, currentTime, currentTime,
		policy.ThresholdBps, policy.UpperCapBps, policy.PayoutRatioBps,
	).Scan(&policyID)

	if err != nil {
		return 0, fmt.Errorf("failed to insert coverage policy: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Info().
		Int("version", version).
		Str("config", configName).
		Int64("policy_id", policyID).
		Bool("active", makeActive).
		Uint64("threshold_bps", policy.ThresholdBps).
		Uint64("upper_cap_bps", policy.UpperCapBps).
		Uint64("payout_ratio_bps", policy.PayoutRatioBps).
		Msg("Saved coverage policy")
	return policyID, nil
}

// LoadActivePolicy loads the currently active coverage policy for the config.
// Returns sql.ErrNoRows wrapped when no policy has been activated yet.
func LoadActivePolicy(configName string) (*types.Policy, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	query := `
		SELECT threshold_bps, upper_cap_bps, payout_ratio_bps
		FROM coverage_policies
		WHERE config_name = $1 AND is_active = TRUE
		ORDER BY activated_at DESC
		LIMIT 1;`

	var policy types.Policy
	err := DB.QueryRow(query, configName).Scan(
		&policy.ThresholdBps, &policy.UpperCapBps, &policy.PayoutRatioBps,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no active coverage policy found for config %s: %w", configName, err)
		}
		return nil, fmt.Errorf("failed to load active coverage policy: %w", err)
	}

	return &policy, nil
}

// NextPolicyVersion returns one past the highest stored version for the
// config, starting at 1 when none exist.
func NextPolicyVersion(configName string) (int, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	var maxVersion sql.NullInt64
	err := DB.QueryRow(`SELECT MAX(version) FROM coverage_policies WHERE config_name = $1;`, configName).Scan(&maxVersion)
	if err != nil {
		return 0, fmt.Errorf("failed to query max policy version: %w", err)
	}
	if !maxVersion.Valid {
		return 1, nil
	}
	return int(maxVersion.Int64) + 1, nil
}
