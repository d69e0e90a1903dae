// ./internal/state/claim_store.go
package state

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/elys-network/ilshield/internal/types"
)

// SaveClaimReceipt persists a settled claim. Settlement bookkeeping lives
// here, outside the engine: the engine's claim computation is idempotent and
// the receipt trail is what distinguishes repeated settlements.
func SaveClaimReceipt(receipt types.ClaimReceipt) (int64, error) {
	if DB == nil {
		return 0, fmt.Errorf("database not initialized")
	}

	query := `
		INSERT INTO claim_receipts (
			address, pool_id, il_fraction, holding_value, payout, settled_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING receipt_id;
	`

	var receiptID int64
	err := DB.QueryRow(
		query,
		receipt.Address, uint64(receipt.PoolID),
		receipt.ILFraction.String(), receipt.HoldingValue.String(), receipt.Payout.String(),
		receipt.SettledAt,
	).Scan(&receiptID)

	if err != nil {
		return 0, fmt.Errorf("failed to save claim receipt: %w", err)
	}

	log.Info().
		Int64("receipt_id", receiptID).
		Str("address", receipt.Address).
		Str("payout", receipt.Payout.String()).
		Msg("Claim receipt saved to database")

	return receiptID, nil
}

// GetClaimsByAddress returns up to limit settled claims for an address, most
// recent first.
func GetClaimsByAddress(address string, limit int) ([]types.ClaimReceipt, error) {
	return queryClaims(`
		SELECT receipt_id, address, pool_id, il_fraction, holding_value, payout, settled_at
		FROM claim_receipts
		WHERE address = $1
		ORDER BY settled_at DESC
		LIMIT $2;`, address, limit)
}

// GetRecentClaims returns up to limit settled claims across all addresses,
// most recent first.
func GetRecentClaims(limit int) ([]types.ClaimReceipt, error) {
	return queryClaims(`
		SELECT receipt_id, address, pool_id, il_fraction, holding_value, payout, settled_at
		FROM claim_receipts
		ORDER BY settled_at DESC
		LIMIT $1;`, limit)
}

func queryClaims(query string, args ...interface{}) ([]types.ClaimReceipt, error) {
	if DB == nil {
		return nil, fmt.Errorf("database not initialized")
	}

	// The limit is always the last argument.
	if limit, ok := args[len(args)-1].(int); ok && limit <= 0 {
		args[len(args)-1] = 20
	}

	rows, err := DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query claim receipts: %w", err)
	}
	defer rows.Close()

	var receipts []types.ClaimReceipt
	for rows.Next() {
		var receipt types.ClaimReceipt
		var rawPoolID uint64
		var ilFraction, holdingValue, payout string
		if err := rows.Scan(
			&receipt.ReceiptID, &receipt.Address, &rawPoolID,
			&ilFraction, &holdingValue, &payout, &receipt.SettledAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan claim receipt row: %w", err)
		}

		receipt.PoolID = types.PoolID(rawPoolID)
		if receipt.ILFraction, err = scanScaledInt(ilFraction); err != nil {
			return nil, fmt.Errorf("receipt %d il_fraction: %w", receipt.ReceiptID, err)
		}
		if receipt.HoldingValue, err = scanScaledInt(holdingValue); err != nil {
			return nil, fmt.Errorf("receipt %d holding_value: %w", receipt.ReceiptID, err)
		}
		if receipt.Payout, err = scanScaledInt(payout); err != nil {
			return nil, fmt.Errorf("receipt %d payout: %w", receipt.ReceiptID, err)
		}
		receipts = append(receipts, receipt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("claim receipt row iteration failed: %w", err)
	}

	return receipts, nil
}
