/*

This file contains the types for insured LP positions and the results the
engine produces for them: valuations and settled claim receipts.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// UserPosition describes a single insured LP position. LpAmount is the LP
// shares held now; OriginalA/OriginalB are the token amounts deposited when
// the position was opened. All amounts are 18-decimal normalized.
type UserPosition struct {
	Address   string      `json:"address"` // Bech32 address of the position owner
	LpAmount  sdkmath.Int `json:"lp_amount"`
	OriginalA sdkmath.Int `json:"original_a"`
	OriginalB sdkmath.Int `json:"original_b"`
	UpdatedAt time.Time   `json:"updated_at,omitempty"`
}

// Valuation is the full output of valuing a position against one snapshot.
// UserShare and the two values are scaled by 1e18.
type Valuation struct {
	UserShare    sdkmath.Int `json:"user_share"`    // Fraction of the pool owned, 1e18 = 100%
	CurrentA     sdkmath.Int `json:"current_a"`     // Pro-rata amount of token A
	CurrentB     sdkmath.Int `json:"current_b"`     // Pro-rata amount of token B
	LpValue      sdkmath.Int `json:"lp_value"`      // USD value of the position now
	HoldingValue sdkmath.Int `json:"holding_value"` // USD value of the original deposit at current prices
}

// ClaimReceipt records a settled claim. ILFraction is scaled by 1e18;
// HoldingValue and Payout are scaled USD amounts.
type ClaimReceipt struct {
	ReceiptID    int64       `json:"receipt_id,omitempty"` // Auto-incremented by DB
	Address      string      `json:"address"`
	PoolID       PoolID      `json:"pool_id"`
	ILFraction   sdkmath.Int `json:"il_fraction"`
	HoldingValue sdkmath.Int `json:"holding_value"`
	Payout       sdkmath.Int `json:"payout"`
	SettledAt    time.Time   `json:"settled_at"`
}
