/*

This is a custom type for tokens which contains the chain metadata and oracle
price needed to normalize pool reserves and feed the valuation engine.

*/

package types

import sdkmath "cosmossdk.io/math"

type Token struct {
	Symbol        string      `json:"symbol"`         // e.g., "ATOM"
	Denom         string      `json:"denom"`          // e.g., "uatom" or "ibc/273...A8"
	Precision     int         `json:"precision"`      // e.g., 6 = 1000000 base units per token
	PriceUSD      sdkmath.Int `json:"price_usd"`      // USD price scaled by 1e18
	OracleSourced bool        `json:"oracle_sourced"` // Whether PriceUSD came from the oracle rather than AMM spot
}
