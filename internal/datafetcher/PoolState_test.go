package datafetcher

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	amm "github.com/elys-network/elys/v6/x/amm/types"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/ilshield/internal/types"
)

func testTokenMap() map[string]types.Token {
	return map[string]types.Token{
		"ueth": {
			Symbol:    "ETH",
			Denom:     "ueth",
			Precision: 18,
			PriceUSD:  sdkmath.NewIntWithDecimal(2000, 18),
		},
		"uusdc": {
			Symbol:    "USDC",
			Denom:     "uusdc",
			Precision: 6,
			PriceUSD:  sdkmath.NewIntWithDecimal(1, 18),
		},
	}
}

func testPool(assets ...sdk.Coin) amm.Pool {
	pool := amm.Pool{
		PoolId:      1,
		TotalShares: sdk.Coin{Denom: "amm/pool/1", Amount: sdkmath.NewIntWithDecimal(1_000_000, 18)},
	}
	for _, asset := range assets {
		pool.PoolAssets = append(pool.PoolAssets, amm.PoolAsset{Token: asset})
	}
	return pool
}

func TestPoolStateFromPool_PairsReservesByDenom(t *testing.T) {
	// The chain lists assets in its own order; here USDC comes first while
	// the configured A leg is ETH. Reserves must still land on their legs.
	pool := testPool(
		sdk.Coin{Denom: "uusdc", Amount: sdkmath.NewIntWithDecimal(1_000_000, 6)},
		sdk.Coin{Denom: "ueth", Amount: sdkmath.NewIntWithDecimal(500, 18)},
	)

	state, err := poolStateFromPool(pool, 1, "ueth", "uusdc", testTokenMap())
	require.NoError(t, err)

	require.Equal(t, sdkmath.NewIntWithDecimal(500, 18).String(), state.ReserveA.String())
	require.Equal(t, sdkmath.NewIntWithDecimal(1_000_000, 18).String(), state.ReserveB.String())
	require.Equal(t, sdkmath.NewIntWithDecimal(1_000_000, 18).String(), state.LpTotalSupply.String())

	// Swapping the configured legs swaps the reserves with them.
	flipped, err := poolStateFromPool(pool, 1, "uusdc", "ueth", testTokenMap())
	require.NoError(t, err)
	require.Equal(t, state.ReserveB.String(), flipped.ReserveA.String())
	require.Equal(t, state.ReserveA.String(), flipped.ReserveB.String())
}

func TestPoolStateFromPool_RejectsMismatchedPair(t *testing.T) {
	pool := testPool(
		sdk.Coin{Denom: "uatom", Amount: sdkmath.NewIntWithDecimal(10_000, 6)},
		sdk.Coin{Denom: "uusdc", Amount: sdkmath.NewIntWithDecimal(1_000_000, 6)},
	)

	_, err := poolStateFromPool(pool, 1, "ueth", "uusdc", testTokenMap())
	require.ErrorIs(t, err, ErrInvalidPoolData)
}

func TestPoolStateFromPool_RejectsBadInputs(t *testing.T) {
	valid := testPool(
		sdk.Coin{Denom: "ueth", Amount: sdkmath.NewIntWithDecimal(500, 18)},
		sdk.Coin{Denom: "uusdc", Amount: sdkmath.NewIntWithDecimal(1_000_000, 6)},
	)

	t.Run("wrong asset count", func(t *testing.T) {
		single := testPool(sdk.Coin{Denom: "ueth", Amount: sdkmath.NewIntWithDecimal(500, 18)})
		_, err := poolStateFromPool(single, 1, "ueth", "uusdc", testTokenMap())
		require.ErrorIs(t, err, ErrInvalidPoolData)
	})

	t.Run("empty leg denom", func(t *testing.T) {
		_, err := poolStateFromPool(valid, 1, "", "uusdc", testTokenMap())
		require.Error(t, err)
	})

	t.Run("identical leg denoms", func(t *testing.T) {
		_, err := poolStateFromPool(valid, 1, "ueth", "ueth", testTokenMap())
		require.Error(t, err)
	})

	t.Run("empty token map", func(t *testing.T) {
		_, err := poolStateFromPool(valid, 1, "ueth", "uusdc", nil)
		require.Error(t, err)
	})

	t.Run("missing token metadata", func(t *testing.T) {
		partial := map[string]types.Token{"ueth": testTokenMap()["ueth"]}
		_, err := poolStateFromPool(valid, 1, "ueth", "uusdc", partial)
		require.Error(t, err)
	})
}
