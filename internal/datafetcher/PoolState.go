package datafetcher

import (
	"context"
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/cosmos/cosmos-sdk/types/query"
	amm "github.com/elys-network/elys/v6/x/amm/types"
	"google.golang.org/grpc"

	"github.com/elys-network/ilshield/internal/logger"
	"github.com/elys-network/ilshield/internal/types"
	"github.com/elys-network/ilshield/internal/utils"
)

var poolLogger = logger.GetForComponent("pool_retriever")
var ErrInvalidPoolData = errors.New("invalid pool data")
var ErrPoolNotFound = errors.New("covered pool not found on chain")

// lpShareDecimals is the fixed precision of Elys LP share tokens.
const lpShareDecimals = 18

// GetPoolState fetches the covered pool's reserves and LP supply with strict
// validation - no partial results for financial calculations. Reserves are
// paired to the configured leg denoms and normalized to 18 decimals using the
// token metadata in tokenMap.
func GetPoolState(grpcClient *grpc.ClientConn, poolID types.PoolID, denomA, denomB string, tokenMap map[string]types.Token) (*types.PoolState, error) {
	poolLogger.Info().Uint64("poolID", uint64(poolID)).Msg("Starting strict pool state retrieval")

	if grpcClient == nil {
		return nil, errors.New("GRPC client cannot be nil")
	}

	pool, err := fetchPool(grpcClient, poolID)
	if err != nil {
		return nil, err
	}

	poolState, err := poolStateFromPool(*pool, poolID, denomA, denomB, tokenMap)
	if err != nil {
		poolLogger.Error().Err(err).Uint64("poolID", uint64(poolID)).Msg("AMM pool validation failed")
		return nil, err
	}

	poolLogger.Info().
		Uint64("poolID", uint64(poolID)).
		Str("reserveA", poolState.ReserveA.String()).
		Str("reserveB", poolState.ReserveB.String()).
		Str("lpTotalSupply", poolState.LpTotalSupply.String()).
		Msg("Successfully fetched pool state")

	return poolState, nil
}

// poolStateFromPool validates the raw AMM pool and maps it onto the engine's
// A/B legs. The chain does not guarantee asset ordering, so each reserve is
// selected by its denom; a pool whose denom set differs from the configured
// pair is rejected outright.
func poolStateFromPool(pool amm.Pool, poolID types.PoolID, denomA, denomB string, tokenMap map[string]types.Token) (*types.PoolState, error) {
	if denomA == "" || denomB == "" || denomA == denomB {
		return nil, fmt.Errorf("invalid leg denoms for pool %d: %q / %q", poolID, denomA, denomB)
	}
	if len(tokenMap) == 0 {
		return nil, errors.New("token map cannot be empty")
	}

	if err := validateAMMPool(pool); err != nil {
		return nil, fmt.Errorf("pool %d validation failed: %w", poolID, err)
	}

	balances := make(map[string]sdkmath.Int, len(pool.PoolAssets))
	for _, asset := range pool.PoolAssets {
		balances[asset.Token.Denom] = asset.Token.Amount
	}

	balanceA, hasA := balances[denomA]
	balanceB, hasB := balances[denomB]
	if !hasA || !hasB {
		return nil, fmt.Errorf("%w: pool %d assets do not match configured pair %s/%s", ErrInvalidPoolData, poolID, denomA, denomB)
	}

	tokenA, hasTokenA := tokenMap[denomA]
	if !hasTokenA {
		return nil, fmt.Errorf("pool %d token A (%s) not found in validated token data", poolID, denomA)
	}
	tokenB, hasTokenB := tokenMap[denomB]
	if !hasTokenB {
		return nil, fmt.Errorf("pool %d token B (%s) not found in validated token data", poolID, denomB)
	}

	reserveA, err := utils.NormalizeAmount(balanceA, tokenA.Precision)
	if err != nil {
		return nil, fmt.Errorf("pool %d reserve A normalization failed: %w", poolID, err)
	}
	reserveB, err := utils.NormalizeAmount(balanceB, tokenB.Precision)
	if err != nil {
		return nil, fmt.Errorf("pool %d reserve B normalization failed: %w", poolID, err)
	}
	lpTotalSupply, err := utils.NormalizeAmount(pool.TotalShares.Amount, lpShareDecimals)
	if err != nil {
		return nil, fmt.Errorf("pool %d total shares normalization failed: %w", poolID, err)
	}

	return &types.PoolState{
		PoolID:        poolID,
		ReserveA:      reserveA,
		ReserveB:      reserveB,
		LpTotalSupply: lpTotalSupply,
	}, nil
}

// fetchPool pages through the AMM pool list until the covered pool is found.
func fetchPool(grpcClient *grpc.ClientConn, poolID types.PoolID) (*amm.Pool, error) {
	ammClient := amm.NewQueryClient(grpcClient)

	var nextKey []byte
	pageLimit := uint64(1000) // Reasonable page size for memory efficiency

	for {
		paginationReq := &query.PageRequest{
			Key:        nextKey,
			Limit:      pageLimit,
			CountTotal: false,
		}

		queryPools, err := ammClient.PoolAll(context.Background(), &amm.QueryAllPoolRequest{
			Pagination: paginationReq,
		})
		if err != nil {
			poolLogger.Error().Err(err).Msg("Failed to fetch pools from AMM")
			return nil, fmt.Errorf("AMM pool query failed: %w", err)
		}

		if queryPools == nil {
			poolLogger.Error().Msg("Received nil response from AMM")
			return nil, errors.New("nil response from AMM module")
		}

		for i := range queryPools.Pool {
			if queryPools.Pool[i].PoolId == uint64(poolID) {
				pool := queryPools.Pool[i]
				return &pool, nil
			}
		}

		if queryPools.Pagination == nil || len(queryPools.Pagination.NextKey) == 0 {
			break
		}
		nextKey = queryPools.Pagination.NextKey

		poolLogger.Debug().
			Int("fetchedPools", len(queryPools.Pool)).
			Msg("Covered pool not in page, continuing pagination")
	}

	return nil, fmt.Errorf("%w: pool %d", ErrPoolNotFound, poolID)
}

// validateAMMPool performs strict validation on AMM pool data before any of
// it feeds the valuation engine.
func validateAMMPool(pool amm.Pool) error {
	if len(pool.PoolAssets) != 2 {
		return fmt.Errorf("%w: pool %d has %d assets, expected exactly 2", ErrInvalidPoolData, pool.PoolId, len(pool.PoolAssets))
	}

	for i, asset := range pool.PoolAssets {
		if asset.Token.Amount.IsNil() {
			return fmt.Errorf("%w: pool %d asset %d has nil amount", ErrInvalidPoolData, pool.PoolId, i)
		}
		if asset.Token.Amount.IsNegative() {
			return fmt.Errorf("%w: pool %d asset %d has negative amount %s", ErrInvalidPoolData, pool.PoolId, i, asset.Token.Amount.String())
		}
		if asset.Token.Denom == "" {
			return fmt.Errorf("%w: pool %d asset %d has empty denom", ErrInvalidPoolData, pool.PoolId, i)
		}
	}

	if pool.TotalShares.Amount.IsNil() || pool.TotalShares.Amount.IsNegative() {
		return fmt.Errorf("%w: pool %d has invalid total shares: %s", ErrInvalidPoolData, pool.PoolId, pool.TotalShares.Amount.String())
	}

	return nil
}
