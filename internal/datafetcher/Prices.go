package datafetcher

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cosmos/cosmos-sdk/types/query"
	assetprofiletypes "github.com/elys-network/elys/v6/x/assetprofile/types"
	tier "github.com/elys-network/elys/v6/x/tier/types"
	"google.golang.org/grpc"

	"github.com/elys-network/ilshield/internal/logger"
	"github.com/elys-network/ilshield/internal/types"
	"github.com/elys-network/ilshield/internal/utils"
)

var priceLogger = logger.GetForComponent("price_retriever")
var ErrMissingRequiredData = errors.New("missing required token data")

// GetPairTokens fetches metadata and oracle prices for the covered pool's
// token pair, keyed by denom. Returns error if either token fails validation -
// no partial results with financial data.
func GetPairTokens(grpcClient *grpc.ClientConn, denomA, denomB string) (map[string]types.Token, error) {
	priceLogger.Info().Str("denomA", denomA).Str("denomB", denomB).Msg("Starting strict token pair retrieval")

	if grpcClient == nil {
		return nil, errors.New("GRPC client cannot be nil")
	}
	if strings.TrimSpace(denomA) == "" || strings.TrimSpace(denomB) == "" {
		return nil, errors.New("pair denoms cannot be empty")
	}

	entries, err := fetchAllTokenEntries(grpcClient)
	if err != nil {
		priceLogger.Error().Err(err).Msg("Failed to fetch token metadata")
		return nil, fmt.Errorf("token metadata fetch failed: %w", err)
	}

	priceMap, err := fetchAllTokenPrices(grpcClient)
	if err != nil {
		priceLogger.Error().Err(err).Msg("Failed to fetch token prices")
		return nil, fmt.Errorf("token price fetch failed: %w", err)
	}

	entryMap := make(map[string]assetprofiletypes.Entry)
	for _, entry := range entries {
		entryMap[entry.Denom] = entry
		// Also add BaseDenom for easier lookup
		if entry.BaseDenom != entry.Denom {
			entryMap[entry.BaseDenom] = entry
		}
	}

	tokenMap := make(map[string]types.Token, 2)
	for _, denom := range []string{denomA, denomB} {
		token, err := buildToken(denom, entryMap, priceMap)
		if err != nil {
			return nil, err
		}
		tokenMap[denom] = token
	}

	priceLogger.Info().Int("tokenCount", len(tokenMap)).Msg("Successfully fetched token pair data")
	return tokenMap, nil
}

// GetOraclePrices fetches the scaled USD price pair for the covered pool.
func GetOraclePrices(grpcClient *grpc.ClientConn, denomA, denomB string) (*types.OraclePrices, error) {
	tokenMap, err := GetPairTokens(grpcClient, denomA, denomB)
	if err != nil {
		return nil, err
	}

	prices := &types.OraclePrices{
		PriceA: tokenMap[denomA].PriceUSD,
		PriceB: tokenMap[denomB].PriceUSD,
	}

	priceLogger.Info().
		Str("priceA", prices.PriceA.String()).
		Str("priceB", prices.PriceB.String()).
		Msg("Oracle prices retrieved")

	return prices, nil
}

// buildToken assembles a validated Token from the metadata and price maps.
func buildToken(denom string, entryMap map[string]assetprofiletypes.Entry, priceMap map[string]*tier.Price) (types.Token, error) {
	entry, hasEntry := entryMap[denom]
	if !hasEntry {
		return types.Token{}, fmt.Errorf("%w: no assetprofile entry for denom %s", ErrMissingRequiredData, denom)
	}
	if entry.Decimals == 0 {
		return types.Token{}, fmt.Errorf("%w: token %s has zero decimals", ErrMissingRequiredData, entry.DisplayName)
	}

	price, hasPrice := priceMap[denom]
	if !hasPrice || price == nil {
		return types.Token{}, fmt.Errorf("%w: no price entry for denom %s", ErrMissingRequiredData, denom)
	}

	oracleSourced := !price.OraclePrice.IsNil() && price.OraclePrice.IsPositive()
	source := price.OraclePrice
	if !oracleSourced {
		// Fall back to the AMM spot price when the oracle has no feed.
		source = price.AmmPrice
	}

	scaledPrice, err := utils.PriceToScaled(source)
	if err != nil {
		return types.Token{}, fmt.Errorf("price conversion failed for %s: %w", entry.DisplayName, err)
	}
	if scaledPrice.IsZero() {
		return types.Token{}, fmt.Errorf("no valid price available for token %s: oracle=%s, amm=%s",
			entry.DisplayName, price.OraclePrice.String(), price.AmmPrice.String())
	}

	return types.Token{
		Symbol:        strings.ToUpper(entry.DisplayName),
		Denom:         denom,
		Precision:     int(entry.Decimals),
		PriceUSD:      scaledPrice,
		OracleSourced: oracleSourced,
	}, nil
}

// fetchAllTokenEntries fetches all token entries from the assetprofile module
// using pagination to handle large datasets.
func fetchAllTokenEntries(grpcClient *grpc.ClientConn) ([]assetprofiletypes.Entry, error) {
	assetProfileClient := assetprofiletypes.NewQueryClient(grpcClient)

	var allEntries []assetprofiletypes.Entry
	var nextKey []byte
	pageLimit := uint64(500) // Reasonable page size for token entries

	for {
		paginationReq := &query.PageRequest{
			Key:        nextKey,
			Limit:      pageLimit,
			CountTotal: false,
		}

		response, err := assetProfileClient.EntryAll(
			context.Background(),
			&assetprofiletypes.QueryAllEntryRequest{Pagination: paginationReq},
		)
		if err != nil {
			return nil, fmt.Errorf("assetprofile query failed: %w", err)
		}
		if response == nil {
			return nil, errors.New("nil response from assetprofile module")
		}

		allEntries = append(allEntries, response.Entry...)

		if response.Pagination == nil || len(response.Pagination.NextKey) == 0 {
			break
		}
		nextKey = response.Pagination.NextKey
	}

	if len(allEntries) == 0 {
		return nil, errors.New("no token entries available from assetprofile module")
	}

	return allEntries, nil
}

// fetchAllTokenPrices fetches all token prices from the tier module and
// returns them as a map keyed by denom.
func fetchAllTokenPrices(grpcClient *grpc.ClientConn) (map[string]*tier.Price, error) {
	tierClient := tier.NewQueryClient(grpcClient)

	var allPrices []*tier.Price
	var nextKey []byte
	pageLimit := uint64(500) // Reasonable page size for price entries

	for {
		paginationReq := &query.PageRequest{
			Key:        nextKey,
			Limit:      pageLimit,
			CountTotal: false,
		}

		response, err := tierClient.GetAllPrices(
			context.Background(),
			&tier.QueryGetAllPricesRequest{Pagination: paginationReq},
		)
		if err != nil {
			return nil, fmt.Errorf("tier module price query failed: %w", err)
		}
		if response == nil {
			return nil, errors.New("nil response from tier module")
		}

		allPrices = append(allPrices, response.Prices...)

		if response.Pagination == nil || len(response.Pagination.NextKey) == 0 {
			break
		}
		nextKey = response.Pagination.NextKey
	}

	if len(allPrices) == 0 {
		return nil, errors.New("no token prices available from tier module")
	}

	priceMap := make(map[string]*tier.Price)
	for _, price := range allPrices {
		if price == nil {
			return nil, errors.New("received nil price entry from tier module")
		}
		if strings.TrimSpace(price.Denom) == "" {
			return nil, errors.New("received price entry with empty denom")
		}
		priceMap[price.Denom] = price
	}

	return priceMap, nil
}
